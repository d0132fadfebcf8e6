package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/riqueLenis/cognifyPsi/internal/api"
	"github.com/riqueLenis/cognifyPsi/internal/cache"
	"github.com/riqueLenis/cognifyPsi/internal/config"
	"github.com/riqueLenis/cognifyPsi/internal/middleware"
	"github.com/riqueLenis/cognifyPsi/internal/migrate"
	"github.com/riqueLenis/cognifyPsi/internal/seed"
)

func main() {
	cfg := config.Load()
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			log.Fatalf("conexão postgres: %v", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			log.Fatalf("pool postgres: %v", err)
		}
		if cfg.DBMaxConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.DBMaxConns)
		}
		if err := sqlDB.Ping(); err != nil {
			log.Fatalf("ping postgres: %v", err)
		}
		if err := migrate.Run(context.Background(), db, "migrations"); err != nil {
			log.Fatalf("migrations: %v", err)
		}
		if err := seed.Run(context.Background(), db); err != nil {
			log.Printf("seed (ignored if already applied): %v", err)
		}
	}

	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"no database"}`))
			return
		}
		sqlDB, err := db.DB()
		if err != nil || sqlDB.Ping() != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"db unhealthy"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	h := api.NewHandler(db, cfg, cache.New(30*time.Second))

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	apiRouter.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	apiRouter.HandleFunc("/auth/exists", h.EmailExists).Methods(http.MethodGet)

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.RequireAuthMiddleware(cfg.JWTSecret))
	protected.HandleFunc("/me", h.Me).Methods(http.MethodGet)

	protected.HandleFunc("/patients", h.ListPatients).Methods(http.MethodGet)
	protected.HandleFunc("/patients", h.CreatePatient).Methods(http.MethodPost)
	protected.HandleFunc("/patients/{patientId}", h.GetPatient).Methods(http.MethodGet)
	protected.HandleFunc("/patients/{patientId}", h.UpdatePatient).Methods(http.MethodPut)
	protected.HandleFunc("/patients/{patientId}", h.DeletePatient).Methods(http.MethodDelete)

	protected.HandleFunc("/sessions", h.ListSessions).Methods(http.MethodGet)
	protected.HandleFunc("/sessions", h.CreateSession).Methods(http.MethodPost)
	protected.HandleFunc("/sessions/{sessionId}", h.GetSession).Methods(http.MethodGet)
	protected.HandleFunc("/sessions/{sessionId}", h.UpdateSession).Methods(http.MethodPut)
	protected.HandleFunc("/sessions/{sessionId}", h.DeleteSession).Methods(http.MethodDelete)
	protected.HandleFunc("/sessions/{sessionId}/whatsapp-link", h.SessionWhatsAppLink).Methods(http.MethodGet)

	protected.HandleFunc("/medical-records", h.ListRecords).Methods(http.MethodGet)
	protected.HandleFunc("/medical-records", h.CreateRecord).Methods(http.MethodPost)
	protected.HandleFunc("/medical-records/{recordId}", h.GetRecord).Methods(http.MethodGet)
	protected.HandleFunc("/medical-records/{recordId}", h.UpdateRecord).Methods(http.MethodPut)
	protected.HandleFunc("/medical-records/{recordId}", h.DeleteRecord).Methods(http.MethodDelete)

	protected.HandleFunc("/financial", h.ListTransactions).Methods(http.MethodGet)
	protected.HandleFunc("/financial", h.CreateTransaction).Methods(http.MethodPost)
	protected.HandleFunc("/financial/export", h.ExportTransactionsXLSX).Methods(http.MethodGet)
	protected.HandleFunc("/financial/{transactionId}", h.GetTransaction).Methods(http.MethodGet)
	protected.HandleFunc("/financial/{transactionId}", h.UpdateTransaction).Methods(http.MethodPut)
	protected.HandleFunc("/financial/{transactionId}", h.DeleteTransaction).Methods(http.MethodDelete)

	protected.HandleFunc("/clinic-settings", h.GetSettings).Methods(http.MethodGet)
	protected.HandleFunc("/clinic-settings", h.PutSettings).Methods(http.MethodPut)
	protected.HandleFunc("/clinic-settings", h.DeleteSettings).Methods(http.MethodDelete)

	protected.HandleFunc("/integrations/core/invoke-llm", h.InvokeLLM).Methods(http.MethodPost)

	protected.HandleFunc("/lgpd/patients/{patientId}/export", h.ExportPatientData).Methods(http.MethodGet)
	protected.HandleFunc("/lgpd/patients/{patientId}/consent", h.SetConsent).Methods(http.MethodPost)
	protected.HandleFunc("/lgpd/patients/{patientId}", h.ErasePatient).Methods(http.MethodDelete)
	protected.HandleFunc("/lgpd/audit", h.ListAuditEvents).Methods(http.MethodGet)

	chain := middleware.Recover(middleware.RequestID(middleware.Timeout(cfg.RequestTimeoutSec)(middleware.CORS(cfg.CORSOrigins)(middleware.Gzip(r)))))

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      chain,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("backend listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
