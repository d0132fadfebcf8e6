package api

import (
	"encoding/json"
	"net/http"

	"gorm.io/gorm"

	"github.com/riqueLenis/cognifyPsi/internal/ai"
	"github.com/riqueLenis/cognifyPsi/internal/cache"
	"github.com/riqueLenis/cognifyPsi/internal/config"
	"github.com/riqueLenis/cognifyPsi/internal/finance"
	"github.com/riqueLenis/cognifyPsi/internal/whatsapp"
)

// Handler concentra as dependências dos endpoints. Nada de estado global:
// tudo entra por injeção no main.
type Handler struct {
	DB         *gorm.DB
	Cfg        *config.Config
	Cache      *cache.TTL
	Reconciler *finance.Reconciler
	WhatsApp   *whatsapp.Dispatcher
	AI         *ai.Client
}

func NewHandler(db *gorm.DB, cfg *config.Config, c *cache.TTL) *Handler {
	return &Handler{
		DB:         db,
		Cfg:        cfg,
		Cache:      c,
		Reconciler: finance.NewReconciler(finance.GormStore{DB: db}),
		WhatsApp:   whatsapp.NewDispatcher(db, cfg),
		AI:         ai.NewClient(cfg),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// queryFilters extrai os filtros de igualdade da query string, fora dos
// parâmetros de paginação. Chaves não reconhecidas são ignoradas no repo.
func queryFilters(r *http.Request) map[string]string {
	filters := map[string]string{}
	for key, vals := range r.URL.Query() {
		if key == "limit" || key == "offset" {
			continue
		}
		if len(vals) > 0 && vals[0] != "" {
			filters[key] = vals[0]
		}
	}
	return filters
}
