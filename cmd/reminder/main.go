package main

import (
	"context"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/riqueLenis/cognifyPsi/internal/config"
	"github.com/riqueLenis/cognifyPsi/internal/migrate"
	"github.com/riqueLenis/cognifyPsi/internal/reminder"
	"github.com/riqueLenis/cognifyPsi/internal/whatsapp"
)

func main() {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	ctx := context.Background()
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("db.DB: %v", err)
	}
	defer func() { _ = sqlDB.Close() }()
	if err := sqlDB.PingContext(ctx); err != nil {
		log.Fatalf("ping: %v", err)
	}
	if err := migrate.Run(ctx, db, "migrations"); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	tzName := os.Getenv("REMINDER_CRON_TZ")
	if tzName == "" {
		tzName = "America/Sao_Paulo"
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		log.Printf("REMINDER_CRON_TZ=%s invalid, using UTC: %v", tzName, err)
		loc = time.UTC
	}
	date := reminder.Tomorrow(loc)

	var sender reminder.Sender
	if cfg.WhatsAppEnabled && cfg.WhatsAppProvider != "disabled" && cfg.WhatsAppProvider != "link" && cfg.WhatsAppProvider != "" {
		sender = whatsapp.NewSender(cfg)
	}
	sent, skipped := reminder.SendSessionReminders(ctx, db, date, sender, nil)
	log.Printf("[reminder] done: sent=%d skipped=%d date=%s", sent, skipped, date)
}
