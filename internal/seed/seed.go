// Package seed popula o banco de desenvolvimento com uma conta e alguns dados
// de exemplo. Idempotente: não faz nada se já existir usuário.
package seed

import (
	"context"
	"log"

	"gorm.io/gorm"

	"github.com/riqueLenis/cognifyPsi/internal/auth"
	"github.com/riqueLenis/cognifyPsi/internal/repo"
)

func Run(ctx context.Context, db *gorm.DB) error {
	var n int
	if err := db.WithContext(ctx).Raw("SELECT COUNT(*) FROM users").Scan(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		log.Printf("seed: usuários existem, nada a fazer")
		return nil
	}

	hash, err := auth.HashPassword("ChangeMe123!")
	if err != nil {
		return err
	}
	name := "Dra. Ana Demo"
	ownerID, err := repo.CreateUser(ctx, db, "demo@cognifypsi.local", hash, &name)
	if err != nil {
		return err
	}

	phone := "(11) 98765-4321"
	patient := repo.Patient{
		OwnerID:  ownerID,
		FullName: "Maria Exemplo",
		Phone:    &phone,
		Status:   "ativo",
	}
	patientID, err := repo.CreatePatient(ctx, db, &patient)
	if err != nil {
		return err
	}

	price := "150,00"
	session := repo.Session{
		OwnerID:       ownerID,
		PatientID:     patientID,
		Date:          "2024-06-10",
		SessionType:   "individual",
		Status:        "agendada",
		Price:         &price,
		PaymentStatus: "pendente",
	}
	if _, err := repo.CreateSession(ctx, db, &session); err != nil {
		return err
	}

	psyName := "Dra. Ana Demo"
	settings := repo.ClinicSettings{
		OwnerID:          ownerID,
		PsychologistName: &psyName,
	}
	if err := repo.UpsertSettings(ctx, db, &settings); err != nil {
		return err
	}

	log.Printf("seed: conta demo criada (demo@cognifypsi.local / ChangeMe123!)")
	return nil
}
