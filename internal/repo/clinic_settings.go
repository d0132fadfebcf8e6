package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClinicSettings guarda as preferências da clínica (uma linha por owner).
type ClinicSettings struct {
	ID                 uuid.UUID
	OwnerID            uuid.UUID
	ClinicName         *string
	PsychologistName   *string
	CRPNumber          *string `gorm:"column:crp_number"`
	Phone              *string
	Email              *string
	Address            *string
	SessionDuration    int
	SessionPrice       *string
	CancellationPolicy *string
	ReminderHours      int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

const settingsCols = `
	id, owner_id, clinic_name, psychologist_name, crp_number, phone, email, address,
	session_duration, session_price, cancellation_policy, reminder_hours, created_at, updated_at
`

func SettingsByOwner(ctx context.Context, db *gorm.DB, ownerID uuid.UUID) (*ClinicSettings, error) {
	var s ClinicSettings
	err := db.WithContext(ctx).Raw(`
		SELECT `+settingsCols+` FROM clinic_settings WHERE owner_id = ?
	`, ownerID).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

// UpsertSettings cria ou atualiza as configurações do owner (uma linha por tenant).
func UpsertSettings(ctx context.Context, db *gorm.DB, s *ClinicSettings) error {
	if s.SessionDuration <= 0 {
		s.SessionDuration = 50
	}
	if s.ReminderHours <= 0 {
		s.ReminderHours = 24
	}
	var res struct{ ID uuid.UUID }
	err := db.WithContext(ctx).Raw(`
		INSERT INTO clinic_settings (
			owner_id, clinic_name, psychologist_name, crp_number, phone, email, address,
			session_duration, session_price, cancellation_policy, reminder_hours
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_id) DO UPDATE SET
			clinic_name = EXCLUDED.clinic_name,
			psychologist_name = EXCLUDED.psychologist_name,
			crp_number = EXCLUDED.crp_number,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			address = EXCLUDED.address,
			session_duration = EXCLUDED.session_duration,
			session_price = EXCLUDED.session_price,
			cancellation_policy = EXCLUDED.cancellation_policy,
			reminder_hours = EXCLUDED.reminder_hours,
			updated_at = now()
		RETURNING id
	`, s.OwnerID, s.ClinicName, s.PsychologistName, s.CRPNumber, s.Phone, s.Email, s.Address,
		s.SessionDuration, s.SessionPrice, s.CancellationPolicy, s.ReminderHours).Scan(&res).Error
	if err != nil {
		return err
	}
	s.ID = res.ID
	return nil
}

func DeleteSettings(ctx context.Context, db *gorm.DB, ownerID uuid.UUID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM clinic_settings WHERE owner_id = ?`, ownerID).Error
}
