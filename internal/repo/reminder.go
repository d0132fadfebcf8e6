package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionReminderRow é uma sessão agendada com os dados necessários para o
// lembrete de véspera: telefone e nome do paciente, nome do profissional.
type SessionReminderRow struct {
	SessionID        uuid.UUID
	OwnerID          uuid.UUID
	PatientID        uuid.UUID
	PatientName      string
	PatientPhone     *string
	Date             string
	StartTime        *string
	PsychologistName *string
}

// SessionsForReminder lista as sessões agendadas na data (YYYY-MM-DD), de
// todos os owners, com paciente e configurações resolvidos no mesmo SELECT.
func SessionsForReminder(ctx context.Context, db *gorm.DB, date string) ([]SessionReminderRow, error) {
	var rows []SessionReminderRow
	err := db.WithContext(ctx).Raw(`
		SELECT
			s.id AS session_id,
			s.owner_id,
			s.patient_id,
			p.full_name AS patient_name,
			p.phone AS patient_phone,
			s.session_date::text AS date,
			s.start_time,
			cs.psychologist_name
		FROM sessions s
		JOIN patients p ON p.id = s.patient_id AND p.owner_id = s.owner_id
		LEFT JOIN clinic_settings cs ON cs.owner_id = s.owner_id
		WHERE s.session_date = ?::date AND s.status = 'agendada'
		ORDER BY s.start_time NULLS LAST
	`, date).Scan(&rows).Error
	return rows, err
}
