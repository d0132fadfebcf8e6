package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session é uma sessão clínica agendada ou realizada.
// Date é string YYYY-MM-DD (DATE no banco, lida com ::text); Price guarda o valor
// como o usuário digitou ("150", "150,50") e é interpretado na reconciliação.
type Session struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	PatientID     uuid.UUID
	Date          string `gorm:"column:date"`
	StartTime     *string
	EndTime       *string
	SessionType   string
	Frequency     *string
	Status        string
	Price         *string
	PaymentStatus string
	Notes         *string
	// Controle do envio de confirmação por WhatsApp (fingerprint de data/hora/profissional).
	WhatsAppFingerprint *string    `gorm:"column:whatsapp_fingerprint"`
	WhatsAppProvider    *string    `gorm:"column:whatsapp_provider"`
	WhatsAppTo          *string    `gorm:"column:whatsapp_to"`
	WhatsAppSentAt      *time.Time `gorm:"column:whatsapp_sent_at"`
	WhatsAppPreparedAt  *time.Time `gorm:"column:whatsapp_prepared_at"`
	WhatsAppMessageID   *string    `gorm:"column:whatsapp_message_id"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

const sessionCols = `
	id, owner_id, patient_id, session_date::text AS date, start_time, end_time,
	session_type, frequency, status, price, payment_status, notes,
	whatsapp_fingerprint, whatsapp_provider, whatsapp_to, whatsapp_sent_at,
	whatsapp_prepared_at, whatsapp_message_id, created_at, updated_at
`

var sessionFilterCols = map[string]string{
	"patient_id":     "patient_id",
	"date":           "session_date",
	"status":         "status",
	"payment_status": "payment_status",
	"session_type":   "session_type",
}

func SessionsByOwner(ctx context.Context, db *gorm.DB, ownerID uuid.UUID, filters map[string]string, limit, offset int) ([]Session, error) {
	q := `SELECT ` + sessionCols + ` FROM sessions WHERE owner_id = ?`
	args := []interface{}{ownerID}
	q, args = appendEqualityFilters(q, args, sessionFilterCols, filters)
	q += ` ORDER BY created_at DESC`
	if limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}
	var list []Session
	err := db.WithContext(ctx).Raw(q, args...).Scan(&list).Error
	return list, err
}

func SessionsCountByOwner(ctx context.Context, db *gorm.DB, ownerID uuid.UUID) (int, error) {
	var n int
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM sessions WHERE owner_id = ?`, ownerID).Scan(&n).Error
	return n, err
}

func SessionByIDAndOwner(ctx context.Context, db *gorm.DB, id, ownerID uuid.UUID) (*Session, error) {
	var s Session
	err := db.WithContext(ctx).Raw(`
		SELECT `+sessionCols+` FROM sessions WHERE id = ? AND owner_id = ?
	`, id, ownerID).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func SessionsByOwnerAndPatient(ctx context.Context, db *gorm.DB, ownerID, patientID uuid.UUID) ([]Session, error) {
	var list []Session
	err := db.WithContext(ctx).Raw(`
		SELECT `+sessionCols+` FROM sessions WHERE owner_id = ? AND patient_id = ? ORDER BY session_date DESC, start_time DESC
	`, ownerID, patientID).Scan(&list).Error
	return list, err
}

func CreateSession(ctx context.Context, db *gorm.DB, s *Session) (uuid.UUID, error) {
	var res struct{ ID uuid.UUID }
	err := db.WithContext(ctx).Raw(`
		INSERT INTO sessions (
			owner_id, patient_id, session_date, start_time, end_time, session_type,
			frequency, status, price, payment_status, notes
		) VALUES (?, ?, NULLIF(?, '')::date, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id
	`, s.OwnerID, s.PatientID, s.Date, s.StartTime, s.EndTime, sessionTypeOrDefault(s.SessionType),
		s.Frequency, sessionStatusOrDefault(s.Status), s.Price, paymentStatusOrDefault(s.PaymentStatus), s.Notes).Scan(&res).Error
	return res.ID, err
}

func UpdateSession(ctx context.Context, db *gorm.DB, s *Session) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE sessions SET
			patient_id = ?, session_date = NULLIF(?, '')::date, start_time = ?, end_time = ?,
			session_type = ?, frequency = ?, status = ?, price = ?, payment_status = ?,
			notes = ?, updated_at = now()
		WHERE id = ? AND owner_id = ?
	`, s.PatientID, s.Date, s.StartTime, s.EndTime,
		sessionTypeOrDefault(s.SessionType), s.Frequency, sessionStatusOrDefault(s.Status), s.Price, paymentStatusOrDefault(s.PaymentStatus),
		s.Notes, s.ID, s.OwnerID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func DeleteSession(ctx context.Context, db *gorm.DB, id, ownerID uuid.UUID) error {
	result := db.WithContext(ctx).Exec(`DELETE FROM sessions WHERE id = ? AND owner_id = ?`, id, ownerID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func DeleteSessionsByPatient(ctx context.Context, db *gorm.DB, ownerID, patientID uuid.UUID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM sessions WHERE owner_id = ? AND patient_id = ?`, ownerID, patientID).Error
}

// MarkSessionWhatsApp grava o resultado de um envio (ou preparo) de confirmação.
// sentAt/preparedAt: exatamente um deles vem preenchido conforme o provider.
func MarkSessionWhatsApp(ctx context.Context, db *gorm.DB, id, ownerID uuid.UUID, fingerprint, provider, to string, sentAt, preparedAt *time.Time, messageID *string) error {
	return db.WithContext(ctx).Exec(`
		UPDATE sessions SET
			whatsapp_fingerprint = ?, whatsapp_provider = ?, whatsapp_to = ?,
			whatsapp_sent_at = ?, whatsapp_prepared_at = ?, whatsapp_message_id = ?,
			updated_at = now()
		WHERE id = ? AND owner_id = ?
	`, fingerprint, provider, to, sentAt, preparedAt, messageID, id, ownerID).Error
}

func sessionStatusOrDefault(s string) string {
	if s == "" {
		return "agendada"
	}
	return s
}

func sessionTypeOrDefault(s string) string {
	if s == "" {
		return "individual"
	}
	return s
}

func paymentStatusOrDefault(s string) string {
	if s == "" {
		return "pendente"
	}
	return s
}
