package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MedicalRecord é uma entrada de prontuário. O conteúdo clínico fica cifrado
// em repouso (AES-GCM, chave versionada); o handler cifra/decifra.
type MedicalRecord struct {
	ID                uuid.UUID
	OwnerID           uuid.UUID
	PatientID         uuid.UUID
	Title             string
	RecordType        string
	RecordDate        *string `gorm:"column:record_date"`
	ContentEncrypted  []byte
	ContentNonce      []byte
	ContentKeyVersion *string
	DiagnosisCID      *string `gorm:"column:diagnosis_cid"`
	TreatmentPlan     *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

const recordCols = `
	id, owner_id, patient_id, title, record_type, record_date::text,
	content_encrypted, content_nonce, content_key_version,
	diagnosis_cid, treatment_plan, created_at, updated_at
`

var recordFilterCols = map[string]string{
	"patient_id":  "patient_id",
	"record_type": "record_type",
	"date":        "record_date",
}

func RecordsByOwner(ctx context.Context, db *gorm.DB, ownerID uuid.UUID, filters map[string]string, limit, offset int) ([]MedicalRecord, error) {
	q := `SELECT ` + recordCols + ` FROM medical_records WHERE owner_id = ?`
	args := []interface{}{ownerID}
	q, args = appendEqualityFilters(q, args, recordFilterCols, filters)
	q += ` ORDER BY record_date DESC NULLS LAST, created_at DESC`
	if limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}
	var list []MedicalRecord
	err := db.WithContext(ctx).Raw(q, args...).Scan(&list).Error
	return list, err
}

func RecordByIDAndOwner(ctx context.Context, db *gorm.DB, id, ownerID uuid.UUID) (*MedicalRecord, error) {
	var m MedicalRecord
	err := db.WithContext(ctx).Raw(`
		SELECT `+recordCols+` FROM medical_records WHERE id = ? AND owner_id = ?
	`, id, ownerID).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &m, nil
}

func RecordsByOwnerAndPatient(ctx context.Context, db *gorm.DB, ownerID, patientID uuid.UUID) ([]MedicalRecord, error) {
	var list []MedicalRecord
	err := db.WithContext(ctx).Raw(`
		SELECT `+recordCols+` FROM medical_records WHERE owner_id = ? AND patient_id = ? ORDER BY record_date DESC NULLS LAST
	`, ownerID, patientID).Scan(&list).Error
	return list, err
}

func CreateRecord(ctx context.Context, db *gorm.DB, m *MedicalRecord) (uuid.UUID, error) {
	var res struct{ ID uuid.UUID }
	err := db.WithContext(ctx).Raw(`
		INSERT INTO medical_records (
			owner_id, patient_id, title, record_type, record_date,
			content_encrypted, content_nonce, content_key_version,
			diagnosis_cid, treatment_plan
		) VALUES (?, ?, ?, ?, NULLIF(?, '')::date, ?, ?, ?, ?, ?) RETURNING id
	`, m.OwnerID, m.PatientID, m.Title, m.RecordType, strOrEmpty(m.RecordDate),
		m.ContentEncrypted, m.ContentNonce, m.ContentKeyVersion,
		m.DiagnosisCID, m.TreatmentPlan).Scan(&res).Error
	return res.ID, err
}

func UpdateRecord(ctx context.Context, db *gorm.DB, m *MedicalRecord) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE medical_records SET
			patient_id = ?, title = ?, record_type = ?, record_date = NULLIF(?, '')::date,
			content_encrypted = ?, content_nonce = ?, content_key_version = ?,
			diagnosis_cid = ?, treatment_plan = ?, updated_at = now()
		WHERE id = ? AND owner_id = ?
	`, m.PatientID, m.Title, m.RecordType, strOrEmpty(m.RecordDate),
		m.ContentEncrypted, m.ContentNonce, m.ContentKeyVersion,
		m.DiagnosisCID, m.TreatmentPlan, m.ID, m.OwnerID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func DeleteRecord(ctx context.Context, db *gorm.DB, id, ownerID uuid.UUID) error {
	result := db.WithContext(ctx).Exec(`DELETE FROM medical_records WHERE id = ? AND owner_id = ?`, id, ownerID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func DeleteRecordsByPatient(ctx context.Context, db *gorm.DB, ownerID, patientID uuid.UUID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM medical_records WHERE owner_id = ? AND patient_id = ?`, ownerID, patientID).Error
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
