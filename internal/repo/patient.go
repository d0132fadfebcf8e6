package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Patient struct {
	ID                    uuid.UUID
	OwnerID               uuid.UUID
	FullName              string
	BirthDate             *string
	Gender                *string
	CPF                   *string
	Phone                 *string
	Email                 *string
	Address               *string
	EmergencyContact      *string
	EmergencyPhone        *string
	HealthInsurance       *string
	HealthInsuranceNumber *string
	Status                string
	Notes                 *string
	ConsentGivenAt        *time.Time
	ConsentRevokedAt      *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

const patientCols = `
	id, owner_id, full_name, birth_date::text, gender, cpf, phone, email, address,
	emergency_contact, emergency_phone, health_insurance, health_insurance_number,
	status, notes, consent_given_at, consent_revoked_at, created_at, updated_at
`

// patientFilterCols são os campos aceitos no filtro genérico de igualdade da query string.
var patientFilterCols = map[string]string{
	"full_name": "full_name",
	"status":    "status",
	"gender":    "gender",
	"email":     "email",
	"cpf":       "cpf",
}

func PatientsByOwner(ctx context.Context, db *gorm.DB, ownerID uuid.UUID, filters map[string]string, limit, offset int) ([]Patient, error) {
	q := `SELECT ` + patientCols + ` FROM patients WHERE owner_id = ?`
	args := []interface{}{ownerID}
	q, args = appendEqualityFilters(q, args, patientFilterCols, filters)
	q += ` ORDER BY created_at DESC`
	if limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}
	var list []Patient
	err := db.WithContext(ctx).Raw(q, args...).Scan(&list).Error
	return list, err
}

func PatientsCountByOwner(ctx context.Context, db *gorm.DB, ownerID uuid.UUID) (int, error) {
	var n int
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM patients WHERE owner_id = ?`, ownerID).Scan(&n).Error
	return n, err
}

func PatientByIDAndOwner(ctx context.Context, db *gorm.DB, id, ownerID uuid.UUID) (*Patient, error) {
	var p Patient
	err := db.WithContext(ctx).Raw(`
		SELECT `+patientCols+` FROM patients WHERE id = ? AND owner_id = ?
	`, id, ownerID).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func CreatePatient(ctx context.Context, db *gorm.DB, p *Patient) (uuid.UUID, error) {
	var res struct{ ID uuid.UUID }
	err := db.WithContext(ctx).Raw(`
		INSERT INTO patients (
			owner_id, full_name, birth_date, gender, cpf, phone, email, address,
			emergency_contact, emergency_phone, health_insurance, health_insurance_number,
			status, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id
	`, p.OwnerID, p.FullName, p.BirthDate, p.Gender, p.CPF, p.Phone, p.Email, p.Address,
		p.EmergencyContact, p.EmergencyPhone, p.HealthInsurance, p.HealthInsuranceNumber,
		statusOrDefault(p.Status), p.Notes).Scan(&res).Error
	return res.ID, err
}

func UpdatePatient(ctx context.Context, db *gorm.DB, p *Patient) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE patients SET
			full_name = ?, birth_date = ?, gender = ?, cpf = ?, phone = ?, email = ?, address = ?,
			emergency_contact = ?, emergency_phone = ?, health_insurance = ?, health_insurance_number = ?,
			status = ?, notes = ?, updated_at = now()
		WHERE id = ? AND owner_id = ?
	`, p.FullName, p.BirthDate, p.Gender, p.CPF, p.Phone, p.Email, p.Address,
		p.EmergencyContact, p.EmergencyPhone, p.HealthInsurance, p.HealthInsuranceNumber,
		statusOrDefault(p.Status), p.Notes, p.ID, p.OwnerID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func DeletePatient(ctx context.Context, db *gorm.DB, id, ownerID uuid.UUID) error {
	result := db.WithContext(ctx).Exec(`DELETE FROM patients WHERE id = ? AND owner_id = ?`, id, ownerID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetPatientConsent registra o aceite ou a revogação do consentimento LGPD.
func SetPatientConsent(ctx context.Context, db *gorm.DB, id, ownerID uuid.UUID, given bool) error {
	var q string
	if given {
		q = `UPDATE patients SET consent_given_at = now(), consent_revoked_at = NULL, updated_at = now() WHERE id = ? AND owner_id = ?`
	} else {
		q = `UPDATE patients SET consent_revoked_at = now(), updated_at = now() WHERE id = ? AND owner_id = ?`
	}
	result := db.WithContext(ctx).Exec(q, id, ownerID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func statusOrDefault(s string) string {
	if strings.TrimSpace(s) == "" {
		return "ativo"
	}
	return s
}

// appendEqualityFilters adiciona cláusulas "col = ?" para cada filtro cuja chave
// esteja na whitelist. Chaves desconhecidas são ignoradas (não é erro).
func appendEqualityFilters(q string, args []interface{}, allowed map[string]string, filters map[string]string) (string, []interface{}) {
	for key, val := range filters {
		col, ok := allowed[key]
		if !ok {
			continue
		}
		q += ` AND ` + col + ` = ?`
		args = append(args, val)
	}
	return q, args
}
