package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/riqueLenis/cognifyPsi/internal/auth"
	"github.com/riqueLenis/cognifyPsi/internal/repo"
)

type PatientInput struct {
	FullName              string  `json:"full_name"`
	BirthDate             *string `json:"birth_date"`
	Gender                *string `json:"gender"`
	CPF                   *string `json:"cpf"`
	Phone                 *string `json:"phone"`
	Email                 *string `json:"email"`
	Address               *string `json:"address"`
	EmergencyContact      *string `json:"emergency_contact"`
	EmergencyPhone        *string `json:"emergency_phone"`
	HealthInsurance       *string `json:"health_insurance"`
	HealthInsuranceNumber *string `json:"health_insurance_number"`
	Status                string  `json:"status"`
	Notes                 *string `json:"notes"`
}

func (in *PatientInput) validate() error {
	in.FullName = strings.TrimSpace(in.FullName)
	if in.FullName == "" {
		return errors.New("full_name required")
	}
	if in.BirthDate != nil && ValidateDateISO(*in.BirthDate) != nil {
		return ErrInvalidDate
	}
	if in.Email != nil && *in.Email != "" && ValidateEmailRegex(*in.Email) != nil {
		return ErrInvalidEmail
	}
	return nil
}

func patientJSON(p *repo.Patient) map[string]interface{} {
	return map[string]interface{}{
		"id":                      p.ID.String(),
		"full_name":               p.FullName,
		"birth_date":              p.BirthDate,
		"gender":                  p.Gender,
		"cpf":                     p.CPF,
		"phone":                   p.Phone,
		"email":                   p.Email,
		"address":                 p.Address,
		"emergency_contact":       p.EmergencyContact,
		"emergency_phone":         p.EmergencyPhone,
		"health_insurance":        p.HealthInsurance,
		"health_insurance_number": p.HealthInsuranceNumber,
		"status":                  p.Status,
		"notes":                   p.Notes,
		"consent_given_at":        p.ConsentGivenAt,
		"consent_revoked_at":      p.ConsentRevokedAt,
		"created_at":              p.CreatedAt,
		"updated_at":              p.UpdatedAt,
	}
}

func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	limit, offset := ParseLimitOffset(r)

	total, err := repo.PatientsCountByOwner(r.Context(), h.DB, ownerID)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	list, err := repo.PatientsByOwner(r.Context(), h.DB, ownerID, queryFilters(r), limit, offset)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	out := make([]map[string]interface{}, len(list))
	for i := range list {
		out[i] = patientJSON(&list[i])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"patients": out,
		"limit":    limit,
		"offset":   offset,
		"total":    total,
	})
}

func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	id, err := uuid.Parse(mux.Vars(r)["patientId"])
	if err != nil {
		http.Error(w, `{"error":"invalid patient_id"}`, http.StatusBadRequest)
		return
	}
	p, err := repo.PatientByIDAndOwner(r.Context(), h.DB, id, ownerID)
	if err != nil {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, patientJSON(p))
}

func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	var in PatientInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	if err := in.validate(); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	p := repo.Patient{
		OwnerID:               ownerID,
		FullName:              in.FullName,
		BirthDate:             in.BirthDate,
		Gender:                in.Gender,
		CPF:                   in.CPF,
		Phone:                 in.Phone,
		Email:                 in.Email,
		Address:               in.Address,
		EmergencyContact:      in.EmergencyContact,
		EmergencyPhone:        in.EmergencyPhone,
		HealthInsurance:       in.HealthInsurance,
		HealthInsuranceNumber: in.HealthInsuranceNumber,
		Status:                in.Status,
		Notes:                 in.Notes,
	}
	id, err := repo.CreatePatient(r.Context(), h.DB, &p)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	created, err := repo.PatientByIDAndOwner(r.Context(), h.DB, id, ownerID)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, patientJSON(created))
}

func (h *Handler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	id, err := uuid.Parse(mux.Vars(r)["patientId"])
	if err != nil {
		http.Error(w, `{"error":"invalid patient_id"}`, http.StatusBadRequest)
		return
	}
	var in PatientInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	if err := in.validate(); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	p := repo.Patient{
		ID:                    id,
		OwnerID:               ownerID,
		FullName:              in.FullName,
		BirthDate:             in.BirthDate,
		Gender:                in.Gender,
		CPF:                   in.CPF,
		Phone:                 in.Phone,
		Email:                 in.Email,
		Address:               in.Address,
		EmergencyContact:      in.EmergencyContact,
		EmergencyPhone:        in.EmergencyPhone,
		HealthInsurance:       in.HealthInsurance,
		HealthInsuranceNumber: in.HealthInsuranceNumber,
		Status:                in.Status,
		Notes:                 in.Notes,
	}
	if err := repo.UpdatePatient(r.Context(), h.DB, &p); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	updated, err := repo.PatientByIDAndOwner(r.Context(), h.DB, id, ownerID)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, patientJSON(updated))
}

// DeletePatient apaga o paciente e tudo que o referencia: lançamentos,
// prontuário e sessões, nessa ordem.
func (h *Handler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	id, err := uuid.Parse(mux.Vars(r)["patientId"])
	if err != nil {
		http.Error(w, `{"error":"invalid patient_id"}`, http.StatusBadRequest)
		return
	}
	if _, err := repo.PatientByIDAndOwner(r.Context(), h.DB, id, ownerID); err != nil {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	if err := repo.DeleteTransactionsByPatient(r.Context(), h.DB, ownerID, id); err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	if err := repo.DeleteRecordsByPatient(r.Context(), h.DB, ownerID, id); err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	if err := repo.DeleteSessionsByPatient(r.Context(), h.DB, ownerID, id); err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	if err := repo.DeletePatient(r.Context(), h.DB, id, ownerID); err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
