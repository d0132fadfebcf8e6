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
	"github.com/riqueLenis/cognifyPsi/internal/crypto"
	"github.com/riqueLenis/cognifyPsi/internal/repo"
)

type RecordInput struct {
	PatientID     string  `json:"patient_id"`
	Title         string  `json:"title"`
	RecordType    string  `json:"record_type"`
	RecordDate    *string `json:"record_date"`
	Content       string  `json:"content"`
	DiagnosisCID  *string `json:"diagnosis_cid"`
	TreatmentPlan *string `json:"treatment_plan"`
}

func (in *RecordInput) validate() error {
	if in.PatientID == "" {
		return errors.New("patient_id required")
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return errors.New("title required")
	}
	if in.RecordType == "" {
		in.RecordType = "evolucao"
	}
	if in.RecordDate != nil && ValidateDateISO(*in.RecordDate) != nil {
		return ErrInvalidDate
	}
	return nil
}

// recordJSON decifra o conteúdo clínico para a resposta. Falha de decifra não
// derruba a listagem: o registro sai com content vazio e um marcador de erro.
func (h *Handler) recordJSON(m *repo.MedicalRecord) map[string]interface{} {
	out := map[string]interface{}{
		"id":             m.ID.String(),
		"patient_id":     m.PatientID.String(),
		"title":          m.Title,
		"record_type":    m.RecordType,
		"record_date":    m.RecordDate,
		"diagnosis_cid":  m.DiagnosisCID,
		"treatment_plan": m.TreatmentPlan,
		"created_at":     m.CreatedAt,
		"updated_at":     m.UpdatedAt,
	}
	content, err := h.decryptRecordContent(m)
	if err != nil {
		out["content"] = ""
		out["content_error"] = "decryption_failed"
		return out
	}
	out["content"] = content
	return out
}

func (h *Handler) decryptRecordContent(m *repo.MedicalRecord) (string, error) {
	if len(m.ContentEncrypted) == 0 || m.ContentKeyVersion == nil {
		return "", nil
	}
	keysMap, err := crypto.ParseKeysEnv(h.Cfg.DataEncryptionKeys)
	if err != nil {
		return "", err
	}
	plain, err := crypto.Decrypt(m.ContentEncrypted, m.ContentNonce, *m.ContentKeyVersion, keysMap)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (h *Handler) encryptRecordContent(content string, m *repo.MedicalRecord) error {
	keysMap, err := crypto.ParseKeysEnv(h.Cfg.DataEncryptionKeys)
	if err != nil {
		return err
	}
	ciphertext, nonce, err := crypto.Encrypt([]byte(content), h.Cfg.CurrentDataKeyVer, keysMap)
	if err != nil {
		return err
	}
	ver := h.Cfg.CurrentDataKeyVer
	m.ContentEncrypted = ciphertext
	m.ContentNonce = nonce
	m.ContentKeyVersion = &ver
	return nil
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	limit, offset := ParseLimitOffset(r)

	list, err := repo.RecordsByOwner(r.Context(), h.DB, ownerID, queryFilters(r), limit, offset)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	out := make([]map[string]interface{}, len(list))
	for i := range list {
		out[i] = h.recordJSON(&list[i])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": out,
		"limit":   limit,
		"offset":  offset,
	})
}

func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	id, err := uuid.Parse(mux.Vars(r)["recordId"])
	if err != nil {
		http.Error(w, `{"error":"invalid record_id"}`, http.StatusBadRequest)
		return
	}
	m, err := repo.RecordByIDAndOwner(r.Context(), h.DB, id, ownerID)
	if err != nil {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, h.recordJSON(m))
}

func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	var in RecordInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	if err := in.validate(); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	patientID, err := uuid.Parse(in.PatientID)
	if err != nil {
		http.Error(w, `{"error":"invalid patient_id"}`, http.StatusBadRequest)
		return
	}
	if _, err := repo.PatientByIDAndOwner(r.Context(), h.DB, patientID, ownerID); err != nil {
		http.Error(w, `{"error":"patient not found"}`, http.StatusNotFound)
		return
	}

	m := repo.MedicalRecord{
		OwnerID:       ownerID,
		PatientID:     patientID,
		Title:         in.Title,
		RecordType:    in.RecordType,
		RecordDate:    in.RecordDate,
		DiagnosisCID:  in.DiagnosisCID,
		TreatmentPlan: in.TreatmentPlan,
	}
	if err := h.encryptRecordContent(in.Content, &m); err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	id, err := repo.CreateRecord(r.Context(), h.DB, &m)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	created, err := repo.RecordByIDAndOwner(r.Context(), h.DB, id, ownerID)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, h.recordJSON(created))
}

func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	id, err := uuid.Parse(mux.Vars(r)["recordId"])
	if err != nil {
		http.Error(w, `{"error":"invalid record_id"}`, http.StatusBadRequest)
		return
	}
	var in RecordInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	if err := in.validate(); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	patientID, err := uuid.Parse(in.PatientID)
	if err != nil {
		http.Error(w, `{"error":"invalid patient_id"}`, http.StatusBadRequest)
		return
	}

	m := repo.MedicalRecord{
		ID:            id,
		OwnerID:       ownerID,
		PatientID:     patientID,
		Title:         in.Title,
		RecordType:    in.RecordType,
		RecordDate:    in.RecordDate,
		DiagnosisCID:  in.DiagnosisCID,
		TreatmentPlan: in.TreatmentPlan,
	}
	if err := h.encryptRecordContent(in.Content, &m); err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	if err := repo.UpdateRecord(r.Context(), h.DB, &m); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	updated, err := repo.RecordByIDAndOwner(r.Context(), h.DB, id, ownerID)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.recordJSON(updated))
}

func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	id, err := uuid.Parse(mux.Vars(r)["recordId"])
	if err != nil {
		http.Error(w, `{"error":"invalid record_id"}`, http.StatusBadRequest)
		return
	}
	if err := repo.DeleteRecord(r.Context(), h.DB, id, ownerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
