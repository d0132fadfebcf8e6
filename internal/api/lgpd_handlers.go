package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/riqueLenis/cognifyPsi/internal/auth"
	"github.com/riqueLenis/cognifyPsi/internal/pdf"
	"github.com/riqueLenis/cognifyPsi/internal/repo"
)

// ExportPatientData gera o PDF de portabilidade (LGPD art. 18): cadastro,
// sessões, lançamentos e prontuário decifrado do paciente.
func (h *Handler) ExportPatientData(w http.ResponseWriter, r *http.Request) {
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

	sessions, err := repo.SessionsByOwnerAndPatient(r.Context(), h.DB, ownerID, id)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	transactions, err := repo.TransactionsByOwner(r.Context(), h.DB, ownerID, map[string]string{"patient_id": id.String()}, 0, 0)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	records, err := repo.RecordsByOwnerAndPatient(r.Context(), h.DB, ownerID, id)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}

	decrypted := make([]pdf.DecryptedRecord, 0, len(records))
	for i := range records {
		content, err := h.decryptRecordContent(&records[i])
		if err != nil {
			content = "[registro ilegível: falha ao decifrar]"
		}
		date := ""
		if records[i].RecordDate != nil {
			date = *records[i].RecordDate
		}
		decrypted = append(decrypted, pdf.DecryptedRecord{
			Date:    date,
			Type:    records[i].RecordType + " - " + records[i].Title,
			Content: content,
		})
	}

	clinicName := ""
	if settings, err := repo.SettingsByOwner(r.Context(), h.DB, ownerID); err == nil && settings.ClinicName != nil {
		clinicName = *settings.ClinicName
	}

	data := pdf.ExportData{
		Patient:      p,
		Sessions:     sessions,
		Transactions: transactions,
		Records:      decrypted,
		GeneratedAt:  time.Now(),
		ClinicName:   clinicName,
	}

	h.audit(r, ownerID, "lgpd.export", "patient", &id, nil)

	filename := fmt.Sprintf("dados-paciente-%s.pdf", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := pdf.WriteExportTo(data, w); err != nil {
		log.Printf("[lgpd] export do paciente %s falhou: %v", id, err)
	}
}

type ConsentRequest struct {
	Given bool `json:"given"`
}

// SetConsent registra a concessão ou revogação do consentimento de tratamento
// de dados do paciente.
func (h *Handler) SetConsent(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	id, err := uuid.Parse(mux.Vars(r)["patientId"])
	if err != nil {
		http.Error(w, `{"error":"invalid patient_id"}`, http.StatusBadRequest)
		return
	}
	var req ConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	if err := repo.SetPatientConsent(r.Context(), h.DB, id, ownerID, req.Given); err != nil {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	action := "lgpd.consent.revoked"
	if req.Given {
		action = "lgpd.consent.given"
	}
	h.audit(r, ownerID, action, "patient", &id, nil)

	p, err := repo.PatientByIDAndOwner(r.Context(), h.DB, id, ownerID)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, patientJSON(p))
}

// ErasePatient apaga em definitivo tudo do paciente (LGPD art. 18, V) e
// registra o evento de auditoria com o nome que constava no cadastro.
func (h *Handler) ErasePatient(w http.ResponseWriter, r *http.Request) {
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

	detail := "apagamento definitivo a pedido do titular: " + p.FullName
	h.audit(r, ownerID, "lgpd.erasure", "patient", &id, &detail)

	writeJSON(w, http.StatusOK, map[string]bool{"erased": true})
}

// ListAuditEvents expõe a trilha de auditoria LGPD do owner.
func (h *Handler) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	limit, offset := ParseLimitOffset(r)
	list, err := repo.AuditByOwner(r.Context(), h.DB, ownerID, limit, offset)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	out := make([]map[string]interface{}, len(list))
	for i, e := range list {
		item := map[string]interface{}{
			"id":         e.ID.String(),
			"action":     e.Action,
			"entity":     e.Entity,
			"detail":     e.Detail,
			"created_at": e.CreatedAt,
		}
		if e.EntityID != nil {
			item["entity_id"] = e.EntityID.String()
		}
		out[i] = item
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": out, "limit": limit, "offset": offset})
}

// audit grava o evento sem derrubar a requisição em caso de falha.
func (h *Handler) audit(r *http.Request, ownerID uuid.UUID, action, entity string, entityID *uuid.UUID, detail *string) {
	e := repo.AuditEvent{
		OwnerID:  ownerID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Detail:   detail,
	}
	if err := repo.RecordAudit(r.Context(), h.DB, &e); err != nil {
		log.Printf("[auditoria] registro de %s falhou: %v", action, err)
	}
}
