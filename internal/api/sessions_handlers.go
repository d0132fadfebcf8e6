package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/riqueLenis/cognifyPsi/internal/auth"
	"github.com/riqueLenis/cognifyPsi/internal/repo"
)

type SessionInput struct {
	PatientID     string  `json:"patient_id"`
	Date          string  `json:"date"`
	StartTime     *string `json:"start_time"`
	EndTime       *string `json:"end_time"`
	SessionType   string  `json:"session_type"`
	Frequency     *string `json:"frequency"`
	Status        string  `json:"status"`
	Price         *string `json:"price"`
	PaymentStatus string  `json:"payment_status"`
	Notes         *string `json:"notes"`
}

func (in *SessionInput) validate() error {
	if in.PatientID == "" {
		return errors.New("patient_id required")
	}
	if in.Date == "" {
		return errors.New("date required")
	}
	if ValidateDateISO(in.Date) != nil {
		return ErrInvalidDate
	}
	if in.StartTime != nil && ValidateTimeHHMM(*in.StartTime) != nil {
		return ErrInvalidTime
	}
	if in.EndTime != nil && ValidateTimeHHMM(*in.EndTime) != nil {
		return ErrInvalidTime
	}
	return nil
}

func sessionJSON(s *repo.Session) map[string]interface{} {
	return map[string]interface{}{
		"id":                   s.ID.String(),
		"patient_id":           s.PatientID.String(),
		"date":                 s.Date,
		"start_time":           s.StartTime,
		"end_time":             s.EndTime,
		"session_type":         s.SessionType,
		"frequency":            s.Frequency,
		"status":               s.Status,
		"price":                s.Price,
		"payment_status":       s.PaymentStatus,
		"notes":                s.Notes,
		"whatsapp_provider":    s.WhatsAppProvider,
		"whatsapp_sent_at":     s.WhatsAppSentAt,
		"whatsapp_prepared_at": s.WhatsAppPreparedAt,
		"created_at":           s.CreatedAt,
		"updated_at":           s.UpdatedAt,
	}
}

// ListSessions lista as sessões do owner e dispara o backfill da
// reconciliação para as ainda não vistas neste processo.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	limit, offset := ParseLimitOffset(r)

	total, err := repo.SessionsCountByOwner(r.Context(), h.DB, ownerID)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	list, err := repo.SessionsByOwner(r.Context(), h.DB, ownerID, queryFilters(r), limit, offset)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}

	h.Reconciler.Backfill(r.Context(), list, func(patientID uuid.UUID) string {
		return h.patientName(r.Context(), ownerID, patientID)
	})

	out := make([]map[string]interface{}, len(list))
	for i := range list {
		out[i] = sessionJSON(&list[i])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": out,
		"limit":    limit,
		"offset":   offset,
		"total":    total,
	})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	id, err := uuid.Parse(mux.Vars(r)["sessionId"])
	if err != nil {
		http.Error(w, `{"error":"invalid session_id"}`, http.StatusBadRequest)
		return
	}
	s, err := repo.SessionByIDAndOwner(r.Context(), h.DB, id, ownerID)
	if err != nil {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sessionJSON(s))
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	var in SessionInput
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

	s := repo.Session{
		OwnerID:       ownerID,
		PatientID:     patientID,
		Date:          in.Date,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		SessionType:   in.SessionType,
		Frequency:     in.Frequency,
		Status:        in.Status,
		Price:         in.Price,
		PaymentStatus: in.PaymentStatus,
		Notes:         in.Notes,
	}
	id, err := repo.CreateSession(r.Context(), h.DB, &s)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	created, err := repo.SessionByIDAndOwner(r.Context(), h.DB, id, ownerID)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}

	h.syncSessionSideEffects(r.Context(), ownerID, created)
	writeJSON(w, http.StatusCreated, sessionJSON(created))
}

func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	id, err := uuid.Parse(mux.Vars(r)["sessionId"])
	if err != nil {
		http.Error(w, `{"error":"invalid session_id"}`, http.StatusBadRequest)
		return
	}
	var in SessionInput
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

	s := repo.Session{
		ID:            id,
		OwnerID:       ownerID,
		PatientID:     patientID,
		Date:          in.Date,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		SessionType:   in.SessionType,
		Frequency:     in.Frequency,
		Status:        in.Status,
		Price:         in.Price,
		PaymentStatus: in.PaymentStatus,
		Notes:         in.Notes,
	}
	if err := repo.UpdateSession(r.Context(), h.DB, &s); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	updated, err := repo.SessionByIDAndOwner(r.Context(), h.DB, id, ownerID)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}

	h.Reconciler.Forget(id)
	h.syncSessionSideEffects(r.Context(), ownerID, updated)
	writeJSON(w, http.StatusOK, sessionJSON(updated))
}

// DeleteSession apaga a sessão e antes limpa os lançamentos vinculados, para
// não deixar cobrança órfã no Financeiro.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	id, err := uuid.Parse(mux.Vars(r)["sessionId"])
	if err != nil {
		http.Error(w, `{"error":"invalid session_id"}`, http.StatusBadRequest)
		return
	}
	if _, err := repo.SessionByIDAndOwner(r.Context(), h.DB, id, ownerID); err != nil {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	if n, err := repo.DeleteTransactionsBySession(r.Context(), h.DB, ownerID, id); err != nil {
		// Melhor esforço: a sessão ainda é apagada, o lançamento fica órfão.
		log.Printf("[sessoes] limpeza financeira da sessão %s falhou: %v", id, err)
	} else if n > 0 {
		log.Printf("[sessoes] %d lançamento(s) removido(s) com a sessão %s", n, id)
	}

	if err := repo.DeleteSession(r.Context(), h.DB, id, ownerID); err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	h.Reconciler.Forget(id)
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// syncSessionSideEffects roda a reconciliação financeira (best-effort, nunca
// falha a gravação da sessão) e despacha a confirmação de WhatsApp em
// background.
func (h *Handler) syncSessionSideEffects(ctx context.Context, ownerID uuid.UUID, s *repo.Session) {
	name := h.patientName(ctx, ownerID, s.PatientID)
	if _, err := h.Reconciler.Reconcile(ctx, s, name); err != nil {
		log.Printf("[financeiro] sincronização da sessão %s falhou: %v", s.ID, err)
	}

	if h.Cfg.WhatsAppEnabled {
		sessionID := s.ID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			result, err := h.WhatsApp.ConfirmSession(ctx, ownerID, sessionID)
			if err != nil {
				log.Printf("[whatsapp] confirmação da sessão %s falhou: %v", sessionID, err)
				return
			}
			if result.Skipped {
				log.Printf("[whatsapp] confirmação da sessão %s pulada: %s", sessionID, result.Reason)
			}
		}()
	}
}

func (h *Handler) patientName(ctx context.Context, ownerID, patientID uuid.UUID) string {
	p, err := repo.PatientByIDAndOwner(ctx, h.DB, patientID, ownerID)
	if err != nil {
		return ""
	}
	return p.FullName
}
