package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"

	"github.com/riqueLenis/cognifyPsi/internal/ai"
	"github.com/riqueLenis/cognifyPsi/internal/auth"
	"github.com/riqueLenis/cognifyPsi/internal/repo"
	"github.com/riqueLenis/cognifyPsi/internal/whatsapp"
)

type InvokeLLMRequest struct {
	Prompt             string          `json:"prompt"`
	ResponseJSONSchema json.RawMessage `json:"response_json_schema"`
}

// InvokeLLM repassa o prompt ao provedor configurado e devolve o JSON cru da
// resposta. Erros do provedor viram o status do *ai.Error.
func (h *Handler) InvokeLLM(w http.ResponseWriter, r *http.Request) {
	var req InvokeLLMRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	if req.Prompt == "" {
		http.Error(w, `{"error":"prompt required"}`, http.StatusBadRequest)
		return
	}

	out, err := h.AI.Invoke(r.Context(), req.Prompt, req.ResponseJSONSchema)
	if err != nil {
		var aiErr *ai.Error
		if errors.As(err, &aiErr) {
			body, _ := json.Marshal(map[string]string{"error": aiErr.Code})
			http.Error(w, string(body), aiErr.Status)
			return
		}
		http.Error(w, `{"error":"ai_unavailable"}`, http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(out)
}

// SessionWhatsAppLink monta o link wa.me com a mensagem de confirmação da
// sessão, para disparo manual. Com format=qr responde um PNG de QR code.
func (h *Handler) SessionWhatsAppLink(w http.ResponseWriter, r *http.Request) {
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
	p, err := repo.PatientByIDAndOwner(r.Context(), h.DB, s.PatientID, ownerID)
	if err != nil {
		http.Error(w, `{"error":"patient not found"}`, http.StatusNotFound)
		return
	}

	phone := ""
	if p.Phone != nil {
		phone = *p.Phone
	}
	toE164 := whatsapp.NormalizePhoneE164BR(phone)
	if toE164 == "" {
		http.Error(w, `{"error":"patient has no valid phone"}`, http.StatusUnprocessableEntity)
		return
	}

	psychologistName := ""
	if settings, err := repo.SettingsByOwner(r.Context(), h.DB, ownerID); err == nil && settings.PsychologistName != nil {
		psychologistName = *settings.PsychologistName
	}
	timeStr := ""
	if s.StartTime != nil {
		timeStr = *s.StartTime
	}
	message := whatsapp.ComposeConfirmation(p.FullName, psychologistName, whatsapp.FormatDateBR(s.Date), timeStr)

	// O link wa.me independe do provedor configurado.
	waURL := whatsapp.BuildWaLink(toE164, message)

	if r.URL.Query().Get("format") == "qr" {
		size := 256
		if s := r.URL.Query().Get("size"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n >= 64 && n <= 1024 {
				size = n
			}
		}
		png, err := qrcode.Encode(waURL, qrcode.Medium, size)
		if err != nil {
			http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"to":      toE164,
		"url":     waURL,
		"message": message,
	})
}
