package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/riqueLenis/cognifyPsi/internal/auth"
	"github.com/riqueLenis/cognifyPsi/internal/repo"
)

type SettingsInput struct {
	ClinicName         *string `json:"clinic_name"`
	PsychologistName   *string `json:"psychologist_name"`
	CRPNumber          *string `json:"crp_number"`
	Phone              *string `json:"phone"`
	Email              *string `json:"email"`
	Address            *string `json:"address"`
	SessionDuration    int     `json:"session_duration"`
	SessionPrice       *string `json:"session_price"`
	CancellationPolicy *string `json:"cancellation_policy"`
	ReminderHours      int     `json:"reminder_hours"`
}

func settingsJSON(s *repo.ClinicSettings) map[string]interface{} {
	return map[string]interface{}{
		"id":                  s.ID.String(),
		"clinic_name":         s.ClinicName,
		"psychologist_name":   s.PsychologistName,
		"crp_number":          s.CRPNumber,
		"phone":               s.Phone,
		"email":               s.Email,
		"address":             s.Address,
		"session_duration":    s.SessionDuration,
		"session_price":       s.SessionPrice,
		"cancellation_policy": s.CancellationPolicy,
		"reminder_hours":      s.ReminderHours,
		"updated_at":          s.UpdatedAt,
	}
}

func (h *Handler) settingsCacheKey(ownerID string) string {
	return "settings:" + ownerID
}

// GetSettings devolve as configurações da clínica; cacheado porque o frontend
// consulta em toda tela.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	key := h.settingsCacheKey(ownerID.String())

	if cached := h.Cache.Get(key); cached != nil {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(cached)
		return
	}

	s, err := repo.SettingsByOwner(r.Context(), h.DB, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"settings": nil})
			return
		}
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}

	body, err := json.Marshal(map[string]interface{}{"settings": settingsJSON(s)})
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	h.Cache.Set(key, body)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// PutSettings cria ou substitui as configurações do owner.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	var in SettingsInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	if in.Email != nil && *in.Email != "" && ValidateEmailRegex(*in.Email) != nil {
		http.Error(w, `{"error":"invalid email"}`, http.StatusBadRequest)
		return
	}

	s := repo.ClinicSettings{
		OwnerID:            ownerID,
		ClinicName:         in.ClinicName,
		PsychologistName:   in.PsychologistName,
		CRPNumber:          in.CRPNumber,
		Phone:              in.Phone,
		Email:              in.Email,
		Address:            in.Address,
		SessionDuration:    in.SessionDuration,
		SessionPrice:       in.SessionPrice,
		CancellationPolicy: in.CancellationPolicy,
		ReminderHours:      in.ReminderHours,
	}
	if err := repo.UpsertSettings(r.Context(), h.DB, &s); err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	h.Cache.Delete(h.settingsCacheKey(ownerID.String()))

	saved, err := repo.SettingsByOwner(r.Context(), h.DB, ownerID)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"settings": settingsJSON(saved)})
}

func (h *Handler) DeleteSettings(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	if err := repo.DeleteSettings(r.Context(), h.DB, ownerID); err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	h.Cache.Delete(h.settingsCacheKey(ownerID.String()))
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
