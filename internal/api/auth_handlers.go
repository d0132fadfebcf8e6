package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/riqueLenis/cognifyPsi/internal/auth"
	"github.com/riqueLenis/cognifyPsi/internal/repo"
)

type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserInfo  `json:"user"`
}

type UserInfo struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name,omitempty"`
	Role     string  `json:"role"`
}

func genericLoginError(w http.ResponseWriter) {
	http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
}

// Register cria a conta do profissional e já devolve o token de acesso.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if ValidateEmailRegex(req.Email) != nil {
		http.Error(w, `{"error":"invalid email"}`, http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		http.Error(w, `{"error":"password must have at least 8 characters"}`, http.StatusBadRequest)
		return
	}

	exists, err := repo.UserEmailExists(r.Context(), h.DB, req.Email)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	if exists {
		http.Error(w, `{"error":"email already registered"}`, http.StatusConflict)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	id, err := repo.CreateUser(r.Context(), h.DB, req.Email, hash, req.FullName)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}

	tok, err := auth.BuildJWT(h.Cfg.JWTSecret, id.String(), req.Email, auth.RoleProfessional, auth.TokenTTL)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, LoginResponse{
		Token:     tok,
		ExpiresAt: time.Now().Add(auth.TokenTTL),
		User: UserInfo{
			ID:       id.String(),
			Email:    req.Email,
			FullName: req.FullName,
			Role:     auth.RoleProfessional,
		},
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		http.Error(w, `{"error":"email and password required"}`, http.StatusBadRequest)
		return
	}

	u, err := repo.UserByEmail(r.Context(), h.DB, req.Email)
	if err != nil {
		// Resposta genérica: não revelar se o e-mail existe.
		genericLoginError(w)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		genericLoginError(w)
		return
	}

	tok, err := auth.BuildJWT(h.Cfg.JWTSecret, u.ID.String(), u.Email, u.Role, auth.TokenTTL)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     tok,
		ExpiresAt: time.Now().Add(auth.TokenTTL),
		User: UserInfo{
			ID:       u.ID.String(),
			Email:    u.Email,
			FullName: u.FullName,
			Role:     u.Role,
		},
	})
}

// EmailExists responde se o e-mail já tem cadastro (para o fluxo do frontend
// decidir entre login e registro).
func (h *Handler) EmailExists(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("email")))
	if ValidateEmailRegex(email) != nil {
		http.Error(w, `{"error":"invalid email"}`, http.StatusBadRequest)
		return
	}
	exists, err := repo.UserEmailExists(r.Context(), h.DB, email)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	u, err := repo.UserByID(r.Context(), h.DB, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, UserInfo{
		ID:       u.ID.String(),
		Email:    u.Email,
		FullName: u.FullName,
		Role:     u.Role,
	})
}
