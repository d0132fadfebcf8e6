package api

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	ErrInvalidEmail = errors.New("invalid email")
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidTime  = errors.New("invalid time")
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
var isoDateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
var timeRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidateEmailRegex valida formato de e-mail (uma @ e domínio com ponto).
func ValidateEmailRegex(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateDateISO aceita YYYY-MM-DD; vazio passa (campo opcional).
func ValidateDateISO(s string) error {
	if s == "" {
		return nil
	}
	if !isoDateRegex.MatchString(s) {
		return ErrInvalidDate
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// ValidateTimeHHMM aceita HH:MM 24h; vazio passa.
func ValidateTimeHHMM(s string) error {
	if s == "" {
		return nil
	}
	if !timeRegex.MatchString(s) {
		return ErrInvalidTime
	}
	return nil
}
