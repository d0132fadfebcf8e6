// Package finance mantém o livro-caixa em sincronia com a agenda: cada sessão
// cobrável gera (ou adota) exatamente um lançamento de categoria "sessao".
package finance

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/riqueLenis/cognifyPsi/internal/repo"
)

var isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// NormalizeDate aceita YYYY-MM-DD ou RFC3339 e devolve YYYY-MM-DD; qualquer
// outra coisa vira "".
func NormalizeDate(v string) string {
	if v == "" {
		return ""
	}
	if isoDateRe.MatchString(v) {
		return v
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC().Format("2006-01-02")
	}
	return ""
}

// ParseAmount interpreta o preço como o usuário digitou: vírgula vira ponto,
// qualquer valor inválido vira 0 (nunca erro).
func ParseAmount(v string) float64 {
	n, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", "."), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

// Derive monta o lançamento desejado a partir do estado atual da sessão.
// Não consulta nada: é função pura sobre a sessão e o nome do paciente.
func Derive(s *repo.Session, patientName string, now time.Time) repo.FinancialTransaction {
	dueDate := NormalizeDate(s.Date)
	if dueDate == "" {
		dueDate = now.UTC().Format("2006-01-02")
	}

	paymentStatus := s.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = "pendente"
	}
	isPaid := paymentStatus == "pago" || paymentStatus == "isento"

	var amount float64
	if s.Price != nil {
		amount = ParseAmount(*s.Price)
	}
	if paymentStatus == "isento" {
		amount = 0
	}

	description := "Sessão"
	if patientName != "" {
		description = "Sessão - " + patientName
	}
	description += " (" + dueDate + ")"

	status := "pendente"
	var paymentDate *string
	if isPaid {
		status = "pago"
		d := dueDate
		paymentDate = &d
	}

	var patientID *uuid.UUID
	if s.PatientID != uuid.Nil {
		id := s.PatientID
		patientID = &id
	}
	sessionID := s.ID

	return repo.FinancialTransaction{
		OwnerID:     s.OwnerID,
		Type:        "receita",
		Category:    "sessao",
		Description: description,
		Amount:      amount,
		Status:      status,
		DueDate:     &dueDate,
		PaymentDate: paymentDate,
		PatientID:   patientID,
		PatientName: patientName,
		SessionID:   &sessionID,
	}
}
