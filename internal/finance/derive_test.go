package finance

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/riqueLenis/cognifyPsi/internal/repo"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"150,50", 150.5},
		{"150.50", 150.5},
		{"200", 200},
		{"", 0},
		{"abc", 0},
		{" 99,9 ", 99.9},
	}
	for _, c := range cases {
		if got := ParseAmount(c.in); got != c.want {
			t.Errorf("ParseAmount(%q) = %v, quer %v", c.in, got, c.want)
		}
	}
}

func TestNormalizeDate(t *testing.T) {
	if got := NormalizeDate("2024-05-10"); got != "2024-05-10" {
		t.Errorf("data ISO deveria passar intacta, veio %q", got)
	}
	if got := NormalizeDate("2024-05-10T14:00:00Z"); got != "2024-05-10" {
		t.Errorf("RFC3339 deveria virar só a data, veio %q", got)
	}
	if got := NormalizeDate("10/05/2024"); got != "" {
		t.Errorf("formato desconhecido deveria virar \"\", veio %q", got)
	}
}

func fixedNow() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func baseSession() *repo.Session {
	price := "150,50"
	return &repo.Session{
		ID:            uuid.New(),
		OwnerID:       uuid.New(),
		PatientID:     uuid.New(),
		Date:          "2024-05-10",
		Status:        "agendada",
		Price:         &price,
		PaymentStatus: "pendente",
	}
}

func TestDeriveDescription(t *testing.T) {
	s := baseSession()
	d := Derive(s, "Maria Silva", fixedNow())
	if d.Description != "Sessão - Maria Silva (2024-05-10)" {
		t.Errorf("descrição errada: %q", d.Description)
	}

	d = Derive(s, "", fixedNow())
	if d.Description != "Sessão (2024-05-10)" {
		t.Errorf("descrição sem paciente errada: %q", d.Description)
	}
}

func TestDerivePending(t *testing.T) {
	s := baseSession()
	d := Derive(s, "Maria", fixedNow())
	if d.Type != "receita" || d.Category != "sessao" {
		t.Fatalf("tipo/categoria errados: %s/%s", d.Type, d.Category)
	}
	if d.Amount != 150.5 {
		t.Errorf("valor = %v, quer 150.5", d.Amount)
	}
	if d.Status != "pendente" {
		t.Errorf("status = %s, quer pendente", d.Status)
	}
	if d.PaymentDate != nil {
		t.Errorf("pendente não deveria ter payment_date")
	}
	if d.DueDate == nil || *d.DueDate != "2024-05-10" {
		t.Errorf("due_date errado: %v", d.DueDate)
	}
	if d.SessionID == nil || *d.SessionID != s.ID {
		t.Errorf("session_id não preservado")
	}
}

func TestDerivePaid(t *testing.T) {
	s := baseSession()
	s.PaymentStatus = "pago"
	d := Derive(s, "Maria", fixedNow())
	if d.Status != "pago" {
		t.Errorf("status = %s, quer pago", d.Status)
	}
	if d.PaymentDate == nil || *d.PaymentDate != "2024-05-10" {
		t.Errorf("payment_date deveria ser o vencimento, veio %v", d.PaymentDate)
	}
}

func TestDeriveExempt(t *testing.T) {
	s := baseSession()
	s.PaymentStatus = "isento"
	d := Derive(s, "Maria", fixedNow())
	if d.Amount != 0 {
		t.Errorf("isento deveria zerar o valor, veio %v", d.Amount)
	}
	if d.Status != "pago" {
		t.Errorf("isento conta como pago, veio %s", d.Status)
	}
}

func TestDeriveFallbackDate(t *testing.T) {
	s := baseSession()
	s.Date = "data inválida"
	d := Derive(s, "Maria", fixedNow())
	if d.DueDate == nil || *d.DueDate != "2024-06-01" {
		t.Errorf("data inválida deveria cair no dia atual, veio %v", d.DueDate)
	}
}

func TestDeriveEmptyPaymentStatus(t *testing.T) {
	s := baseSession()
	s.PaymentStatus = ""
	d := Derive(s, "Maria", fixedNow())
	if d.Status != "pendente" {
		t.Errorf("payment_status vazio deveria virar pendente, veio %s", d.Status)
	}
}
