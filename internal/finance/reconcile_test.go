package finance

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/riqueLenis/cognifyPsi/internal/repo"
)

// memStore implementa Store em memória, com ganchos para simular falhas.
type memStore struct {
	rows []repo.FinancialTransaction

	createErr  error
	orphansErr error
	updateErr  error

	// Linha inserida "pela outra requisição" no momento em que Create falha,
	// para simular a corrida que o índice único transforma em conflito.
	racedRow *repo.FinancialTransaction

	creates int
	updates int
}

func (m *memStore) BySession(_ context.Context, ownerID, sessionID uuid.UUID) (*repo.FinancialTransaction, error) {
	for i := range m.rows {
		t := &m.rows[i]
		if t.OwnerID == ownerID && t.SessionID != nil && *t.SessionID == sessionID && t.Category == "sessao" {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memStore) Orphans(_ context.Context, ownerID uuid.UUID, dueDate string, patientID uuid.UUID) ([]repo.FinancialTransaction, error) {
	if m.orphansErr != nil {
		return nil, m.orphansErr
	}
	var out []repo.FinancialTransaction
	for _, t := range m.rows {
		if t.OwnerID != ownerID || t.SessionID != nil || t.Category != "sessao" || t.Type != "receita" {
			continue
		}
		if t.DueDate == nil || *t.DueDate != dueDate || t.PatientID == nil || *t.PatientID != patientID {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, t *repo.FinancialTransaction) error {
	if m.createErr != nil {
		err := m.createErr
		m.createErr = nil
		if m.racedRow != nil {
			m.rows = append(m.rows, *m.racedRow)
			m.racedRow = nil
		}
		return err
	}
	m.creates++
	t.ID = uuid.New()
	m.rows = append(m.rows, *t)
	return nil
}

func (m *memStore) Update(_ context.Context, t *repo.FinancialTransaction) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	for i := range m.rows {
		if m.rows[i].ID == t.ID {
			m.updates++
			m.rows[i] = *t
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func newTestReconciler(store *memStore) *Reconciler {
	r := NewReconciler(store)
	r.Now = fixedNow
	return r
}

func TestReconcileCreatesOnce(t *testing.T) {
	store := &memStore{}
	r := newTestReconciler(store)
	s := baseSession()

	tx, err := r.Reconcile(context.Background(), s, "Maria Silva")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if tx == nil {
		t.Fatal("sessão cobrável deveria gerar lançamento")
	}
	if tx.Description != "Sessão - Maria Silva (2024-05-10)" {
		t.Errorf("descrição: %q", tx.Description)
	}

	// Idempotência: segunda chamada só atualiza, nunca cria outro.
	if _, err := r.Reconcile(context.Background(), s, "Maria Silva"); err != nil {
		t.Fatalf("segunda chamada: %v", err)
	}
	if store.creates != 1 {
		t.Errorf("creates = %d, quer 1", store.creates)
	}
	if len(store.rows) != 1 {
		t.Errorf("lançamentos = %d, quer 1", len(store.rows))
	}
}

func TestReconcileSkipsNonBillable(t *testing.T) {
	store := &memStore{}
	r := newTestReconciler(store)

	for _, status := range []string{"cancelada", "falta"} {
		s := baseSession()
		s.Status = status
		tx, err := r.Reconcile(context.Background(), s, "Maria")
		if err != nil || tx != nil {
			t.Errorf("status %s não deveria gerar lançamento (tx=%v err=%v)", status, tx, err)
		}
	}

	s := baseSession()
	s.Date = ""
	if tx, _ := r.Reconcile(context.Background(), s, "Maria"); tx != nil {
		t.Error("sessão sem data não deveria gerar lançamento")
	}

	s = baseSession()
	s.PatientID = uuid.Nil
	if tx, _ := r.Reconcile(context.Background(), s, "Maria"); tx != nil {
		t.Error("sessão sem paciente não deveria gerar lançamento")
	}

	if store.creates != 0 {
		t.Errorf("creates = %d, quer 0", store.creates)
	}
}

func TestReconcileKeepsManualPaid(t *testing.T) {
	store := &memStore{}
	r := newTestReconciler(store)
	s := baseSession()

	if _, err := r.Reconcile(context.Background(), s, "Maria"); err != nil {
		t.Fatal(err)
	}

	// Usuário marcou como pago à mão no Financeiro.
	paidAt := "2024-05-01"
	method := "pix"
	store.rows[0].Status = "pago"
	store.rows[0].PaymentDate = &paidAt
	store.rows[0].PaymentMethod = &method

	// A sessão continua pendente; a reconciliação não pode desfazer o pago.
	tx, err := r.Reconcile(context.Background(), s, "Maria")
	if err != nil {
		t.Fatal(err)
	}
	if tx.Status != "pago" {
		t.Errorf("status = %s, quer pago preservado", tx.Status)
	}
	if tx.PaymentDate == nil || *tx.PaymentDate != "2024-05-01" {
		t.Errorf("payment_date = %v, quer 2024-05-01 preservado", tx.PaymentDate)
	}
	if tx.PaymentMethod == nil || *tx.PaymentMethod != "pix" {
		t.Errorf("payment_method = %v, quer pix preservado", tx.PaymentMethod)
	}
}

func TestReconcileAdoptsOrphan(t *testing.T) {
	store := &memStore{}
	r := newTestReconciler(store)
	s := baseSession()

	// Lançamento criado à mão antes da sessão existir no sistema.
	due := "2024-05-10"
	pid := s.PatientID
	store.rows = append(store.rows, repo.FinancialTransaction{
		ID:          uuid.New(),
		OwnerID:     s.OwnerID,
		Type:        "receita",
		Category:    "sessao",
		Description: "Sessão avulsa",
		Amount:      100,
		Status:      "pendente",
		DueDate:     &due,
		PatientID:   &pid,
	})

	tx, err := r.Reconcile(context.Background(), s, "Maria")
	if err != nil {
		t.Fatal(err)
	}
	if tx.SessionID == nil || *tx.SessionID != s.ID {
		t.Error("órfão adotado deveria ganhar session_id")
	}
	if store.creates != 0 {
		t.Errorf("adoção não deveria criar nada, creates = %d", store.creates)
	}
	if len(store.rows) != 1 {
		t.Errorf("lançamentos = %d, quer 1", len(store.rows))
	}
}

func TestReconcileOrphanLookupFailureFallsBackToCreate(t *testing.T) {
	store := &memStore{orphansErr: errors.New("banco fora do ar")}
	r := newTestReconciler(store)
	s := baseSession()

	tx, err := r.Reconcile(context.Background(), s, "Maria")
	if err != nil {
		t.Fatalf("falha na busca de órfãos não deveria propagar: %v", err)
	}
	if tx == nil || store.creates != 1 {
		t.Error("deveria cair na criação normal")
	}
}

func TestReconcileUniqueConflictRetriesAsUpdate(t *testing.T) {
	store := &memStore{}
	r := newTestReconciler(store)
	s := baseSession()

	// A primeira busca não acha nada; o insert bate no índice único porque
	// outra requisição criou a linha no meio do caminho.
	sid := s.ID
	due := "2024-05-10"
	raced := repo.FinancialTransaction{
		ID:        uuid.New(),
		OwnerID:   s.OwnerID,
		Type:      "receita",
		Category:  "sessao",
		Status:    "pendente",
		DueDate:   &due,
		SessionID: &sid,
	}
	store.createErr = &pgconn.PgError{Code: "23505", ConstraintName: "uq_financial_session"}
	store.racedRow = &raced

	tx, err := r.Reconcile(context.Background(), s, "Maria")
	if err != nil {
		t.Fatalf("conflito de unicidade deveria ser resolvido como update: %v", err)
	}
	if tx.ID != raced.ID {
		t.Error("deveria reaproveitar a linha da outra requisição, não criar outra")
	}
	if tx.Description != "Sessão - Maria (2024-05-10)" {
		t.Errorf("linha reaproveitada deveria receber o merge, descrição = %q", tx.Description)
	}
	if store.creates != 0 || len(store.rows) != 1 {
		t.Errorf("corrida resolvida deveria manter 1 linha (creates=%d rows=%d)", store.creates, len(store.rows))
	}
	if store.updates != 1 {
		t.Errorf("updates = %d, quer 1", store.updates)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Error("PgError 23505 deveria ser reconhecido")
	}
	if isUniqueViolation(errors.New("qualquer outra coisa")) {
		t.Error("erro genérico não é violação de unicidade")
	}
}

func TestBackfillMemoizes(t *testing.T) {
	store := &memStore{}
	r := newTestReconciler(store)
	s := baseSession()

	names := map[uuid.UUID]string{s.PatientID: "Maria"}
	nameOf := func(id uuid.UUID) string { return names[id] }

	sessions := []repo.Session{*s}
	r.Backfill(context.Background(), sessions, nameOf)
	r.Backfill(context.Background(), sessions, nameOf)

	if store.creates != 1 {
		t.Errorf("creates = %d, quer 1", store.creates)
	}
	// Memo cobre só o atalho: updates não devem acontecer na 2ª passada.
	if store.updates != 0 {
		t.Errorf("updates = %d, quer 0 (memo deveria pular a sessão)", store.updates)
	}

	// Depois de Forget, a sessão volta a ser reconciliada (update idempotente).
	r.Forget(s.ID)
	r.Backfill(context.Background(), sessions, nameOf)
	if store.updates != 1 {
		t.Errorf("updates = %d, quer 1 após Forget", store.updates)
	}
	if len(store.rows) != 1 {
		t.Errorf("lançamentos = %d, quer 1", len(store.rows))
	}
}
