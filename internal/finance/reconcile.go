package finance

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/riqueLenis/cognifyPsi/internal/repo"
)

// Store é o que a reconciliação precisa do banco. A implementação real é
// GormStore; os testes usam um store em memória.
type Store interface {
	BySession(ctx context.Context, ownerID, sessionID uuid.UUID) (*repo.FinancialTransaction, error)
	Orphans(ctx context.Context, ownerID uuid.UUID, dueDate string, patientID uuid.UUID) ([]repo.FinancialTransaction, error)
	Create(ctx context.Context, t *repo.FinancialTransaction) error
	Update(ctx context.Context, t *repo.FinancialTransaction) error
}

// Reconciler garante um lançamento por sessão cobrável. É idempotente: chamar
// de novo com o mesmo estado da sessão não cria nada além do primeiro.
type Reconciler struct {
	Store Store
	Now   func() time.Time

	// Sessões já reconciliadas neste processo (usado pelo Backfill; só atalho
	// de desempenho, a reconciliação em si é idempotente).
	seen sync.Map
}

func NewReconciler(store Store) *Reconciler {
	return &Reconciler{Store: store, Now: time.Now}
}

// Reconcile sincroniza o lançamento financeiro da sessão e o devolve.
// Sessões sem id/paciente/data, canceladas ou com falta não geram lançamento
// (retorno nil, nil).
func (r *Reconciler) Reconcile(ctx context.Context, s *repo.Session, patientName string) (*repo.FinancialTransaction, error) {
	if s == nil || s.ID == uuid.Nil || s.PatientID == uuid.Nil || s.Date == "" {
		return nil, nil
	}
	if s.Status == "cancelada" || s.Status == "falta" {
		return nil, nil
	}

	desired := Derive(s, patientName, r.Now())

	current, err := r.Store.BySession(ctx, s.OwnerID, s.ID)
	if err == nil {
		merge(current, &desired)
		if err := r.Store.Update(ctx, current); err != nil {
			return nil, err
		}
		return current, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Adoção de órfão: lançamento de sessão criado à mão no Financeiro, sem
	// session_id. Vincular evita duplicidade e permite limpeza no delete.
	// Qualquer falha aqui é engolida e seguimos criando normalmente.
	if adopted := r.adoptOrphan(ctx, s, &desired); adopted != nil {
		return adopted, nil
	}

	if err := r.Store.Create(ctx, &desired); err != nil {
		// Corrida: outra requisição criou o lançamento entre a busca e o
		// insert. O índice único em session_id transforma isso em conflito;
		// relemos e atualizamos.
		if isUniqueViolation(err) {
			current, err2 := r.Store.BySession(ctx, s.OwnerID, s.ID)
			if err2 != nil {
				return nil, err
			}
			merge(current, &desired)
			if err2 := r.Store.Update(ctx, current); err2 != nil {
				return nil, err2
			}
			return current, nil
		}
		return nil, err
	}
	return &desired, nil
}

func (r *Reconciler) adoptOrphan(ctx context.Context, s *repo.Session, desired *repo.FinancialTransaction) *repo.FinancialTransaction {
	if desired.DueDate == nil {
		return nil
	}
	candidates, err := r.Store.Orphans(ctx, s.OwnerID, *desired.DueDate, s.PatientID)
	if err != nil {
		log.Printf("[financeiro] busca de órfãos falhou (sessão %s): %v", s.ID, err)
		return nil
	}
	if len(candidates) == 0 {
		return nil
	}
	candidate := candidates[0]
	merge(&candidate, desired)
	if err := r.Store.Update(ctx, &candidate); err != nil {
		log.Printf("[financeiro] adoção de órfão falhou (sessão %s): %v", s.ID, err)
		return nil
	}
	return &candidate
}

// Backfill reconcilia sessões ainda não vistas neste processo, uma por vez.
// Falhas individuais são registradas e não interrompem o restante.
func (r *Reconciler) Backfill(ctx context.Context, sessions []repo.Session, nameOf func(uuid.UUID) string) {
	for i := range sessions {
		s := &sessions[i]
		if _, done := r.seen.Load(s.ID); done {
			continue
		}
		name := ""
		if nameOf != nil {
			name = nameOf(s.PatientID)
		}
		if _, err := r.Reconcile(ctx, s, name); err != nil {
			log.Printf("[financeiro] backfill da sessão %s falhou: %v", s.ID, err)
			continue
		}
		r.seen.Store(s.ID, struct{}{})
	}
}

// Forget remove a sessão do memo, forçando nova reconciliação no próximo
// backfill (chamado quando a sessão muda ou é removida).
func (r *Reconciler) Forget(sessionID uuid.UUID) {
	r.seen.Delete(sessionID)
}

// merge aplica o estado derivado sobre o lançamento existente, preservando o
// que o usuário pode ter editado à mão no Financeiro: forma de pagamento,
// observações e um "pago" marcado manualmente.
func merge(current *repo.FinancialTransaction, desired *repo.FinancialTransaction) {
	keepPaid := current.Status == "pago" && desired.Status == "pendente"
	keptPaymentDate := current.PaymentDate

	current.Type = desired.Type
	current.Category = desired.Category
	current.Description = desired.Description
	current.Amount = desired.Amount
	current.Status = desired.Status
	current.DueDate = desired.DueDate
	current.PaymentDate = desired.PaymentDate
	current.PatientID = desired.PatientID
	current.PatientName = desired.PatientName
	current.SessionID = desired.SessionID

	if keepPaid {
		current.Status = "pago"
		if keptPaymentDate != nil && *keptPaymentDate != "" {
			current.PaymentDate = keptPaymentDate
		}
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// GormStore liga o Reconciler ao repositório real.
type GormStore struct {
	DB *gorm.DB
}

func (g GormStore) BySession(ctx context.Context, ownerID, sessionID uuid.UUID) (*repo.FinancialTransaction, error) {
	return repo.TransactionBySession(ctx, g.DB, ownerID, sessionID)
}

func (g GormStore) Orphans(ctx context.Context, ownerID uuid.UUID, dueDate string, patientID uuid.UUID) ([]repo.FinancialTransaction, error) {
	return repo.OrphanSessionTransactions(ctx, g.DB, ownerID, dueDate, patientID)
}

func (g GormStore) Create(ctx context.Context, t *repo.FinancialTransaction) error {
	_, err := repo.CreateTransaction(ctx, g.DB, t)
	return err
}

func (g GormStore) Update(ctx context.Context, t *repo.FinancialTransaction) error {
	return repo.UpdateTransaction(ctx, g.DB, t)
}
