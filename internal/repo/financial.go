package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FinancialTransaction é um lançamento do livro-caixa (receita ou despesa).
// SessionID é referência "soft" à sessão de origem: preenchida quando o lançamento
// foi derivado pela reconciliação, ausente quando criado manualmente.
// Datas são strings YYYY-MM-DD (DATE no banco, lidas com ::text).
type FinancialTransaction struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	Type          string
	Category      string
	Description   string
	Amount        float64
	Status        string
	DueDate       *string
	PaymentDate   *string
	PaymentMethod *string
	Notes         *string
	PatientID     *uuid.UUID
	PatientName   string
	SessionID     *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const financialCols = `
	id, owner_id, type, category, description, amount, status,
	due_date::text, payment_date::text, payment_method, notes,
	patient_id, patient_name, session_id, created_at, updated_at
`

var financialFilterCols = map[string]string{
	"type":       "type",
	"category":   "category",
	"status":     "status",
	"due_date":   "due_date",
	"patient_id": "patient_id",
	"session_id": "session_id",
}

func TransactionsByOwner(ctx context.Context, db *gorm.DB, ownerID uuid.UUID, filters map[string]string, limit, offset int) ([]FinancialTransaction, error) {
	q := `SELECT ` + financialCols + ` FROM financial_transactions WHERE owner_id = ?`
	args := []interface{}{ownerID}
	q, args = appendEqualityFilters(q, args, financialFilterCols, filters)
	q += ` ORDER BY created_at DESC`
	if limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}
	var list []FinancialTransaction
	err := db.WithContext(ctx).Raw(q, args...).Scan(&list).Error
	return list, err
}

func TransactionsCountByOwner(ctx context.Context, db *gorm.DB, ownerID uuid.UUID) (int, error) {
	var n int
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM financial_transactions WHERE owner_id = ?`, ownerID).Scan(&n).Error
	return n, err
}

func TransactionByIDAndOwner(ctx context.Context, db *gorm.DB, id, ownerID uuid.UUID) (*FinancialTransaction, error) {
	var t FinancialTransaction
	err := db.WithContext(ctx).Raw(`
		SELECT `+financialCols+` FROM financial_transactions WHERE id = ? AND owner_id = ?
	`, id, ownerID).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

// TransactionBySession retorna o lançamento de categoria "sessao" vinculado à sessão,
// ou gorm.ErrRecordNotFound.
func TransactionBySession(ctx context.Context, db *gorm.DB, ownerID, sessionID uuid.UUID) (*FinancialTransaction, error) {
	var t FinancialTransaction
	err := db.WithContext(ctx).Raw(`
		SELECT `+financialCols+` FROM financial_transactions
		WHERE owner_id = ? AND session_id = ? AND category = 'sessao'
		LIMIT 1
	`, ownerID, sessionID).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

// TransactionsBySessionAny retorna todos os lançamentos (qualquer categoria) que
// referenciam a sessão, para a limpeza no delete de sessão.
func TransactionsBySessionAny(ctx context.Context, db *gorm.DB, ownerID, sessionID uuid.UUID) ([]FinancialTransaction, error) {
	var list []FinancialTransaction
	err := db.WithContext(ctx).Raw(`
		SELECT `+financialCols+` FROM financial_transactions WHERE owner_id = ? AND session_id = ?
	`, ownerID, sessionID).Scan(&list).Error
	return list, err
}

// OrphanSessionTransactions lista lançamentos de sessão sem session_id que batem com
// {categoria sessao, receita, due_date, patient_id} — candidatos à adoção pela reconciliação.
func OrphanSessionTransactions(ctx context.Context, db *gorm.DB, ownerID uuid.UUID, dueDate string, patientID uuid.UUID) ([]FinancialTransaction, error) {
	var list []FinancialTransaction
	err := db.WithContext(ctx).Raw(`
		SELECT `+financialCols+` FROM financial_transactions
		WHERE owner_id = ? AND session_id IS NULL
		  AND category = 'sessao' AND type = 'receita'
		  AND due_date = ?::date AND patient_id = ?
		ORDER BY created_at
	`, ownerID, dueDate, patientID).Scan(&list).Error
	return list, err
}

func CreateTransaction(ctx context.Context, db *gorm.DB, t *FinancialTransaction) (uuid.UUID, error) {
	var res struct{ ID uuid.UUID }
	err := db.WithContext(ctx).Raw(`
		INSERT INTO financial_transactions (
			owner_id, type, category, description, amount, status,
			due_date, payment_date, payment_method, notes,
			patient_id, patient_name, session_id
		) VALUES (?, ?, ?, ?, ?, ?, ?::date, ?::date, ?, ?, ?, ?, ?) RETURNING id
	`, t.OwnerID, t.Type, t.Category, t.Description, t.Amount, t.Status,
		t.DueDate, t.PaymentDate, t.PaymentMethod, t.Notes,
		t.PatientID, t.PatientName, t.SessionID).Scan(&res).Error
	if err != nil {
		return uuid.Nil, err
	}
	t.ID = res.ID
	return res.ID, nil
}

func UpdateTransaction(ctx context.Context, db *gorm.DB, t *FinancialTransaction) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE financial_transactions SET
			type = ?, category = ?, description = ?, amount = ?, status = ?,
			due_date = ?::date, payment_date = ?::date, payment_method = ?, notes = ?,
			patient_id = ?, patient_name = ?, session_id = ?, updated_at = now()
		WHERE id = ? AND owner_id = ?
	`, t.Type, t.Category, t.Description, t.Amount, t.Status,
		t.DueDate, t.PaymentDate, t.PaymentMethod, t.Notes,
		t.PatientID, t.PatientName, t.SessionID, t.ID, t.OwnerID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func DeleteTransaction(ctx context.Context, db *gorm.DB, id, ownerID uuid.UUID) error {
	result := db.WithContext(ctx).Exec(`DELETE FROM financial_transactions WHERE id = ? AND owner_id = ?`, id, ownerID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func DeleteTransactionsBySession(ctx context.Context, db *gorm.DB, ownerID, sessionID uuid.UUID) (int64, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM financial_transactions WHERE owner_id = ? AND session_id = ?`, ownerID, sessionID)
	return result.RowsAffected, result.Error
}

func DeleteTransactionsByPatient(ctx context.Context, db *gorm.DB, ownerID, patientID uuid.UUID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM financial_transactions WHERE owner_id = ? AND patient_id = ?`, ownerID, patientID).Error
}
