package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/riqueLenis/cognifyPsi/internal/auth"
	"github.com/riqueLenis/cognifyPsi/internal/repo"
)

type TransactionInput struct {
	Type          string  `json:"type"`
	Category      string  `json:"category"`
	Description   string  `json:"description"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	DueDate       *string `json:"due_date"`
	PaymentDate   *string `json:"payment_date"`
	PaymentMethod *string `json:"payment_method"`
	Notes         *string `json:"notes"`
	PatientID     *string `json:"patient_id"`
	PatientName   string  `json:"patient_name"`
	SessionID     *string `json:"session_id"`
}

func (in *TransactionInput) validate() error {
	in.Type = strings.TrimSpace(in.Type)
	if in.Type != "receita" && in.Type != "despesa" {
		return errors.New("type must be receita or despesa")
	}
	if strings.TrimSpace(in.Category) == "" {
		return errors.New("category required")
	}
	if in.Amount < 0 {
		return errors.New("amount must be >= 0")
	}
	if in.Status == "" {
		in.Status = "pendente"
	}
	if in.DueDate != nil && ValidateDateISO(*in.DueDate) != nil {
		return ErrInvalidDate
	}
	if in.PaymentDate != nil && ValidateDateISO(*in.PaymentDate) != nil {
		return ErrInvalidDate
	}
	return nil
}

func (in *TransactionInput) toModel(ownerID uuid.UUID) (*repo.FinancialTransaction, error) {
	t := repo.FinancialTransaction{
		OwnerID:       ownerID,
		Type:          in.Type,
		Category:      in.Category,
		Description:   in.Description,
		Amount:        in.Amount,
		Status:        in.Status,
		DueDate:       in.DueDate,
		PaymentDate:   in.PaymentDate,
		PaymentMethod: in.PaymentMethod,
		Notes:         in.Notes,
		PatientName:   in.PatientName,
	}
	if in.PatientID != nil && *in.PatientID != "" {
		id, err := uuid.Parse(*in.PatientID)
		if err != nil {
			return nil, errors.New("invalid patient_id")
		}
		t.PatientID = &id
	}
	if in.SessionID != nil && *in.SessionID != "" {
		id, err := uuid.Parse(*in.SessionID)
		if err != nil {
			return nil, errors.New("invalid session_id")
		}
		t.SessionID = &id
	}
	return &t, nil
}

func transactionJSON(t *repo.FinancialTransaction) map[string]interface{} {
	out := map[string]interface{}{
		"id":             t.ID.String(),
		"type":           t.Type,
		"category":       t.Category,
		"description":    t.Description,
		"amount":         t.Amount,
		"status":         t.Status,
		"due_date":       t.DueDate,
		"payment_date":   t.PaymentDate,
		"payment_method": t.PaymentMethod,
		"notes":          t.Notes,
		"patient_name":   t.PatientName,
		"created_at":     t.CreatedAt,
		"updated_at":     t.UpdatedAt,
	}
	if t.PatientID != nil {
		out["patient_id"] = t.PatientID.String()
	}
	if t.SessionID != nil {
		out["session_id"] = t.SessionID.String()
	}
	return out
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	limit, offset := ParseLimitOffset(r)

	total, err := repo.TransactionsCountByOwner(r.Context(), h.DB, ownerID)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	list, err := repo.TransactionsByOwner(r.Context(), h.DB, ownerID, queryFilters(r), limit, offset)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	out := make([]map[string]interface{}, len(list))
	for i := range list {
		out[i] = transactionJSON(&list[i])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": out,
		"limit":        limit,
		"offset":       offset,
		"total":        total,
	})
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	id, err := uuid.Parse(mux.Vars(r)["transactionId"])
	if err != nil {
		http.Error(w, `{"error":"invalid transaction_id"}`, http.StatusBadRequest)
		return
	}
	t, err := repo.TransactionByIDAndOwner(r.Context(), h.DB, id, ownerID)
	if err != nil {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, transactionJSON(t))
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	var in TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	if err := in.validate(); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	t, err := in.toModel(ownerID)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	if _, err := repo.CreateTransaction(r.Context(), h.DB, t); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			http.Error(w, `{"error":"session already has a linked transaction"}`, http.StatusConflict)
			return
		}
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, transactionJSON(t))
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	id, err := uuid.Parse(mux.Vars(r)["transactionId"])
	if err != nil {
		http.Error(w, `{"error":"invalid transaction_id"}`, http.StatusBadRequest)
		return
	}
	var in TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	if err := in.validate(); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	t, err := in.toModel(ownerID)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	t.ID = id
	if err := repo.UpdateTransaction(r.Context(), h.DB, t); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	updated, err := repo.TransactionByIDAndOwner(r.Context(), h.DB, id, ownerID)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, transactionJSON(updated))
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())
	id, err := uuid.Parse(mux.Vars(r)["transactionId"])
	if err != nil {
		http.Error(w, `{"error":"invalid transaction_id"}`, http.StatusBadRequest)
		return
	}
	if err := repo.DeleteTransaction(r.Context(), h.DB, id, ownerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// ExportTransactionsXLSX gera a planilha do livro-caixa do owner, respeitando
// os mesmos filtros de igualdade da listagem.
func (h *Handler) ExportTransactionsXLSX(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFrom(r.Context())

	list, err := repo.TransactionsByOwner(r.Context(), h.DB, ownerID, queryFilters(r), 0, 0)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Financeiro"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headers := []string{"Vencimento", "Tipo", "Categoria", "Descrição", "Paciente", "Valor (R$)", "Status", "Pagamento", "Forma", "Observações"}
	for i, head := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, head)
	}

	for row, t := range list {
		values := []interface{}{
			strOrDash(t.DueDate),
			t.Type,
			t.Category,
			t.Description,
			t.PatientName,
			t.Amount,
			t.Status,
			strOrDash(t.PaymentDate),
			strOrDash(t.PaymentMethod),
			strOrDash(t.Notes),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	filename := fmt.Sprintf("financeiro-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := f.Write(w); err != nil {
		log.Printf("[financeiro] export xlsx falhou: %v", err)
	}
}

func strOrDash(p *string) string {
	if p == nil || *p == "" {
		return "-"
	}
	return *p
}
