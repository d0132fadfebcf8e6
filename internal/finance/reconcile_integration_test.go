package finance

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/riqueLenis/cognifyPsi/internal/repo"
	"github.com/riqueLenis/cognifyPsi/internal/testutil"
)

// TestReconcileAgainstDatabase exige DATABASE_URL; valida a reconciliação de
// ponta a ponta, inclusive o índice único parcial de session_id.
func TestReconcileAgainstDatabase(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(ctx)
	if db == nil {
		t.Skip("DATABASE_URL not set")
	}
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		defer sqlDB.Close()
	}
	if err := testutil.MustMigrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ownerID, err := repo.CreateUser(ctx, db, "reconcile-"+uuid.NewString()+"@teste.local", "x", nil)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	patient := &repo.Patient{OwnerID: ownerID, FullName: "Paciente Reconciliação"}
	if _, err := repo.CreatePatient(ctx, db, patient); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	defer func() {
		_ = repo.DeleteTransactionsByPatient(ctx, db, ownerID, patient.ID)
		_ = repo.DeleteSessionsByPatient(ctx, db, ownerID, patient.ID)
		_ = repo.DeletePatient(ctx, db, patient.ID, ownerID)
	}()

	price := "150,50"
	session := &repo.Session{
		OwnerID:       ownerID,
		PatientID:     patient.ID,
		Date:          "2024-06-10",
		Status:        "agendada",
		Price:         &price,
		PaymentStatus: "pendente",
		SessionType:   "individual",
	}
	if _, err := repo.CreateSession(ctx, db, session); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	rec := NewReconciler(GormStore{DB: db})
	tx1, err := rec.Reconcile(ctx, session, patient.FullName)
	if err != nil {
		t.Fatalf("Reconcile (create): %v", err)
	}
	if tx1 == nil || tx1.Amount != 150.5 || tx1.Status != "pendente" {
		t.Fatalf("lançamento criado errado: %+v", tx1)
	}

	// Segunda passada não pode duplicar.
	rec.Forget(session.ID)
	tx2, err := rec.Reconcile(ctx, session, patient.FullName)
	if err != nil {
		t.Fatalf("Reconcile (update): %v", err)
	}
	if tx2.ID != tx1.ID {
		t.Errorf("reconciliação duplicou: %s vs %s", tx1.ID, tx2.ID)
	}
	list, err := repo.TransactionsBySessionAny(ctx, db, ownerID, session.ID)
	if err != nil {
		t.Fatalf("TransactionsBySessionAny: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("quer exatamente 1 lançamento vinculado, tem %d", len(list))
	}
}
