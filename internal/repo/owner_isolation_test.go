package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/riqueLenis/cognifyPsi/internal/testutil"
)

// TestOwnerIsolation exige DATABASE_URL. Rode: go test -v -run TestOwnerIsolation ./internal/repo
func TestOwnerIsolation(t *testing.T) {
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

	ownerA, err := CreateUser(ctx, db, "isolamento-a-"+uuid.NewString()+"@teste.local", "x", nil)
	if err != nil {
		t.Fatalf("CreateUser A: %v", err)
	}
	ownerB, err := CreateUser(ctx, db, "isolamento-b-"+uuid.NewString()+"@teste.local", "x", nil)
	if err != nil {
		t.Fatalf("CreateUser B: %v", err)
	}

	patientA := &Patient{OwnerID: ownerA, FullName: "Paciente Isolamento"}
	if _, err := CreatePatient(ctx, db, patientA); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	defer func() { _ = DeletePatient(ctx, db, patientA.ID, ownerA) }()

	listB, err := PatientsByOwner(ctx, db, ownerB, nil, 100, 0)
	if err != nil {
		t.Fatalf("PatientsByOwner B: %v", err)
	}
	for _, p := range listB {
		if p.ID == patientA.ID {
			t.Error("paciente do owner A não pode aparecer na listagem do owner B")
		}
	}

	if _, err := PatientByIDAndOwner(ctx, db, patientA.ID, ownerB); err == nil {
		t.Error("busca cruzada por ID deveria falhar com not found")
	}

	got, err := PatientByIDAndOwner(ctx, db, patientA.ID, ownerA)
	if err != nil {
		t.Fatalf("PatientByIDAndOwner A: %v", err)
	}
	if got.FullName != "Paciente Isolamento" {
		t.Errorf("FullName = %q", got.FullName)
	}
}
