package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

var testSecret = []byte("test-secret-with-at-least-32-chars!!")

func TestBuildAndParseJWT(t *testing.T) {
	userID := uuid.New().String()
	tok, err := BuildJWT(testSecret, userID, "psi@clinica.local", RoleProfessional, time.Hour)
	if err != nil {
		t.Fatalf("BuildJWT: %v", err)
	}
	claims, err := ParseJWT(testSecret, tok)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.Subject != userID {
		t.Errorf("subject: got %q, want %q", claims.Subject, userID)
	}
	if claims.Email != "psi@clinica.local" {
		t.Errorf("email: got %q", claims.Email)
	}
	if claims.Role != RoleProfessional {
		t.Errorf("role: got %q", claims.Role)
	}
}

func TestParseJWT_WrongSecret(t *testing.T) {
	tok, err := BuildJWT(testSecret, uuid.New().String(), "a@b.c", RoleProfessional, time.Hour)
	if err != nil {
		t.Fatalf("BuildJWT: %v", err)
	}
	if _, err := ParseJWT([]byte("another-secret-with-32-chars-min!!!!"), tok); err == nil {
		t.Error("expected error with wrong secret")
	}
}

func TestParseJWT_Expired(t *testing.T) {
	tok, err := BuildJWT(testSecret, uuid.New().String(), "a@b.c", RoleProfessional, -time.Minute)
	if err != nil {
		t.Fatalf("BuildJWT: %v", err)
	}
	if _, err := ParseJWT(testSecret, tok); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestOwnerIDFrom(t *testing.T) {
	id := uuid.New()
	ctx := WithClaims(context.Background(), &Claims{})
	if got := OwnerIDFrom(ctx); got != uuid.Nil {
		t.Errorf("empty subject: got %v, want Nil", got)
	}
	c := &Claims{}
	c.Subject = id.String()
	ctx = WithClaims(context.Background(), c)
	if got := OwnerIDFrom(ctx); got != id {
		t.Errorf("got %v, want %v", got, id)
	}
	if got := OwnerIDFrom(context.Background()); got != uuid.Nil {
		t.Errorf("no claims: got %v, want Nil", got)
	}
}
