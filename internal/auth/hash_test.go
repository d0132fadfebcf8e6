package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Sessao123!")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "Sessao123!" {
		t.Fatal("hash must not equal plaintext")
	}
	if !CheckPassword(hash, "Sessao123!") {
		t.Error("CheckPassword should accept the original password")
	}
	if CheckPassword(hash, "errada") {
		t.Error("CheckPassword should reject a wrong password")
	}
}
