package crypto

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func testKeys(t *testing.T) map[string][]byte {
	t.Helper()
	key := bytes.Repeat([]byte{0x42}, 32)
	return map[string][]byte{"v1": key}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	keys := testKeys(t)
	plain := []byte("evolução: paciente relatou melhora do quadro ansioso")
	ct, nonce, err := Encrypt(plain, "v1", keys)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Equal(ct, plain) {
		t.Fatal("ciphertext must differ from plaintext")
	}
	dec, err := Decrypt(ct, nonce, "v1", keys)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(dec, plain) {
		t.Errorf("round trip: got %q, want %q", dec, plain)
	}
}

func TestEncrypt_UnknownKeyVersion(t *testing.T) {
	if _, _, err := Encrypt([]byte("x"), "v9", testKeys(t)); err == nil {
		t.Error("expected error for unknown key version")
	}
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	keys := testKeys(t)
	ct, nonce, err := Encrypt([]byte("conteudo"), "v1", keys)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	ct[0] ^= 0xFF
	if _, err := Decrypt(ct, nonce, "v1", keys); err == nil {
		t.Error("expected auth failure for tampered ciphertext")
	}
}

func TestParseKeysEnv(t *testing.T) {
	key := bytes.Repeat([]byte{0x01}, 32)
	b64 := base64.StdEncoding.EncodeToString(key) // 44 chars com "="
	m, err := ParseKeysEnv("v1:" + b64)
	if err != nil {
		t.Fatalf("ParseKeysEnv: %v", err)
	}
	if !bytes.Equal(m["v1"], key) {
		t.Error("decoded key mismatch")
	}
	// Sem padding (43 chars) também precisa funcionar.
	m, err = ParseKeysEnv("v2:" + base64.RawStdEncoding.EncodeToString(key))
	if err != nil {
		t.Fatalf("ParseKeysEnv raw: %v", err)
	}
	if !bytes.Equal(m["v2"], key) {
		t.Error("decoded raw key mismatch")
	}
}

func TestParseKeysEnv_Empty(t *testing.T) {
	m, err := ParseKeysEnv("")
	if err != nil || len(m) != 0 {
		t.Errorf("empty env: got %v, %v", m, err)
	}
}

func TestParseKeysEnv_WrongSize(t *testing.T) {
	short := base64.StdEncoding.EncodeToString([]byte("curta"))
	if _, err := ParseKeysEnv("v1:" + short); err == nil {
		t.Error("expected error for short key")
	}
}
