// Package crypto cifra o conteúdo dos prontuários em repouso com AES-256-GCM.
// As chaves vêm do ambiente versionadas ("v1:base64,v2:base64"), permitindo
// rotação sem recifrar registros antigos.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrUnknownKeyVersion = errors.New("key version not found")

func gcmFor(keyVersion string, keys map[string][]byte) (cipher.AEAD, error) {
	key, ok := keys[keyVersion]
	if !ok {
		return nil, ErrUnknownKeyVersion
	}
	if len(key) != 32 {
		return nil, errors.New("key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt cifra plaintext com a chave da versão indicada. O nonce é aleatório
// por registro e armazenado ao lado do ciphertext.
func Encrypt(plaintext []byte, keyVersion string, keys map[string][]byte) (ciphertext, nonce []byte, err error) {
	gcm, err := gcmFor(keyVersion, keys)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, err
	}
	return gcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Decrypt abre o ciphertext com a chave da versão com que foi cifrado.
func Decrypt(ciphertext, nonce []byte, keyVersion string, keys map[string][]byte) ([]byte, error) {
	gcm, err := gcmFor(keyVersion, keys)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// ParseKeysEnv interpreta DATA_ENCRYPTION_KEYS ("v1:base64,v2:base64").
// Aceita base64 com ou sem padding; cada chave precisa decodificar para 32 bytes.
func ParseKeysEnv(env string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	for _, part := range strings.Split(env, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ver, b64, ok := strings.Cut(part, ":")
		if !ok || strings.TrimSpace(ver) == "" {
			continue
		}
		key, err := decodeKeyB64(strings.TrimSpace(b64))
		if err != nil {
			return nil, err
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("key must be 32 bytes for AES-256 (got %d)", len(key))
		}
		out[strings.TrimSpace(ver)] = key
	}
	return out, nil
}

func decodeKeyB64(b64 string) ([]byte, error) {
	// 44 chars terminando em "=" decodificam para 33 bytes; normaliza para 43.
	if len(b64) == 44 && strings.HasSuffix(b64, "=") {
		b64 = b64[:43]
	}
	if len(b64)%4 == 3 {
		return base64.RawStdEncoding.DecodeString(b64)
	}
	switch len(b64) % 4 {
	case 2:
		b64 += "=="
	case 3:
		b64 += "="
	}
	return base64.StdEncoding.DecodeString(b64)
}
