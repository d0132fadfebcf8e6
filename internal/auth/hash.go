package auth

import "golang.org/x/crypto/bcrypt"

// Custo 12: ~250ms por hash em hardware comum, suficiente para login interativo.
const hashCost = 12

// HashPassword gera o hash bcrypt da senha em claro.
func HashPassword(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), hashCost)
	return string(h), err
}

// CheckPassword compara senha em claro com o hash armazenado.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
