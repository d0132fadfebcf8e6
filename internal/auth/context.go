package auth

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const claimsKey contextKey = "claims"

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func ClaimsFrom(ctx context.Context) *Claims {
	if c, _ := ctx.Value(claimsKey).(*Claims); c != nil {
		return c
	}
	return nil
}

// OwnerIDFrom retorna o id do usuário autenticado (dono exclusivo dos registros).
// uuid.Nil quando não autenticado ou subject inválido.
func OwnerIDFrom(ctx context.Context) uuid.UUID {
	c := ClaimsFrom(ctx)
	if c == nil {
		return uuid.Nil
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func EmailFrom(ctx context.Context) string {
	c := ClaimsFrom(ctx)
	if c == nil {
		return ""
	}
	return c.Email
}
