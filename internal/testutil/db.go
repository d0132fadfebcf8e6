// Package testutil abre o banco dos testes de integração. Sem DATABASE_URL os
// testes dão Skip.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/riqueLenis/cognifyPsi/internal/migrate"
)

// OpenDB conecta em DATABASE_URL. Devolve nil quando a variável está ausente
// ou a conexão falha; o teste chamador decide entre Skip e Fatal.
func OpenDB(ctx context.Context) *gorm.DB {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil
	}
	db, err := gorm.Open(postgres.Open(url), &gorm.Config{})
	if err != nil {
		return nil
	}
	if _, err := db.DB(); err != nil {
		return nil
	}
	return db.WithContext(ctx)
}

// MustMigrate aplica as migrações subindo diretórios até achar migrations/.
// Os testes rodam de dentro de internal/<pkg>, dois níveis abaixo da raiz.
func MustMigrate(ctx context.Context, db *gorm.DB) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	for depth := 0; depth < 8; depth++ {
		candidate := filepath.Join(dir, "migrations")
		if st, err := os.Stat(candidate); err == nil && st.IsDir() {
			return migrate.Run(ctx, db, candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return fmt.Errorf("migrations dir not found above %s", dir)
}
