package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FullName     *string
	Role         string
	CreatedAt    time.Time
}

func UserByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error) {
	var u User
	err := db.WithContext(ctx).Raw(`
		SELECT id, email, password_hash, full_name, role, created_at
		FROM users WHERE email = ?
	`, email).Scan(&u).Error
	if err != nil {
		return nil, err
	}
	if u.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func UserByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*User, error) {
	var u User
	err := db.WithContext(ctx).Raw(`
		SELECT id, email, password_hash, full_name, role, created_at
		FROM users WHERE id = ?
	`, id).Scan(&u).Error
	if err != nil {
		return nil, err
	}
	if u.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func UserEmailExists(ctx context.Context, db *gorm.DB, email string) (bool, error) {
	var n int
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM users WHERE email = ?`, email).Scan(&n).Error
	return n > 0, err
}

func CreateUser(ctx context.Context, db *gorm.DB, email, passwordHash string, fullName *string) (uuid.UUID, error) {
	var res struct{ ID uuid.UUID }
	err := db.WithContext(ctx).Raw(`
		INSERT INTO users (email, password_hash, full_name) VALUES (?, ?, ?) RETURNING id
	`, email, passwordHash, fullName).Scan(&res).Error
	return res.ID, err
}
