package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditEvent registra ações sensíveis (LGPD: consentimento, exportação, apagamento).
type AuditEvent struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Action    string
	Entity    string
	EntityID  *uuid.UUID
	Detail    *string
	CreatedAt time.Time
}

func RecordAudit(ctx context.Context, db *gorm.DB, e *AuditEvent) error {
	var res struct{ ID uuid.UUID }
	err := db.WithContext(ctx).Raw(`
		INSERT INTO audit_events (owner_id, action, entity, entity_id, detail)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, e.OwnerID, e.Action, e.Entity, e.EntityID, e.Detail).Scan(&res).Error
	if err != nil {
		return err
	}
	e.ID = res.ID
	return nil
}

func AuditByOwner(ctx context.Context, db *gorm.DB, ownerID uuid.UUID, limit, offset int) ([]AuditEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []AuditEvent
	err := db.WithContext(ctx).Raw(`
		SELECT id, owner_id, action, entity, entity_id, detail, created_at
		FROM audit_events
		WHERE owner_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, ownerID, limit, offset).Scan(&out).Error
	return out, err
}
