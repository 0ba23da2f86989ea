package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/galleryve/galleryve-backend/pkg/enums"
)

// AuditLog is the append-only compliance trail. Writes are synchronous
// with the mutation they describe.
type AuditLog struct {
	ID         uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ActorID    uuid.UUID         `gorm:"column:actor_id;type:uuid;not null;index"`
	Action     enums.AuditAction `gorm:"column:action;type:text;not null"`
	EntityType string            `gorm:"column:entity_type;type:text;not null;index:idx_audit_entity"`
	EntityID   uuid.UUID         `gorm:"column:entity_id;type:uuid;not null;index:idx_audit_entity"`
	OldValue   datatypes.JSON    `gorm:"column:old_value;type:jsonb"`
	NewValue   datatypes.JSON    `gorm:"column:new_value;type:jsonb"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}
