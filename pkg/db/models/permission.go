package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/galleryve/galleryve-backend/pkg/enums"
)

// Permission is a fine-grained capability identified by a stable key.
// Keys referenced from code are immutable; new keys can be created
// administratively.
type Permission struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Key         string    `gorm:"column:key;type:text;not null;uniqueIndex"`
	Description string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// RolePermission links a role to a permission. (role, permission_id)
// appears at most once; the pair is only ever replaced wholesale.
type RolePermission struct {
	ID           uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Role         enums.Role  `gorm:"column:role;type:text;not null;uniqueIndex:idx_role_permission"`
	PermissionID uuid.UUID   `gorm:"column:permission_id;type:uuid;not null;uniqueIndex:idx_role_permission"`
	Permission   *Permission `gorm:"foreignKey:PermissionID"`
	CreatedAt    time.Time   `gorm:"column:created_at;autoCreateTime"`
}
