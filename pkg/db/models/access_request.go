package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/galleryve/galleryve-backend/pkg/enums"
)

// AccessRequest is a time-bounded read grant letting a user view another
// team's masked record. Historical rows are kept as an audit trail; only
// the most recent APPROVED, unexpired grant per (target, requester)
// matters for visibility. Liveness is always derived from ExpiresAt.
type AccessRequest struct {
	ID              uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RequesterID     uuid.UUID         `gorm:"column:requester_id;type:uuid;not null;index:idx_access_target"`
	Requester       *User             `gorm:"foreignKey:RequesterID"`
	TargetType      enums.SubjectType `gorm:"column:target_type;type:text;not null;index:idx_access_target"`
	TargetID        uuid.UUID         `gorm:"column:target_id;type:uuid;not null;index:idx_access_target"`
	Reason          *string           `gorm:"column:reason;type:text"`
	Status          enums.GrantStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	ApprovedByID    *uuid.UUID        `gorm:"column:approved_by_id;type:uuid"`
	ApprovedBy      *User             `gorm:"foreignKey:ApprovedByID"`
	ApprovedAt      *time.Time        `gorm:"column:approved_at"`
	ExpiresAt       *time.Time        `gorm:"column:expires_at"`
	RejectionReason *string           `gorm:"column:rejection_reason"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
