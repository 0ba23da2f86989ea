package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/galleryve/galleryve-backend/pkg/enums"
)

// Approval carries the workflow lifecycle fields embedded in every
// workflow-bearing record. RejectionReason is non-null only when the
// status was produced by a reject transition; an edit of an APPROVED
// record clears all three approval fields and reverts to PENDING.
type Approval struct {
	Status          enums.RecordStatus `gorm:"column:status;type:text;not null;default:'DRAFT'"`
	ApprovedByID    *uuid.UUID         `gorm:"column:approved_by_id;type:uuid"`
	ApprovedAt      *time.Time         `gorm:"column:approved_at"`
	RejectionReason *string            `gorm:"column:rejection_reason"`
}
