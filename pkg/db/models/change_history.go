package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/galleryve/galleryve-backend/pkg/enums"
)

// ChangeHistory stores one row per changed field on a workflow record
// edit. The subject is a tagged (type, id) pair rather than a set of
// nullable foreign keys.
type ChangeHistory struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SubjectType enums.SubjectType `gorm:"column:subject_type;type:text;not null;index:idx_history_subject"`
	SubjectID   uuid.UUID         `gorm:"column:subject_id;type:uuid;not null;index:idx_history_subject"`
	Field       string            `gorm:"column:field;type:text;not null"`
	OldValue    *string           `gorm:"column:old_value;type:text"`
	NewValue    *string           `gorm:"column:new_value;type:text"`
	ChangedByID uuid.UUID         `gorm:"column:changed_by_id;type:uuid;not null"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}
