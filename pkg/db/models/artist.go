package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Artist shares the workflow lifecycle with customers and transactions.
// TeamID is nullable: gallery-wide artists belong to no single team.
type Artist struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string         `gorm:"type:text;not null"`
	Email       *string        `gorm:"type:text"`
	Phone       *string        `gorm:"type:text"`
	Bio         *string        `gorm:"type:text"`
	CreatedByID uuid.UUID      `gorm:"column:created_by_id;type:uuid;not null"`
	CreatedBy   *User          `gorm:"foreignKey:CreatedByID"`
	TeamID      *uuid.UUID     `gorm:"column:team_id;type:uuid"`
	Approval    Approval       `gorm:"embedded"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at;index"`
}
