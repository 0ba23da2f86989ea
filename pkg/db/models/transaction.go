package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction records a sale or consignment agreement. Amount and
// contract terms are sensitive and masked per the caller's visibility.
type Transaction struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID    uuid.UUID       `gorm:"column:customer_id;type:uuid;not null"`
	Customer      *Customer       `gorm:"foreignKey:CustomerID"`
	ArtworkTitle  string          `gorm:"column:artwork_title;type:text;not null"`
	ArtistID      *uuid.UUID      `gorm:"column:artist_id;type:uuid"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(18,2);not null"`
	Currency      string          `gorm:"column:currency;type:text;not null;default:'KRW'"`
	ContractTerms *string         `gorm:"column:contract_terms;type:text"`
	TransactedAt  *time.Time      `gorm:"column:transacted_at"`
	CreatedByID   uuid.UUID       `gorm:"column:created_by_id;type:uuid;not null"`
	CreatedBy     *User           `gorm:"foreignKey:CreatedByID"`
	TeamID        *uuid.UUID      `gorm:"column:team_id;type:uuid"`
	Approval      Approval        `gorm:"embedded"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt     gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}
