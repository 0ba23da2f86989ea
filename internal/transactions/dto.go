package transactions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/galleryve/galleryve-backend/pkg/db/models"
	"github.com/galleryve/galleryve-backend/pkg/enums"
	"github.com/galleryve/galleryve-backend/pkg/masking"
)

// CreateRequest is the payload for recording a transaction.
type CreateRequest struct {
	CustomerID    string     `json:"customer_id" validate:"required,uuid"`
	ArtworkTitle  string     `json:"artwork_title" validate:"required,max=300"`
	ArtistID      *string    `json:"artist_id,omitempty" validate:"omitempty,uuid"`
	Amount        string     `json:"amount" validate:"required"`
	Currency      *string    `json:"currency,omitempty" validate:"omitempty,len=3"`
	ContractTerms *string    `json:"contract_terms,omitempty" validate:"omitempty,max=5000"`
	TransactedAt  *time.Time `json:"transacted_at,omitempty"`
}

// UpdateRequest carries partial edits. Nil fields stay unchanged.
type UpdateRequest struct {
	ArtworkTitle  *string    `json:"artwork_title,omitempty" validate:"omitempty,max=300"`
	Amount        *string    `json:"amount,omitempty"`
	Currency      *string    `json:"currency,omitempty" validate:"omitempty,len=3"`
	ContractTerms *string    `json:"contract_terms,omitempty" validate:"omitempty,max=5000"`
	TransactedAt  *time.Time `json:"transacted_at,omitempty"`
}

// RejectRequest carries the mandatory rejection reason.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Filters describe the inputs supported by the transaction list.
type Filters struct {
	Status     *enums.RecordStatus
	CustomerID *uuid.UUID
	Query      string
}

// Response is the API shape of a transaction. Amount is rendered as a
// display string so partial masking can star digit groups without the
// payload shape changing.
type Response struct {
	ID              uuid.UUID          `json:"id"`
	CustomerID      uuid.UUID          `json:"customer_id"`
	ArtworkTitle    string             `json:"artwork_title"`
	ArtistID        *uuid.UUID         `json:"artist_id,omitempty"`
	Amount          string             `json:"amount"`
	Currency        string             `json:"currency"`
	ContractTerms   *string            `json:"contract_terms,omitempty"`
	TransactedAt    *time.Time         `json:"transacted_at,omitempty"`
	Status          enums.RecordStatus `json:"status"`
	ApprovedByID    *uuid.UUID         `json:"approved_by_id,omitempty"`
	ApprovedAt      *time.Time         `json:"approved_at,omitempty"`
	RejectionReason *string            `json:"rejection_reason,omitempty"`
	CreatedByID     uuid.UUID          `json:"created_by_id"`
	TeamID          *uuid.UUID         `json:"team_id,omitempty"`
	IsMasked        bool               `json:"is_masked"`
	MaskingLevel    enums.MaskingLevel `json:"masking_level"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// List wraps the paginated transactions plus the next page cursor.
type List struct {
	Transactions []Response `json:"transactions"`
	NextCursor   string     `json:"next_cursor,omitempty"`
}

// ApplyMask implements masking.Maskable. Amount is rendered separately
// in ToResponse because redaction needs the numeric value.
func (r *Response) ApplyMask(level enums.MaskingLevel, opts masking.Options) {
	masking.FreeTextPtr(r.ContractTerms, level)
}

// ToResponse maps the model to its API shape with masking metadata.
// The transaction's own currency labels the amount; the configured
// suffix is only the fallback.
func ToResponse(transaction *models.Transaction, level enums.MaskingLevel, opts masking.Options) Response {
	amountOpts := opts
	if transaction.Currency != "" {
		amountOpts.CurrencySuffix = transaction.Currency
	}

	resp := Response{
		ID:              transaction.ID,
		CustomerID:      transaction.CustomerID,
		ArtworkTitle:    transaction.ArtworkTitle,
		ArtistID:        transaction.ArtistID,
		Amount:          masking.Amount(transaction.Amount, level, amountOpts),
		Currency:        transaction.Currency,
		ContractTerms:   cloneString(transaction.ContractTerms),
		TransactedAt:    transaction.TransactedAt,
		Status:          transaction.Approval.Status,
		ApprovedByID:    transaction.Approval.ApprovedByID,
		ApprovedAt:      transaction.Approval.ApprovedAt,
		RejectionReason: transaction.Approval.RejectionReason,
		CreatedByID:     transaction.CreatedByID,
		TeamID:          transaction.TeamID,
		IsMasked:        level != enums.MaskingLevelNone,
		MaskingLevel:    level,
		CreatedAt:       transaction.CreatedAt,
		UpdatedAt:       transaction.UpdatedAt,
	}
	masking.Apply(&resp, level, opts)
	return resp
}

// snapshot is the diffable projection of a transaction's editable fields.
type snapshot struct {
	ArtworkTitle  string          `json:"artwork_title"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	ContractTerms *string         `json:"contract_terms"`
	TransactedAt  *time.Time      `json:"transacted_at"`
}

func snapshotOf(transaction *models.Transaction) snapshot {
	return snapshot{
		ArtworkTitle:  transaction.ArtworkTitle,
		Amount:        transaction.Amount,
		Currency:      transaction.Currency,
		ContractTerms: cloneString(transaction.ContractTerms),
		TransactedAt:  transaction.TransactedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
