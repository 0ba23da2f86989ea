package customers

import (
	"time"

	"github.com/google/uuid"

	"github.com/galleryve/galleryve-backend/pkg/db/models"
	"github.com/galleryve/galleryve-backend/pkg/enums"
	"github.com/galleryve/galleryve-backend/pkg/masking"
)

// CreateRequest is the payload for registering a customer.
type CreateRequest struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=500"`
	Memo    *string `json:"memo,omitempty" validate:"omitempty,max=2000"`
}

// UpdateRequest carries partial edits. Nil fields stay unchanged; an
// empty string clears the field.
type UpdateRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=500"`
	Memo    *string `json:"memo,omitempty" validate:"omitempty,max=2000"`
}

// RejectRequest carries the mandatory rejection reason.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Filters describe the inputs supported by the customer list.
type Filters struct {
	Status *enums.RecordStatus
	Query  string
}

// Response is the API shape of a customer, post-masking.
type Response struct {
	ID              uuid.UUID          `json:"id"`
	Name            string             `json:"name"`
	Email           *string            `json:"email,omitempty"`
	Phone           *string            `json:"phone,omitempty"`
	Address         *string            `json:"address,omitempty"`
	Memo            *string            `json:"memo,omitempty"`
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

// List wraps the paginated customers plus the next page cursor.
type List struct {
	Customers  []Response `json:"customers"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// ApplyMask implements masking.Maskable.
func (r *Response) ApplyMask(level enums.MaskingLevel, opts masking.Options) {
	r.Name = masking.Name(r.Name, level)
	masking.EmailPtr(r.Email, level)
	masking.PhonePtr(r.Phone, level)
	masking.FreeTextPtr(r.Address, level)
	masking.FreeTextPtr(r.Memo, level)
}

// ToResponse maps the model to its API shape with masking metadata.
func ToResponse(customer *models.Customer, level enums.MaskingLevel, opts masking.Options) Response {
	resp := Response{
		ID:              customer.ID,
		Name:            customer.Name,
		Email:           cloneString(customer.Email),
		Phone:           cloneString(customer.Phone),
		Address:         cloneString(customer.Address),
		Memo:            cloneString(customer.Memo),
		Status:          customer.Approval.Status,
		ApprovedByID:    customer.Approval.ApprovedByID,
		ApprovedAt:      customer.Approval.ApprovedAt,
		RejectionReason: customer.Approval.RejectionReason,
		CreatedByID:     customer.CreatedByID,
		TeamID:          customer.TeamID,
		IsMasked:        level != enums.MaskingLevelNone,
		MaskingLevel:    level,
		CreatedAt:       customer.CreatedAt,
		UpdatedAt:       customer.UpdatedAt,
	}
	masking.Apply(&resp, level, opts)
	return resp
}

// snapshot is the diffable projection of a customer's editable fields.
type snapshot struct {
	Name    string  `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	Memo    *string `json:"memo"`
}

func snapshotOf(customer *models.Customer) snapshot {
	return snapshot{
		Name:    customer.Name,
		Email:   cloneString(customer.Email),
		Phone:   cloneString(customer.Phone),
		Address: cloneString(customer.Address),
		Memo:    cloneString(customer.Memo),
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
