package artists

import (
	"time"

	"github.com/google/uuid"

	"github.com/galleryve/galleryve-backend/pkg/db/models"
	"github.com/galleryve/galleryve-backend/pkg/enums"
	"github.com/galleryve/galleryve-backend/pkg/masking"
)

// CreateRequest is the payload for registering an artist.
type CreateRequest struct {
	Name  string  `json:"name" validate:"required,max=200"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Bio   *string `json:"bio,omitempty" validate:"omitempty,max=5000"`
}

// UpdateRequest carries partial edits. Nil fields stay unchanged; an
// empty string clears the field.
type UpdateRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Bio   *string `json:"bio,omitempty" validate:"omitempty,max=5000"`
}

// RejectRequest carries the mandatory rejection reason.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Filters describe the inputs supported by the artist list.
type Filters struct {
	Status *enums.RecordStatus
	Query  string
}

// Response is the API shape of an artist, post-masking.
type Response struct {
	ID              uuid.UUID          `json:"id"`
	Name            string             `json:"name"`
	Email           *string            `json:"email,omitempty"`
	Phone           *string            `json:"phone,omitempty"`
	Bio             *string            `json:"bio,omitempty"`
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

// List wraps the paginated artists plus the next page cursor.
type List struct {
	Artists    []Response `json:"artists"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// ApplyMask implements masking.Maskable. The artist name is public
// gallery material and stays readable; contact details are redacted.
func (r *Response) ApplyMask(level enums.MaskingLevel, opts masking.Options) {
	masking.EmailPtr(r.Email, level)
	masking.PhonePtr(r.Phone, level)
	masking.FreeTextPtr(r.Bio, level)
}

// ToResponse maps the model to its API shape with masking metadata.
func ToResponse(artist *models.Artist, level enums.MaskingLevel, opts masking.Options) Response {
	resp := Response{
		ID:              artist.ID,
		Name:            artist.Name,
		Email:           cloneString(artist.Email),
		Phone:           cloneString(artist.Phone),
		Bio:             cloneString(artist.Bio),
		Status:          artist.Approval.Status,
		ApprovedByID:    artist.Approval.ApprovedByID,
		ApprovedAt:      artist.Approval.ApprovedAt,
		RejectionReason: artist.Approval.RejectionReason,
		CreatedByID:     artist.CreatedByID,
		TeamID:          artist.TeamID,
		IsMasked:        level != enums.MaskingLevelNone,
		MaskingLevel:    level,
		CreatedAt:       artist.CreatedAt,
		UpdatedAt:       artist.UpdatedAt,
	}
	masking.Apply(&resp, level, opts)
	return resp
}

// snapshot is the diffable projection of an artist's editable fields.
type snapshot struct {
	Name  string  `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
	Bio   *string `json:"bio"`
}

func snapshotOf(artist *models.Artist) snapshot {
	return snapshot{
		Name:  artist.Name,
		Email: cloneString(artist.Email),
		Phone: cloneString(artist.Phone),
		Bio:   cloneString(artist.Bio),
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
