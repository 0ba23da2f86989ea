package accessgrants

import (
	"time"

	"github.com/google/uuid"

	"github.com/galleryve/galleryve-backend/pkg/db/models"
	"github.com/galleryve/galleryve-backend/pkg/enums"
)

// CreateRequest is the payload for requesting access to another team's
// record.
type CreateRequest struct {
	TargetType string  `json:"target_type" validate:"required"`
	TargetID   string  `json:"target_id" validate:"required,uuid"`
	Reason     *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// ApproveRequest optionally overrides the configured grant duration.
type ApproveRequest struct {
	DurationHours *int `json:"duration_hours,omitempty" validate:"omitempty,min=1,max=720"`
}

// RejectRequest carries the mandatory rejection reason.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Response is the API shape of an access request.
type Response struct {
	ID              uuid.UUID         `json:"id"`
	RequesterID     uuid.UUID         `json:"requester_id"`
	TargetType      enums.SubjectType `json:"target_type"`
	TargetID        uuid.UUID         `json:"target_id"`
	Reason          *string           `json:"reason,omitempty"`
	Status          enums.GrantStatus `json:"status"`
	ApprovedByID    *uuid.UUID        `json:"approved_by_id,omitempty"`
	ApprovedAt      *time.Time        `json:"approved_at,omitempty"`
	ExpiresAt       *time.Time        `json:"expires_at,omitempty"`
	RejectionReason *string           `json:"rejection_reason,omitempty"`
	Active          bool              `json:"active"`
	CreatedAt       time.Time         `json:"created_at"`
}

// List wraps the paginated requests plus the next page cursor.
type List struct {
	Requests   []Response `json:"requests"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// ToResponse maps the model to its API shape. Active is derived from
// status and expiry at render time, never stored.
func ToResponse(request *models.AccessRequest, now time.Time) Response {
	active := request.Status == enums.GrantStatusApproved &&
		request.ExpiresAt != nil && request.ExpiresAt.After(now)
	return Response{
		ID:              request.ID,
		RequesterID:     request.RequesterID,
		TargetType:      request.TargetType,
		TargetID:        request.TargetID,
		Reason:          request.Reason,
		Status:          request.Status,
		ApprovedByID:    request.ApprovedByID,
		ApprovedAt:      request.ApprovedAt,
		ExpiresAt:       request.ExpiresAt,
		RejectionReason: request.RejectionReason,
		Active:          active,
		CreatedAt:       request.CreatedAt,
	}
}
