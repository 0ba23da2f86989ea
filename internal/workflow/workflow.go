package workflow

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/galleryve/galleryve-backend/pkg/db/models"
	"github.com/galleryve/galleryve-backend/pkg/enums"
	pkgerrors "github.com/galleryve/galleryve-backend/pkg/errors"
)

// Event is a workflow transition trigger.
type Event string

const (
	EventSubmit  Event = "submit"
	EventApprove Event = "approve"
	EventReject  Event = "reject"
)

// transitions is the closed transition table. The lifecycle is cyclic by
// design: APPROVED and REJECTED both re-enter PENDING (reject via
// resubmission, approved via edit — see RevertOnEdit).
var transitions = map[Event]map[enums.RecordStatus]enums.RecordStatus{
	EventSubmit: {
		enums.RecordStatusDraft:    enums.RecordStatusPending,
		enums.RecordStatusRejected: enums.RecordStatusPending,
	},
	EventApprove: {
		enums.RecordStatusPending: enums.RecordStatusApproved,
	},
	EventReject: {
		enums.RecordStatusPending: enums.RecordStatusRejected,
	},
}

// Next returns the target status for the event, or false when the
// transition is not in the table.
func Next(event Event, from enums.RecordStatus) (enums.RecordStatus, bool) {
	to, ok := transitions[event][from]
	return to, ok
}

// Submit moves a DRAFT or REJECTED record to PENDING and clears any
// leftover approval fields. Submitting an already-PENDING record is a
// state conflict, not a no-op.
func Submit(approval *models.Approval) error {
	to, ok := Next(EventSubmit, approval.Status)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only draft or rejected records can be submitted")
	}
	approval.Status = to
	clearDecision(approval)
	return nil
}

// Approve moves a PENDING record to APPROVED, recording the approver and
// timestamp. Any previous rejection reason is cleared.
func Approve(approval *models.Approval, approverID uuid.UUID, now time.Time) error {
	to, ok := Next(EventApprove, approval.Status)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending records can be approved")
	}
	approval.Status = to
	approval.ApprovedByID = &approverID
	approval.ApprovedAt = &now
	approval.RejectionReason = nil
	return nil
}

// Reject moves a PENDING record to REJECTED. The reason is mandatory and
// validated before any field changes.
func Reject(approval *models.Approval, approverID uuid.UUID, reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
	}
	to, ok := Next(EventReject, approval.Status)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending records can be rejected")
	}
	approval.Status = to
	approval.ApprovedByID = &approverID
	approval.ApprovedAt = &now
	approval.RejectionReason = &reason
	return nil
}

// RevertOnEdit applies the edit rule: approval is a point-in-time
// attestation, so editing an APPROVED record invalidates it and requires
// re-approval. Edits in any other status leave the status untouched.
// Returns true when a revert happened.
func RevertOnEdit(approval *models.Approval) bool {
	if approval.Status != enums.RecordStatusApproved {
		return false
	}
	approval.Status = enums.RecordStatusPending
	clearDecision(approval)
	return true
}

// DecisionColumns flattens the approval fields into the column map the
// repositories apply with a status-conditioned UPDATE, so storage
// receives exactly the decision the transition produced.
func DecisionColumns(approval *models.Approval) map[string]any {
	return map[string]any{
		"status":           approval.Status,
		"approved_by_id":   approval.ApprovedByID,
		"approved_at":      approval.ApprovedAt,
		"rejection_reason": approval.RejectionReason,
	}
}

func clearDecision(approval *models.Approval) {
	approval.ApprovedByID = nil
	approval.ApprovedAt = nil
	approval.RejectionReason = nil
}
