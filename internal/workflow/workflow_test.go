package workflow

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleryve/galleryve-backend/pkg/db/models"
	"github.com/galleryve/galleryve-backend/pkg/enums"
	pkgerrors "github.com/galleryve/galleryve-backend/pkg/errors"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		event Event
		from  enums.RecordStatus
		to    enums.RecordStatus
		ok    bool
	}{
		{EventSubmit, enums.RecordStatusDraft, enums.RecordStatusPending, true},
		{EventSubmit, enums.RecordStatusRejected, enums.RecordStatusPending, true},
		{EventSubmit, enums.RecordStatusPending, "", false},
		{EventSubmit, enums.RecordStatusApproved, "", false},
		{EventApprove, enums.RecordStatusPending, enums.RecordStatusApproved, true},
		{EventApprove, enums.RecordStatusDraft, "", false},
		{EventApprove, enums.RecordStatusApproved, "", false},
		{EventReject, enums.RecordStatusPending, enums.RecordStatusRejected, true},
		{EventReject, enums.RecordStatusRejected, "", false},
	}

	for _, tc := range cases {
		to, ok := Next(tc.event, tc.from)
		assert.Equal(t, tc.ok, ok, "%s from %s", tc.event, tc.from)
		if tc.ok {
			assert.Equal(t, tc.to, to, "%s from %s", tc.event, tc.from)
		}
	}
}

func TestSubmitClearsStaleDecision(t *testing.T) {
	approver := uuid.New()
	reason := "missing contract"
	at := time.Now()
	approval := models.Approval{
		Status:          enums.RecordStatusRejected,
		ApprovedByID:    &approver,
		ApprovedAt:      &at,
		RejectionReason: &reason,
	}

	require.NoError(t, Submit(&approval))
	assert.Equal(t, enums.RecordStatusPending, approval.Status)
	assert.Nil(t, approval.ApprovedByID)
	assert.Nil(t, approval.ApprovedAt)
	assert.Nil(t, approval.RejectionReason)
}

func TestSubmitWhilePendingIsStateConflict(t *testing.T) {
	approval := models.Approval{Status: enums.RecordStatusPending}
	err := Submit(&approval)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
	assert.Equal(t, enums.RecordStatusPending, approval.Status)
}

func TestApprove(t *testing.T) {
	approver := uuid.New()
	now := time.Now()
	approval := models.Approval{Status: enums.RecordStatusPending}

	require.NoError(t, Approve(&approval, approver, now))
	assert.Equal(t, enums.RecordStatusApproved, approval.Status)
	require.NotNil(t, approval.ApprovedByID)
	assert.Equal(t, approver, *approval.ApprovedByID)
	require.NotNil(t, approval.ApprovedAt)
	assert.Nil(t, approval.RejectionReason)
}

func TestApproveNonPendingFailsWithoutMutation(t *testing.T) {
	approval := models.Approval{Status: enums.RecordStatusApproved}
	err := Approve(&approval, uuid.New(), time.Now())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
	assert.Nil(t, approval.ApprovedByID)
}

func TestRejectRequiresReason(t *testing.T) {
	approval := models.Approval{Status: enums.RecordStatusPending}

	err := Reject(&approval, uuid.New(), "   ", time.Now())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	// the validation failure must precede any field change
	assert.Equal(t, enums.RecordStatusPending, approval.Status)

	require.NoError(t, Reject(&approval, uuid.New(), "incomplete paperwork", time.Now()))
	assert.Equal(t, enums.RecordStatusRejected, approval.Status)
	require.NotNil(t, approval.RejectionReason)
	assert.Equal(t, "incomplete paperwork", *approval.RejectionReason)
}

func TestRevertOnEdit(t *testing.T) {
	approver := uuid.New()
	at := time.Now()
	approval := models.Approval{
		Status:       enums.RecordStatusApproved,
		ApprovedByID: &approver,
		ApprovedAt:   &at,
	}

	assert.True(t, RevertOnEdit(&approval))
	assert.Equal(t, enums.RecordStatusPending, approval.Status)
	assert.Nil(t, approval.ApprovedByID)
	assert.Nil(t, approval.ApprovedAt)

	// non-approved statuses are untouched
	draft := models.Approval{Status: enums.RecordStatusDraft}
	assert.False(t, RevertOnEdit(&draft))
	assert.Equal(t, enums.RecordStatusDraft, draft.Status)
}

func TestLifecycleIsCyclic(t *testing.T) {
	approval := models.Approval{Status: enums.RecordStatusDraft}

	require.NoError(t, Submit(&approval))
	require.NoError(t, Approve(&approval, uuid.New(), time.Now()))
	assert.True(t, RevertOnEdit(&approval))
	require.NoError(t, Reject(&approval, uuid.New(), "changed my mind", time.Now()))
	require.NoError(t, Submit(&approval))
	assert.Equal(t, enums.RecordStatusPending, approval.Status)
}

func TestDecisionColumnsCarryRejectTimestamp(t *testing.T) {
	approval := models.Approval{Status: enums.RecordStatusPending}
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, Reject(&approval, uuid.New(), "incomplete", at))

	cols := DecisionColumns(&approval)
	assert.Equal(t, enums.RecordStatusRejected, cols["status"])
	require.NotNil(t, cols["approved_at"])
	assert.Equal(t, at, *cols["approved_at"].(*time.Time))
	assert.Equal(t, "incomplete", *cols["rejection_reason"].(*string))
}
