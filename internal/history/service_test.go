package history

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/galleryve/galleryve-backend/pkg/db/models"
	"github.com/galleryve/galleryve-backend/pkg/enums"
	pkgerrors "github.com/galleryve/galleryve-backend/pkg/errors"
	"github.com/galleryve/galleryve-backend/pkg/pagination"
)

type customerSnapshot struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Memo    *string `json:"memo"`
	TeamID  *string `json:"team_id"`
	Status  string  `json:"status"`
	Updated string  `json:"updated_at"`
}

type stubHistoryRepo struct {
	rows      []models.ChangeHistory
	createErr error
}

func (r *stubHistoryRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubHistoryRepo) CreateBatch(ctx context.Context, rows []models.ChangeHistory) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.rows = append(r.rows, rows...)
	return nil
}

func (r *stubHistoryRepo) ListBySubject(ctx context.Context, subjectType enums.SubjectType, subjectID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.ChangeHistory, error) {
	if limit > len(r.rows) {
		limit = len(r.rows)
	}
	return r.rows[:limit], nil
}

func str(s string) *string { return &s }

func TestDiff_ReportsChangedFieldsOnly(t *testing.T) {
	before := customerSnapshot{Name: "Hana Gallery", Email: str("old@example.com"), Memo: str("vip")}
	after := customerSnapshot{Name: "Hana Gallery", Email: str("new@example.com"), Memo: nil}

	changes, err := Diff(before, after)
	require.NoError(t, err)
	require.Len(t, changes, 2)

	assert.Equal(t, "email", changes[0].Field)
	assert.Equal(t, "old@example.com", *changes[0].OldValue)
	assert.Equal(t, "new@example.com", *changes[0].NewValue)

	assert.Equal(t, "memo", changes[1].Field)
	assert.Equal(t, "vip", *changes[1].OldValue)
	assert.Nil(t, changes[1].NewValue)
}

func TestDiff_SkipsBookkeepingFields(t *testing.T) {
	before := customerSnapshot{ID: uuid.NewString(), Status: "APPROVED", Updated: "2026-01-01", TeamID: str(uuid.NewString())}
	after := customerSnapshot{ID: uuid.NewString(), Status: "PENDING", Updated: "2026-02-02", TeamID: nil}

	changes, err := Diff(before, after)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestDiff_NilToValue(t *testing.T) {
	before := customerSnapshot{Name: "A"}
	after := customerSnapshot{Name: "A", Phone: str("010-1234-5678")}

	changes, err := Diff(before, after)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "phone", changes[0].Field)
	assert.Nil(t, changes[0].OldValue)
	assert.Equal(t, "010-1234-5678", *changes[0].NewValue)
}

func TestRecordChanges_WritesOneRowPerField(t *testing.T) {
	repo := &stubHistoryRepo{}
	svc, err := NewService(repo)
	require.NoError(t, err)

	subject := uuid.New()
	actor := uuid.New()
	before := customerSnapshot{Name: "Old Name", Email: str("a@example.com")}
	after := customerSnapshot{Name: "New Name", Email: str("b@example.com")}

	written, err := svc.RecordChanges(context.Background(), nil, enums.SubjectTypeCustomer, subject, actor, before, after)
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	require.Len(t, repo.rows, 2)
	for _, row := range repo.rows {
		assert.Equal(t, enums.SubjectTypeCustomer, row.SubjectType)
		assert.Equal(t, subject, row.SubjectID)
		assert.Equal(t, actor, row.ChangedByID)
	}
}

func TestRecordChanges_NoRowsWhenUnchanged(t *testing.T) {
	repo := &stubHistoryRepo{}
	svc, err := NewService(repo)
	require.NoError(t, err)

	snap := customerSnapshot{Name: "Same"}
	written, err := svc.RecordChanges(context.Background(), nil, enums.SubjectTypeCustomer, uuid.New(), uuid.New(), snap, snap)
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Empty(t, repo.rows)
}

func TestRecordChanges_ValidatesInputs(t *testing.T) {
	repo := &stubHistoryRepo{}
	svc, err := NewService(repo)
	require.NoError(t, err)

	_, err = svc.RecordChanges(context.Background(), nil, enums.SubjectType("ORDER"), uuid.New(), uuid.New(), nil, nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.RecordChanges(context.Background(), nil, enums.SubjectTypeArtist, uuid.Nil, uuid.New(), nil, nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
