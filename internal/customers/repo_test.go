package customers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/galleryve/galleryve-backend/pkg/db/models"
	"github.com/galleryve/galleryve-backend/pkg/enums"
)

func setupCustomersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	customers := `
CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT,
  phone TEXT,
  address TEXT,
  memo TEXT,
  created_by_id TEXT NOT NULL,
  team_id TEXT,
  status TEXT NOT NULL DEFAULT 'DRAFT',
  approved_by_id TEXT,
  approved_at DATETIME,
  rejection_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`
	require.NoError(t, db.Exec(customers).Error)
	return db
}

func newCustomerRow(t *testing.T, db *gorm.DB, name string, owner uuid.UUID, team *uuid.UUID, status enums.RecordStatus, created time.Time) *models.Customer {
	t.Helper()

	customer := &models.Customer{
		ID:          uuid.New(),
		Name:        name,
		CreatedByID: owner,
		TeamID:      team,
		Approval:    models.Approval{Status: status},
		CreatedAt:   created,
	}
	require.NoError(t, db.Create(customer).Error)
	return customer
}

func TestRepository_ListScopesToOwnerAndTeam(t *testing.T) {
	db := setupCustomersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	caller := uuid.New()
	team := uuid.New()
	otherTeam := uuid.New()

	mine := newCustomerRow(t, db, "Mine", caller, &team, enums.RecordStatusDraft, now)
	teamRow := newCustomerRow(t, db, "Team", uuid.New(), &team, enums.RecordStatusApproved, now.Add(-time.Minute))
	newCustomerRow(t, db, "Elsewhere", uuid.New(), &otherTeam, enums.RecordStatusApproved, now.Add(-2*time.Minute))

	rows, err := repo.List(ctx, Scope{UserID: caller, TeamID: &team}, Filters{}, nil, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, mine.ID, rows[0].ID)
	assert.Equal(t, teamRow.ID, rows[1].ID)

	// privileged scope sees all three
	rows, err = repo.List(ctx, Scope{UserID: uuid.New(), Privileged: true}, Filters{}, nil, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestRepository_ListIncludesGrantedIDs(t *testing.T) {
	db := setupCustomersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	caller := uuid.New()
	team := uuid.New()
	otherTeam := uuid.New()

	mine := newCustomerRow(t, db, "Mine", caller, &team, enums.RecordStatusDraft, now)
	granted := newCustomerRow(t, db, "Granted", uuid.New(), &otherTeam, enums.RecordStatusApproved, now.Add(-time.Minute))
	newCustomerRow(t, db, "Hidden", uuid.New(), &otherTeam, enums.RecordStatusApproved, now.Add(-2*time.Minute))

	scope := Scope{UserID: caller, TeamID: &team, GrantedIDs: []uuid.UUID{granted.ID}}
	rows, err := repo.List(ctx, scope, Filters{}, nil, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, mine.ID, rows[0].ID)
	assert.Equal(t, granted.ID, rows[1].ID)
}

func TestRepository_ListFilters(t *testing.T) {
	db := setupCustomersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	owner := uuid.New()
	newCustomerRow(t, db, "Hana Gallery", owner, nil, enums.RecordStatusApproved, now)
	newCustomerRow(t, db, "Seoul Atelier", owner, nil, enums.RecordStatusDraft, now.Add(-time.Minute))

	status := enums.RecordStatusApproved
	rows, err := repo.List(ctx, Scope{UserID: owner}, Filters{Status: &status}, nil, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Hana Gallery", rows[0].Name)

	rows, err = repo.List(ctx, Scope{UserID: owner}, Filters{Query: "atelier"}, nil, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Seoul Atelier", rows[0].Name)
}

func TestRepository_UpdateStatusIfPendingIsConditional(t *testing.T) {
	db := setupCustomersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	pending := newCustomerRow(t, db, "Pending", uuid.New(), nil, enums.RecordStatusPending, time.Now().UTC())
	draft := newCustomerRow(t, db, "Draft", uuid.New(), nil, enums.RecordStatusDraft, time.Now().UTC())

	affected, err := repo.UpdateStatusIfPending(ctx, pending.ID, map[string]any{
		"status": enums.RecordStatusApproved,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	affected, err = repo.UpdateStatusIfPending(ctx, draft.ID, map[string]any{
		"status": enums.RecordStatusApproved,
	})
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestRepository_SoftDeleteHidesRow(t *testing.T) {
	db := setupCustomersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	customer := newCustomerRow(t, db, "Gone", uuid.New(), nil, enums.RecordStatusDraft, time.Now().UTC())
	require.NoError(t, repo.SoftDelete(ctx, customer.ID))

	_, err := repo.FindByID(ctx, customer.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// still present unscoped until purged
	var count int64
	require.NoError(t, db.Unscoped().Model(&models.Customer{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRepository_PurgeDeletedBefore(t *testing.T) {
	db := setupCustomersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	old := newCustomerRow(t, db, "Old", uuid.New(), nil, enums.RecordStatusDraft, time.Now().UTC())
	fresh := newCustomerRow(t, db, "Fresh", uuid.New(), nil, enums.RecordStatusDraft, time.Now().UTC())

	longAgo := time.Now().UTC().Add(-60 * 24 * time.Hour)
	require.NoError(t, db.Unscoped().Model(&models.Customer{}).
		Where("id = ?", old.ID).
		Update("deleted_at", longAgo).Error)
	require.NoError(t, repo.SoftDelete(ctx, fresh.ID))

	purged, err := repo.PurgeDeletedBefore(ctx, time.Now().UTC().Add(-30*24*time.Hour), 100)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	var count int64
	require.NoError(t, db.Unscoped().Model(&models.Customer{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}
