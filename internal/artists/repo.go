package artists

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/galleryve/galleryve-backend/pkg/db/models"
	"github.com/galleryve/galleryve-backend/pkg/enums"
	"github.com/galleryve/galleryve-backend/pkg/pagination"
)

// Scope narrows list queries. Artists without a team are gallery-wide
// and show up for every caller.
type Scope struct {
	UserID     uuid.UUID
	TeamID     *uuid.UUID
	Privileged bool
}

// Repository is the persistence surface for artists.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, artist *models.Artist) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Artist, error)
	Save(ctx context.Context, artist *models.Artist) error
	UpdateStatusIfPending(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error)
	List(ctx context.Context, scope Scope, filters Filters, cursor *pagination.Cursor, limit int) ([]models.Artist, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an artist repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, artist *models.Artist) error {
	return r.db.WithContext(ctx).Create(artist).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Artist, error) {
	var artist models.Artist
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&artist).Error
	if err != nil {
		return nil, err
	}
	return &artist, nil
}

func (r *repository) Save(ctx context.Context, artist *models.Artist) error {
	return r.db.WithContext(ctx).Save(artist).Error
}

func (r *repository) UpdateStatusIfPending(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Artist{}).
		Where("id = ? AND status = ?", id, enums.RecordStatusPending).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) List(ctx context.Context, scope Scope, filters Filters, cursor *pagination.Cursor, limit int) ([]models.Artist, error) {
	query := r.db.WithContext(ctx).Model(&models.Artist{})

	if !scope.Privileged {
		if scope.TeamID != nil {
			query = query.Where("created_by_id = ? OR team_id = ? OR team_id IS NULL", scope.UserID, *scope.TeamID)
		} else {
			query = query.Where("created_by_id = ? OR team_id IS NULL", scope.UserID)
		}
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Query != "" {
		pattern := "%" + strings.ToLower(filters.Query) + "%"
		query = query.Where("LOWER(name) LIKE ?", pattern)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var artists []models.Artist
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&artists).Error
	if err != nil {
		return nil, err
	}
	return artists, nil
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Artist{}).Error
}

// PurgeDeletedBefore hard-deletes rows soft-deleted before the cutoff,
// at most batchSize rows per call.
func (r *repository) PurgeDeletedBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	sub := r.db.WithContext(ctx).
		Unscoped().
		Model(&models.Artist{}).
		Select("id").
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Limit(batchSize)

	res := r.db.WithContext(ctx).
		Unscoped().
		Where("id IN (?)", sub).
		Delete(&models.Artist{})
	return res.RowsAffected, res.Error
}
