package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/galleryve/galleryve-backend/pkg/db/models"
	"github.com/galleryve/galleryve-backend/pkg/pagination"
)

// Repository persists and reads the append-only audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.AuditLog) error
	ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.AuditLog, error)
	ListByActor(ctx context.Context, actorID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.AuditLog, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an audit repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.AuditLog, error) {
	query := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID)
	return r.page(query, cursor, limit)
}

func (r *repository) ListByActor(ctx context.Context, actorID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.AuditLog, error) {
	query := r.db.WithContext(ctx).Where("actor_id = ?", actorID)
	return r.page(query, cursor, limit)
}

func (r *repository) page(query *gorm.DB, cursor *pagination.Cursor, limit int) ([]models.AuditLog, error) {
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var entries []models.AuditLog
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteOlderThan removes audit rows created before the cutoff, at most
// batchSize rows per call.
func (r *repository) DeleteOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	sub := r.db.WithContext(ctx).
		Model(&models.AuditLog{}).
		Select("id").
		Where("created_at < ?", cutoff).
		Limit(batchSize)

	res := r.db.WithContext(ctx).
		Where("id IN (?)", sub).
		Delete(&models.AuditLog{})
	return res.RowsAffected, res.Error
}
