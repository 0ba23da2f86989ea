package transactions

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

// Scope narrows list queries to the rows the caller may see at all.
type Scope struct {
	UserID     uuid.UUID
	TeamID     *uuid.UUID
	GrantedIDs []uuid.UUID
	Privileged bool
}

// Repository is the persistence surface for transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, transaction *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	Save(ctx context.Context, transaction *models.Transaction) error
	UpdateStatusIfPending(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error)
	CustomerExists(ctx context.Context, customerID uuid.UUID) (bool, error)
	List(ctx context.Context, scope Scope, filters Filters, cursor *pagination.Cursor, limit int) ([]models.Transaction, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a transaction repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, transaction *models.Transaction) error {
	return r.db.WithContext(ctx).Create(transaction).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var transaction models.Transaction
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&transaction).Error
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

func (r *repository) Save(ctx context.Context, transaction *models.Transaction) error {
	return r.db.WithContext(ctx).Save(transaction).Error
}

func (r *repository) UpdateStatusIfPending(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, enums.RecordStatusPending).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) CustomerExists(ctx context.Context, customerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", customerID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) List(ctx context.Context, scope Scope, filters Filters, cursor *pagination.Cursor, limit int) ([]models.Transaction, error) {
	query := r.db.WithContext(ctx).Model(&models.Transaction{})

	if !scope.Privileged {
		visible := r.db.Where("created_by_id = ?", scope.UserID)
		if scope.TeamID != nil {
			visible = visible.Or("team_id = ?", *scope.TeamID)
		}
		if len(scope.GrantedIDs) > 0 {
			visible = visible.Or("id IN ?", scope.GrantedIDs)
		}
		query = query.Where(visible)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.CustomerID != nil {
		query = query.Where("customer_id = ?", *filters.CustomerID)
	}
	if filters.Query != "" {
		pattern := "%" + strings.ToLower(filters.Query) + "%"
		query = query.Where("LOWER(artwork_title) LIKE ?", pattern)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var transactions []models.Transaction
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Transaction{}).Error
}

// PurgeDeletedBefore hard-deletes rows soft-deleted before the cutoff,
// at most batchSize rows per call.
func (r *repository) PurgeDeletedBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	sub := r.db.WithContext(ctx).
		Unscoped().
		Model(&models.Transaction{}).
		Select("id").
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Limit(batchSize)

	res := r.db.WithContext(ctx).
		Unscoped().
		Where("id IN (?)", sub).
		Delete(&models.Transaction{})
	return res.RowsAffected, res.Error
}
