package customers

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
// Privileged callers see everything; everyone else sees their own rows,
// their team's, and the targets of their live access grants.
type Scope struct {
	UserID     uuid.UUID
	TeamID     *uuid.UUID
	GrantedIDs []uuid.UUID
	Privileged bool
}

// Repository is the persistence surface for customers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, customer *models.Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	Save(ctx context.Context, customer *models.Customer) error
	UpdateStatusIfPending(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error)
	List(ctx context.Context, scope Scope, filters Filters, cursor *pagination.Cursor, limit int) ([]models.Customer, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a customer repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) Save(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}

// UpdateStatusIfPending applies the decision columns only while the row
// is still PENDING. Zero rows affected means a concurrent decision won.
func (r *repository) UpdateStatusIfPending(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ? AND status = ?", id, enums.RecordStatusPending).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) List(ctx context.Context, scope Scope, filters Filters, cursor *pagination.Cursor, limit int) ([]models.Customer, error) {
	query := r.db.WithContext(ctx).Model(&models.Customer{})

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

	var customers []models.Customer
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Customer{}).Error
}

// PurgeDeletedBefore hard-deletes rows soft-deleted before the cutoff,
// at most batchSize rows per call.
func (r *repository) PurgeDeletedBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	sub := r.db.WithContext(ctx).
		Unscoped().
		Model(&models.Customer{}).
		Select("id").
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Limit(batchSize)

	res := r.db.WithContext(ctx).
		Unscoped().
		Where("id IN (?)", sub).
		Delete(&models.Customer{})
	return res.RowsAffected, res.Error
}
