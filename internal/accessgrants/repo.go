package accessgrants

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/galleryve/galleryve-backend/pkg/db/models"
	"github.com/galleryve/galleryve-backend/pkg/enums"
	"github.com/galleryve/galleryve-backend/pkg/pagination"
)

// Repository is the persistence surface for access requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.AccessRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.AccessRequest, error)
	TargetExists(ctx context.Context, targetType enums.SubjectType, targetID uuid.UUID) (bool, error)
	HasActiveGrant(ctx context.Context, requesterID uuid.UUID, targetType enums.SubjectType, targetID uuid.UUID, now time.Time) (bool, error)
	ActiveTargetIDs(ctx context.Context, requesterID uuid.UUID, targetType enums.SubjectType, now time.Time) ([]uuid.UUID, error)
	HasOpenRequest(ctx context.Context, requesterID uuid.UUID, targetType enums.SubjectType, targetID uuid.UUID, now time.Time) (bool, error)
	UpdateDecisionIfPending(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.AccessRequest, error)
	ListPending(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.AccessRequest, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an access request repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.AccessRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.AccessRequest, error) {
	var request models.AccessRequest
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// TargetExists checks the target record is a live row in the table the
// subject type points at. Grants never target artists.
func (r *repository) TargetExists(ctx context.Context, targetType enums.SubjectType, targetID uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx)
	switch targetType {
	case enums.SubjectTypeCustomer:
		query = query.Model(&models.Customer{})
	case enums.SubjectTypeTransaction:
		query = query.Model(&models.Transaction{})
	default:
		return false, nil
	}

	var count int64
	if err := query.Where("id = ?", targetID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) HasActiveGrant(ctx context.Context, requesterID uuid.UUID, targetType enums.SubjectType, targetID uuid.UUID, now time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AccessRequest{}).
		Where("requester_id = ? AND target_type = ? AND target_id = ?", requesterID, targetType, targetID).
		Where("status = ?", enums.GrantStatusApproved).
		Where("expires_at > ?", now).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ActiveTargetIDs returns the distinct targets of the requester's live
// grants on the given subject type.
func (r *repository) ActiveTargetIDs(ctx context.Context, requesterID uuid.UUID, targetType enums.SubjectType, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.AccessRequest{}).
		Where("requester_id = ? AND target_type = ?", requesterID, targetType).
		Where("status = ?", enums.GrantStatusApproved).
		Where("expires_at > ?", now).
		Distinct().
		Pluck("target_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// HasOpenRequest reports whether the requester already has a PENDING
// request or a live grant on the target.
func (r *repository) HasOpenRequest(ctx context.Context, requesterID uuid.UUID, targetType enums.SubjectType, targetID uuid.UUID, now time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AccessRequest{}).
		Where("requester_id = ? AND target_type = ? AND target_id = ?", requesterID, targetType, targetID).
		Where("status = ? OR (status = ? AND expires_at > ?)",
			enums.GrantStatusPending, enums.GrantStatusApproved, now).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateDecisionIfPending applies the decision columns only when the
// row is still PENDING. Returns the number of rows updated; zero means
// a concurrent decision won.
func (r *repository) UpdateDecisionIfPending(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.AccessRequest{}).
		Where("id = ? AND status = ?", id, enums.GrantStatusPending).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) ListByRequester(ctx context.Context, requesterID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.AccessRequest, error) {
	query := r.db.WithContext(ctx).Where("requester_id = ?", requesterID)
	return r.page(query, cursor, limit)
}

func (r *repository) ListPending(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.AccessRequest, error) {
	query := r.db.WithContext(ctx).Where("status = ?", enums.GrantStatusPending)
	return r.page(query, cursor, limit)
}

func (r *repository) page(query *gorm.DB, cursor *pagination.Cursor, limit int) ([]models.AccessRequest, error) {
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var requests []models.AccessRequest
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// DeleteExpiredBefore removes approved grants whose expiry passed before
// the cutoff, at most batchSize rows per call.
func (r *repository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	sub := r.db.WithContext(ctx).
		Model(&models.AccessRequest{}).
		Select("id").
		Where("status = ? AND expires_at < ?", enums.GrantStatusApproved, cutoff).
		Limit(batchSize)

	res := r.db.WithContext(ctx).
		Where("id IN (?)", sub).
		Delete(&models.AccessRequest{})
	return res.RowsAffected, res.Error
}
