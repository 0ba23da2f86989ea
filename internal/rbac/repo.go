package rbac

import (
	"context"

	"gorm.io/gorm"

	"github.com/galleryve/galleryve-backend/pkg/db/models"
	"github.com/galleryve/galleryve-backend/pkg/enums"
)

// Repository is the persistence surface of the permission registry.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindPermissionByKey(ctx context.Context, key string) (*models.Permission, error)
	FindPermissionsByKeys(ctx context.Context, keys []string) ([]models.Permission, error)
	ListPermissions(ctx context.Context) ([]models.Permission, error)
	CreatePermission(ctx context.Context, permission *models.Permission) (*models.Permission, error)
	RoleHasPermission(ctx context.Context, role enums.Role, key string) (bool, error)
	ListRolePermissions(ctx context.Context, role enums.Role) ([]models.Permission, error)
	DeleteRolePermissions(ctx context.Context, role enums.Role) error
	CreateRolePermissions(ctx context.Context, grants []models.RolePermission) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an rbac repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindPermissionByKey(ctx context.Context, key string) (*models.Permission, error) {
	var permission models.Permission
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		First(&permission).Error
	if err != nil {
		return nil, err
	}
	return &permission, nil
}

func (r *repository) FindPermissionsByKeys(ctx context.Context, keys []string) ([]models.Permission, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	var permissions []models.Permission
	err := r.db.WithContext(ctx).
		Where("key IN ?", keys).
		Find(&permissions).Error
	if err != nil {
		return nil, err
	}
	return permissions, nil
}

func (r *repository) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	var permissions []models.Permission
	err := r.db.WithContext(ctx).
		Order("key ASC").
		Find(&permissions).Error
	if err != nil {
		return nil, err
	}
	return permissions, nil
}

func (r *repository) CreatePermission(ctx context.Context, permission *models.Permission) (*models.Permission, error) {
	if err := r.db.WithContext(ctx).Create(permission).Error; err != nil {
		return nil, err
	}
	return permission, nil
}

func (r *repository) RoleHasPermission(ctx context.Context, role enums.Role, key string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RolePermission{}).
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Where("role_permissions.role = ? AND permissions.key = ?", role, key).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListRolePermissions(ctx context.Context, role enums.Role) ([]models.Permission, error) {
	var permissions []models.Permission
	err := r.db.WithContext(ctx).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role = ?", role).
		Order("permissions.key ASC").
		Find(&permissions).Error
	if err != nil {
		return nil, err
	}
	return permissions, nil
}

func (r *repository) DeleteRolePermissions(ctx context.Context, role enums.Role) error {
	return r.db.WithContext(ctx).
		Where("role = ?", role).
		Delete(&models.RolePermission{}).Error
}

func (r *repository) CreateRolePermissions(ctx context.Context, grants []models.RolePermission) error {
	if len(grants) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&grants).Error
}
