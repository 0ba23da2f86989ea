package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/galleryve/galleryve-backend/pkg/db/models"
	"github.com/galleryve/galleryve-backend/pkg/enums"
	pkgerrors "github.com/galleryve/galleryve-backend/pkg/errors"
	"github.com/galleryve/galleryve-backend/pkg/identity"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the permission registry plus the authorization gate in
// front of every mutating operation.
type Service interface {
	HasPermission(ctx context.Context, principal identity.Principal, key string) (bool, error)
	RequireAnyPermission(ctx context.Context, principal identity.Principal, keys ...string) error
	RequireRole(principal identity.Principal, roles ...enums.Role) error
	SetPermissionsForRole(ctx context.Context, principal identity.Principal, role enums.Role, keys []string) error
	EnsurePermission(ctx context.Context, key, description string) (*models.Permission, error)
	ListPermissions(ctx context.Context) ([]models.Permission, error)
	ListRolePermissions(ctx context.Context, role enums.Role) ([]models.Permission, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds the rbac service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rbac repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// HasPermission is a pure predicate: MASTER always passes, every other
// role passes iff a grant row exists for (role, key).
func (s *service) HasPermission(ctx context.Context, principal identity.Principal, key string) (bool, error) {
	if principal.IsMaster() {
		return true, nil
	}
	ok, err := s.repo.RoleHasPermission(ctx, principal.Role, key)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check role permission")
	}
	return ok, nil
}

// RequireAnyPermission passes when at least one of the keys resolves
// true. Callers declaring multiple acceptable permissions are satisfied
// by any one of them.
func (s *service) RequireAnyPermission(ctx context.Context, principal identity.Principal, keys ...string) error {
	if len(keys) == 0 {
		return pkgerrors.New(pkgerrors.CodeInternal, "no permission keys declared")
	}
	for _, key := range keys {
		ok, err := s.HasPermission(ctx, principal, key)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "missing permission")
}

// RequireRole is the coarse gate applied ahead of permission checks on
// sensitive transitions. MASTER is implicitly allowed everywhere.
func (s *service) RequireRole(principal identity.Principal, roles ...enums.Role) error {
	if principal.IsMaster() {
		return nil
	}
	for _, role := range roles {
		if principal.Role == role {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "role not allowed")
}

// SetPermissionsForRole replaces the role's grants wholesale: existing
// grants are deleted and grants for the given keys inserted. Keys with
// no matching permission are silently dropped — registries are seeded
// out of band and a partial replace is preferable to rejecting the
// whole set over one stale key.
func (s *service) SetPermissionsForRole(ctx context.Context, principal identity.Principal, role enums.Role, keys []string) error {
	if err := s.RequireRole(principal, enums.RoleAdmin); err != nil {
		return err
	}
	if err := s.RequireAnyPermission(ctx, principal, PermManagePermissions); err != nil {
		return err
	}
	if !role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if role == enums.RoleMaster {
		return pkgerrors.New(pkgerrors.CodeValidation, "master role has implicit permissions")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		permissions, err := repo.FindPermissionsByKeys(ctx, dedupe(keys))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve permission keys")
		}

		if err := repo.DeleteRolePermissions(ctx, role); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear role permissions")
		}

		grants := make([]models.RolePermission, 0, len(permissions))
		for _, permission := range permissions {
			grants = append(grants, models.RolePermission{
				Role:         role,
				PermissionID: permission.ID,
			})
		}
		if err := repo.CreateRolePermissions(ctx, grants); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert role permissions")
		}
		return nil
	})
}

// EnsurePermission registers a permission key if it does not exist yet.
func (s *service) EnsurePermission(ctx context.Context, key, description string) (*models.Permission, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "permission key required")
	}

	existing, err := s.repo.FindPermissionByKey(ctx, key)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load permission")
	}

	created, err := s.repo.CreatePermission(ctx, &models.Permission{
		Key:         key,
		Description: strings.TrimSpace(description),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create permission")
	}
	return created, nil
}

func (s *service) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	permissions, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list permissions")
	}
	return permissions, nil
}

func (s *service) ListRolePermissions(ctx context.Context, role enums.Role) ([]models.Permission, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	permissions, err := s.repo.ListRolePermissions(ctx, role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list role permissions")
	}
	return permissions, nil
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
