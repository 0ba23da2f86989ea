package rbac

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
	"github.com/galleryve/galleryve-backend/pkg/identity"
)

type stubRBACRepo struct {
	permissions map[string]models.Permission
	grants      map[enums.Role][]uuid.UUID

	hasPermissionErr error
}

func newStubRBACRepo(keys ...string) *stubRBACRepo {
	r := &stubRBACRepo{
		permissions: make(map[string]models.Permission),
		grants:      make(map[enums.Role][]uuid.UUID),
	}
	for _, key := range keys {
		r.permissions[key] = models.Permission{ID: uuid.New(), Key: key}
	}
	return r
}

func (r *stubRBACRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubRBACRepo) FindPermissionByKey(ctx context.Context, key string) (*models.Permission, error) {
	p, ok := r.permissions[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *stubRBACRepo) FindPermissionsByKeys(ctx context.Context, keys []string) ([]models.Permission, error) {
	var out []models.Permission
	for _, key := range keys {
		if p, ok := r.permissions[key]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubRBACRepo) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	out := make([]models.Permission, 0, len(r.permissions))
	for _, p := range r.permissions {
		out = append(out, p)
	}
	return out, nil
}

func (r *stubRBACRepo) CreatePermission(ctx context.Context, permission *models.Permission) (*models.Permission, error) {
	permission.ID = uuid.New()
	r.permissions[permission.Key] = *permission
	return permission, nil
}

func (r *stubRBACRepo) RoleHasPermission(ctx context.Context, role enums.Role, key string) (bool, error) {
	if r.hasPermissionErr != nil {
		return false, r.hasPermissionErr
	}
	p, ok := r.permissions[key]
	if !ok {
		return false, nil
	}
	for _, id := range r.grants[role] {
		if id == p.ID {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubRBACRepo) ListRolePermissions(ctx context.Context, role enums.Role) ([]models.Permission, error) {
	var out []models.Permission
	for _, id := range r.grants[role] {
		for _, p := range r.permissions {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (r *stubRBACRepo) DeleteRolePermissions(ctx context.Context, role enums.Role) error {
	delete(r.grants, role)
	return nil
}

func (r *stubRBACRepo) CreateRolePermissions(ctx context.Context, grants []models.RolePermission) error {
	for _, g := range grants {
		r.grants[g.Role] = append(r.grants[g.Role], g.PermissionID)
	}
	return nil
}

func (r *stubRBACRepo) grant(role enums.Role, key string) {
	r.grants[role] = append(r.grants[role], r.permissions[key].ID)
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newRBACService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{})
	require.NoError(t, err)
	return svc
}

func masterPrincipal() identity.Principal {
	return identity.Principal{ID: uuid.New(), Role: enums.RoleMaster, IsActive: true}
}

func adminPrincipal() identity.Principal {
	return identity.Principal{ID: uuid.New(), Role: enums.RoleAdmin, IsActive: true}
}

func staffPrincipal() identity.Principal {
	return identity.Principal{ID: uuid.New(), Role: enums.RoleStaff, IsActive: true}
}

func TestHasPermission_MasterBypassesRegistry(t *testing.T) {
	repo := newStubRBACRepo()
	svc := newRBACService(t, repo)

	ok, err := svc.HasPermission(context.Background(), masterPrincipal(), PermManageUsers)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasPermission_GrantedAndUngranted(t *testing.T) {
	repo := newStubRBACRepo(PermManageUsers, PermApproveCustomer)
	repo.grant(enums.RoleAdmin, PermManageUsers)
	svc := newRBACService(t, repo)

	ok, err := svc.HasPermission(context.Background(), adminPrincipal(), PermManageUsers)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasPermission(context.Background(), adminPrincipal(), PermApproveCustomer)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasPermission_RepoErrorIsDependency(t *testing.T) {
	repo := newStubRBACRepo()
	repo.hasPermissionErr = assert.AnError
	svc := newRBACService(t, repo)

	_, err := svc.HasPermission(context.Background(), staffPrincipal(), PermManageUsers)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestRequireAnyPermission_PassesOnAnyMatch(t *testing.T) {
	repo := newStubRBACRepo(PermApproveCustomer, PermApproveTransaction)
	repo.grant(enums.RoleManager, PermApproveTransaction)
	svc := newRBACService(t, repo)

	principal := identity.Principal{ID: uuid.New(), Role: enums.RoleManager, IsActive: true}
	err := svc.RequireAnyPermission(context.Background(), principal, PermApproveCustomer, PermApproveTransaction)
	assert.NoError(t, err)
}

func TestRequireAnyPermission_ForbiddenWhenNoneGranted(t *testing.T) {
	repo := newStubRBACRepo(PermApproveCustomer)
	svc := newRBACService(t, repo)

	err := svc.RequireAnyPermission(context.Background(), staffPrincipal(), PermApproveCustomer)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestRequireRole(t *testing.T) {
	repo := newStubRBACRepo()
	svc := newRBACService(t, repo)

	assert.NoError(t, svc.RequireRole(adminPrincipal(), enums.RoleAdmin, enums.RoleManager))
	assert.NoError(t, svc.RequireRole(masterPrincipal(), enums.RoleAdmin))

	err := svc.RequireRole(staffPrincipal(), enums.RoleAdmin, enums.RoleManager)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestSetPermissionsForRole_ReplacesAndDropsUnknownKeys(t *testing.T) {
	repo := newStubRBACRepo(PermManagePermissions, PermManageUsers, PermDeleteRecord)
	repo.grant(enums.RoleAdmin, PermManagePermissions)
	repo.grant(enums.RoleStaff, PermDeleteRecord)
	svc := newRBACService(t, repo)

	err := svc.SetPermissionsForRole(context.Background(), adminPrincipal(), enums.RoleStaff,
		[]string{PermManageUsers, "BOGUS_KEY"})
	require.NoError(t, err)

	kept, err := svc.ListRolePermissions(context.Background(), enums.RoleStaff)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, PermManageUsers, kept[0].Key)
}

func TestSetPermissionsForRole_RequiresAdminAndPermission(t *testing.T) {
	repo := newStubRBACRepo(PermManagePermissions, PermManageUsers)
	svc := newRBACService(t, repo)

	err := svc.SetPermissionsForRole(context.Background(), staffPrincipal(), enums.RoleStaff,
		[]string{PermManageUsers})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	// admin role without the MANAGE_PERMISSIONS grant is still refused
	err = svc.SetPermissionsForRole(context.Background(), adminPrincipal(), enums.RoleStaff,
		[]string{PermManageUsers})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestSetPermissionsForRole_MasterRoleIsImmutable(t *testing.T) {
	repo := newStubRBACRepo(PermManagePermissions)
	svc := newRBACService(t, repo)

	err := svc.SetPermissionsForRole(context.Background(), masterPrincipal(), enums.RoleMaster,
		[]string{PermManagePermissions})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestEnsurePermission(t *testing.T) {
	repo := newStubRBACRepo()
	svc := newRBACService(t, repo)

	created, err := svc.EnsurePermission(context.Background(), PermApproveArtist, "approve artist records")
	require.NoError(t, err)
	require.NotNil(t, created)

	again, err := svc.EnsurePermission(context.Background(), PermApproveArtist, "approve artist records")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	_, err = svc.EnsurePermission(context.Background(), "  ", "blank")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
