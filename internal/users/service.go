package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/galleryve/galleryve-backend/internal/audit"
	"github.com/galleryve/galleryve-backend/internal/rbac"
	"github.com/galleryve/galleryve-backend/pkg/config"
	"github.com/galleryve/galleryve-backend/pkg/db/models"
	"github.com/galleryve/galleryve-backend/pkg/enums"
	pkgerrors "github.com/galleryve/galleryve-backend/pkg/errors"
	"github.com/galleryve/galleryve-backend/pkg/identity"
	"github.com/galleryve/galleryve-backend/pkg/pagination"
	"github.com/galleryve/galleryve-backend/pkg/security"
)

const (
	auditEntityType = "user"

	tempPasswordLength = 16
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages principal lifecycle. Principals are provisioned with
// a one-time temporary password and are deactivated on offboarding;
// nothing here ever hard-deletes a user row.
type Service interface {
	Provision(ctx context.Context, principal identity.Principal, req CreateRequest) (*ProvisionResult, error)
	ResetPassword(ctx context.Context, principal identity.Principal, id uuid.UUID) (*ProvisionResult, error)
	Deactivate(ctx context.Context, principal identity.Principal, id uuid.UUID) (*Response, error)
	Reactivate(ctx context.Context, principal identity.Principal, id uuid.UUID) (*Response, error)
	AssignRole(ctx context.Context, principal identity.Principal, id uuid.UUID, req AssignRoleRequest) (*Response, error)
	AssignTeam(ctx context.Context, principal identity.Principal, id uuid.UUID, req AssignTeamRequest) (*Response, error)
	Get(ctx context.Context, principal identity.Principal, id uuid.UUID) (*Response, error)
	List(ctx context.Context, principal identity.Principal, filters Filters, params pagination.Params) (*List, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	rbac    rbac.Service
	audit   audit.Service
	pwdCfg  config.PasswordConfig
}

// NewService builds the users service with the required dependencies.
func NewService(repo Repository, tx txRunner, rbacSvc rbac.Service, auditSvc audit.Service, pwdCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if rbacSvc == nil {
		return nil, fmt.Errorf("rbac service required")
	}
	if auditSvc == nil {
		return nil, fmt.Errorf("audit service required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		rbac:   rbacSvc,
		audit:  auditSvc,
		pwdCfg: pwdCfg,
	}, nil
}

func (s *service) Provision(ctx context.Context, principal identity.Principal, req CreateRequest) (*ProvisionResult, error) {
	if err := s.requireManageUsers(ctx, principal); err != nil {
		return nil, err
	}

	role, err := enums.ParseRole(req.Role)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if role == enums.RoleMaster {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "MASTER cannot be provisioned")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	}
	if req.TeamID != nil {
		ok, err := s.repo.TeamExists(ctx, *req.TeamID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check team")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "team not found")
		}
	}

	tempPassword, hash, err := s.mintTempPassword()
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Phone:        req.Phone,
		Role:         role,
		TeamID:       req.TeamID,
		IsActive:     true,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, user); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionCreate,
			EntityType: auditEntityType,
			EntityID:   user.ID,
			NewValue:   auditView(user),
		})
	})
	if err != nil {
		return nil, err
	}

	return &ProvisionResult{User: ToResponse(user), TempPassword: tempPassword}, nil
}

// ResetPassword replaces the credential with a fresh temporary one.
// The audit row records the event, never the credential.
func (s *service) ResetPassword(ctx context.Context, principal identity.Principal, id uuid.UUID) (*ProvisionResult, error) {
	if err := s.requireManageUsers(ctx, principal); err != nil {
		return nil, err
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == enums.RoleMaster {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "MASTER credentials are managed out of band")
	}

	tempPassword, hash, err := s.mintTempPassword()
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, user); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save user")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionUpdate,
			EntityType: auditEntityType,
			EntityID:   user.ID,
			NewValue:   map[string]any{"password_reset": true},
		})
	})
	if err != nil {
		return nil, err
	}

	return &ProvisionResult{User: ToResponse(user), TempPassword: tempPassword}, nil
}

func (s *service) Deactivate(ctx context.Context, principal identity.Principal, id uuid.UUID) (*Response, error) {
	return s.setActive(ctx, principal, id, false)
}

func (s *service) Reactivate(ctx context.Context, principal identity.Principal, id uuid.UUID) (*Response, error) {
	return s.setActive(ctx, principal, id, true)
}

func (s *service) setActive(ctx context.Context, principal identity.Principal, id uuid.UUID, active bool) (*Response, error) {
	if err := s.requireManageUsers(ctx, principal); err != nil {
		return nil, err
	}
	if !active && principal.ID == id {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot deactivate yourself")
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == enums.RoleMaster {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "MASTER cannot be deactivated")
	}
	if user.IsActive == active {
		resp := ToResponse(user)
		return &resp, nil
	}

	user.IsActive = active
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, user); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save user")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionUpdate,
			EntityType: auditEntityType,
			EntityID:   user.ID,
			OldValue:   map[string]any{"is_active": !active},
			NewValue:   map[string]any{"is_active": active},
		})
	})
	if err != nil {
		return nil, err
	}

	resp := ToResponse(user)
	return &resp, nil
}

func (s *service) AssignRole(ctx context.Context, principal identity.Principal, id uuid.UUID, req AssignRoleRequest) (*Response, error) {
	if err := s.requireManageUsers(ctx, principal); err != nil {
		return nil, err
	}
	if principal.ID == id {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot change your own role")
	}

	role, err := enums.ParseRole(req.Role)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if role == enums.RoleMaster {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "MASTER cannot be assigned")
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == enums.RoleMaster {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "MASTER role is immutable")
	}

	oldRole := user.Role
	user.Role = role
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, user); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save user")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionUpdate,
			EntityType: auditEntityType,
			EntityID:   user.ID,
			OldValue:   map[string]any{"role": oldRole},
			NewValue:   map[string]any{"role": role},
		})
	})
	if err != nil {
		return nil, err
	}

	resp := ToResponse(user)
	return &resp, nil
}

func (s *service) AssignTeam(ctx context.Context, principal identity.Principal, id uuid.UUID, req AssignTeamRequest) (*Response, error) {
	if err := s.requireManageUsers(ctx, principal); err != nil {
		return nil, err
	}

	if req.TeamID != nil {
		ok, err := s.repo.TeamExists(ctx, *req.TeamID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check team")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "team not found")
		}
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == enums.RoleMaster {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "MASTER is not team-scoped")
	}

	oldTeam := user.TeamID
	user.TeamID = req.TeamID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, user); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save user")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionUpdate,
			EntityType: auditEntityType,
			EntityID:   user.ID,
			OldValue:   map[string]any{"team_id": oldTeam},
			NewValue:   map[string]any{"team_id": req.TeamID},
		})
	})
	if err != nil {
		return nil, err
	}

	resp := ToResponse(user)
	return &resp, nil
}

// Get returns a principal to themselves, to a teammate, or to anyone
// allowed to manage users.
func (s *service) Get(ctx context.Context, principal identity.Principal, id uuid.UUID) (*Response, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if principal.ID != user.ID && !teammates(principal.TeamID, user.TeamID) {
		if err := s.requireManageUsers(ctx, principal); err != nil {
			return nil, err
		}
	}
	if user.Role == enums.RoleMaster && !principal.IsMaster() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	resp := ToResponse(user)
	return &resp, nil
}

// List returns the roster. Unprivileged callers only see their own
// team; privileged callers and user managers may list any team or the
// whole directory. MASTER never appears.
func (s *service) List(ctx context.Context, principal identity.Principal, filters Filters, params pagination.Params) (*List, error) {
	if filters.Role != nil && !filters.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role filter")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	if !s.canManageUsers(ctx, principal) {
		if principal.TeamID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "no roster to list")
		}
		if filters.TeamID != nil && *filters.TeamID != *principal.TeamID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot list another team")
		}
		filters.TeamID = principal.TeamID
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.List(ctx, filters, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}

	list := &List{Users: make([]Response, 0, len(rows))}
	page := rows
	if len(rows) > limit {
		page = rows[:limit]
		last := page[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	for i := range page {
		list.Users = append(list.Users, ToResponse(&page[i]))
	}
	return list, nil
}

func (s *service) requireManageUsers(ctx context.Context, principal identity.Principal) error {
	if principal.IsPrivileged() {
		return nil
	}
	return s.rbac.RequireAnyPermission(ctx, principal, rbac.PermManageUsers)
}

func (s *service) canManageUsers(ctx context.Context, principal identity.Principal) bool {
	return s.requireManageUsers(ctx, principal) == nil
}

func (s *service) mintTempPassword() (plain string, hash string, err error) {
	plain, err = security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temp password")
	}
	hash, err = security.HashPassword(plain, s.pwdCfg)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash temp password")
	}
	return plain, hash, nil
}

func (s *service) findUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func auditView(user *models.User) map[string]any {
	return map[string]any{
		"email":   user.Email,
		"name":    user.Name,
		"role":    user.Role,
		"team_id": user.TeamID,
	}
}

func teammates(a, b *uuid.UUID) bool {
	return a != nil && b != nil && *a == *b
}
