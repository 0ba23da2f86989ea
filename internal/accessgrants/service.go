package accessgrants

import (
	"context"
	"fmt"
	"strings"
	"time"

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
)

const auditEntityType = "access_request"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages time-bounded access grants: the request lifecycle on
// the write side and CheckAccess on the read side, which is what the
// visibility resolver consults.
type Service interface {
	Create(ctx context.Context, principal identity.Principal, req CreateRequest) (*Response, error)
	Approve(ctx context.Context, principal identity.Principal, id uuid.UUID, req ApproveRequest) (*Response, error)
	Reject(ctx context.Context, principal identity.Principal, id uuid.UUID, req RejectRequest) (*Response, error)
	Get(ctx context.Context, principal identity.Principal, id uuid.UUID) (*Response, error)
	ListMine(ctx context.Context, principal identity.Principal, params pagination.Params) (*List, error)
	ListPending(ctx context.Context, principal identity.Principal, params pagination.Params) (*List, error)
	CheckAccess(ctx context.Context, targetType enums.SubjectType, targetID, userID uuid.UUID) (bool, error)
	ActiveTargetIDs(ctx context.Context, targetType enums.SubjectType, userID uuid.UUID) ([]uuid.UUID, error)
}

type service struct {
	repo  Repository
	tx    txRunner
	rbac  rbac.Service
	audit audit.Service
	cfg   config.GrantConfig
}

// NewService builds the access grant service with the required dependencies.
func NewService(repo Repository, tx txRunner, rbacSvc rbac.Service, auditSvc audit.Service, cfg config.GrantConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("access request repository required")
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
	return &service{repo: repo, tx: tx, rbac: rbacSvc, audit: auditSvc, cfg: cfg}, nil
}

func (s *service) Create(ctx context.Context, principal identity.Principal, req CreateRequest) (*Response, error) {
	targetType, err := enums.ParseSubjectType(req.TargetType)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target type")
	}
	if !targetType.Grantable() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target type does not accept access requests")
	}
	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target id")
	}

	exists, err := s.repo.TargetExists(ctx, targetType, targetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check target record")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "target record not found")
	}

	open, err := s.repo.HasOpenRequest(ctx, principal.ID, targetType, targetID, time.Now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open requests")
	}
	if open {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "an open request or live grant already exists for this record")
	}

	request := &models.AccessRequest{
		RequesterID: principal.ID,
		TargetType:  targetType,
		TargetID:    targetID,
		Reason:      normalizeReason(req.Reason),
		Status:      enums.GrantStatusPending,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create access request")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionAccessRequest,
			EntityType: auditEntityType,
			EntityID:   request.ID,
			NewValue:   ToResponse(request, time.Now().UTC()),
		})
	})
	if err != nil {
		return nil, err
	}

	resp := ToResponse(request, time.Now().UTC())
	return &resp, nil
}

func (s *service) Approve(ctx context.Context, principal identity.Principal, id uuid.UUID, req ApproveRequest) (*Response, error) {
	if err := s.requireApprover(ctx, principal); err != nil {
		return nil, err
	}

	request, err := s.findRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.RequesterID == principal.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot approve your own request")
	}

	now := time.Now().UTC()
	duration := time.Duration(s.grantHours(req.DurationHours)) * time.Hour
	expiresAt := now.Add(duration)

	before := ToResponse(request, now)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.WithTx(tx).UpdateDecisionIfPending(ctx, id, map[string]any{
			"status":         enums.GrantStatusApproved,
			"approved_by_id": principal.ID,
			"approved_at":    now,
			"expires_at":     expiresAt,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve access request")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request is no longer pending")
		}

		request.Status = enums.GrantStatusApproved
		request.ApprovedByID = &principal.ID
		request.ApprovedAt = &now
		request.ExpiresAt = &expiresAt
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionApprove,
			EntityType: auditEntityType,
			EntityID:   request.ID,
			OldValue:   before,
			NewValue:   ToResponse(request, now),
		})
	})
	if err != nil {
		return nil, err
	}

	resp := ToResponse(request, now)
	return &resp, nil
}

func (s *service) Reject(ctx context.Context, principal identity.Principal, id uuid.UUID, req RejectRequest) (*Response, error) {
	if err := s.requireApprover(ctx, principal); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}

	request, err := s.findRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	before := ToResponse(request, now)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.WithTx(tx).UpdateDecisionIfPending(ctx, id, map[string]any{
			"status":           enums.GrantStatusRejected,
			"approved_by_id":   principal.ID,
			"approved_at":      now,
			"rejection_reason": reason,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject access request")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request is no longer pending")
		}

		request.Status = enums.GrantStatusRejected
		request.ApprovedByID = &principal.ID
		request.ApprovedAt = &now
		request.RejectionReason = &reason
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionReject,
			EntityType: auditEntityType,
			EntityID:   request.ID,
			OldValue:   before,
			NewValue:   ToResponse(request, now),
		})
	})
	if err != nil {
		return nil, err
	}

	resp := ToResponse(request, now)
	return &resp, nil
}

func (s *service) Get(ctx context.Context, principal identity.Principal, id uuid.UUID) (*Response, error) {
	request, err := s.findRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.RequesterID != principal.ID {
		if err := s.requireApprover(ctx, principal); err != nil {
			return nil, err
		}
	}
	resp := ToResponse(request, time.Now().UTC())
	return &resp, nil
}

func (s *service) ListMine(ctx context.Context, principal identity.Principal, params pagination.Params) (*List, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	requests, err := s.repo.ListByRequester(ctx, principal.ID, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list access requests")
	}
	return buildList(requests, limit), nil
}

func (s *service) ListPending(ctx context.Context, principal identity.Principal, params pagination.Params) (*List, error) {
	if err := s.requireApprover(ctx, principal); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	requests, err := s.repo.ListPending(ctx, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending access requests")
	}
	return buildList(requests, limit), nil
}

// CheckAccess implements visibility.GrantChecker. Liveness is derived
// from expires_at against the current clock; grants are never flipped
// to an expired status by a writer.
func (s *service) CheckAccess(ctx context.Context, targetType enums.SubjectType, targetID, userID uuid.UUID) (bool, error) {
	if !targetType.Grantable() {
		return false, nil
	}
	return s.repo.HasActiveGrant(ctx, userID, targetType, targetID, time.Now().UTC())
}

// ActiveTargetIDs implements visibility.GrantSource: the targets the
// user can currently unlock, for list scoping.
func (s *service) ActiveTargetIDs(ctx context.Context, targetType enums.SubjectType, userID uuid.UUID) ([]uuid.UUID, error) {
	if !targetType.Grantable() {
		return nil, nil
	}
	return s.repo.ActiveTargetIDs(ctx, userID, targetType, time.Now().UTC())
}

// requireApprover is narrower than record approval: only ADMIN or
// MASTER decide on grants, and ADMIN still needs the permission.
func (s *service) requireApprover(ctx context.Context, principal identity.Principal) error {
	if err := s.rbac.RequireRole(principal, enums.RoleAdmin); err != nil {
		return err
	}
	return s.rbac.RequireAnyPermission(ctx, principal, rbac.PermApproveAccessRequest)
}

func (s *service) findRequest(ctx context.Context, id uuid.UUID) (*models.AccessRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "access request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load access request")
	}
	return request, nil
}

func (s *service) grantHours(override *int) int {
	if override != nil && *override > 0 {
		return *override
	}
	if s.cfg.DefaultDurationHours > 0 {
		return s.cfg.DefaultDurationHours
	}
	return 24
}

func normalizeReason(reason *string) *string {
	if reason == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*reason)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func buildList(requests []models.AccessRequest, limit int) *List {
	now := time.Now().UTC()
	list := &List{Requests: make([]Response, 0, len(requests))}

	page := requests
	if len(requests) > limit {
		page = requests[:limit]
		last := page[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	for i := range page {
		list.Requests = append(list.Requests, ToResponse(&page[i], now))
	}
	return list
}
