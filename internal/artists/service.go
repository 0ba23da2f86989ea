package artists

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/galleryve/galleryve-backend/internal/audit"
	"github.com/galleryve/galleryve-backend/internal/history"
	"github.com/galleryve/galleryve-backend/internal/rbac"
	"github.com/galleryve/galleryve-backend/internal/workflow"
	"github.com/galleryve/galleryve-backend/pkg/db/models"
	"github.com/galleryve/galleryve-backend/pkg/enums"
	pkgerrors "github.com/galleryve/galleryve-backend/pkg/errors"
	"github.com/galleryve/galleryve-backend/pkg/identity"
	"github.com/galleryve/galleryve-backend/pkg/masking"
	"github.com/galleryve/galleryve-backend/pkg/pagination"
	"github.com/galleryve/galleryve-backend/pkg/visibility"
)

const auditEntityType = "artist"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the artist lifecycle. Artists are never grant targets:
// cross-team readers get the team-membership outcome and nothing more.
type Service interface {
	Create(ctx context.Context, principal identity.Principal, req CreateRequest) (*Response, error)
	Update(ctx context.Context, principal identity.Principal, id uuid.UUID, req UpdateRequest) (*Response, error)
	Submit(ctx context.Context, principal identity.Principal, id uuid.UUID) (*Response, error)
	Approve(ctx context.Context, principal identity.Principal, id uuid.UUID) (*Response, error)
	Reject(ctx context.Context, principal identity.Principal, id uuid.UUID, req RejectRequest) (*Response, error)
	Get(ctx context.Context, principal identity.Principal, id uuid.UUID) (*Response, error)
	List(ctx context.Context, principal identity.Principal, filters Filters, params pagination.Params) (*List, error)
	Delete(ctx context.Context, principal identity.Principal, id uuid.UUID) error
}

type service struct {
	repo     Repository
	tx       txRunner
	rbac     rbac.Service
	audit    audit.Service
	history  history.Service
	maskOpts masking.Options
}

// NewService builds the artist service with the required dependencies.
func NewService(repo Repository, tx txRunner, rbacSvc rbac.Service, auditSvc audit.Service, historySvc history.Service, maskOpts masking.Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("artist repository required")
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
	if historySvc == nil {
		return nil, fmt.Errorf("history service required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		rbac:     rbacSvc,
		audit:    auditSvc,
		history:  historySvc,
		maskOpts: maskOpts,
	}, nil
}

func (s *service) Create(ctx context.Context, principal identity.Principal, req CreateRequest) (*Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "artist name required")
	}

	artist := &models.Artist{
		Name:        name,
		Email:       req.Email,
		Phone:       req.Phone,
		Bio:         req.Bio,
		CreatedByID: principal.ID,
		TeamID:      principal.TeamID,
		Approval:    models.Approval{Status: enums.RecordStatusDraft},
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, artist); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create artist")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionCreate,
			EntityType: auditEntityType,
			EntityID:   artist.ID,
			NewValue:   snapshotOf(artist),
		})
	})
	if err != nil {
		return nil, err
	}

	resp := ToResponse(artist, enums.MaskingLevelNone, s.maskOpts)
	return &resp, nil
}

func (s *service) Update(ctx context.Context, principal identity.Principal, id uuid.UUID, req UpdateRequest) (*Response, error) {
	artist, err := s.findArtist(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireEditor(principal, artist); err != nil {
		return nil, err
	}

	before := snapshotOf(artist)
	applyUpdate(artist, req)
	after := snapshotOf(artist)

	// a no-op PATCH must not invalidate an existing approval
	reverted := false
	if !reflect.DeepEqual(before, after) {
		reverted = workflow.RevertOnEdit(&artist.Approval)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, artist); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update artist")
		}
		if _, err := s.history.RecordChanges(ctx, tx, enums.SubjectTypeArtist, artist.ID, principal.ID, before, after); err != nil {
			return err
		}
		newValue := map[string]any{"fields": after}
		if reverted {
			newValue["status"] = artist.Approval.Status
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionUpdate,
			EntityType: auditEntityType,
			EntityID:   artist.ID,
			OldValue:   map[string]any{"fields": before},
			NewValue:   newValue,
		})
	})
	if err != nil {
		return nil, err
	}

	resp := ToResponse(artist, enums.MaskingLevelNone, s.maskOpts)
	return &resp, nil
}

func (s *service) Submit(ctx context.Context, principal identity.Principal, id uuid.UUID) (*Response, error) {
	artist, err := s.findArtist(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireSubmitter(principal, artist); err != nil {
		return nil, err
	}

	oldStatus := artist.Approval.Status
	if err := workflow.Submit(&artist.Approval); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, artist); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit artist")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionUpdate,
			EntityType: auditEntityType,
			EntityID:   artist.ID,
			OldValue:   map[string]any{"status": oldStatus},
			NewValue:   map[string]any{"status": artist.Approval.Status},
		})
	})
	if err != nil {
		return nil, err
	}

	resp := ToResponse(artist, enums.MaskingLevelNone, s.maskOpts)
	return &resp, nil
}

func (s *service) Approve(ctx context.Context, principal identity.Principal, id uuid.UUID) (*Response, error) {
	artist, err := s.findArtist(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireApprover(ctx, principal); err != nil {
		return nil, err
	}

	if err := workflow.Approve(&artist.Approval, principal.ID, time.Now().UTC()); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.WithTx(tx).UpdateStatusIfPending(ctx, id, workflow.DecisionColumns(&artist.Approval))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve artist")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "artist is no longer pending")
		}

		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionApprove,
			EntityType: auditEntityType,
			EntityID:   artist.ID,
			NewValue:   map[string]any{"status": enums.RecordStatusApproved},
		})
	})
	if err != nil {
		return nil, err
	}

	resp := ToResponse(artist, enums.MaskingLevelNone, s.maskOpts)
	return &resp, nil
}

func (s *service) Reject(ctx context.Context, principal identity.Principal, id uuid.UUID, req RejectRequest) (*Response, error) {
	artist, err := s.findArtist(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireApprover(ctx, principal); err != nil {
		return nil, err
	}

	if err := workflow.Reject(&artist.Approval, principal.ID, req.Reason, time.Now().UTC()); err != nil {
		return nil, err
	}
	reason := *artist.Approval.RejectionReason

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.WithTx(tx).UpdateStatusIfPending(ctx, id, workflow.DecisionColumns(&artist.Approval))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject artist")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "artist is no longer pending")
		}

		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionReject,
			EntityType: auditEntityType,
			EntityID:   artist.ID,
			NewValue:   map[string]any{"status": enums.RecordStatusRejected, "reason": reason},
		})
	})
	if err != nil {
		return nil, err
	}

	resp := ToResponse(artist, enums.MaskingLevelNone, s.maskOpts)
	return &resp, nil
}

func (s *service) Get(ctx context.Context, principal identity.Principal, id uuid.UUID) (*Response, error) {
	artist, err := s.findArtist(ctx, id)
	if err != nil {
		return nil, err
	}

	resolution, err := visibility.Resolve(ctx, visibilityRecord(artist), visibilityCaller(principal), nil)
	if err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, nil, audit.Entry{
		ActorID:    principal.ID,
		Action:     enums.AuditActionView,
		EntityType: auditEntityType,
		EntityID:   artist.ID,
		NewValue:   map[string]any{"masking_level": resolution.Level},
	}); err != nil {
		return nil, err
	}

	resp := ToResponse(artist, resolution.Level, s.maskOpts)
	return &resp, nil
}

func (s *service) List(ctx context.Context, principal identity.Principal, filters Filters, params pagination.Params) (*List, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	scope := Scope{
		UserID:     principal.ID,
		TeamID:     principal.TeamID,
		Privileged: principal.IsPrivileged(),
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.List(ctx, scope, filters, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list artists")
	}

	list := &List{Artists: make([]Response, 0, len(rows))}
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
		resolution, err := visibility.Resolve(ctx, visibilityRecord(&page[i]), visibilityCaller(principal), nil)
		if err != nil {
			continue
		}
		list.Artists = append(list.Artists, ToResponse(&page[i], resolution.Level, s.maskOpts))
	}
	return list, nil
}

func (s *service) Delete(ctx context.Context, principal identity.Principal, id uuid.UUID) error {
	artist, err := s.findArtist(ctx, id)
	if err != nil {
		return err
	}

	ownDraft := artist.CreatedByID == principal.ID && artist.Approval.Status == enums.RecordStatusDraft
	if !ownDraft && !principal.IsPrivileged() {
		if err := s.rbac.RequireAnyPermission(ctx, principal, rbac.PermDeleteRecord); err != nil {
			return err
		}
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).SoftDelete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete artist")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionDelete,
			EntityType: auditEntityType,
			EntityID:   artist.ID,
			OldValue:   snapshotOf(artist),
		})
	})
}

func (s *service) requireEditor(principal identity.Principal, artist *models.Artist) error {
	if principal.IsPrivileged() || artist.CreatedByID == principal.ID {
		return nil
	}
	if principal.Role == enums.RoleManager && sameTeam(artist.TeamID, principal.TeamID) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to modify this artist")
}

// requireSubmitter scopes submission to the record owner; privileged
// roles may push someone else's record through.
func (s *service) requireSubmitter(principal identity.Principal, artist *models.Artist) error {
	if principal.IsPrivileged() || artist.CreatedByID == principal.ID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can submit this artist")
}

// requireApprover gates decisions: role ADMIN/MANAGER/MASTER plus the
// artist approval permission. Team membership is not checked here; read
// visibility is what scopes who ever sees the pending record.
func (s *service) requireApprover(ctx context.Context, principal identity.Principal) error {
	if err := s.rbac.RequireRole(principal, enums.RoleAdmin, enums.RoleManager); err != nil {
		return err
	}
	return s.rbac.RequireAnyPermission(ctx, principal, rbac.PermApproveArtist)
}

func (s *service) findArtist(ctx context.Context, id uuid.UUID) (*models.Artist, error) {
	artist, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "artist not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load artist")
	}
	return artist, nil
}

func applyUpdate(artist *models.Artist, req UpdateRequest) {
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		artist.Name = strings.TrimSpace(*req.Name)
	}
	artist.Email = applyOptional(artist.Email, req.Email)
	artist.Phone = applyOptional(artist.Phone, req.Phone)
	artist.Bio = applyOptional(artist.Bio, req.Bio)
}

func applyOptional(current, incoming *string) *string {
	if incoming == nil {
		return current
	}
	trimmed := strings.TrimSpace(*incoming)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func visibilityRecord(artist *models.Artist) visibility.Record {
	return visibility.Record{
		Type:        enums.SubjectTypeArtist,
		ID:          artist.ID,
		CreatedByID: artist.CreatedByID,
		TeamID:      artist.TeamID,
	}
}

func visibilityCaller(principal identity.Principal) visibility.Caller {
	return visibility.Caller{
		ID:     principal.ID,
		Role:   principal.Role,
		TeamID: principal.TeamID,
	}
}

func sameTeam(recordTeam, callerTeam *uuid.UUID) bool {
	if recordTeam == nil {
		return true
	}
	return callerTeam != nil && *recordTeam == *callerTeam
}
