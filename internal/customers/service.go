package customers

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

const auditEntityType = "customer"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the customer lifecycle: registration, edits with field
// history, the submit/approve/reject workflow, and visibility-resolved
// reads.
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
	grants   visibility.GrantSource
	maskOpts masking.Options
}

// NewService builds the customer service with the required dependencies.
func NewService(repo Repository, tx txRunner, rbacSvc rbac.Service, auditSvc audit.Service, historySvc history.Service, grants visibility.GrantSource, maskOpts masking.Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
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
	if grants == nil {
		return nil, fmt.Errorf("grant checker required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		rbac:     rbacSvc,
		audit:    auditSvc,
		history:  historySvc,
		grants:   grants,
		maskOpts: maskOpts,
	}, nil
}

func (s *service) Create(ctx context.Context, principal identity.Principal, req CreateRequest) (*Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name required")
	}

	customer := &models.Customer{
		Name:        name,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		Memo:        req.Memo,
		CreatedByID: principal.ID,
		TeamID:      principal.TeamID,
		Approval:    models.Approval{Status: enums.RecordStatusDraft},
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, customer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionCreate,
			EntityType: auditEntityType,
			EntityID:   customer.ID,
			NewValue:   snapshotOf(customer),
		})
	})
	if err != nil {
		return nil, err
	}

	resp := ToResponse(customer, enums.MaskingLevelNone, s.maskOpts)
	return &resp, nil
}

func (s *service) Update(ctx context.Context, principal identity.Principal, id uuid.UUID, req UpdateRequest) (*Response, error) {
	customer, err := s.findCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireEditor(principal, customer); err != nil {
		return nil, err
	}

	before := snapshotOf(customer)
	applyUpdate(customer, req)
	after := snapshotOf(customer)

	// a no-op PATCH must not invalidate an existing approval
	reverted := false
	if !reflect.DeepEqual(before, after) {
		reverted = workflow.RevertOnEdit(&customer.Approval)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, customer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer")
		}
		if _, err := s.history.RecordChanges(ctx, tx, enums.SubjectTypeCustomer, customer.ID, principal.ID, before, after); err != nil {
			return err
		}
		newValue := map[string]any{"fields": after}
		if reverted {
			newValue["status"] = customer.Approval.Status
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionUpdate,
			EntityType: auditEntityType,
			EntityID:   customer.ID,
			OldValue:   map[string]any{"fields": before},
			NewValue:   newValue,
		})
	})
	if err != nil {
		return nil, err
	}

	resp := ToResponse(customer, enums.MaskingLevelNone, s.maskOpts)
	return &resp, nil
}

func (s *service) Submit(ctx context.Context, principal identity.Principal, id uuid.UUID) (*Response, error) {
	customer, err := s.findCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireSubmitter(principal, customer); err != nil {
		return nil, err
	}

	oldStatus := customer.Approval.Status
	if err := workflow.Submit(&customer.Approval); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, customer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit customer")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionUpdate,
			EntityType: auditEntityType,
			EntityID:   customer.ID,
			OldValue:   map[string]any{"status": oldStatus},
			NewValue:   map[string]any{"status": customer.Approval.Status},
		})
	})
	if err != nil {
		return nil, err
	}

	resp := ToResponse(customer, enums.MaskingLevelNone, s.maskOpts)
	return &resp, nil
}

func (s *service) Approve(ctx context.Context, principal identity.Principal, id uuid.UUID) (*Response, error) {
	customer, err := s.findCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireApprover(ctx, principal); err != nil {
		return nil, err
	}

	if err := workflow.Approve(&customer.Approval, principal.ID, time.Now().UTC()); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.WithTx(tx).UpdateStatusIfPending(ctx, id, workflow.DecisionColumns(&customer.Approval))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve customer")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "customer is no longer pending")
		}

		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionApprove,
			EntityType: auditEntityType,
			EntityID:   customer.ID,
			NewValue:   map[string]any{"status": enums.RecordStatusApproved},
		})
	})
	if err != nil {
		return nil, err
	}

	resp := ToResponse(customer, enums.MaskingLevelNone, s.maskOpts)
	return &resp, nil
}

func (s *service) Reject(ctx context.Context, principal identity.Principal, id uuid.UUID, req RejectRequest) (*Response, error) {
	customer, err := s.findCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireApprover(ctx, principal); err != nil {
		return nil, err
	}

	if err := workflow.Reject(&customer.Approval, principal.ID, req.Reason, time.Now().UTC()); err != nil {
		return nil, err
	}
	reason := *customer.Approval.RejectionReason

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.WithTx(tx).UpdateStatusIfPending(ctx, id, workflow.DecisionColumns(&customer.Approval))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject customer")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "customer is no longer pending")
		}

		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionReject,
			EntityType: auditEntityType,
			EntityID:   customer.ID,
			NewValue:   map[string]any{"status": enums.RecordStatusRejected, "reason": reason},
		})
	})
	if err != nil {
		return nil, err
	}

	resp := ToResponse(customer, enums.MaskingLevelNone, s.maskOpts)
	return &resp, nil
}

func (s *service) Get(ctx context.Context, principal identity.Principal, id uuid.UUID) (*Response, error) {
	customer, err := s.findCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	resolution, err := visibility.Resolve(ctx, visibilityRecord(customer), visibilityCaller(principal), s.grants)
	if err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, nil, audit.Entry{
		ActorID:    principal.ID,
		Action:     enums.AuditActionView,
		EntityType: auditEntityType,
		EntityID:   customer.ID,
		NewValue:   map[string]any{"masking_level": resolution.Level},
	}); err != nil {
		return nil, err
	}

	resp := ToResponse(customer, resolution.Level, s.maskOpts)
	return &resp, nil
}

// List is query-scoped: rows the caller could not see at all never
// leave the database, so per-row resolution only decides masking.
// Targets of the caller's live grants are pulled into the scope and
// presented as caller-owned.
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
	granted := map[uuid.UUID]bool{}
	if !scope.Privileged {
		ids, err := s.grants.ActiveTargetIDs(ctx, enums.SubjectTypeCustomer, principal.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list granted customers")
		}
		scope.GrantedIDs = ids
		for _, gid := range ids {
			granted[gid] = true
		}
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.List(ctx, scope, filters, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}

	list := &List{Customers: make([]Response, 0, len(rows))}
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
		if granted[page[i].ID] {
			list.Customers = append(list.Customers, ToResponse(&page[i], enums.MaskingLevelNone, s.maskOpts))
			continue
		}
		resolution, err := visibility.Resolve(ctx, visibilityRecord(&page[i]), visibilityCaller(principal), nil)
		if err != nil {
			continue
		}
		list.Customers = append(list.Customers, ToResponse(&page[i], resolution.Level, s.maskOpts))
	}
	return list, nil
}

// Delete soft-deletes. Owners may remove their own drafts; anything
// else needs a privileged role or the delete permission.
func (s *service) Delete(ctx context.Context, principal identity.Principal, id uuid.UUID) error {
	customer, err := s.findCustomer(ctx, id)
	if err != nil {
		return err
	}

	ownDraft := customer.CreatedByID == principal.ID && customer.Approval.Status == enums.RecordStatusDraft
	if !ownDraft && !principal.IsPrivileged() {
		if err := s.rbac.RequireAnyPermission(ctx, principal, rbac.PermDeleteRecord); err != nil {
			return err
		}
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).SoftDelete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete customer")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionDelete,
			EntityType: auditEntityType,
			EntityID:   customer.ID,
			OldValue:   snapshotOf(customer),
		})
	})
}

// requireEditor limits writes to the owner, a same-team manager, or a
// privileged role. Grant holders read; they never write.
func (s *service) requireEditor(principal identity.Principal, customer *models.Customer) error {
	if principal.IsPrivileged() || customer.CreatedByID == principal.ID {
		return nil
	}
	if principal.Role == enums.RoleManager && sameTeam(customer.TeamID, principal.TeamID) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to modify this customer")
}

// requireSubmitter scopes submission to the record owner; privileged
// roles may push someone else's record through.
func (s *service) requireSubmitter(principal identity.Principal, customer *models.Customer) error {
	if principal.IsPrivileged() || customer.CreatedByID == principal.ID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can submit this customer")
}

// requireApprover gates decisions: role ADMIN/MANAGER/MASTER plus the
// customer approval permission. Team membership is not checked here;
// read visibility is what scopes who ever sees the pending record.
func (s *service) requireApprover(ctx context.Context, principal identity.Principal) error {
	if err := s.rbac.RequireRole(principal, enums.RoleAdmin, enums.RoleManager); err != nil {
		return err
	}
	return s.rbac.RequireAnyPermission(ctx, principal, rbac.PermApproveCustomer)
}

func (s *service) findCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return customer, nil
}

func applyUpdate(customer *models.Customer, req UpdateRequest) {
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		customer.Name = strings.TrimSpace(*req.Name)
	}
	customer.Email = applyOptional(customer.Email, req.Email)
	customer.Phone = applyOptional(customer.Phone, req.Phone)
	customer.Address = applyOptional(customer.Address, req.Address)
	customer.Memo = applyOptional(customer.Memo, req.Memo)
}

// applyOptional keeps the current value for nil input and clears it for
// an empty string.
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

func visibilityRecord(customer *models.Customer) visibility.Record {
	return visibility.Record{
		Type:        enums.SubjectTypeCustomer,
		ID:          customer.ID,
		CreatedByID: customer.CreatedByID,
		TeamID:      customer.TeamID,
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
