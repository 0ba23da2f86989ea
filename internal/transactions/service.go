package transactions

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

const (
	auditEntityType = "transaction"
	defaultCurrency = "KRW"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the transaction lifecycle. It mirrors the customer
// service except for approval scoping: any permission holder may decide
// a pending transaction, whatever team recorded it.
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

// NewService builds the transaction service with the required dependencies.
func NewService(repo Repository, tx txRunner, rbacSvc rbac.Service, auditSvc audit.Service, historySvc history.Service, grants visibility.GrantSource, maskOpts masking.Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("transaction repository required")
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
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid customer id")
	}
	title := strings.TrimSpace(req.ArtworkTitle)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "artwork title required")
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	var artistID *uuid.UUID
	if req.ArtistID != nil {
		parsed, err := uuid.Parse(*req.ArtistID)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid artist id")
		}
		artistID = &parsed
	}

	exists, err := s.repo.CustomerExists(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check customer")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}

	transaction := &models.Transaction{
		CustomerID:    customerID,
		ArtworkTitle:  title,
		ArtistID:      artistID,
		Amount:        amount,
		Currency:      currencyOrDefault(req.Currency),
		ContractTerms: req.ContractTerms,
		TransactedAt:  req.TransactedAt,
		CreatedByID:   principal.ID,
		TeamID:        principal.TeamID,
		Approval:      models.Approval{Status: enums.RecordStatusDraft},
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, transaction); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create transaction")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionCreate,
			EntityType: auditEntityType,
			EntityID:   transaction.ID,
			NewValue:   snapshotOf(transaction),
		})
	})
	if err != nil {
		return nil, err
	}

	resp := ToResponse(transaction, enums.MaskingLevelNone, s.maskOpts)
	return &resp, nil
}

func (s *service) Update(ctx context.Context, principal identity.Principal, id uuid.UUID, req UpdateRequest) (*Response, error) {
	transaction, err := s.findTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireEditor(principal, transaction); err != nil {
		return nil, err
	}

	before := snapshotOf(transaction)
	if err := applyUpdate(transaction, req); err != nil {
		return nil, err
	}
	after := snapshotOf(transaction)

	// a no-op PATCH must not invalidate an existing approval
	reverted := false
	if !reflect.DeepEqual(before, after) {
		reverted = workflow.RevertOnEdit(&transaction.Approval)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, transaction); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update transaction")
		}
		if _, err := s.history.RecordChanges(ctx, tx, enums.SubjectTypeTransaction, transaction.ID, principal.ID, before, after); err != nil {
			return err
		}
		newValue := map[string]any{"fields": after}
		if reverted {
			newValue["status"] = transaction.Approval.Status
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionUpdate,
			EntityType: auditEntityType,
			EntityID:   transaction.ID,
			OldValue:   map[string]any{"fields": before},
			NewValue:   newValue,
		})
	})
	if err != nil {
		return nil, err
	}

	resp := ToResponse(transaction, enums.MaskingLevelNone, s.maskOpts)
	return &resp, nil
}

func (s *service) Submit(ctx context.Context, principal identity.Principal, id uuid.UUID) (*Response, error) {
	transaction, err := s.findTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireSubmitter(principal, transaction); err != nil {
		return nil, err
	}

	oldStatus := transaction.Approval.Status
	if err := workflow.Submit(&transaction.Approval); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, transaction); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit transaction")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionUpdate,
			EntityType: auditEntityType,
			EntityID:   transaction.ID,
			OldValue:   map[string]any{"status": oldStatus},
			NewValue:   map[string]any{"status": transaction.Approval.Status},
		})
	})
	if err != nil {
		return nil, err
	}

	resp := ToResponse(transaction, enums.MaskingLevelNone, s.maskOpts)
	return &resp, nil
}

func (s *service) Approve(ctx context.Context, principal identity.Principal, id uuid.UUID) (*Response, error) {
	transaction, err := s.findTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireApprover(ctx, principal); err != nil {
		return nil, err
	}

	if err := workflow.Approve(&transaction.Approval, principal.ID, time.Now().UTC()); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.WithTx(tx).UpdateStatusIfPending(ctx, id, workflow.DecisionColumns(&transaction.Approval))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve transaction")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction is no longer pending")
		}

		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionApprove,
			EntityType: auditEntityType,
			EntityID:   transaction.ID,
			NewValue:   map[string]any{"status": enums.RecordStatusApproved},
		})
	})
	if err != nil {
		return nil, err
	}

	resp := ToResponse(transaction, enums.MaskingLevelNone, s.maskOpts)
	return &resp, nil
}

func (s *service) Reject(ctx context.Context, principal identity.Principal, id uuid.UUID, req RejectRequest) (*Response, error) {
	transaction, err := s.findTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireApprover(ctx, principal); err != nil {
		return nil, err
	}

	if err := workflow.Reject(&transaction.Approval, principal.ID, req.Reason, time.Now().UTC()); err != nil {
		return nil, err
	}
	reason := *transaction.Approval.RejectionReason

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.WithTx(tx).UpdateStatusIfPending(ctx, id, workflow.DecisionColumns(&transaction.Approval))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject transaction")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction is no longer pending")
		}

		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionReject,
			EntityType: auditEntityType,
			EntityID:   transaction.ID,
			NewValue:   map[string]any{"status": enums.RecordStatusRejected, "reason": reason},
		})
	})
	if err != nil {
		return nil, err
	}

	resp := ToResponse(transaction, enums.MaskingLevelNone, s.maskOpts)
	return &resp, nil
}

func (s *service) Get(ctx context.Context, principal identity.Principal, id uuid.UUID) (*Response, error) {
	transaction, err := s.findTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	resolution, err := visibility.Resolve(ctx, visibilityRecord(transaction), visibilityCaller(principal), s.grants)
	if err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, nil, audit.Entry{
		ActorID:    principal.ID,
		Action:     enums.AuditActionView,
		EntityType: auditEntityType,
		EntityID:   transaction.ID,
		NewValue:   map[string]any{"masking_level": resolution.Level},
	}); err != nil {
		return nil, err
	}

	resp := ToResponse(transaction, resolution.Level, s.maskOpts)
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
	granted := map[uuid.UUID]bool{}
	if !scope.Privileged {
		ids, err := s.grants.ActiveTargetIDs(ctx, enums.SubjectTypeTransaction, principal.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list granted transactions")
		}
		scope.GrantedIDs = ids
		for _, gid := range ids {
			granted[gid] = true
		}
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.List(ctx, scope, filters, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}

	list := &List{Transactions: make([]Response, 0, len(rows))}
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
			list.Transactions = append(list.Transactions, ToResponse(&page[i], enums.MaskingLevelNone, s.maskOpts))
			continue
		}
		resolution, err := visibility.Resolve(ctx, visibilityRecord(&page[i]), visibilityCaller(principal), nil)
		if err != nil {
			continue
		}
		list.Transactions = append(list.Transactions, ToResponse(&page[i], resolution.Level, s.maskOpts))
	}
	return list, nil
}

func (s *service) Delete(ctx context.Context, principal identity.Principal, id uuid.UUID) error {
	transaction, err := s.findTransaction(ctx, id)
	if err != nil {
		return err
	}

	ownDraft := transaction.CreatedByID == principal.ID && transaction.Approval.Status == enums.RecordStatusDraft
	if !ownDraft && !principal.IsPrivileged() {
		if err := s.rbac.RequireAnyPermission(ctx, principal, rbac.PermDeleteRecord); err != nil {
			return err
		}
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).SoftDelete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete transaction")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    principal.ID,
			Action:     enums.AuditActionDelete,
			EntityType: auditEntityType,
			EntityID:   transaction.ID,
			OldValue:   snapshotOf(transaction),
		})
	})
}

func (s *service) requireEditor(principal identity.Principal, transaction *models.Transaction) error {
	if principal.IsPrivileged() || transaction.CreatedByID == principal.ID {
		return nil
	}
	if principal.Role == enums.RoleManager && sameTeam(transaction.TeamID, principal.TeamID) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to modify this transaction")
}

// requireSubmitter scopes submission to the record owner; privileged
// roles may push someone else's record through.
func (s *service) requireSubmitter(principal identity.Principal, transaction *models.Transaction) error {
	if principal.IsPrivileged() || transaction.CreatedByID == principal.ID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can submit this transaction")
}

// requireApprover gates decisions: role ADMIN/MANAGER/MASTER plus the
// transaction approval permission. Sales cross team lines, so the gate
// is deliberately not team-scoped.
func (s *service) requireApprover(ctx context.Context, principal identity.Principal) error {
	if err := s.rbac.RequireRole(principal, enums.RoleAdmin, enums.RoleManager); err != nil {
		return err
	}
	return s.rbac.RequireAnyPermission(ctx, principal, rbac.PermApproveTransaction)
}

func (s *service) findTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	transaction, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	return transaction, nil
}

func applyUpdate(transaction *models.Transaction, req UpdateRequest) error {
	if req.ArtworkTitle != nil && strings.TrimSpace(*req.ArtworkTitle) != "" {
		transaction.ArtworkTitle = strings.TrimSpace(*req.ArtworkTitle)
	}
	if req.Amount != nil {
		amount, err := parseAmount(*req.Amount)
		if err != nil {
			return err
		}
		transaction.Amount = amount
	}
	if req.Currency != nil {
		transaction.Currency = currencyOrDefault(req.Currency)
	}
	if req.ContractTerms != nil {
		trimmed := strings.TrimSpace(*req.ContractTerms)
		if trimmed == "" {
			transaction.ContractTerms = nil
		} else {
			transaction.ContractTerms = &trimmed
		}
	}
	if req.TransactedAt != nil {
		transaction.TransactedAt = req.TransactedAt
	}
	return nil
}

func parseAmount(value string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "invalid amount")
	}
	if amount.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "amount cannot be negative")
	}
	return amount, nil
}

func currencyOrDefault(currency *string) string {
	if currency == nil {
		return defaultCurrency
	}
	trimmed := strings.ToUpper(strings.TrimSpace(*currency))
	if trimmed == "" {
		return defaultCurrency
	}
	return trimmed
}

func visibilityRecord(transaction *models.Transaction) visibility.Record {
	return visibility.Record{
		Type:        enums.SubjectTypeTransaction,
		ID:          transaction.ID,
		CreatedByID: transaction.CreatedByID,
		TeamID:      transaction.TeamID,
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
