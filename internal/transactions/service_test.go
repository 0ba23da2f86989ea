package transactions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/galleryve/galleryve-backend/internal/audit"
	"github.com/galleryve/galleryve-backend/internal/history"
	"github.com/galleryve/galleryve-backend/internal/rbac"
	"github.com/galleryve/galleryve-backend/pkg/db/models"
	"github.com/galleryve/galleryve-backend/pkg/enums"
	pkgerrors "github.com/galleryve/galleryve-backend/pkg/errors"
	"github.com/galleryve/galleryve-backend/pkg/identity"
	"github.com/galleryve/galleryve-backend/pkg/masking"
	"github.com/galleryve/galleryve-backend/pkg/pagination"
)

type stubTransactionRepo struct {
	transactions   map[uuid.UUID]*models.Transaction
	deleted        map[uuid.UUID]bool
	customerExists bool
	listRows       []models.Transaction
	lastScope      Scope
}

func newStubTransactionRepo() *stubTransactionRepo {
	return &stubTransactionRepo{
		transactions:   make(map[uuid.UUID]*models.Transaction),
		deleted:        make(map[uuid.UUID]bool),
		customerExists: true,
	}
}

func (r *stubTransactionRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubTransactionRepo) Create(ctx context.Context, transaction *models.Transaction) error {
	transaction.ID = uuid.New()
	transaction.CreatedAt = time.Now().UTC()
	r.transactions[transaction.ID] = transaction
	return nil
}

func (r *stubTransactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	transaction, ok := r.transactions[id]
	if !ok || r.deleted[id] {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *transaction
	return &clone, nil
}

func (r *stubTransactionRepo) Save(ctx context.Context, transaction *models.Transaction) error {
	r.transactions[transaction.ID] = transaction
	return nil
}

func (r *stubTransactionRepo) UpdateStatusIfPending(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	transaction, ok := r.transactions[id]
	if !ok || transaction.Approval.Status != enums.RecordStatusPending {
		return 0, nil
	}
	if status, ok := updates["status"].(enums.RecordStatus); ok {
		transaction.Approval.Status = status
	}
	return 1, nil
}

func (r *stubTransactionRepo) CustomerExists(ctx context.Context, customerID uuid.UUID) (bool, error) {
	return r.customerExists, nil
}

func (r *stubTransactionRepo) List(ctx context.Context, scope Scope, filters Filters, cursor *pagination.Cursor, limit int) ([]models.Transaction, error) {
	r.lastScope = scope
	return r.listRows, nil
}

func (r *stubTransactionRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	r.deleted[id] = true
	return nil
}

func (r *stubTransactionRepo) PurgeDeletedBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	return 0, nil
}

type stubRBAC struct {
	allowed map[string]bool
}

func (s *stubRBAC) HasPermission(ctx context.Context, principal identity.Principal, key string) (bool, error) {
	return s.allowed[key], nil
}

func (s *stubRBAC) RequireAnyPermission(ctx context.Context, principal identity.Principal, keys ...string) error {
	for _, key := range keys {
		if s.allowed[key] {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "missing permission")
}

func (s *stubRBAC) RequireRole(principal identity.Principal, roles ...enums.Role) error {
	if principal.Role == enums.RoleMaster {
		return nil
	}
	for _, role := range roles {
		if principal.Role == role {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "role not allowed")
}

func (s *stubRBAC) SetPermissionsForRole(ctx context.Context, principal identity.Principal, role enums.Role, keys []string) error {
	return nil
}

func (s *stubRBAC) EnsurePermission(ctx context.Context, key, description string) (*models.Permission, error) {
	return nil, nil
}

func (s *stubRBAC) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	return nil, nil
}

func (s *stubRBAC) ListRolePermissions(ctx context.Context, role enums.Role) ([]models.Permission, error) {
	return nil, nil
}

type recordedAudit struct {
	entries []audit.Entry
}

func (a *recordedAudit) Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

func (a *recordedAudit) ListByEntity(ctx context.Context, principal identity.Principal, entityType string, entityID uuid.UUID, params pagination.Params) (*audit.Page, error) {
	return &audit.Page{}, nil
}

func (a *recordedAudit) ListByActor(ctx context.Context, principal identity.Principal, actorID uuid.UUID, params pagination.Params) (*audit.Page, error) {
	return &audit.Page{}, nil
}

type recordedHistory struct {
	calls int
	last  []history.FieldChange
}

func (h *recordedHistory) RecordChanges(ctx context.Context, tx *gorm.DB, subjectType enums.SubjectType, subjectID, changedBy uuid.UUID, before, after any) (int, error) {
	changes, err := history.Diff(before, after)
	if err != nil {
		return 0, err
	}
	h.calls++
	h.last = changes
	return len(changes), nil
}

func (h *recordedHistory) ListBySubject(ctx context.Context, subjectType enums.SubjectType, subjectID uuid.UUID, params pagination.Params) (*history.Page, error) {
	return &history.Page{}, nil
}

type stubGrants struct {
	granted   bool
	activeIDs []uuid.UUID
}

func (g *stubGrants) CheckAccess(ctx context.Context, targetType enums.SubjectType, targetID, userID uuid.UUID) (bool, error) {
	return g.granted, nil
}

func (g *stubGrants) ActiveTargetIDs(ctx context.Context, targetType enums.SubjectType, userID uuid.UUID) ([]uuid.UUID, error) {
	return g.activeIDs, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fixture struct {
	repo    *stubTransactionRepo
	rbac    *stubRBAC
	audit   *recordedAudit
	history *recordedHistory
	grants  *stubGrants
	svc     Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:    newStubTransactionRepo(),
		rbac:    &stubRBAC{allowed: map[string]bool{}},
		audit:   &recordedAudit{},
		history: &recordedHistory{},
		grants:  &stubGrants{},
	}
	svc, err := NewService(f.repo, passthroughTx{}, f.rbac, f.audit, f.history, f.grants, masking.Options{CurrencySuffix: "KRW"})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func principalWithTeam(role enums.Role, team uuid.UUID) identity.Principal {
	return identity.Principal{ID: uuid.New(), Role: role, TeamID: &team, IsActive: true}
}

func adminPrincipal() identity.Principal {
	return identity.Principal{ID: uuid.New(), Role: enums.RoleAdmin, IsActive: true}
}

func str(s string) *string { return &s }

func seedTransaction(f *fixture, owner identity.Principal, status enums.RecordStatus) *models.Transaction {
	transaction := &models.Transaction{
		ID:            uuid.New(),
		CustomerID:    uuid.New(),
		ArtworkTitle:  "Morning Light",
		Amount:        decimal.RequireFromString("12345678"),
		Currency:      "KRW",
		ContractTerms: str("50/50 consignment split, 90 day term"),
		CreatedByID:   owner.ID,
		TeamID:        owner.TeamID,
		Approval:      models.Approval{Status: status},
		CreatedAt:     time.Now().UTC(),
	}
	f.repo.transactions[transaction.ID] = transaction
	return transaction
}

func TestCreate_ParsesAmountAndDefaultsCurrency(t *testing.T) {
	f := newFixture(t)
	owner := principalWithTeam(enums.RoleStaff, uuid.New())

	resp, err := f.svc.Create(context.Background(), owner, CreateRequest{
		CustomerID:   uuid.NewString(),
		ArtworkTitle: "Morning Light",
		Amount:       "12345678",
	})
	require.NoError(t, err)

	assert.Equal(t, enums.RecordStatusDraft, resp.Status)
	assert.Equal(t, "KRW", resp.Currency)
	assert.Equal(t, "12,345,678 KRW", resp.Amount)
	assert.False(t, resp.IsMasked)
}

func TestCreate_RejectsBadAmounts(t *testing.T) {
	f := newFixture(t)
	owner := adminPrincipal()

	for _, amount := range []string{"", "abc", "-100"} {
		_, err := f.svc.Create(context.Background(), owner, CreateRequest{
			CustomerID:   uuid.NewString(),
			ArtworkTitle: "X",
			Amount:       amount,
		})
		require.Error(t, err, "amount %q", amount)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	}
}

func TestCreate_UnknownCustomer(t *testing.T) {
	f := newFixture(t)
	f.repo.customerExists = false

	_, err := f.svc.Create(context.Background(), adminPrincipal(), CreateRequest{
		CustomerID:   uuid.NewString(),
		ArtworkTitle: "X",
		Amount:       "100",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestGet_TeammateSeesMaskedAmountAndTerms(t *testing.T) {
	f := newFixture(t)
	team := uuid.New()
	owner := principalWithTeam(enums.RoleStaff, team)
	transaction := seedTransaction(f, owner, enums.RecordStatusApproved)

	teammate := principalWithTeam(enums.RoleStaff, team)
	resp, err := f.svc.Get(context.Background(), teammate, transaction.ID)
	require.NoError(t, err)

	assert.True(t, resp.IsMasked)
	assert.Equal(t, enums.MaskingLevelPartial, resp.MaskingLevel)
	assert.Equal(t, "12,***,*** KRW", resp.Amount)
	assert.Equal(t, "50/**********", *resp.ContractTerms)
}

func TestGet_ManagerOnSameTeamSeesEverything(t *testing.T) {
	f := newFixture(t)
	team := uuid.New()
	owner := principalWithTeam(enums.RoleStaff, team)
	transaction := seedTransaction(f, owner, enums.RecordStatusApproved)

	manager := principalWithTeam(enums.RoleManager, team)
	resp, err := f.svc.Get(context.Background(), manager, transaction.ID)
	require.NoError(t, err)
	assert.False(t, resp.IsMasked)
	assert.Equal(t, "12,345,678 KRW", resp.Amount)
}

func TestGet_StrangerDenied(t *testing.T) {
	f := newFixture(t)
	owner := principalWithTeam(enums.RoleStaff, uuid.New())
	transaction := seedTransaction(f, owner, enums.RecordStatusApproved)

	stranger := principalWithTeam(enums.RoleStaff, uuid.New())
	_, err := f.svc.Get(context.Background(), stranger, transaction.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestApprove_PermissionHolderCrossesTeams(t *testing.T) {
	f := newFixture(t)
	owner := principalWithTeam(enums.RoleStaff, uuid.New())
	transaction := seedTransaction(f, owner, enums.RecordStatusPending)

	// manager from a different team with the permission may decide
	f.rbac.allowed[rbac.PermApproveTransaction] = true
	manager := principalWithTeam(enums.RoleManager, uuid.New())
	resp, err := f.svc.Approve(context.Background(), manager, transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RecordStatusApproved, resp.Status)
}

func TestApprove_StaffNeverDecides(t *testing.T) {
	f := newFixture(t)
	owner := principalWithTeam(enums.RoleStaff, uuid.New())
	transaction := seedTransaction(f, owner, enums.RecordStatusPending)

	f.rbac.allowed[rbac.PermApproveTransaction] = true
	staffer := principalWithTeam(enums.RoleStaff, uuid.New())
	_, err := f.svc.Approve(context.Background(), staffer, transaction.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestUpdate_AmountChangeRevertsApproval(t *testing.T) {
	f := newFixture(t)
	owner := principalWithTeam(enums.RoleStaff, uuid.New())
	transaction := seedTransaction(f, owner, enums.RecordStatusApproved)
	approver := uuid.New()
	now := time.Now().UTC()
	transaction.Approval.ApprovedByID = &approver
	transaction.Approval.ApprovedAt = &now

	resp, err := f.svc.Update(context.Background(), owner, transaction.ID, UpdateRequest{
		Amount: str("9999999"),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.RecordStatusPending, resp.Status)
	assert.Nil(t, resp.ApprovedByID)
	assert.Equal(t, 1, f.history.calls)
	require.Len(t, f.history.last, 1)
	assert.Equal(t, "amount", f.history.last[0].Field)
}

func TestSubmit_RejectedCanResubmit(t *testing.T) {
	f := newFixture(t)
	owner := principalWithTeam(enums.RoleStaff, uuid.New())
	transaction := seedTransaction(f, owner, enums.RecordStatusRejected)
	reason := "missing contract"
	transaction.Approval.RejectionReason = &reason

	resp, err := f.svc.Submit(context.Background(), owner, transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RecordStatusPending, resp.Status)
	assert.Nil(t, resp.RejectionReason)
}

func TestReject_StoresReasonAndDecisionTime(t *testing.T) {
	f := newFixture(t)
	f.rbac.allowed[rbac.PermApproveTransaction] = true
	owner := principalWithTeam(enums.RoleStaff, uuid.New())
	transaction := seedTransaction(f, owner, enums.RecordStatusPending)

	resp, err := f.svc.Reject(context.Background(), adminPrincipal(), transaction.ID, RejectRequest{Reason: "terms unclear"})
	require.NoError(t, err)
	assert.Equal(t, enums.RecordStatusRejected, resp.Status)
	require.NotNil(t, resp.RejectionReason)
	assert.Equal(t, "terms unclear", *resp.RejectionReason)
	assert.NotNil(t, resp.ApprovedByID)
	assert.NotNil(t, resp.ApprovedAt)
}

func TestUpdate_NoopPatchKeepsApproval(t *testing.T) {
	f := newFixture(t)
	owner := principalWithTeam(enums.RoleStaff, uuid.New())
	transaction := seedTransaction(f, owner, enums.RecordStatusApproved)
	approver := uuid.New()
	now := time.Now().UTC()
	transaction.Approval.ApprovedByID = &approver
	transaction.Approval.ApprovedAt = &now

	resp, err := f.svc.Update(context.Background(), owner, transaction.ID, UpdateRequest{
		Amount: str("12345678"),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.RecordStatusApproved, resp.Status)
	assert.NotNil(t, resp.ApprovedByID)
	assert.Empty(t, f.history.last)
}

func TestSubmit_SameTeamManagerCannotSubmitOthersRecord(t *testing.T) {
	f := newFixture(t)
	team := uuid.New()
	owner := principalWithTeam(enums.RoleStaff, team)
	transaction := seedTransaction(f, owner, enums.RecordStatusDraft)

	manager := principalWithTeam(enums.RoleManager, team)
	_, err := f.svc.Submit(context.Background(), manager, transaction.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestList_IncludesGrantedCrossTeamRecord(t *testing.T) {
	f := newFixture(t)
	caller := principalWithTeam(enums.RoleStaff, uuid.New())
	otherTeam := uuid.New()

	grantedRow := models.Transaction{
		ID:            uuid.New(),
		CustomerID:    uuid.New(),
		ArtworkTitle:  "Morning Light",
		Amount:        decimal.RequireFromString("12345678"),
		Currency:      "KRW",
		ContractTerms: str("50/50 consignment split, 90 day term"),
		CreatedByID:   uuid.New(),
		TeamID:        &otherTeam,
		CreatedAt:     time.Now().UTC(),
	}
	f.grants.activeIDs = []uuid.UUID{grantedRow.ID}
	f.repo.listRows = []models.Transaction{grantedRow}

	list, err := f.svc.List(context.Background(), caller, Filters{}, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Transactions, 1)

	// a live grant reads like ownership: the row is present and unmasked
	assert.False(t, list.Transactions[0].IsMasked)
	assert.Equal(t, "12,345,678 KRW", list.Transactions[0].Amount)
	assert.Equal(t, []uuid.UUID{grantedRow.ID}, f.repo.lastScope.GrantedIDs)
}

func TestDelete_OwnerDraftOnly(t *testing.T) {
	f := newFixture(t)
	owner := principalWithTeam(enums.RoleStaff, uuid.New())
	draft := seedTransaction(f, owner, enums.RecordStatusDraft)
	approved := seedTransaction(f, owner, enums.RecordStatusApproved)

	require.NoError(t, f.svc.Delete(context.Background(), owner, draft.ID))

	err := f.svc.Delete(context.Background(), owner, approved.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}
