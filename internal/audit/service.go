package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/galleryve/galleryve-backend/pkg/db/models"
	"github.com/galleryve/galleryve-backend/pkg/enums"
	pkgerrors "github.com/galleryve/galleryve-backend/pkg/errors"
	"github.com/galleryve/galleryve-backend/pkg/identity"
	"github.com/galleryve/galleryve-backend/pkg/pagination"
)

// Entry captures one auditable event before persistence.
type Entry struct {
	ActorID    uuid.UUID
	Action     enums.AuditAction
	EntityType string
	EntityID   uuid.UUID
	OldValue   any
	NewValue   any
}

// Page is one page of audit rows plus the cursor for the next one.
type Page struct {
	Entries    []models.AuditLog
	NextCursor string
}

// Service records auditable events and exposes the trail to
// privileged readers. Record is synchronous: callers invoke it inside
// the same transaction as the mutation it describes.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
	ListByEntity(ctx context.Context, principal identity.Principal, entityType string, entityID uuid.UUID, params pagination.Params) (*Page, error)
	ListByActor(ctx context.Context, principal identity.Principal, actorID uuid.UUID, params pagination.Params) (*Page, error)
}

type service struct {
	repo Repository
}

// NewService builds the audit service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	if entry.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "audit actor required")
	}
	if !entry.Action.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid audit action")
	}
	if entry.EntityType == "" || entry.EntityID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "audit entity required")
	}

	oldVal, err := marshalValue(entry.OldValue)
	if err != nil {
		return err
	}
	newVal, err := marshalValue(entry.NewValue)
	if err != nil {
		return err
	}

	row := &models.AuditLog{
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		OldValue:   oldVal,
		NewValue:   newVal,
	}
	if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write audit entry")
	}
	return nil
}

func (s *service) ListByEntity(ctx context.Context, principal identity.Principal, entityType string, entityID uuid.UUID, params pagination.Params) (*Page, error) {
	if !principal.IsPrivileged() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "audit trail is restricted")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	entries, err := s.repo.ListByEntity(ctx, entityType, entityID, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit entries")
	}
	return buildPage(entries, limit), nil
}

func (s *service) ListByActor(ctx context.Context, principal identity.Principal, actorID uuid.UUID, params pagination.Params) (*Page, error) {
	if !principal.IsPrivileged() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "audit trail is restricted")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	entries, err := s.repo.ListByActor(ctx, actorID, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit entries")
	}
	return buildPage(entries, limit), nil
}

func buildPage(entries []models.AuditLog, limit int) *Page {
	page := &Page{Entries: entries}
	if len(entries) > limit {
		page.Entries = entries[:limit]
		last := page.Entries[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page
}

func marshalValue(value any) (datatypes.JSON, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode audit value")
	}
	return datatypes.JSON(raw), nil
}
