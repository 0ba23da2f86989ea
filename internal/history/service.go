package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/galleryve/galleryve-backend/pkg/db/models"
	"github.com/galleryve/galleryve-backend/pkg/enums"
	pkgerrors "github.com/galleryve/galleryve-backend/pkg/errors"
	"github.com/galleryve/galleryve-backend/pkg/pagination"
)

// Fields that never produce history rows: identity, bookkeeping
// timestamps, ownership, and the workflow decision trail (the audit
// log already covers decisions).
var excludedFields = map[string]struct{}{
	"id":               {},
	"created_at":       {},
	"updated_at":       {},
	"deleted_at":       {},
	"created_by_id":    {},
	"team_id":          {},
	"status":           {},
	"approved_by_id":   {},
	"approved_at":      {},
	"rejection_reason": {},
}

// FieldChange is one field-level difference between two snapshots.
type FieldChange struct {
	Field    string
	OldValue *string
	NewValue *string
}

// Page is one page of history rows plus the cursor for the next one.
type Page struct {
	Rows       []models.ChangeHistory
	NextCursor string
}

// Service records field-level diffs on record edits. Read access to a
// subject's history follows the caller's visibility into the record
// itself; callers resolve that before listing.
type Service interface {
	RecordChanges(ctx context.Context, tx *gorm.DB, subjectType enums.SubjectType, subjectID, changedBy uuid.UUID, before, after any) (int, error)
	ListBySubject(ctx context.Context, subjectType enums.SubjectType, subjectID uuid.UUID, params pagination.Params) (*Page, error)
}

type service struct {
	repo Repository
}

// NewService builds the history service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("history repository required")
	}
	return &service{repo: repo}, nil
}

// RecordChanges diffs two snapshots of the same record and writes one
// row per changed field. Returns the number of rows written.
func (s *service) RecordChanges(ctx context.Context, tx *gorm.DB, subjectType enums.SubjectType, subjectID, changedBy uuid.UUID, before, after any) (int, error) {
	if !subjectType.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid history subject type")
	}
	if subjectID == uuid.Nil || changedBy == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "history subject and actor required")
	}

	changes, err := Diff(before, after)
	if err != nil {
		return 0, err
	}
	if len(changes) == 0 {
		return 0, nil
	}

	rows := make([]models.ChangeHistory, 0, len(changes))
	for _, change := range changes {
		rows = append(rows, models.ChangeHistory{
			SubjectType: subjectType,
			SubjectID:   subjectID,
			Field:       change.Field,
			OldValue:    change.OldValue,
			NewValue:    change.NewValue,
			ChangedByID: changedBy,
		})
	}
	if err := s.repo.WithTx(tx).CreateBatch(ctx, rows); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write change history")
	}
	return len(rows), nil
}

func (s *service) ListBySubject(ctx context.Context, subjectType enums.SubjectType, subjectID uuid.UUID, params pagination.Params) (*Page, error) {
	if !subjectType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid history subject type")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListBySubject(ctx, subjectType, subjectID, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list change history")
	}

	page := &Page{Rows: rows}
	if len(rows) > limit {
		page.Rows = rows[:limit]
		last := page.Rows[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

// Diff compares two snapshots of the same record shape and returns the
// changed fields in stable order. Snapshots are flattened through
// their JSON encoding, so field names follow the json tags.
func Diff(before, after any) ([]FieldChange, error) {
	oldFields, err := flatten(before)
	if err != nil {
		return nil, err
	}
	newFields, err := flatten(after)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(newFields))
	seen := make(map[string]struct{}, len(newFields))
	for name := range newFields {
		names = append(names, name)
		seen[name] = struct{}{}
	}
	for name := range oldFields {
		if _, ok := seen[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var changes []FieldChange
	for _, name := range names {
		if _, skip := excludedFields[name]; skip {
			continue
		}
		oldVal, newVal := oldFields[name], newFields[name]
		if equalValue(oldVal, newVal) {
			continue
		}
		changes = append(changes, FieldChange{Field: name, OldValue: oldVal, NewValue: newVal})
	}
	return changes, nil
}

func flatten(value any) (map[string]*string, error) {
	if value == nil {
		return map[string]*string{}, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode history snapshot")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode history snapshot")
	}

	out := make(map[string]*string, len(fields))
	for name, field := range fields {
		out[name] = renderValue(field)
	}
	return out, nil
}

// renderValue turns a JSON field into the text stored in the history
// row. JSON null maps to a nil pointer, strings drop their quotes, and
// everything else keeps its JSON text.
func renderValue(raw json.RawMessage) *string {
	text := string(raw)
	if text == "" || text == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(text); err == nil {
		return &unquoted
	}
	return &text
}

func equalValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
