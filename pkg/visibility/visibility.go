package visibility

import (
	"context"

	"github.com/google/uuid"

	"github.com/galleryve/galleryve-backend/pkg/enums"
	pkgerrors "github.com/galleryve/galleryve-backend/pkg/errors"
)

// Caller identifies the authenticated principal asking to read a record.
type Caller struct {
	ID     uuid.UUID
	Role   enums.Role
	TeamID *uuid.UUID
}

// Record carries the ownership metadata the resolver needs; it is
// deliberately detached from the stored row so resolution never mutates
// record state.
type Record struct {
	Type        enums.SubjectType
	ID          uuid.UUID
	CreatedByID uuid.UUID
	TeamID      *uuid.UUID
}

// GrantChecker reports whether an approved, unexpired access grant
// exists for the (target, user) tuple.
type GrantChecker interface {
	CheckAccess(ctx context.Context, targetType enums.SubjectType, targetID, userID uuid.UUID) (bool, error)
}

// GrantSource also enumerates the targets a user currently holds live
// grants on. List scopes use it to pull granted cross-team rows into a
// page and present them as caller-owned.
type GrantSource interface {
	GrantChecker
	ActiveTargetIDs(ctx context.Context, targetType enums.SubjectType, userID uuid.UUID) ([]uuid.UUID, error)
}

// Resolution is the resolver's self-contained output. EffectiveOwner is
// true when the caller either owns the record or holds an active grant,
// so downstream masking can treat the record as caller-owned without
// rewriting its CreatedByID.
type Resolution struct {
	Level          enums.MaskingLevel
	EffectiveOwner bool
}

// Resolve computes the masking level for one record read. Precedence is
// fixed and first-match-wins: privileged role, ownership, active grant,
// team membership. Callers outside all of those are denied outright —
// the access-request workflow exists to convert that denial into a
// masked read, so denial is an error, not a level.
func Resolve(ctx context.Context, record Record, caller Caller, grants GrantChecker) (Resolution, error) {
	if caller.Role == enums.RoleAdmin || caller.Role == enums.RoleMaster {
		return Resolution{Level: enums.MaskingLevelNone}, nil
	}

	if record.CreatedByID == caller.ID {
		return Resolution{Level: enums.MaskingLevelNone, EffectiveOwner: true}, nil
	}

	if grants != nil && record.Type.Grantable() {
		ok, err := grants.CheckAccess(ctx, record.Type, record.ID, caller.ID)
		if err != nil {
			return Resolution{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check access grant")
		}
		if ok {
			return Resolution{Level: enums.MaskingLevelNone, EffectiveOwner: true}, nil
		}
	}

	if sameTeam(record.TeamID, caller.TeamID) {
		if caller.Role == enums.RoleManager {
			return Resolution{Level: enums.MaskingLevelNone}, nil
		}
		return Resolution{Level: enums.MaskingLevelPartial}, nil
	}

	return Resolution{}, pkgerrors.New(pkgerrors.CodeForbidden, "no visibility into this record")
}

// sameTeam treats a record without a team as visible to every team:
// gallery-wide records (artists) have no boundary to cross.
func sameTeam(recordTeam, callerTeam *uuid.UUID) bool {
	if recordTeam == nil {
		return true
	}
	if callerTeam == nil {
		return false
	}
	return *recordTeam == *callerTeam
}
