package identity

import (
	"github.com/google/uuid"

	"github.com/galleryve/galleryve-backend/pkg/enums"
)

// Principal is the authenticated identity attached to every core call.
// It is supplied by the session layer; the core trusts it and performs
// no credential verification of its own.
type Principal struct {
	ID       uuid.UUID
	Role     enums.Role
	TeamID   *uuid.UUID
	IsActive bool
}

// IsPrivileged reports whether the principal holds a role that may see
// records unmasked regardless of team.
func (p Principal) IsPrivileged() bool {
	return p.Role == enums.RoleAdmin || p.Role == enums.RoleMaster
}

// IsMaster reports whether the principal is the superuser sentinel.
func (p Principal) IsMaster() bool {
	return p.Role == enums.RoleMaster
}
