package enums

import "fmt"

// Role represents a principal's system-wide role.
type Role string

const (
	// RoleMaster is the superuser sentinel. It bypasses permission checks
	// and is excluded from ordinary team rosters.
	RoleMaster  Role = "MASTER"
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleStaff   Role = "STAFF"
)

var validRoles = []Role{
	RoleMaster,
	RoleAdmin,
	RoleManager,
	RoleStaff,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
