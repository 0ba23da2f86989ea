package enums

import "fmt"

// GrantStatus tracks the lifecycle of an access request. APPROVED and
// REJECTED are terminal; expiry is derived from the grant's expires_at,
// never from a status change.
type GrantStatus string

const (
	GrantStatusPending  GrantStatus = "PENDING"
	GrantStatusApproved GrantStatus = "APPROVED"
	GrantStatusRejected GrantStatus = "REJECTED"
)

var validGrantStatuses = []GrantStatus{
	GrantStatusPending,
	GrantStatusApproved,
	GrantStatusRejected,
}

// String implements fmt.Stringer.
func (s GrantStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known GrantStatus.
func (s GrantStatus) IsValid() bool {
	for _, candidate := range validGrantStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseGrantStatus converts raw input into a GrantStatus.
func ParseGrantStatus(value string) (GrantStatus, error) {
	for _, candidate := range validGrantStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid grant status %q", value)
}
