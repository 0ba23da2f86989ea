package enums

import "fmt"

// SubjectType tags which workflow-bearing record a grant, audit entry, or
// history row points at.
type SubjectType string

const (
	SubjectTypeCustomer    SubjectType = "CUSTOMER"
	SubjectTypeTransaction SubjectType = "TRANSACTION"
	SubjectTypeArtist      SubjectType = "ARTIST"
)

var validSubjectTypes = []SubjectType{
	SubjectTypeCustomer,
	SubjectTypeTransaction,
	SubjectTypeArtist,
}

// String implements fmt.Stringer.
func (s SubjectType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SubjectType.
func (s SubjectType) IsValid() bool {
	for _, candidate := range validSubjectTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// Grantable reports whether access requests may target this subject.
// Artists have no team-scoped contact data to unlock.
func (s SubjectType) Grantable() bool {
	return s == SubjectTypeCustomer || s == SubjectTypeTransaction
}

// ParseSubjectType converts raw input into a SubjectType.
func ParseSubjectType(value string) (SubjectType, error) {
	for _, candidate := range validSubjectTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subject type %q", value)
}
