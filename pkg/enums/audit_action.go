package enums

import "fmt"

// AuditAction labels an entry in the audit trail.
type AuditAction string

const (
	AuditActionCreate        AuditAction = "CREATE"
	AuditActionUpdate        AuditAction = "UPDATE"
	AuditActionDelete        AuditAction = "DELETE"
	AuditActionView          AuditAction = "VIEW"
	AuditActionApprove       AuditAction = "APPROVE"
	AuditActionReject        AuditAction = "REJECT"
	AuditActionAccessRequest AuditAction = "ACCESS_REQUEST"
)

var validAuditActions = []AuditAction{
	AuditActionCreate,
	AuditActionUpdate,
	AuditActionDelete,
	AuditActionView,
	AuditActionApprove,
	AuditActionReject,
	AuditActionAccessRequest,
}

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditAction.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
