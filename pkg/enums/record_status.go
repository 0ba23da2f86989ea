package enums

import "fmt"

// RecordStatus is the approval lifecycle shared by customer, transaction,
// and artist records.
type RecordStatus string

const (
	RecordStatusDraft    RecordStatus = "DRAFT"
	RecordStatusPending  RecordStatus = "PENDING"
	RecordStatusApproved RecordStatus = "APPROVED"
	RecordStatusRejected RecordStatus = "REJECTED"
)

var validRecordStatuses = []RecordStatus{
	RecordStatusDraft,
	RecordStatusPending,
	RecordStatusApproved,
	RecordStatusRejected,
}

// String implements fmt.Stringer.
func (s RecordStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known RecordStatus.
func (s RecordStatus) IsValid() bool {
	for _, candidate := range validRecordStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseRecordStatus converts raw input into a RecordStatus.
func ParseRecordStatus(value string) (RecordStatus, error) {
	for _, candidate := range validRecordStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid record status %q", value)
}
