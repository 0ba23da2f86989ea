package enums

import "fmt"

// MaskingLevel is the redaction tier computed per read per caller. It is
// derived by the visibility resolver and never stored.
type MaskingLevel string

const (
	MaskingLevelNone    MaskingLevel = "NONE"
	MaskingLevelPartial MaskingLevel = "PARTIAL"
	MaskingLevelFull    MaskingLevel = "FULL"
)

var validMaskingLevels = []MaskingLevel{
	MaskingLevelNone,
	MaskingLevelPartial,
	MaskingLevelFull,
}

// String implements fmt.Stringer.
func (m MaskingLevel) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MaskingLevel.
func (m MaskingLevel) IsValid() bool {
	for _, candidate := range validMaskingLevels {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMaskingLevel converts raw input into a MaskingLevel.
func ParseMaskingLevel(value string) (MaskingLevel, error) {
	for _, candidate := range validMaskingLevels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid masking level %q", value)
}
