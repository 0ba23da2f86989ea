package masking

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/galleryve/galleryve-backend/pkg/enums"
)

// Fixed sentinels returned for FULL masking. They are stable so that
// masking an already-masked payload is a no-op.
const (
	FullNameSentinel   = "***"
	FullEmailSentinel  = "***@***.***"
	FullPhoneSentinel  = "***-****-****"
	FullAmountSentinel = "***"
	FullTextSentinel   = "***"
)

const partialTextKeep = 3
const partialTextMaxStars = 10

// Options tunes rendering of masked values.
type Options struct {
	// CurrencySuffix is appended to amount strings (e.g. "KRW").
	CurrencySuffix string
}

// Maskable is implemented by response DTOs that carry sensitive subject
// fields. ApplyMask must redact in place, recursing into nested
// maskable structures, and must leave payload shape untouched so the
// transport never needs level-aware logic.
type Maskable interface {
	ApplyMask(level enums.MaskingLevel, opts Options)
}

// Apply redacts the payload for the given level. NONE is the identity.
func Apply(payload Maskable, level enums.MaskingLevel, opts Options) {
	if payload == nil || level == enums.MaskingLevelNone {
		return
	}
	payload.ApplyMask(level, opts)
}

// Name keeps the first and last character at PARTIAL; two characters or
// fewer are fully starred.
func Name(value string, level enums.MaskingLevel) string {
	switch level {
	case enums.MaskingLevelNone:
		return value
	case enums.MaskingLevelFull:
		return FullNameSentinel
	}

	runes := []rune(value)
	if len(runes) == 0 {
		return value
	}
	if len(runes) <= 2 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-1])
}

// Email keeps the first local-part character and the full domain at
// PARTIAL. Malformed addresses degrade to the full sentinel rather than
// leaking.
func Email(value string, level enums.MaskingLevel) string {
	switch level {
	case enums.MaskingLevelNone:
		return value
	case enums.MaskingLevelFull:
		return FullEmailSentinel
	}

	at := strings.Index(value, "@")
	if at <= 0 {
		return FullEmailSentinel
	}
	local := []rune(value[:at])
	return string(local[0]) + "***@" + value[at+1:]
}

// Phone keeps the dialing prefix and the last block at PARTIAL, starring
// the middle block. 11-digit numbers split 3-4-4, 10-digit numbers
// split 2-4-4; anything else falls back to the full sentinel.
func Phone(value string, level enums.MaskingLevel) string {
	switch level {
	case enums.MaskingLevelNone:
		return value
	case enums.MaskingLevelFull:
		return FullPhoneSentinel
	}

	digits := digitsOnly(value)
	switch len(digits) {
	case 11:
		return digits[:3] + "-****-" + digits[7:]
	case 10:
		return digits[:2] + "-****-" + digits[6:]
	default:
		return FullPhoneSentinel
	}
}

// Amount renders a grouped number plus the currency suffix. PARTIAL
// keeps the most significant group and stars the rest; FULL is a fixed
// sentinel independent of magnitude.
func Amount(value decimal.Decimal, level enums.MaskingLevel, opts Options) string {
	suffix := strings.TrimSpace(opts.CurrencySuffix)

	switch level {
	case enums.MaskingLevelFull:
		return withSuffix(FullAmountSentinel, suffix)
	case enums.MaskingLevelNone:
		return withSuffix(groupDigits(value), suffix)
	}

	groups := strings.Split(groupDigits(value), ",")
	for i := 1; i < len(groups); i++ {
		groups[i] = strings.Repeat("*", len(groups[i]))
	}
	return withSuffix(strings.Join(groups, ","), suffix)
}

// FreeText keeps the leading characters at PARTIAL and stars up to ten
// more; used for addresses, memos, and contract terms.
func FreeText(value string, level enums.MaskingLevel) string {
	switch level {
	case enums.MaskingLevelNone:
		return value
	case enums.MaskingLevelFull:
		return FullTextSentinel
	}

	runes := []rune(value)
	if len(runes) <= partialTextKeep {
		return value
	}
	stars := len(runes) - partialTextKeep
	if stars > partialTextMaxStars {
		stars = partialTextMaxStars
	}
	return string(runes[:partialTextKeep]) + strings.Repeat("*", stars)
}

// NamePtr, EmailPtr, PhonePtr, and FreeTextPtr redact optional fields in
// place, preserving nil so the payload shape is stable.
func NamePtr(value *string, level enums.MaskingLevel) {
	if value != nil {
		*value = Name(*value, level)
	}
}

func EmailPtr(value *string, level enums.MaskingLevel) {
	if value != nil {
		*value = Email(*value, level)
	}
}

func PhonePtr(value *string, level enums.MaskingLevel) {
	if value != nil {
		*value = Phone(*value, level)
	}
}

func FreeTextPtr(value *string, level enums.MaskingLevel) {
	if value != nil {
		*value = FreeText(*value, level)
	}
}

var amountPrinter = message.NewPrinter(language.English)

func groupDigits(value decimal.Decimal) string {
	whole := value.Truncate(0)
	formatted := amountPrinter.Sprintf("%d", whole.IntPart())
	if frac := value.Sub(whole); !frac.IsZero() {
		parts := strings.SplitN(value.Abs().StringFixed(2), ".", 2)
		if len(parts) == 2 {
			formatted += "." + parts[1]
		}
	}
	return formatted
}

func withSuffix(value, suffix string) string {
	if suffix == "" {
		return value
	}
	return value + " " + suffix
}

func digitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
