package masking

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/galleryve/galleryve-backend/pkg/enums"
)

func TestNamePartial(t *testing.T) {
	assert.Equal(t, "J***e", Name("Janie", enums.MaskingLevelPartial))
	assert.Equal(t, "**", Name("Jo", enums.MaskingLevelPartial))
	assert.Equal(t, "*", Name("J", enums.MaskingLevelPartial))
	assert.Equal(t, "김*수", Name("김민수", enums.MaskingLevelPartial))
}

func TestNameNoneIsIdentity(t *testing.T) {
	assert.Equal(t, "Janie Doe", Name("Janie Doe", enums.MaskingLevelNone))
}

func TestNameFullIsFixedSentinel(t *testing.T) {
	assert.Equal(t, FullNameSentinel, Name("Janie Doe", enums.MaskingLevelFull))
	// masking an already-masked value yields the same sentinel
	assert.Equal(t, FullNameSentinel, Name(FullNameSentinel, enums.MaskingLevelFull))
}

func TestEmail(t *testing.T) {
	assert.Equal(t, "j***@example.com", Email("janie@example.com", enums.MaskingLevelPartial))
	assert.Equal(t, FullEmailSentinel, Email("janie@example.com", enums.MaskingLevelFull))
	assert.Equal(t, "janie@example.com", Email("janie@example.com", enums.MaskingLevelNone))
	assert.Equal(t, FullEmailSentinel, Email("not-an-email", enums.MaskingLevelPartial))
}

func TestPhoneFormatAware(t *testing.T) {
	assert.Equal(t, "010-****-5678", Phone("010-1234-5678", enums.MaskingLevelPartial))
	assert.Equal(t, "02-****-5678", Phone("02-1234-5678", enums.MaskingLevelPartial))
	assert.Equal(t, FullPhoneSentinel, Phone("123", enums.MaskingLevelPartial))
	assert.Equal(t, FullPhoneSentinel, Phone("010-1234-5678", enums.MaskingLevelFull))
}

func TestAmount(t *testing.T) {
	opts := Options{CurrencySuffix: "KRW"}
	amount := decimal.NewFromInt(12345678)

	assert.Equal(t, "12,345,678 KRW", Amount(amount, enums.MaskingLevelNone, opts))
	assert.Equal(t, "12,***,*** KRW", Amount(amount, enums.MaskingLevelPartial, opts))
	assert.Equal(t, "*** KRW", Amount(amount, enums.MaskingLevelFull, opts))
}

func TestAmountSmallValueHasNoGroupsToStar(t *testing.T) {
	opts := Options{CurrencySuffix: "KRW"}
	assert.Equal(t, "950 KRW", Amount(decimal.NewFromInt(950), enums.MaskingLevelPartial, opts))
}

func TestAmountNoSuffix(t *testing.T) {
	assert.Equal(t, "1,000", Amount(decimal.NewFromInt(1000), enums.MaskingLevelNone, Options{}))
}

func TestFreeText(t *testing.T) {
	assert.Equal(t, "Seo**", FreeText("Seoul", enums.MaskingLevelPartial))
	assert.Equal(t, "123**********", FreeText("123 Gangnam-daero, Gangnam-gu, Seoul", enums.MaskingLevelPartial))
	assert.Equal(t, "So", FreeText("So", enums.MaskingLevelPartial))
	assert.Equal(t, FullTextSentinel, FreeText("anything at all", enums.MaskingLevelFull))
}

func TestFullMaskingIsIdempotent(t *testing.T) {
	opts := Options{CurrencySuffix: "KRW"}

	name := Name("Janie Doe", enums.MaskingLevelFull)
	email := Email("janie@example.com", enums.MaskingLevelFull)
	phone := Phone("010-1234-5678", enums.MaskingLevelFull)
	text := FreeText("contract terms", enums.MaskingLevelFull)

	assert.Equal(t, name, Name(name, enums.MaskingLevelFull))
	assert.Equal(t, email, Email(email, enums.MaskingLevelFull))
	assert.Equal(t, phone, Phone(phone, enums.MaskingLevelFull))
	assert.Equal(t, text, FreeText(text, enums.MaskingLevelFull))
	assert.Equal(t, "*** KRW", Amount(decimal.Zero, enums.MaskingLevelFull, opts))
}

func TestPtrHelpersPreserveNil(t *testing.T) {
	var email *string
	EmailPtr(email, enums.MaskingLevelFull)
	assert.Nil(t, email)

	value := "janie@example.com"
	EmailPtr(&value, enums.MaskingLevelPartial)
	assert.Equal(t, "j***@example.com", value)
}
