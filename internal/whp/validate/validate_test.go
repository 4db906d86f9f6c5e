package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sanitizerInputs = []string{
	"",
	"   ",
	"081-234-5678",
	"０８１２３４５６７８",
	"๐๘๑๒๓๔๕๖๗๘",
	"1-1017-00230-70-8 extra 99999",
	"john.doe_99-x",
	"ＪＯＨＮ　doe!!",
	"ชื่อ user 123",
	"\x00\xff broken utf8 \xc3",
	"averyveryveryverylongusername_with_more",
}

func TestSanitizersAreIdempotent(t *testing.T) {
	rules := NewRules(DefaultPolicies())
	for _, name := range rules.SanitizerNames() {
		s, ok := rules.Sanitizer(name)
		require.True(t, ok, name)
		for _, in := range sanitizerInputs {
			once := s(in)
			assert.Equal(t, once, s(once), "sanitizer %q not idempotent for %q", name, in)
		}
	}
}

func TestDigitsFoldsWideAndThaiDigits(t *testing.T) {
	assert.Equal(t, "0812345678", Digits("081-234-5678"))
	assert.Equal(t, "0812345678", Digits("０８１２３４５６７８"))
	assert.Equal(t, "0812345678", Digits("๐๘๑๒๓๔๕๖๗๘"))
	assert.Equal(t, "", Digits("abc"))
}

func TestLengthCappedSanitizers(t *testing.T) {
	assert.Equal(t, "0812345678", Phone("08123456789999"))
	assert.Equal(t, "1101700230708", TaxID("1-1017-00230-70-8 extra 99999"))
	assert.Equal(t, "john.doe_99-x", Username("john.doe_99-x"))
	assert.Equal(t, "JOHNdoe", Username("ＪＯＨＮ　doe!!"))
	assert.Len(t, Username("averyveryveryverylongusername_with_more"), 20)
}

func TestRequired(t *testing.T) {
	assert.NotEmpty(t, RequiredText("ชื่อ", ""))
	assert.NotEmpty(t, RequiredText("ชื่อ", "   \t"))
	assert.Empty(t, RequiredText("ชื่อ", " สมชาย "))
	assert.NotEmpty(t, RequiredChoice("กิจกรรม", nil))
	assert.NotEmpty(t, RequiredChoice("กิจกรรม", []string{}))
	assert.Empty(t, RequiredChoice("กิจกรรม", []string{"a"}))
}

func TestPassword(t *testing.T) {
	check := Password(DefaultPasswordPolicy())
	cases := map[string]bool{
		"":           false,
		"Short1":     false,
		"alllower12": false,
		"ALLUPPER12": false,
		"NoDigitsHr": false,
		"Valid1234":  true,
		"ถูกต้องAa1x": true,
	}
	for in, ok := range cases {
		if ok {
			assert.Empty(t, check(in), in)
		} else {
			assert.NotEmpty(t, check(in), in)
		}
	}

	strict := Password(PasswordPolicy{MinLength: 4, RequireSpecial: true})
	assert.NotEmpty(t, strict("abcd"))
	assert.Empty(t, strict("ab!d"))
}

func TestUsername(t *testing.T) {
	assert.Empty(t, ValidateUsername("somchai.j"))
	assert.NotEmpty(t, ValidateUsername("abc"))
	assert.NotEmpty(t, ValidateUsername("1abc"))
	assert.NotEmpty(t, ValidateUsername("abc def"))
	assert.NotEmpty(t, ValidateUsername("abcdefghijklmnopqrstu"))
}

func TestPhone(t *testing.T) {
	assert.Empty(t, ValidatePhone("0812345678"))
	assert.NotEmpty(t, ValidatePhone("081234567"))
	assert.NotEmpty(t, ValidatePhone("1812345678"))
	assert.NotEmpty(t, ValidatePhone("08123x5678"))
}

func TestTaxID(t *testing.T) {
	loose := TaxIDValidator(TaxIDPolicy{})
	strict := TaxIDValidator(TaxIDPolicy{Checksum: true})

	assert.Empty(t, loose("1101700230700"))
	assert.NotEmpty(t, loose("110170023070"))
	assert.NotEmpty(t, strict("1101700230700"))

	for _, id := range []string{"1101700230708", "3100600123450", "1234567890121"} {
		assert.True(t, TaxIDChecksumOK(id), id)
		assert.Empty(t, strict(id), id)
	}
}

func TestEmail(t *testing.T) {
	assert.Empty(t, ValidateEmail("hr@example.co.th"))
	assert.NotEmpty(t, ValidateEmail("not-an-email"))
	assert.NotEmpty(t, ValidateEmail("HR <hr@example.co.th>"))
}
