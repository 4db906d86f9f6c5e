// Package validate holds the pure input rules shared by every form: sanitizers
// run on each keystroke and validators run on change and on submit.
//
// A validator returns "" when the value is acceptable and a user-facing
// message otherwise. Validators never panic; malformed input is the failure
// they report.
package validate

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
)

// Validator checks an already-sanitized value.
type Validator func(string) string

// PasswordPolicy controls the password strength rule.
type PasswordPolicy struct {
	MinLength      int  `mapstructure:"min_length"`
	RequireUpper   bool `mapstructure:"require_upper"`
	RequireLower   bool `mapstructure:"require_lower"`
	RequireDigit   bool `mapstructure:"require_digit"`
	RequireSpecial bool `mapstructure:"require_special"`
}

// DefaultPasswordPolicy matches the register and add-user forms.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:    8,
		RequireUpper: true,
		RequireLower: true,
		RequireDigit: true,
	}
}

// TaxIDPolicy controls the tax-id rule.
type TaxIDPolicy struct {
	Checksum bool `mapstructure:"checksum"`
}

// RequiredText reports a missing text value.
func RequiredText(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return label + " จำเป็นต้องกรอก"
	}
	return ""
}

// MsgNotAccepted is shown until the terms checkbox is ticked.
const MsgNotAccepted = "กรุณายอมรับเงื่อนไขและบริการ"

// Accepted normalizes a checkbox value to "true" or "".
func Accepted(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "on", "1", "yes":
		return "true"
	}
	return ""
}

// RequiredAcceptance reports an unticked required checkbox.
func RequiredAcceptance(value string) string {
	if Accepted(value) == "" {
		return MsgNotAccepted
	}
	return ""
}

// RequiredChoice reports an empty multi-selection.
func RequiredChoice(label string, selected []string) string {
	if len(selected) == 0 {
		return label + " จำเป็นต้องเลือก"
	}
	return ""
}

// Password returns a validator enforcing p.
func Password(p PasswordPolicy) Validator {
	return func(value string) string {
		if p.MinLength > 0 && len([]rune(value)) < p.MinLength {
			return fmt.Sprintf("รหัสผ่านต้องมีอย่างน้อย %d ตัวอักษร", p.MinLength)
		}

		var upper, lower, digit, special bool
		for _, r := range value {
			switch {
			case unicode.IsUpper(r):
				upper = true
			case unicode.IsLower(r):
				lower = true
			case unicode.IsDigit(r):
				digit = true
			case unicode.IsPunct(r) || unicode.IsSymbol(r):
				special = true
			}
		}

		switch {
		case p.RequireUpper && !upper:
			return "รหัสผ่านต้องมีตัวอักษรภาษาอังกฤษพิมพ์ใหญ่อย่างน้อย 1 ตัว"
		case p.RequireLower && !lower:
			return "รหัสผ่านต้องมีตัวอักษรภาษาอังกฤษพิมพ์เล็กอย่างน้อย 1 ตัว"
		case p.RequireDigit && !digit:
			return "รหัสผ่านต้องมีตัวเลขอย่างน้อย 1 ตัว"
		case p.RequireSpecial && !special:
			return "รหัสผ่านต้องมีอักขระพิเศษอย่างน้อย 1 ตัว"
		}
		return ""
	}
}

// ValidateUsername checks length, leading letter and charset.
func ValidateUsername(value string) string {
	if n := len(value); n < 4 || n > usernameMaxLength {
		return fmt.Sprintf("ชื่อผู้ใช้ต้องมีความยาว 4-%d ตัวอักษร", usernameMaxLength)
	}
	first := rune(value[0])
	if !(first >= 'a' && first <= 'z') && !(first >= 'A' && first <= 'Z') {
		return "ชื่อผู้ใช้ต้องขึ้นต้นด้วยตัวอักษรภาษาอังกฤษ"
	}
	for _, r := range value {
		if !isUsernameRune(r) {
			return "ชื่อผู้ใช้ใช้ได้เฉพาะ a-z, A-Z, 0-9 และ . _ -"
		}
	}
	return ""
}

// ValidatePhone expects a 10 digit number starting with 0.
func ValidatePhone(value string) string {
	if len(value) != phoneLength || !allDigits(value) {
		return fmt.Sprintf("เบอร์โทรศัพท์ต้องเป็นตัวเลข %d หลัก", phoneLength)
	}
	if value[0] != '0' {
		return "เบอร์โทรศัพท์ต้องขึ้นต้นด้วย 0"
	}
	return ""
}

// TaxIDValidator expects a 13 digit number, checksum-verified when p.Checksum is set.
func TaxIDValidator(p TaxIDPolicy) Validator {
	return func(value string) string {
		if len(value) != taxIDLength || !allDigits(value) {
			return fmt.Sprintf("เลขประจำตัวผู้เสียภาษีต้องเป็นตัวเลข %d หลัก", taxIDLength)
		}
		if p.Checksum && !TaxIDChecksumOK(value) {
			return "เลขประจำตัวผู้เสียภาษีไม่ถูกต้อง"
		}
		return ""
	}
}

// TaxIDChecksumOK verifies the mod-11 check digit used by Thai national and
// tax identification numbers.
func TaxIDChecksumOK(value string) bool {
	if len(value) != taxIDLength || !allDigits(value) {
		return false
	}
	sum := 0
	for i := 0; i < taxIDLength-1; i++ {
		sum += int(value[i]-'0') * (taxIDLength - i)
	}
	check := (11 - sum%11) % 10
	return check == int(value[taxIDLength-1]-'0')
}

// ValidateEmail accepts a bare address, no display name.
func ValidateEmail(value string) string {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return "รูปแบบอีเมลไม่ถูกต้อง"
	}
	return ""
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
