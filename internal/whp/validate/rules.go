package validate

import "sort"

// Rule names referenced from form schemas.
const (
	RuleDigits   = "digits"
	RulePhone    = "phone"
	RuleTaxID    = "tax_id"
	RuleUsername = "username"
	RulePassword = "password"
	RuleEmail    = "email"
)

// Policies carries the caller-owned thresholds of the configurable rules.
type Policies struct {
	Password PasswordPolicy `mapstructure:"password"`
	TaxID    TaxIDPolicy    `mapstructure:"tax_id"`
}

// DefaultPolicies returns the policies used when configuration is silent.
func DefaultPolicies() Policies {
	return Policies{
		Password: DefaultPasswordPolicy(),
		TaxID:    TaxIDPolicy{Checksum: false},
	}
}

// Rules is a named registry of sanitizers and validators.
type Rules struct {
	sanitizers map[string]Sanitizer
	validators map[string]Validator
}

// NewRules builds the registry for the given policies.
func NewRules(p Policies) *Rules {
	return &Rules{
		sanitizers: map[string]Sanitizer{
			RuleDigits:   Digits,
			RulePhone:    Phone,
			RuleTaxID:    TaxID,
			RuleUsername: Username,
		},
		validators: map[string]Validator{
			RulePassword: Password(p.Password),
			RuleUsername: ValidateUsername,
			RulePhone:    ValidatePhone,
			RuleTaxID:    TaxIDValidator(p.TaxID),
			RuleEmail:    ValidateEmail,
		},
	}
}

// Sanitizer returns the named sanitizer.
func (r *Rules) Sanitizer(name string) (Sanitizer, bool) {
	s, ok := r.sanitizers[name]
	return s, ok
}

// Validator returns the named validator.
func (r *Rules) Validator(name string) (Validator, bool) {
	v, ok := r.validators[name]
	return v, ok
}

// SanitizerNames lists registered sanitizer names in order.
func (r *Rules) SanitizerNames() []string {
	names := make([]string, 0, len(r.sanitizers))
	for name := range r.sanitizers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
