package plate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidRules is wrapped by every error NewValidator returns.
var ErrInvalidRules = errors.New("invalid plate rules")

// StrictGrammars are the regional plate layouts accepted by the strict
// profile, in match order.
var StrictGrammars = []string{
	`^[A-Z]{2,3}[0-9]{3,4}$`,  // ABC123, AB1234
	`^[0-9][A-Z]{3}[0-9]{3}$`, // 1ABC234
	`^[A-Z][0-9]{2}[A-Z]{3}$`, // A12BCD
	`^[A-Z]{3}[0-9]{2}[A-Z]$`, // ABC12D
	`^[0-9]{3}[A-Z]{3}$`,      // 123ABC
}

// PermissiveGrammars are the looser shape patterns of the permissive
// profile.
var PermissiveGrammars = []string{
	`^[A-Z0-9]{2,8}$`,
	`^[A-Z]{1,3}[0-9]{1,4}[A-Z]?$`,
	`^[0-9]{1,3}[A-Z]{1,3}[0-9]{1,4}$`,
}

// Rules configure a Validator.
type Rules struct {
	// MinLength and MaxLength bound the normalized text length, inclusive.
	MinLength int `json:"min_length"`
	MaxLength int `json:"max_length"`

	// RequireLetter and RequireDigit demand at least one character of each
	// class.
	RequireLetter bool `json:"require_letter"`
	RequireDigit  bool `json:"require_digit"`

	// Grammars is the ordered list of regular expressions; the normalized
	// text must match at least one.
	Grammars []string `json:"grammars"`
}

// StrictRules returns the recommended rules: 5-8 characters, at least one
// letter and one digit, and a match against StrictGrammars.
func StrictRules() Rules {
	return Rules{
		MinLength:     5,
		MaxLength:     8,
		RequireLetter: true,
		RequireDigit:  true,
		Grammars:      append([]string(nil), StrictGrammars...),
	}
}

// PermissiveRules returns rules accepting any 4-8 character alphanumeric
// string that matches PermissiveGrammars.
func PermissiveRules() Rules {
	return Rules{
		MinLength: 4,
		MaxLength: 8,
		Grammars:  append([]string(nil), PermissiveGrammars...),
	}
}

// Validation is the outcome of validating one raw string.
type Validation struct {
	// Valid reports whether the text passed every rule.
	Valid bool `json:"valid"`

	// NormalizedText is the uppercase A-Z0-9 form of the input.
	NormalizedText string `json:"normalized_text"`

	// Grammar is the first grammar that matched, empty when none did.
	Grammar string `json:"grammar,omitempty"`

	// Reason names the failed rule when Valid is false.
	Reason string `json:"reason,omitempty"`
}

// Validator checks normalized plate text against a compiled set of Rules.
// It is immutable after construction and safe for concurrent use.
type Validator struct {
	rules    Rules
	grammars []*regexp.Regexp
}

// NewValidator compiles rules into a Validator.
//
// # Errors
//
// Returns an error wrapping ErrInvalidRules when the length bound is not
// positive or inverted, the grammar list is empty, or a grammar is empty
// or does not compile.
func NewValidator(rules Rules) (*Validator, error) {
	if rules.MinLength < 1 {
		return nil, fmt.Errorf("%w: minimum length must be at least 1, got %d", ErrInvalidRules, rules.MinLength)
	}
	if rules.MaxLength < rules.MinLength {
		return nil, fmt.Errorf("%w: maximum length %d below minimum %d", ErrInvalidRules, rules.MaxLength, rules.MinLength)
	}
	if len(rules.Grammars) == 0 {
		return nil, fmt.Errorf("%w: at least one grammar is required", ErrInvalidRules)
	}

	grammars := make([]*regexp.Regexp, 0, len(rules.Grammars))
	for i, pattern := range rules.Grammars {
		if strings.TrimSpace(pattern) == "" {
			return nil, fmt.Errorf("%w: grammar %d is empty", ErrInvalidRules, i)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: grammar %d %q: %v", ErrInvalidRules, i, pattern, err)
		}
		grammars = append(grammars, re)
	}

	rules.Grammars = append([]string(nil), rules.Grammars...)
	return &Validator{rules: rules, grammars: grammars}, nil
}

// Rules returns a copy of the validator's rules.
func (v *Validator) Rules() Rules {
	r := v.rules
	r.Grammars = append([]string(nil), v.rules.Grammars...)
	return r
}

// Normalize uppercases s and drops every character outside A-Z and 0-9.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		if isPlateChar(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate normalizes raw and checks it against the rules.
//
// Only the normalized text is examined, so Validate(Normalize(s)) equals
// Validate(s) for every s.
func (v *Validator) Validate(raw string) Validation {
	text := Normalize(raw)
	result := Validation{NormalizedText: text}

	n := len(text)
	if n < v.rules.MinLength || n > v.rules.MaxLength {
		result.Reason = fmt.Sprintf("length %d outside [%d, %d]", n, v.rules.MinLength, v.rules.MaxLength)
		return result
	}

	var letters, digits int
	for _, r := range text {
		switch {
		case r >= 'A' && r <= 'Z':
			letters++
		case r >= '0' && r <= '9':
			digits++
		default:
			// Unreachable after Normalize
			result.Reason = fmt.Sprintf("character %q outside A-Z0-9", r)
			return result
		}
	}
	if v.rules.RequireLetter && letters == 0 {
		result.Reason = "no letter"
		return result
	}
	if v.rules.RequireDigit && digits == 0 {
		result.Reason = "no digit"
		return result
	}

	for i, re := range v.grammars {
		if re.MatchString(text) {
			result.Valid = true
			result.Grammar = v.rules.Grammars[i]
			return result
		}
	}

	result.Reason = "no grammar matched"
	return result
}

func isPlateChar(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
