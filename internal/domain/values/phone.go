package values

import (
	"fmt"
	"regexp"
	"strings"
)

// PhoneNumber is a dialable number normalized to E.164.
type PhoneNumber struct {
	number string
}

var (
	e164Regex    = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	usPhoneRegex = regexp.MustCompile(`^(?:\+?1[-.\s]?)?\(?([0-9]{3})\)?[-.\s]?([0-9]{3})[-.\s]?([0-9]{4})$`)
)

// NewPhoneNumber normalizes common US formats and E.164 input.
func NewPhoneNumber(number string) (PhoneNumber, error) {
	if strings.TrimSpace(number) == "" {
		return PhoneNumber{}, PhoneValidationError{Number: number, Reason: "empty"}
	}

	if m := usPhoneRegex.FindStringSubmatch(strings.TrimSpace(number)); len(m) == 4 {
		return PhoneNumber{number: "+1" + m[1] + m[2] + m[3]}, nil
	}

	cleaned := cleanPhoneNumber(number)
	if e164Regex.MatchString(cleaned) {
		return PhoneNumber{number: cleaned}, nil
	}

	return PhoneNumber{}, PhoneValidationError{Number: number, Reason: "not E.164 or a US number"}
}

func (p PhoneNumber) String() string {
	return p.number
}

// IsNANP reports a +1 (US/Canada) number.
func (p PhoneNumber) IsNANP() bool {
	return strings.HasPrefix(p.number, "+1") && len(p.number) == 12
}

// AreaCode returns the three-digit NPA of a NANP number.
func (p PhoneNumber) AreaCode() string {
	if !p.IsNANP() {
		return ""
	}
	return p.number[2:5]
}

// AreaCodePrefix returns the "+1NPA" prefix used to group numbers by area
// code, or "" when the number is not NANP.
func (p PhoneNumber) AreaCodePrefix() string {
	if ac := p.AreaCode(); ac != "" {
		return "+1" + ac
	}
	return ""
}

// AreaCodePrefix parses raw and returns its "+1NPA" prefix, or "" when raw is
// not a NANP number.
func AreaCodePrefix(raw string) string {
	p, err := NewPhoneNumber(raw)
	if err != nil {
		return ""
	}
	return p.AreaCodePrefix()
}

func cleanPhoneNumber(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneValidationError represents validation errors for phone numbers
type PhoneValidationError struct {
	Number string
	Reason string
}

func (e PhoneValidationError) Error() string {
	return fmt.Sprintf("invalid phone number '%s': %s", e.Number, e.Reason)
}
