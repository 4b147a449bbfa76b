// Package format holds the value formatters a field schema can carry. A
// formatter is resolved once when a schema is authored (see Registry) so
// renderers never branch on field names such as "phone" or "callout".
package format

import (
	"fmt"
	"strconv"
	"strings"
)

// Built-in formatter identifiers.
const (
	NamePhone   = "phone"
	NameCallout = "callout"
	NameStatus  = "status"
	NameBoolean = "boolean"
)

// Formatter normalises user input and renders stored values for display.
type Formatter interface {
	Name() string
	// Input rewrites raw keystrokes into the value shown in the control.
	Input(raw string) string
	// Display renders a stored value for read-only contexts such as tables.
	Display(value any) string
}

// Phone formats digit sequences as "D (DDD) DDD-DDDD".
type Phone struct{}

func (Phone) Name() string { return NamePhone }

func (Phone) Input(raw string) string { return FormatPhone(raw) }

func (Phone) Display(value any) string {
	if value == nil {
		return ""
	}
	return FormatPhone(fmt.Sprint(value))
}

// phoneDigits is the maximum number of digits kept by FormatPhone.
const phoneDigits = 11

// FormatPhone strips non-digits, keeps at most eleven and groups them as the
// user types: 1 digit, then "(DDD", then ") DDD", then "-DDDD".
func FormatPhone(raw string) string {
	digits := Digits(raw)
	if len(digits) > phoneDigits {
		digits = digits[:phoneDigits]
	}

	switch n := len(digits); {
	case n == 0:
		return ""
	case n == 1:
		return digits
	case n <= 4:
		return digits[:1] + " (" + digits[1:]
	case n <= 7:
		return digits[:1] + " (" + digits[1:4] + ") " + digits[4:]
	default:
		return digits[:1] + " (" + digits[1:4] + ") " + digits[4:7] + "-" + digits[7:]
	}
}

// Digits returns only the ASCII digits of s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// StandardCallout is the callout fee that denotes a regular visit.
const StandardCallout = 50.0

// Callout renders numeric callout fees as "Standard" or "Emergency".
type Callout struct{}

func (Callout) Name() string { return NameCallout }

func (Callout) Input(raw string) string { return strings.TrimSpace(raw) }

func (Callout) Display(value any) string {
	if amount, ok := toFloat(value); ok && amount == StandardCallout {
		return "Standard"
	}
	return "Emergency"
}

// Status renders booleans as "Active"/"Inactive".
type Status struct{}

func (Status) Name() string { return NameStatus }

func (Status) Input(raw string) string { return strings.TrimSpace(raw) }

func (Status) Display(value any) string {
	if Truthy(value) {
		return "Active"
	}
	return "Inactive"
}

// Boolean renders booleans as "True"/"False".
type Boolean struct{}

func (Boolean) Name() string { return NameBoolean }

func (Boolean) Input(raw string) string { return strings.TrimSpace(raw) }

func (Boolean) Display(value any) string {
	if Truthy(value) {
		return "True"
	}
	return "False"
}

// Truthy interprets common wire representations of booleans.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "on", "yes":
			return true
		}
		return false
	default:
		if f, ok := toFloat(v); ok {
			return f != 0
		}
		return false
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	case fmt.Stringer:
		f, err := strconv.ParseFloat(v.String(), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
