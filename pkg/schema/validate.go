package schema

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError reports a schema invariant violation for one field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return "schema: " + e.Reason
	}
	return fmt.Sprintf("schema: field %q: %s", e.Field, e.Reason)
}

// Validate checks the invariants of a single field.
func (f Field) Validate() error {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return &FieldError{Reason: "name is required"}
	}
	switch f.Kind {
	case ElementInput, "":
	case ElementSelect:
		if len(f.Choices) == 0 && f.Lookup == "" {
			return &FieldError{Field: name, Reason: "select requires choices or a lookup"}
		}
	default:
		return &FieldError{Field: name, Reason: "unknown element kind " + string(f.Kind)}
	}
	if f.InputType == InputFile && (f.MinLength != nil || f.MaxLength != nil) {
		return &FieldError{Field: name, Reason: "file inputs cannot declare length limits"}
	}
	if f.MinLength != nil && *f.MinLength < 0 {
		return &FieldError{Field: name, Reason: "minLength must not be negative"}
	}
	if f.MinLength != nil && f.MaxLength != nil && *f.MinLength > *f.MaxLength {
		return &FieldError{Field: name, Reason: "minLength exceeds maxLength"}
	}
	if f.MinValue != nil && f.MaxValue != nil && *f.MinValue > *f.MaxValue {
		return &FieldError{Field: name, Reason: "minValue exceeds maxValue"}
	}
	return nil
}

// ValidateFields checks every field and enforces unique names.
func ValidateFields(fields []Field) error {
	var errs []error
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if err := field.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := seen[field.Name]; dup {
			errs = append(errs, &FieldError{Field: field.Name, Reason: "duplicate field name"})
			continue
		}
		seen[field.Name] = struct{}{}
	}
	return errors.Join(errs...)
}
