package schema

import (
	"github.com/goliatone/go-handyadmin/pkg/format"
)

// ElementKind discriminates the control a field renders as.
type ElementKind string

const (
	ElementInput  ElementKind = "input"
	ElementSelect ElementKind = "select"
)

// InputType mirrors the HTML input types supported by input fields.
type InputType string

const (
	InputText     InputType = "text"
	InputEmail    InputType = "email"
	InputNumber   InputType = "number"
	InputDate     InputType = "date"
	InputDatetime InputType = "datetime"
	InputFile     InputType = "file"
	InputCheckbox InputType = "checkbox"
	InputPassword InputType = "password"
	InputTel      InputType = "tel"
	InputTextarea InputType = "textarea"
)

// HTMLType returns the value used in the rendered type attribute.
func (t InputType) HTMLType() string {
	switch t {
	case "":
		return string(InputText)
	case InputDatetime:
		return "datetime-local"
	default:
		return string(t)
	}
}

// Choice is one option of a select field.
type Choice struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// ChangeHandler lets a field rewrite the value written into the record. It
// receives the current record snapshot and the incoming value.
type ChangeHandler func(record map[string]any, value any) any

// Field describes one form field and how it renders in tables.
type Field struct {
	Name      string      `json:"name"`
	Label     string      `json:"label"`
	Kind      ElementKind `json:"kind"`
	InputType InputType   `json:"inputType,omitempty"`
	Required  bool        `json:"required,omitempty"`
	MinLength *int        `json:"minLength,omitempty"`
	MaxLength *int        `json:"maxLength,omitempty"`
	MinValue  *float64    `json:"minValue,omitempty"`
	MaxValue  *float64    `json:"maxValue,omitempty"`
	Choices   []Choice    `json:"choices,omitempty"`
	Disabled  bool        `json:"disabled,omitempty"`
	// Lookup names the related resource whose list resolves this field's
	// foreign key (and, for select fields, supplies choices at render time).
	Lookup string `json:"lookup,omitempty"`

	Formatter format.Formatter `json:"-"`
	OnChange  ChangeHandler    `json:"-"`
}

// FieldVisitor is implemented by code that handles every element kind.
type FieldVisitor interface {
	VisitInput(field Field) error
	VisitSelect(field Field) error
}

// Accept dispatches to the visitor method matching the field kind.
func (f Field) Accept(v FieldVisitor) error {
	switch f.Kind {
	case ElementSelect:
		return v.VisitSelect(f)
	case ElementInput, "":
		return v.VisitInput(f)
	default:
		return &FieldError{Field: f.Name, Reason: "unknown element kind " + string(f.Kind)}
	}
}

// IsFile reports whether the field is transmitted as a file part.
func (f Field) IsFile() bool {
	return f.Kind != ElementSelect && f.InputType == InputFile
}

// IsCheckbox reports whether the field holds a boolean.
func (f Field) IsCheckbox() bool {
	return f.Kind != ElementSelect && f.InputType == InputCheckbox
}

// FormatterName returns the attached formatter name or "".
func (f Field) FormatterName() string {
	if f.Formatter == nil {
		return ""
	}
	return f.Formatter.Name()
}

// ChoiceLabel resolves the label of the choice matching value.
func (f Field) ChoiceLabel(value string) (string, bool) {
	for _, choice := range f.Choices {
		if choice.Value == value {
			return choice.Label, true
		}
	}
	return "", false
}

// Input builds an input field.
func Input(name, label string, inputType InputType) Field {
	return Field{Name: name, Label: label, Kind: ElementInput, InputType: inputType}
}

// Select builds a select field with the provided choices.
func Select(name, label string, choices ...Choice) Field {
	return Field{Name: name, Label: label, Kind: ElementSelect, Choices: choices}
}

// IntPtr and FloatPtr help literal schema definitions.
func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }
