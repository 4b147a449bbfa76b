package form

import (
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/goliatone/go-handyadmin/pkg/client"
	"github.com/goliatone/go-handyadmin/pkg/format"
	"github.com/goliatone/go-handyadmin/pkg/render"
	"github.com/goliatone/go-handyadmin/pkg/schema"
)

// Record holds the in-progress values of one form keyed by field name.
type Record map[string]any

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	if r == nil {
		return Record{}
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the wire form of a value, "" when absent.
func (r Record) String(name string) string {
	s, _ := client.Stringify(r[name])
	return s
}

// Values is the state a set of controls writes into: the record and the
// separate bucket for file fields.
type Values struct {
	Record Record
	Files  map[string][]client.File
}

func newValues(seed Record) *Values {
	return &Values{Record: seed.Clone(), Files: make(map[string][]client.File)}
}

// Control binds one field to the values of its form.
type Control struct {
	field  schema.Field
	values *Values
}

// NewControl binds field to values.
func NewControl(field schema.Field, values *Values) Control {
	return Control{field: field, values: values}
}

// Field returns the bound field.
func (c Control) Field() schema.Field {
	return c.field
}

// Value returns the stored value.
func (c Control) Value() any {
	return c.values.Record[c.field.Name]
}

// Set writes raw into the record. File fields append to the file bucket,
// checkboxes coerce to bool, numbers to float64 when parseable, and a
// formatter rewrites string input before it is stored. A field OnChange
// handler sees the record as it was before the write.
func (c Control) Set(raw any) {
	if c.field.IsFile() {
		c.addFiles(raw)
		return
	}

	value := c.coerce(raw)
	if c.field.OnChange != nil {
		value = c.field.OnChange(c.values.Record.Clone(), value)
	}
	if value == nil {
		delete(c.values.Record, c.field.Name)
		return
	}
	c.values.Record[c.field.Name] = value
}

func (c Control) coerce(raw any) any {
	if c.field.IsCheckbox() {
		return format.Truthy(raw)
	}
	text, isString := raw.(string)
	if !isString {
		return raw
	}
	if c.field.Formatter != nil {
		text = c.field.Formatter.Input(text)
	}
	if c.field.Kind != schema.ElementSelect && c.field.InputType == schema.InputNumber {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f
		}
	}
	return text
}

func (c Control) addFiles(raw any) {
	switch v := raw.(type) {
	case client.File:
		c.values.Files[c.field.Name] = append(c.values.Files[c.field.Name], v)
	case []client.File:
		c.values.Files[c.field.Name] = append(c.values.Files[c.field.Name], v...)
	}
}

// Display returns the string shown inside the control.
func (c Control) Display() string {
	value := c.Value()
	if value == nil {
		return ""
	}
	if c.field.Formatter != nil && c.field.Formatter.Name() == format.NamePhone {
		return c.field.Formatter.Display(value)
	}
	s, _ := client.Stringify(value)
	return s
}

// View builds the renderer snapshot of the control. prefix namespaces the
// input name when several forms share one HTML form element.
func (c Control) View(prefix string, choices []schema.Choice, errs []string, readOnly bool) render.FieldView {
	field := c.field
	name := prefix + field.Name
	view := render.FieldView{
		ID:        "field-" + strings.ReplaceAll(name, ".", "-"),
		Name:      name,
		Label:     field.Label,
		Kind:      string(field.Kind),
		InputType: string(field.InputType),
		HTMLType:  field.InputType.HTMLType(),
		Required:  field.Required,
		Disabled:  field.Disabled,
		ReadOnly:  readOnly || field.Disabled,
		MinLength: field.MinLength,
		MaxLength: field.MaxLength,
		Min:       field.MinValue,
		Max:       field.MaxValue,
		Formatter: field.FormatterName(),
		Errors:    errs,
	}
	if view.Kind == "" {
		view.Kind = string(schema.ElementInput)
	}

	fill := controlFill{control: c, view: &view, choices: choices}
	if err := field.Accept(fill); err != nil {
		// Catalogs reject unknown kinds at load; a hand-built field still
		// gets a plain input.
		view.Kind = string(schema.ElementInput)
		_ = fill.VisitInput(field)
	}
	return view
}

// controlFill writes the kind-specific value state of a control view.
type controlFill struct {
	control Control
	view    *render.FieldView
	choices []schema.Choice
}

func (f controlFill) VisitInput(field schema.Field) error {
	switch field.InputType {
	case schema.InputCheckbox:
		f.view.Checked = format.Truthy(f.control.Value())
	case schema.InputFile:
		names := make([]string, 0, len(f.control.values.Files[field.Name]))
		for _, file := range f.control.values.Files[field.Name] {
			names = append(names, file.Name)
		}
		f.view.Value = strings.Join(names, ", ")
	default:
		f.view.Value = f.control.Display()
	}
	return nil
}

func (f controlFill) VisitSelect(field schema.Field) error {
	choices := f.choices
	if len(choices) == 0 {
		choices = field.Choices
	}
	current := f.control.Display()
	f.view.Value = current
	f.view.Choices = make([]render.ChoiceView, 0, len(choices))
	for _, choice := range choices {
		f.view.Choices = append(f.view.Choices, render.ChoiceView{
			Value:    choice.Value,
			Label:    choice.Label,
			Selected: choice.Value == current,
		})
	}
	return nil
}

// ReadFiles converts multipart headers into client files.
func ReadFiles(headers []*multipart.FileHeader) ([]client.File, error) {
	files := make([]client.File, 0, len(headers))
	for _, header := range headers {
		if header == nil || header.Filename == "" {
			continue
		}
		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("form: open upload %q: %w", header.Filename, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("form: read upload %q: %w", header.Filename, err)
		}
		files = append(files, client.File{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}
