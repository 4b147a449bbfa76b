package components

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-handyadmin/pkg/render"
)

const templatePrefix = "templates/components/"

// NewDefaultRegistry constructs a registry pre-populated with the built-in
// controls.
func NewDefaultRegistry() *Registry {
	registry := New()

	registry.MustRegister(NameInput, Descriptor{
		Renderer: templateComponentRenderer("forms.input", templatePrefix+"input.tmpl"),
	})
	registry.MustRegister(NameTextarea, Descriptor{
		Renderer: templateComponentRenderer("forms.textarea", templatePrefix+"textarea.tmpl"),
	})
	registry.MustRegister(NameSelect, Descriptor{
		Renderer: templateComponentRenderer("forms.select", templatePrefix+"select.tmpl"),
	})
	registry.MustRegister(NameCheckbox, Descriptor{
		Renderer: templateComponentRenderer("forms.checkbox", templatePrefix+"checkbox.tmpl"),
	})
	registry.MustRegister(NameFile, Descriptor{
		Renderer: templateComponentRenderer("forms.file", templatePrefix+"file.tmpl"),
	})

	return registry
}

func templateComponentRenderer(partialKey, templateName string) Renderer {
	return func(buf *bytes.Buffer, field render.FieldView, data ComponentData) error {
		if data.Template == nil {
			return fmt.Errorf("components: template renderer not configured for %q", templateName)
		}

		resolvedTemplate := templateName
		if data.Partials != nil {
			if candidate := strings.TrimSpace(data.Partials[partialKey]); candidate != "" {
				resolvedTemplate = candidate
			}
		}

		payload := map[string]any{
			"field": field,
			"attrs": Attributes(field),
			"flags": Flags(field),
		}
		rendered, err := data.Template.RenderTemplate(resolvedTemplate, payload)
		if err != nil {
			return fmt.Errorf("components: render template %q: %w", templateName, err)
		}
		buf.WriteString(rendered)
		return nil
	}
}

// Attribute is one valued HTML attribute.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Attributes returns the valued constraint attributes of a control in a
// stable order. Numbers are formatted here because templates print floats
// with fixed precision.
func Attributes(field render.FieldView) []Attribute {
	var attrs []Attribute
	if field.MinLength != nil {
		attrs = append(attrs, Attribute{Name: "minlength", Value: strconv.Itoa(*field.MinLength)})
	}
	if field.MaxLength != nil {
		attrs = append(attrs, Attribute{Name: "maxlength", Value: strconv.Itoa(*field.MaxLength)})
	}
	if field.Min != nil {
		attrs = append(attrs, Attribute{Name: "min", Value: strconv.FormatFloat(*field.Min, 'f', -1, 64)})
	}
	if field.Max != nil {
		attrs = append(attrs, Attribute{Name: "max", Value: strconv.FormatFloat(*field.Max, 'f', -1, 64)})
	}
	if field.InputType == "number" {
		attrs = append(attrs, Attribute{Name: "step", Value: "any"})
	}
	if field.Formatter != "" {
		attrs = append(attrs, Attribute{Name: "data-formatter", Value: field.Formatter})
	}
	return attrs
}

// Flags returns the boolean attributes of a control.
func Flags(field render.FieldView) []string {
	var flags []string
	if field.Required && !field.ReadOnly {
		flags = append(flags, "required")
	}
	if field.ReadOnly {
		name, _ := Resolve(field)
		switch name {
		case NameSelect, NameCheckbox, NameFile:
			flags = append(flags, "disabled")
		default:
			flags = append(flags, "readonly")
		}
	}
	if field.Checked {
		flags = append(flags, "checked")
	}
	return flags
}
