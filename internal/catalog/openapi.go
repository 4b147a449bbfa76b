package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-handyadmin/pkg/format"
	"github.com/goliatone/go-handyadmin/pkg/schema"
)

// Vendor extensions recognised on OpenAPI properties.
const (
	extensionFormatter = "x-handyadmin-formatter"
	extensionLookup    = "x-handyadmin-lookup"
)

// ImportOptions tunes Import.
type ImportOptions struct {
	// Components restricts the import to the named component schemas. Empty
	// imports every object schema.
	Components []string
	// Formats resolves x-handyadmin-formatter values; nil uses the built-ins.
	Formats *format.Registry
}

// Import derives catalog entries from the component schemas of an OpenAPI
// document and returns them as a YAML catalog document. Read-only
// properties (ids, computed totals) are skipped.
func Import(ctx context.Context, data []byte, opts ImportOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("catalog: openapi document is empty")
	}

	loader := &openapi3.Loader{
		Context:               ctx,
		IsExternalRefsAllowed: false,
	}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: load openapi document: %w", err)
	}
	if doc.Components == nil || len(doc.Components.Schemas) == 0 {
		return nil, errors.New("catalog: openapi document has no component schemas")
	}

	names := opts.Components
	if len(names) == 0 {
		for name := range doc.Components.Schemas {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	formats := opts.Formats
	if formats == nil {
		formats = format.NewRegistry()
	}

	out := documentFile{}
	for _, name := range names {
		ref, ok := doc.Components.Schemas[name]
		if !ok || ref == nil || ref.Value == nil {
			return nil, fmt.Errorf("catalog: component schema %q not found", name)
		}
		if !hasType(ref.Value, openapi3.TypeObject) && len(ref.Value.Properties) == 0 {
			continue
		}
		raw := resourceFromSchema(name, ref.Value)
		res, err := raw.resource(formats)
		if err != nil {
			return nil, fmt.Errorf("catalog: component %q: %w", name, err)
		}
		if err := res.Validate(); err != nil {
			return nil, fmt.Errorf("catalog: component %q: %w", name, err)
		}
		out.Resources = append(out.Resources, raw)
	}
	if len(out.Resources) == 0 {
		return nil, errors.New("catalog: no object schemas to import")
	}

	encoded, err := yaml.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("catalog: encode yaml: %w", err)
	}
	return encoded, nil
}

func resourceFromSchema(component string, src *openapi3.Schema) resourceFile {
	name := strings.ToLower(component)
	res := resourceFile{
		Name:  name,
		Title: component,
		Route: name,
	}

	required := make(map[string]bool, len(src.Required))
	for _, key := range src.Required {
		required[key] = true
	}

	props := make([]string, 0, len(src.Properties))
	for key := range src.Properties {
		props = append(props, key)
	}
	sort.Strings(props)

	for _, key := range props {
		ref := src.Properties[key]
		if ref == nil || ref.Value == nil || ref.Value.ReadOnly {
			continue
		}
		field := fieldFromSchema(key, ref.Value)
		field.Required = required[key]
		if field.Lookup != "" {
			if res.Lookups == nil {
				res.Lookups = make(map[string]schema.LookupSpec)
			}
			res.Lookups[field.Lookup] = schema.LookupSpec{Route: field.Lookup}
		}
		res.Fields = append(res.Fields, field)
	}
	return res
}

func fieldFromSchema(name string, src *openapi3.Schema) fieldFile {
	field := fieldFile{
		Name:      name,
		Formatter: stringExtension(src.Extensions, extensionFormatter),
		Lookup:    stringExtension(src.Extensions, extensionLookup),
	}
	if src.Title != "" {
		field.Label = src.Title
	}

	switch {
	case field.Lookup != "":
		field.Kind = string(schema.ElementSelect)
		return field
	case len(src.Enum) > 0:
		field.Kind = string(schema.ElementSelect)
		for _, value := range src.Enum {
			v := fmt.Sprint(value)
			field.Choices = append(field.Choices, schema.Choice{Value: v, Label: humanize(v)})
		}
		return field
	case hasType(src, openapi3.TypeBoolean):
		field.InputType = string(schema.InputCheckbox)
	case hasType(src, openapi3.TypeInteger), hasType(src, openapi3.TypeNumber):
		field.InputType = string(schema.InputNumber)
		field.MinValue = cloneFloat(src.Min)
		field.MaxValue = cloneFloat(src.Max)
	default:
		field.InputType = inputTypeForFormat(src.Format)
		if field.InputType != string(schema.InputFile) {
			if src.MinLength > 0 {
				v := int(src.MinLength)
				field.MinLength = &v
			}
			if src.MaxLength != nil {
				v := int(*src.MaxLength)
				field.MaxLength = &v
			}
		}
	}
	return field
}

func inputTypeForFormat(f string) string {
	switch strings.ToLower(f) {
	case "email":
		return string(schema.InputEmail)
	case "date":
		return string(schema.InputDate)
	case "date-time":
		return string(schema.InputDatetime)
	case "binary":
		return string(schema.InputFile)
	case "password":
		return string(schema.InputPassword)
	case "phone", "tel":
		return string(schema.InputTel)
	default:
		return string(schema.InputText)
	}
}

func hasType(src *openapi3.Schema, typ string) bool {
	return src != nil && src.Type != nil && src.Type.Includes(typ)
}

func stringExtension(ext map[string]any, key string) string {
	if len(ext) == 0 {
		return ""
	}
	if value, ok := ext[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
