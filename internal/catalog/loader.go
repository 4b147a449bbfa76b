package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-handyadmin/pkg/format"
	"github.com/goliatone/go-handyadmin/pkg/schema"
)

//go:embed resources/*.yaml
var embedded embed.FS

// EmbeddedFS exposes the built-in handyman catalog.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embedded, "resources")
	if err != nil {
		return embedded
	}
	return sub
}

// Default loads the embedded catalog.
func Default(formats *format.Registry) (*Catalog, error) {
	return LoadFS(EmbeddedFS(), formats)
}

// LoadFS walks fsys and parses every JSON/YAML catalog document. Resources
// keep the order in which files are visited (lexical) and, within a file,
// declaration order. A nil registry resolves only the built-in formatters.
// The loaded catalog must pass Validate.
func LoadFS(fsys fs.FS, formats *format.Registry) (*Catalog, error) {
	if formats == nil {
		formats = format.NewRegistry()
	}
	c := &Catalog{byName: make(map[string]int)}
	if fsys == nil {
		return c, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isCatalogFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("catalog: read %s: %w", path, err)
		}

		doc, err := parseDocument(data, path)
		if err != nil {
			return err
		}

		for idx, raw := range doc.Resources {
			res, err := raw.resource(formats)
			if err != nil {
				return fmt.Errorf("catalog: file %s resource %d: %w", path, idx, err)
			}
			if err := c.add(res, path); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("catalog: invalid: %w", err)
	}
	return c, nil
}

type documentFile struct {
	Resources []resourceFile `json:"resources" yaml:"resources"`
}

type resourceFile struct {
	Name       string                       `json:"name" yaml:"name"`
	Title      string                       `json:"title" yaml:"title"`
	Route      string                       `json:"route" yaml:"route"`
	Fields     []fieldFile                  `json:"fields" yaml:"fields"`
	Columns    []string                     `json:"columns,omitempty" yaml:"columns,omitempty"`
	Lookups    map[string]schema.LookupSpec `json:"lookups,omitempty" yaml:"lookups,omitempty"`
	UpdateType string                       `json:"updateType,omitempty" yaml:"updateType,omitempty"`
	Formsets   []formsetFile                `json:"formsets,omitempty" yaml:"formsets,omitempty"`
	Messages   schema.Messages              `json:"messages,omitempty" yaml:"messages,omitempty"`
	ReadOnly   bool                         `json:"readOnly,omitempty" yaml:"readOnly,omitempty"`
}

type formsetFile struct {
	Entity        string      `json:"entity" yaml:"entity"`
	Title         string      `json:"title,omitempty" yaml:"title,omitempty"`
	Route         string      `json:"route" yaml:"route"`
	Fields        []fieldFile `json:"fields" yaml:"fields"`
	NewEntityOnly bool        `json:"newEntityOnly,omitempty" yaml:"newEntityOnly,omitempty"`
	ParentKey     string      `json:"parentKey,omitempty" yaml:"parentKey,omitempty"`
	RefreshParent bool        `json:"refreshParent,omitempty" yaml:"refreshParent,omitempty"`
}

type fieldFile struct {
	Name      string          `json:"name" yaml:"name"`
	Label     string          `json:"label,omitempty" yaml:"label,omitempty"`
	Kind      string          `json:"kind,omitempty" yaml:"kind,omitempty"`
	InputType string          `json:"inputType,omitempty" yaml:"inputType,omitempty"`
	Required  bool            `json:"required,omitempty" yaml:"required,omitempty"`
	MinLength *int            `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int            `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	MinValue  *float64        `json:"minValue,omitempty" yaml:"minValue,omitempty"`
	MaxValue  *float64        `json:"maxValue,omitempty" yaml:"maxValue,omitempty"`
	Choices   []schema.Choice `json:"choices,omitempty" yaml:"choices,omitempty"`
	Disabled  bool            `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Lookup    string          `json:"lookup,omitempty" yaml:"lookup,omitempty"`
	Formatter string          `json:"formatter,omitempty" yaml:"formatter,omitempty"`
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("catalog: file %s is empty", source)
	}

	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return documentFile{}, fmt.Errorf("catalog: parse %s: %w", source, err)
	}
	return doc, nil
}

func (r resourceFile) resource(formats *format.Registry) (schema.Resource, error) {
	fields, err := convertFields(r.Fields, formats)
	if err != nil {
		return schema.Resource{}, fmt.Errorf("resource %q: %w", r.Name, err)
	}
	res := schema.Resource{
		Name:       strings.TrimSpace(r.Name),
		Title:      r.Title,
		Route:      r.Route,
		Fields:     fields,
		Columns:    append([]string(nil), r.Columns...),
		Lookups:    r.Lookups,
		UpdateType: schema.UpdateType(r.UpdateType),
		Messages:   r.Messages,
		ReadOnly:   r.ReadOnly,
	}
	if res.Route == "" {
		res.Route = res.Name
	}
	if res.UpdateType == "" {
		res.UpdateType = schema.UpdateModal
	}
	for _, raw := range r.Formsets {
		fsFields, err := convertFields(raw.Fields, formats)
		if err != nil {
			return schema.Resource{}, fmt.Errorf("resource %q formset %q: %w", r.Name, raw.Entity, err)
		}
		res.Formsets = append(res.Formsets, schema.Formset{
			Entity:        raw.Entity,
			Title:         raw.Title,
			Route:         raw.Route,
			Fields:        fsFields,
			NewEntityOnly: raw.NewEntityOnly,
			ParentKey:     raw.ParentKey,
			RefreshParent: raw.RefreshParent,
		})
	}
	return res, nil
}

func convertFields(raw []fieldFile, formats *format.Registry) ([]schema.Field, error) {
	fields := make([]schema.Field, 0, len(raw))
	for _, f := range raw {
		formatter, ok := formats.Lookup(f.Formatter)
		if !ok {
			return nil, fmt.Errorf("field %q: unknown formatter %q", f.Name, f.Formatter)
		}
		kind := schema.ElementKind(f.Kind)
		if kind == "" {
			kind = schema.ElementInput
		}
		field := schema.Field{
			Name:      f.Name,
			Label:     f.Label,
			Kind:      kind,
			InputType: schema.InputType(f.InputType),
			Required:  f.Required,
			MinLength: f.MinLength,
			MaxLength: f.MaxLength,
			MinValue:  f.MinValue,
			MaxValue:  f.MaxValue,
			Choices:   append([]schema.Choice(nil), f.Choices...),
			Disabled:  f.Disabled,
			Lookup:    f.Lookup,
			Formatter: formatter,
		}
		if field.Label == "" {
			field.Label = humanize(field.Name)
		}
		if kind == schema.ElementInput && field.InputType == "" {
			field.InputType = schema.InputText
		}
		fields = append(fields, field)
	}
	return fields, nil
}

// humanize turns "street_address" into "Street Address".
func humanize(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' })
	for i, part := range parts {
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}

func isCatalogFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
