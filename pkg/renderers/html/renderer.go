// Package html renders forms, tables, formsets and the page shell as HTML
// using pongo2 templates. Controls are drawn by a component registry so themes
// and callers can override individual widgets.
package html

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	gotemplate "github.com/goliatone/go-template"
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-handyadmin/pkg/render"
	rendertemplate "github.com/goliatone/go-handyadmin/pkg/render/template"
	"github.com/goliatone/go-handyadmin/pkg/renderers/html/components"
)

// Name is the registry name of the HTML renderer.
const Name = "html"

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	components       *components.Registry
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithComponentRegistry replaces the default control components.
func WithComponentRegistry(registry *components.Registry) Option {
	return func(cfg *config) {
		if registry != nil {
			cfg.components = registry
		}
	}
}

// Renderer implements render.PageRenderer.
type Renderer struct {
	templates  rendertemplate.TemplateRenderer
	components *components.Registry
	stylesheet string
}

var (
	_ render.PageRenderer             = (*Renderer)(nil)
	_ rendertemplate.TemplateRenderer = (*gotemplate.Engine)(nil)
)

// New constructs the HTML renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}
	if cfg.components == nil {
		cfg.components = components.NewDefaultRegistry()
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engine, err := gotemplate.NewRenderer(
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithExtension(".tmpl"),
		)
		if err != nil {
			return nil, fmt.Errorf("html renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}

	return &Renderer{
		templates:  renderer,
		components: cfg.components,
		stylesheet: defaultStylesheet(),
	}, nil
}

func (r *Renderer) Name() string {
	return Name
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render draws one form.
func (r *Renderer) Render(_ context.Context, form render.FormView, options render.RenderOptions) ([]byte, error) {
	out, err := r.renderForm(form, options)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// RenderTable draws a table with its action dialogs.
func (r *Renderer) RenderTable(_ context.Context, table render.TableView, options render.RenderOptions) ([]byte, error) {
	payload := map[string]any{
		"table":   table,
		"colspan": strconv.Itoa(len(table.Columns) + 1),
	}
	if table.Create != nil {
		create, err := r.renderForm(*table.Create, options)
		if err != nil {
			return nil, err
		}
		payload["create"] = create
	}

	rows := make([]map[string]any, 0, len(table.Rows))
	for _, row := range table.Rows {
		entry := map[string]any{"row": row}
		if row.Update != nil {
			update, err := r.renderForm(*row.Update, options)
			if err != nil {
				return nil, err
			}
			entry["update"] = update
		}
		if row.Delete != nil {
			del, err := r.renderForm(*row.Delete, options)
			if err != nil {
				return nil, err
			}
			entry["delete"] = del
		}
		rows = append(rows, entry)
	}
	payload["rows"] = rows

	out, err := r.templates.RenderTemplate("templates/table.tmpl", payload)
	if err != nil {
		return nil, fmt.Errorf("html renderer: render table: %w", err)
	}
	return []byte(out), nil
}

// RenderFormset draws a nested collection with its drafts.
func (r *Renderer) RenderFormset(_ context.Context, formset render.FormsetView, options render.RenderOptions) ([]byte, error) {
	rows := make([]string, 0, len(formset.Rows))
	for _, row := range formset.Rows {
		out, err := r.renderForm(row, options)
		if err != nil {
			return nil, err
		}
		rows = append(rows, out)
	}
	drafts := make([]string, 0, len(formset.Drafts))
	for _, draft := range formset.Drafts {
		out, err := r.renderForm(draft, options)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, out)
	}

	out, err := r.templates.RenderTemplate("templates/formset.tmpl", map[string]any{
		"formset": formset,
		"rows":    rows,
		"drafts":  drafts,
	})
	if err != nil {
		return nil, fmt.Errorf("html renderer: render formset: %w", err)
	}
	return []byte(out), nil
}

// RenderPage wraps a rendered body in the navigation chrome. Partial requests
// return the body alone.
func (r *Renderer) RenderPage(_ context.Context, page render.PageView, options render.RenderOptions) ([]byte, error) {
	if options.Partial {
		return []byte(page.Body), nil
	}

	payload := map[string]any{
		"page":       page,
		"stylesheet": r.stylesheet,
	}
	if cfg := options.Theme; cfg != nil {
		payload["theme_name"] = cfg.Theme
		payload["theme_variant"] = cfg.Variant
		payload["theme_css"] = cssVarsStyle(cfg.CSSVars)
		if href := themeStylesheet(cfg); href != "" {
			payload["stylesheets"] = []string{href}
		}
	}

	out, err := r.templates.RenderTemplate("templates/page.tmpl", payload)
	if err != nil {
		return nil, fmt.Errorf("html renderer: render page: %w", err)
	}
	return []byte(out), nil
}

func (r *Renderer) renderForm(form render.FormView, options render.RenderOptions) (string, error) {
	if r.templates == nil {
		return "", fmt.Errorf("html renderer: template renderer is nil")
	}

	data := components.ComponentData{Template: r.templates}
	if options.Theme != nil {
		data.Partials = options.Theme.Partials
	}

	controls := make([]string, 0, len(form.Fields))
	for _, field := range form.Fields {
		var buf bytes.Buffer
		if err := r.components.Render(&buf, field, data); err != nil {
			return "", fmt.Errorf("html renderer: render field %q: %w", field.Name, err)
		}
		controls = append(controls, buf.String())
	}

	nested := make([]map[string]any, 0, len(form.Nested))
	for _, section := range form.Nested {
		sectionControls := make([]string, 0, len(section.Fields))
		for _, field := range section.Fields {
			var buf bytes.Buffer
			if err := r.components.Render(&buf, field, data); err != nil {
				return "", fmt.Errorf("html renderer: render nested field %q: %w", field.Name, err)
			}
			sectionControls = append(sectionControls, buf.String())
		}
		nested = append(nested, map[string]any{"section": section, "controls": sectionControls})
	}

	payload := map[string]any{
		"form":     form,
		"controls": controls,
		"nested":   nested,
	}
	if form.Delete != nil {
		del, err := r.renderForm(*form.Delete, options)
		if err != nil {
			return "", err
		}
		payload["delete"] = del
	}

	out, err := r.templates.RenderTemplate("templates/form.tmpl", payload)
	if err != nil {
		return "", fmt.Errorf("html renderer: render form: %w", err)
	}
	return out, nil
}

func themeStylesheet(cfg *theme.RendererConfig) string {
	if cfg == nil || cfg.AssetURL == nil {
		return ""
	}
	return strings.TrimSpace(cfg.AssetURL("stylesheet"))
}

// cssUnsafe drops characters that could close the style element or rule.
var cssUnsafe = strings.NewReplacer("<", "", ">", "", "{", "", "}", "", ";", "")

func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(":root {\n")
	for _, key := range keys {
		b.WriteString(cssUnsafe.Replace(key))
		b.WriteString(": ")
		b.WriteString(cssUnsafe.Replace(vars[key]))
		b.WriteString(";\n")
	}
	b.WriteString("}")
	return b.String()
}
