// Package site hosts the public side of the console: marketing pages written
// in markdown and the lead-generation contact form.
package site

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

//go:embed pages/*.md
var embeddedPages embed.FS

// PagesFS exposes the built-in marketing pages.
func PagesFS() fs.FS {
	sub, err := fs.Sub(embeddedPages, "pages")
	if err != nil {
		return embeddedPages
	}
	return sub
}

// Page is one rendered marketing page.
type Page struct {
	Slug  string
	Title string
	// HTML is sanitised markup ready for the page shell.
	HTML string
}

// navOrder puts well-known pages first; others follow alphabetically.
var navOrder = map[string]int{"home": 0, "services": 1, "about": 2}

// Pages is the rendered set of marketing pages, keyed by slug.
type Pages struct {
	pages map[string]Page
	order []string
}

var (
	pagePolicyOnce sync.Once
	pagePolicy     *bluemonday.Policy
)

func pageSanitizer() *bluemonday.Policy {
	pagePolicyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4")
		pagePolicy = p
	})
	return pagePolicy
}

// LoadPages renders every *.md file in fsys once. The slug is the file name
// without extension and the title is the first level-one heading.
func LoadPages(fsys fs.FS) (*Pages, error) {
	p := &Pages{pages: make(map[string]Page)}
	if fsys == nil {
		return p, nil
	}
	err := fs.WalkDir(fsys, ".", func(name string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !strings.EqualFold(path.Ext(name), ".md") {
			return nil
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("site: read %s: %w", name, err)
		}
		slug := strings.TrimSuffix(path.Base(name), path.Ext(name))
		p.pages[slug] = Page{
			Slug:  slug,
			Title: titleOf(data, slug),
			HTML:  RenderMarkdown(data),
		}
		p.order = append(p.order, slug)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(p.order, func(i, j int) bool {
		oi, iok := navOrder[p.order[i]]
		oj, jok := navOrder[p.order[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return p.order[i] < p.order[j]
		}
	})
	return p, nil
}

// Page returns the page for slug.
func (p *Pages) Page(slug string) (Page, bool) {
	page, ok := p.pages[slug]
	return page, ok
}

// List returns pages in navigation order.
func (p *Pages) List() []Page {
	out := make([]Page, 0, len(p.order))
	for _, slug := range p.order {
		out = append(out, p.pages[slug])
	}
	return out
}

// RenderMarkdown converts markdown to sanitised HTML.
func RenderMarkdown(src []byte) string {
	// Parsers are stateful; build one per document.
	mdParser := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	out := markdown.ToHTML(src, mdParser, renderer)
	return string(pageSanitizer().SanitizeBytes(out))
}

func titleOf(src []byte, fallback string) string {
	for _, line := range bytes.Split(src, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if bytes.HasPrefix(line, []byte("# ")) {
			return string(bytes.TrimSpace(line[2:]))
		}
	}
	if fallback == "" {
		return ""
	}
	return strings.ToUpper(fallback[:1]) + fallback[1:]
}
