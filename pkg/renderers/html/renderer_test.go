package html

import (
	"context"
	"strings"
	"testing"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-handyadmin/pkg/render"
	"github.com/goliatone/go-handyadmin/pkg/schema"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return r
}

func assertContains(t *testing.T, out string, fragments ...string) {
	t.Helper()
	for _, fragment := range fragments {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected output to contain %q\n%s", fragment, out)
		}
	}
}

func TestRenderer_FormControlsAndErrors(t *testing.T) {
	r := newRenderer(t)
	form := render.FormView{
		ID:          "supplier-create",
		Title:       "Create Supplier",
		Action:      "/supplier/",
		Method:      "POST",
		SubmitLabel: "Create",
		Multipart:   true,
		Errors:      []string{"An unexpected error occured."},
		Hidden:      []render.HiddenField{{Name: render.MethodFieldName, Value: "PATCH"}},
		Fields: []render.FieldView{
			{ID: "field-name", Name: "name", Label: "Name", Kind: "input", InputType: "text", HTMLType: "text", Value: "Acme & Sons", Required: true, MaxLength: schema.IntPtr(64)},
			{ID: "field-callout", Name: "callout", Label: "Callout", Kind: "input", InputType: "number", HTMLType: "number", Min: schema.FloatPtr(0)},
			{ID: "field-service", Name: "service", Label: "Service", Kind: "select", Choices: []render.ChoiceView{{Value: "1", Label: "Plumbing", Selected: true}}},
			{ID: "field-active", Name: "is_active", Label: "Active", Kind: "input", InputType: "checkbox", HTMLType: "checkbox", Checked: true},
			{ID: "field-confirm_email", Name: "confirm_email", Label: "Confirm email", Kind: "input", InputType: "email", HTMLType: "email", Errors: []string{"Emails must match!"}},
		},
	}

	out, err := r.Render(context.Background(), form, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)
	assertContains(t, html,
		`enctype="multipart/form-data"`,
		`<input type="hidden" name="_method" value="PATCH">`,
		`value="Acme &amp; Sons"`,
		`maxlength="64"`,
		`min="0"`,
		`required`,
		`<option value="1" selected>Plumbing</option>`,
		`type="checkbox" value="true" checked`,
		`<li>Emails must match!</li>`,
		`An unexpected error occured.`,
		`>Create</button>`,
	)
}

func TestRenderer_ReadOnlyRowShowsEditLink(t *testing.T) {
	r := newRenderer(t)
	out, err := r.Render(context.Background(), render.FormView{
		ID:       "address-1",
		ReadOnly: true,
		EditURL:  "/supplier/7/edit?edit=address%3A1",
		Fields:   []render.FieldView{{ID: "f", Name: "city", Label: "City", Kind: "input", HTMLType: "text", Value: "Moore", ReadOnly: true}},
	}, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)
	assertContains(t, html, `readonly`, `href="/supplier/7/edit?edit=address%3A1"`)
	if strings.Contains(html, `type="submit"`) {
		t.Fatal("read-only rows must not render a submit button")
	}
}

func TestRenderer_NestedDraftInsideParentForm(t *testing.T) {
	r := newRenderer(t)
	out, err := r.Render(context.Background(), render.FormView{
		ID:     "supplier-create",
		Action: "/supplier/",
		Method: "POST",
		Hidden: []render.HiddenField{render.NestedDraft("address", "d1")},
		Fields: []render.FieldView{{ID: "field-name", Name: "name", Label: "Name", Kind: "input", HTMLType: "text"}},
		Nested: []render.NestedView{{
			Entity:  "address",
			Title:   "Addresses",
			DraftID: "d1",
			Fields:  []render.FieldView{{ID: "field-address-d1-city", Name: "address-d1-city", Label: "City", Kind: "input", HTMLType: "text"}},
		}},
	}, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)
	assertContains(t, html,
		`<input type="hidden" name="_nested_address" value="d1">`,
		`<legend>Addresses</legend>`,
		`name="address-d1-city"`,
	)
	if strings.Count(html, "<form") != 1 {
		t.Fatalf("nested drafts must share the parent form\n%s", html)
	}
}

func TestRenderer_Table(t *testing.T) {
	r := newRenderer(t)
	table := render.TableView{
		Resource:   "supplier",
		Title:      "Supplier",
		UpdateType: "modal",
		Columns:    []render.ColumnView{{Name: "name", Label: "Name"}, {Name: "is_active", Label: "Active"}},
		Create:     &render.FormView{ID: "supplier-create", Action: "/supplier/", Method: "POST", SubmitLabel: "Create"},
		Rows: []render.RowView{{
			ID:     "1",
			Cells:  []render.CellView{{Field: "name", Display: "<b>Acme</b>"}, {Field: "is_active", Display: "Active", Class: "text-green-600"}},
			Update: &render.FormView{ID: "supplier-update-1", Action: "/supplier/1/", Method: "POST", SubmitLabel: "Update"},
			Delete: &render.FormView{ID: "supplier-delete-1", Action: "/supplier/1/", Method: "POST", SubmitLabel: "Delete", Confirm: "Sure?"},
		}},
	}
	out, err := r.RenderTable(context.Background(), table, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render table: %v", err)
	}
	html := string(out)
	assertContains(t, html,
		`&lt;b&gt;Acme&lt;/b&gt;`,
		`<td class="text-green-600">Active</td>`,
		`id="supplier-create-dialog"`,
		`id="supplier-update-1-dialog"`,
		`data-confirm="Sure?"`,
	)
}

func TestRenderer_EmptyTable(t *testing.T) {
	r := newRenderer(t)
	out, err := r.RenderTable(context.Background(), render.TableView{Resource: "tool", Title: "Tool", ReadOnly: true}, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render table: %v", err)
	}
	assertContains(t, string(out), "No Tool records yet.")
}

func TestRenderer_Formset(t *testing.T) {
	r := newRenderer(t)
	out, err := r.RenderFormset(context.Background(), render.FormsetView{
		Entity: "address",
		Title:  "Addresses",
		AddURL: "/supplier/7/edit?address=d1",
		Drafts: []render.FormView{{ID: "address-d1", IsNew: true, Editing: true, SubmitLabel: "Save", CancelURL: "/supplier/7/edit"}},
	}, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render formset: %v", err)
	}
	assertContains(t, string(out), `href="/supplier/7/edit?address=d1"`, `ha-formset-row--draft`, `>Save</button>`, `>Cancel</a>`)
}

func TestRenderer_PageWithTheme(t *testing.T) {
	r := newRenderer(t)
	page := render.PageView{
		Title:   "Suppliers",
		Profile: "Dana",
		Nav:     []render.NavItem{{Label: "Suppliers", Href: "/supplier/", Active: true}},
		Toasts:  []render.Toast{{Kind: render.ToastSuccess, Message: "Supplier successfully created!"}},
		Body:    "<p>body</p>",
	}
	cfg := &theme.RendererConfig{
		Theme:   "acme",
		Variant: "dark",
		CSSVars: map[string]string{"--ha-brand": "#123456"},
		AssetURL: func(key string) string {
			return "/themes/acme/" + key + ".css"
		},
	}
	out, err := r.RenderPage(context.Background(), page, render.RenderOptions{Theme: cfg})
	if err != nil {
		t.Fatalf("render page: %v", err)
	}
	assertContains(t, string(out),
		`data-theme="acme"`,
		`--ha-brand: #123456;`,
		`href="/themes/acme/stylesheet.css"`,
		`aria-current="page"`,
		`<span class="ha-profile">Dana</span>`,
		`Supplier successfully created!`,
		`<p>body</p>`,
	)

	partial, err := r.RenderPage(context.Background(), page, render.RenderOptions{Partial: true})
	if err != nil {
		t.Fatalf("render partial: %v", err)
	}
	if string(partial) != "<p>body</p>" {
		t.Fatalf("partial should return body only, got %q", partial)
	}
}
