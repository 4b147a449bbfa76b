package site

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-handyadmin/pkg/client"
	"github.com/goliatone/go-handyadmin/pkg/form"
	"github.com/goliatone/go-handyadmin/pkg/render"
	"github.com/goliatone/go-handyadmin/pkg/schema"
)

func TestLoadPages_Embedded(t *testing.T) {
	pages, err := LoadPages(PagesFS())
	if err != nil {
		t.Fatalf("load pages: %v", err)
	}
	var slugs []string
	for _, p := range pages.List() {
		slugs = append(slugs, p.Slug)
	}
	if diff := cmp.Diff([]string{"home", "services", "about"}, slugs); diff != "" {
		t.Fatalf("page order mismatch (-want +got):\n%s", diff)
	}
	home, ok := pages.Page("home")
	if !ok {
		t.Fatalf("home page missing")
	}
	if home.Title != "Handy Help for Every Home" {
		t.Fatalf("home title = %q", home.Title)
	}
	if !strings.Contains(home.HTML, `<a href="/contact"`) {
		t.Fatalf("expected contact link in home page:\n%s", home.HTML)
	}
}

func TestRenderMarkdown_Sanitises(t *testing.T) {
	out := RenderMarkdown([]byte("# Hi\n\n<script>alert(1)</script>\n\n[x](javascript:alert(1))"))
	if strings.Contains(out, "<script") || strings.Contains(out, "javascript:") {
		t.Fatalf("unsafe markup survived: %s", out)
	}
	if !strings.Contains(out, `<h1 id="hi">Hi</h1>`) {
		t.Fatalf("heading missing: %s", out)
	}
}

func TestLoadPages_FallbackTitle(t *testing.T) {
	pages, err := LoadPages(fstest.MapFS{"faq.md": {Data: []byte("Just text.")}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	page, _ := pages.Page("faq")
	if page.Title != "Faq" {
		t.Fatalf("title = %q", page.Title)
	}
}

type recordingSubmitter struct {
	calls []client.Payload
}

func (r *recordingSubmitter) Submit(_ context.Context, _, _ string, payload client.Payload) (client.Record, error) {
	r.calls = append(r.calls, payload)
	return client.Record{"id": 1.0}, nil
}

func fillContact(f *form.Form, confirm string) {
	_ = f.Set("first_name", "Ada")
	_ = f.Set("last_name", "Lovelace")
	_ = f.Set("email", "ada@example.com")
	_ = f.Set("confirm_email", confirm)
	_ = f.Set("phone", "4055550123")
	_ = f.Set("service", "3")
	_ = f.Set("message", "<b>Fix</b> my fence &amp; gate")
}

func TestContact_EmailMismatchBlocksSubmit(t *testing.T) {
	api := &recordingSubmitter{}
	f := NewContactForm(api, []schema.Choice{{Value: "3", Label: "Carpentry"}})
	fillContact(f, "ada@example.org")

	_, err := f.Submit(context.Background())
	if !errors.Is(err, form.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if len(api.calls) != 0 {
		t.Fatalf("mismatch must not reach the API")
	}
	if diff := cmp.Diff(render.ErrorMap{"confirm_email": {EmailMismatch}}, f.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	view := f.View()
	for _, field := range view.Fields {
		if field.Name == "confirm_email" {
			if diff := cmp.Diff([]string{EmailMismatch}, field.Errors); diff != "" {
				t.Fatalf("confirm_email errors mismatch (-want +got):\n%s", diff)
			}
		}
	}
}

func TestValidateEmails(t *testing.T) {
	mismatch := render.ErrorMap{"confirm_email": {EmailMismatch}}
	cases := []struct {
		name    string
		email   string
		confirm string
		want    render.ErrorMap
	}{
		{"equal", "ada@example.org", "ada@example.org", nil},
		{"surrounding spaces", " ada@example.org", "ada@example.org  ", nil},
		{"case differs", "A@x.com", "a@x.com", mismatch},
		{"different", "ada@example.org", "bob@example.org", mismatch},
		{"confirm empty", "ada@example.org", "", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ValidateEmails(form.Record{"email": tc.email, "confirm_email": tc.confirm})
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("errors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestContact_SubmitsSanitisedPayload(t *testing.T) {
	api := &recordingSubmitter{}
	f := NewContactForm(api, nil)
	fillContact(f, "ADA@example.com")

	if _, err := f.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(api.calls) != 1 {
		t.Fatalf("expected one submission, got %d", len(api.calls))
	}
	values := api.calls[0].Values
	if got := values["message"]; got != "Fix my fence & gate" {
		t.Fatalf("message = %q", got)
	}
	if got := values["phone"]; got != "4 (055) 550-123" {
		t.Fatalf("phone = %q", got)
	}
}

type fakeLister struct {
	records []client.Record
	path    string
}

func (f *fakeLister) List(_ context.Context, path string) ([]client.Record, error) {
	f.path = path
	return f.records, nil
}

func TestServiceChoices(t *testing.T) {
	api := &fakeLister{records: []client.Record{
		{"id": 1.0, "name": "Carpentry"},
		{"id": 2.0},
		{"name": "orphan"},
	}}
	got, err := ServiceChoices(context.Background(), api)
	if err != nil {
		t.Fatalf("choices: %v", err)
	}
	want := []schema.Choice{{Value: "1", Label: "Carpentry"}, {Value: "2", Label: "2"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("choices mismatch (-want +got):\n%s", diff)
	}
	if api.path != "service/" {
		t.Fatalf("path = %q", api.path)
	}
}
