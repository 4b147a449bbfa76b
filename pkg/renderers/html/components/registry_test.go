package components

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-handyadmin/pkg/render"
	"github.com/goliatone/go-handyadmin/pkg/schema"
)

func TestResolve(t *testing.T) {
	cases := map[string]render.FieldView{
		NameSelect:   {Kind: "select", InputType: "text"},
		NameCheckbox: {Kind: "input", InputType: "checkbox"},
		NameTextarea: {Kind: "input", InputType: "textarea"},
		NameFile:     {Kind: "input", InputType: "file"},
		NameInput:    {Kind: "input", InputType: "tel"},
	}
	for want, field := range cases {
		got, err := Resolve(field)
		if err != nil {
			t.Fatalf("resolve %#v: %v", field, err)
		}
		if got != want {
			t.Fatalf("resolve %#v: want %s, got %s", field, want, got)
		}
	}

	if _, err := Resolve(render.FieldView{Name: "dial", Kind: "slider"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	var buf bytes.Buffer
	err := NewDefaultRegistry().Render(&buf, render.FieldView{Name: "dial", Kind: "slider"}, ComponentData{})
	if err == nil || !strings.Contains(err.Error(), `unknown kind "slider"`) {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
}

func TestAttributesAndFlags(t *testing.T) {
	field := render.FieldView{
		InputType: "number",
		MinLength: schema.IntPtr(1),
		Min:       schema.FloatPtr(0.5),
		Max:       schema.FloatPtr(100),
		Formatter: "callout",
		Required:  true,
	}
	want := []Attribute{
		{Name: "minlength", Value: "1"},
		{Name: "min", Value: "0.5"},
		{Name: "max", Value: "100"},
		{Name: "step", Value: "any"},
		{Name: "data-formatter", Value: "callout"},
	}
	if diff := cmp.Diff(want, Attributes(field)); diff != "" {
		t.Fatalf("attributes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"required"}, Flags(field)); diff != "" {
		t.Fatalf("flags mismatch (-want +got):\n%s", diff)
	}

	readOnlySelect := render.FieldView{Kind: "select", ReadOnly: true, Required: true}
	if diff := cmp.Diff([]string{"disabled"}, Flags(readOnlySelect)); diff != "" {
		t.Fatalf("flags mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_OverrideAndClone(t *testing.T) {
	reg := NewDefaultRegistry()
	clone := reg.Clone()
	clone.MustRegister(NameInput, Descriptor{
		Renderer: func(buf *bytes.Buffer, field render.FieldView, _ ComponentData) error {
			buf.WriteString("custom:" + field.Name)
			return nil
		},
		Stylesheets: []string{"/custom.css", "/custom.css"},
	})

	var buf bytes.Buffer
	if err := clone.Render(&buf, render.FieldView{Name: "title"}, ComponentData{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.String() != "custom:title" {
		t.Fatalf("unexpected output %q", buf.String())
	}
	if diff := cmp.Diff([]string{"/custom.css"}, clone.Stylesheets([]string{NameInput, NameSelect})); diff != "" {
		t.Fatalf("stylesheets mismatch (-want +got):\n%s", diff)
	}

	if err := reg.Render(&buf, render.FieldView{Name: "title"}, ComponentData{}); err == nil {
		t.Fatal("default input needs a template renderer")
	}
	if diff := cmp.Diff([]string{NameCheckbox, NameFile, NameInput, NameSelect, NameTextarea}, reg.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if err := reg.Register(" ", Descriptor{}); err == nil {
		t.Fatal("expected error for empty name")
	}
}
