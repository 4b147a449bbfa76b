package format_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-handyadmin/pkg/format"
)

func TestFormatPhone_Progressive(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"4":                 "4",
		"40":                "4 (0",
		"4055":              "4 (055",
		"40555":             "4 (055) 5",
		"4055551":           "4 (055) 551",
		"40555512":          "4 (055) 551-2",
		"14055551234":       "1 (405) 555-1234",
		"1-405-555-1234":    "1 (405) 555-1234",
		"1 (405) 555-12349": "1 (405) 555-1234",
		"abc":               "",
	}
	for in, want := range cases {
		if got := format.FormatPhone(in); got != want {
			t.Errorf("FormatPhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatPhone_DigitsRoundTrip(t *testing.T) {
	const source = "918273645501234"
	for n := 0; n <= 11; n++ {
		digits := source[:n]
		out := format.FormatPhone(digits)
		if n == 0 && out != "" {
			t.Fatalf("expected empty output for no digits, got %q", out)
		}
		if got := format.Digits(out); got != digits {
			t.Fatalf("digits(%q) = %q, want %q", out, got, digits)
		}
		if n >= 8 {
			if !strings.HasPrefix(out, digits[:1]+" (") || !strings.Contains(out, ") ") || !strings.Contains(out, "-") {
				t.Fatalf("unexpected full pattern %q for %d digits", out, n)
			}
		}
	}

	long := format.FormatPhone(source)
	if got := format.Digits(long); got != source[:11] {
		t.Fatalf("expected truncation to 11 digits, got %q", got)
	}
	if long != "9 (182) 736-4550" {
		t.Fatalf("unexpected formatted output %q", long)
	}
}

func TestCalloutDisplay(t *testing.T) {
	callout := format.Callout{}
	cases := []struct {
		value any
		want  string
	}{
		{50.0, "Standard"},
		{50, "Standard"},
		{"50.00", "Standard"},
		{75.0, "Emergency"},
		{nil, "Emergency"},
	}
	for _, tc := range cases {
		if got := callout.Display(tc.value); got != tc.want {
			t.Errorf("Display(%v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestBooleanFormatters(t *testing.T) {
	got := []string{
		format.Status{}.Display(true),
		format.Status{}.Display("false"),
		format.Boolean{}.Display(1),
		format.Boolean{}.Display(nil),
	}
	want := []string{"Active", "Inactive", "True", "False"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("boolean display mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := format.NewRegistry()

	if f, ok := reg.Lookup(" Phone "); !ok || f.Name() != format.NamePhone {
		t.Fatalf("expected phone formatter, got %v %v", f, ok)
	}
	if f, ok := reg.Lookup(""); !ok || f != nil {
		t.Fatalf("empty name should resolve to nil formatter")
	}
	if _, ok := reg.Lookup("zipcode"); ok {
		t.Fatalf("unknown formatter should not resolve")
	}

	want := []string{"boolean", "callout", "phone", "status"}
	if diff := cmp.Diff(want, reg.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}
