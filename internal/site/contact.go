package site

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-handyadmin/pkg/client"
	"github.com/goliatone/go-handyadmin/pkg/form"
	"github.com/goliatone/go-handyadmin/pkg/format"
	"github.com/goliatone/go-handyadmin/pkg/render"
	"github.com/goliatone/go-handyadmin/pkg/schema"
)

// Contact form endpoints and messages.
const (
	ContactPath         = "contact/"
	ServiceRoute        = "service"
	EmailMismatch       = "Emails must match!"
	ContactSuccessToast = "Thanks! We'll be in touch shortly."
)

var (
	messagePolicyOnce sync.Once
	messagePolicy     *bluemonday.Policy
)

func messageSanitizer() *bluemonday.Policy {
	messagePolicyOnce.Do(func() {
		messagePolicy = bluemonday.StrictPolicy()
	})
	return messagePolicy
}

// SanitizeMessage strips markup from free text typed by visitors.
func SanitizeMessage(raw string) string {
	return strings.TrimSpace(html.UnescapeString(messageSanitizer().Sanitize(raw)))
}

// ContactFields returns the public contact form schema.
func ContactFields() []schema.Field {
	firstName := schema.Input("first_name", "First Name", schema.InputText)
	firstName.Required = true
	firstName.MaxLength = schema.IntPtr(50)

	lastName := schema.Input("last_name", "Last Name", schema.InputText)
	lastName.Required = true
	lastName.MaxLength = schema.IntPtr(50)

	email := schema.Input("email", "Email", schema.InputEmail)
	email.Required = true

	confirm := schema.Input("confirm_email", "Confirm Email", schema.InputEmail)
	confirm.Required = true

	phone := schema.Input("phone", "Phone", schema.InputTel)
	phone.Formatter = format.Phone{}

	service := schema.Field{
		Name:     "service",
		Label:    "Service",
		Kind:     schema.ElementSelect,
		Lookup:   ServiceRoute,
		Required: true,
	}

	message := schema.Input("message", "Message", schema.InputTextarea)
	message.Required = true
	message.MaxLength = schema.IntPtr(2000)
	message.OnChange = func(_ map[string]any, value any) any {
		if s, ok := value.(string); ok {
			return SanitizeMessage(s)
		}
		return value
	}

	return []schema.Field{firstName, lastName, email, confirm, phone, service, message}
}

// ValidateEmails reports a mismatch between email and confirm_email under
// confirm_email.
func ValidateEmails(record form.Record) render.ErrorMap {
	email := strings.TrimSpace(record.String("email"))
	confirm := strings.TrimSpace(record.String("confirm_email"))
	if confirm == "" || email == confirm {
		return nil
	}
	return render.ErrorMap{"confirm_email": {EmailMismatch}}
}

// Lister fetches collections.
type Lister interface {
	List(ctx context.Context, path string) ([]client.Record, error)
}

// ServiceChoices lists the services offered, for the contact form select.
func ServiceChoices(ctx context.Context, api Lister) ([]schema.Choice, error) {
	spec := schema.LookupSpec{Route: ServiceRoute}
	records, err := api.List(ctx, schema.JoinRoute(spec.Route))
	if err != nil {
		return nil, fmt.Errorf("site: list services: %w", err)
	}
	choices := make([]schema.Choice, 0, len(records))
	for _, rec := range records {
		value, ok := client.Stringify(rec[spec.Value()])
		if !ok {
			continue
		}
		label, _ := client.Stringify(rec[spec.Label()])
		if label == "" {
			label = value
		}
		choices = append(choices, schema.Choice{Value: value, Label: label})
	}
	return choices, nil
}

// NewContactForm builds the contact form posting to the upstream contact
// endpoint. Mismatched emails block submission.
func NewContactForm(api form.Submitter, services []schema.Choice, opts ...form.Option) *form.Form {
	base := []form.Option{
		form.WithID("contact"),
		form.WithTitle("Contact Us"),
		form.WithAction("/contact"),
		form.WithSubmitLabel("Send"),
		form.WithChoices("service", services),
		form.WithValidator(ValidateEmails),
	}
	return form.New(api, "POST", ContactPath, ContactFields(), append(base, opts...)...)
}
