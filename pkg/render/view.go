package render

// View models are the renderer-facing snapshots produced by forms, formsets
// and tables. They carry display strings only; renderers never reach back
// into records or formatters. JSON tags define the keys templates see.

// ChoiceView is one option of a select control.
type ChoiceView struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// FieldView is one control with its current value and messages.
type FieldView struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Label     string       `json:"label"`
	Kind      string       `json:"kind"`
	InputType string       `json:"input_type"`
	HTMLType  string       `json:"html_type"`
	Value     string       `json:"value"`
	Checked   bool         `json:"checked"`
	Required  bool         `json:"required"`
	Disabled  bool         `json:"disabled"`
	ReadOnly  bool         `json:"readonly"`
	MinLength *int         `json:"minlength,omitempty"`
	MaxLength *int         `json:"maxlength,omitempty"`
	Min       *float64     `json:"min,omitempty"`
	Max       *float64     `json:"max,omitempty"`
	Formatter string       `json:"formatter,omitempty"`
	Choices   []ChoiceView `json:"choices,omitempty"`
	Errors    []string     `json:"errors,omitempty"`
}

// FormView is the render-ready state of a Form or SubForm.
type FormView struct {
	ID          string        `json:"id"`
	Title       string        `json:"title,omitempty"`
	Action      string        `json:"action"`
	Method      string        `json:"method"`
	Fields      []FieldView   `json:"fields"`
	Hidden      []HiddenField `json:"hidden,omitempty"`
	Errors      []string      `json:"errors,omitempty"`
	SubmitLabel string        `json:"submit_label"`
	Submitting  bool          `json:"submitting"`
	Multipart   bool          `json:"multipart"`
	// Confirm is the confirmation text of delete forms.
	Confirm string `json:"confirm,omitempty"`

	// SubForm row state. ReadOnly rows render an Edit link instead of a
	// submit button.
	IsNew    bool   `json:"is_new,omitempty"`
	Editing  bool   `json:"editing,omitempty"`
	ReadOnly bool   `json:"readonly,omitempty"`
	EditURL  string `json:"edit_url,omitempty"`
	// CancelURL reverts an edit (existing rows) or discards a draft.
	CancelURL string    `json:"cancel_url,omitempty"`
	Delete    *FormView `json:"delete,omitempty"`

	// Nested holds child drafts submitted together with this form.
	Nested []NestedView `json:"nested,omitempty"`
}

// NestedView is a formset draft rendered inside its parent's form. Its
// fields carry prefixed names so they never collide with the parent's.
type NestedView struct {
	Entity  string      `json:"entity"`
	Title   string      `json:"title"`
	DraftID string      `json:"draft_id"`
	Fields  []FieldView `json:"fields"`
}

// FormsetView renders a nested collection under a parent record.
type FormsetView struct {
	Entity   string     `json:"entity"`
	Title    string     `json:"title"`
	ParentID string     `json:"parent_id"`
	Rows     []FormView `json:"rows"`
	Drafts   []FormView `json:"drafts"`
	AddURL   string     `json:"add_url"`
	Errors   []string   `json:"errors,omitempty"`
}

// ColumnView is one table header.
type ColumnView struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// CellView is one table cell.
type CellView struct {
	Field   string `json:"field"`
	Display string `json:"display"`
	Class   string `json:"class,omitempty"`
}

// RowView is one table row with its action targets.
type RowView struct {
	ID        string     `json:"id"`
	Cells     []CellView `json:"cells"`
	EditURL   string     `json:"edit_url,omitempty"`
	Update    *FormView  `json:"update,omitempty"`
	Delete    *FormView  `json:"delete,omitempty"`
}

// TableView renders a collection with its create/update/delete modals.
type TableView struct {
	Resource   string       `json:"resource"`
	Title      string       `json:"title"`
	Columns    []ColumnView `json:"columns"`
	Rows       []RowView    `json:"rows"`
	Create     *FormView    `json:"create,omitempty"`
	UpdateType string       `json:"update_type"`
	ReadOnly   bool         `json:"readonly"`
	Errors     []string     `json:"errors,omitempty"`
}

// NavItem is one sidebar link.
type NavItem struct {
	Label  string `json:"label"`
	Href   string `json:"href"`
	Active bool   `json:"active"`
}

// Toast kinds.
const (
	ToastSuccess = "success"
	ToastError   = "error"
	ToastInfo    = "info"
)

// Toast is a one-shot notification shown by the page shell.
type Toast struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// PageView wraps rendered content in the navigation chrome.
type PageView struct {
	Title   string    `json:"title"`
	Nav     []NavItem `json:"nav"`
	Profile string    `json:"profile,omitempty"`
	Public  bool      `json:"public"`
	Toasts  []Toast   `json:"toasts,omitempty"`
	// Body is trusted HTML produced by a renderer.
	Body string `json:"body"`
}
