package form

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-handyadmin/pkg/client"
	"github.com/goliatone/go-handyadmin/pkg/render"
	"github.com/goliatone/go-handyadmin/pkg/schema"
)

// ErrDraftNotFound is returned for unknown draft ids.
var ErrDraftNotFound = errors.New("form: draft not found")

// API is the subset of the REST client a FormSet uses.
type API interface {
	Submitter
	List(ctx context.Context, path string) ([]client.Record, error)
	Delete(ctx context.Context, path string) error
}

// FormSetOption configures a FormSet.
type FormSetOption func(*FormSet)

// WithParentRefresh registers the callback run after a child changes when the
// formset is configured with RefreshParent.
func WithParentRefresh(fn func(ctx context.Context) error) FormSetOption {
	return func(fs *FormSet) { fs.refreshParent = fn }
}

// WithoutRefresh skips the reload that normally follows a change, for
// callers that never show this formset again.
func WithoutRefresh() FormSetOption {
	return func(fs *FormSet) { fs.skipRefresh = true }
}

// WithLinks sets the browser URLs rows link to: page is the page hosting the
// formset and action is the base URL its forms post to.
func WithLinks(page, action string) FormSetOption {
	return func(fs *FormSet) {
		fs.pageURL = page
		fs.actionURL = strings.TrimRight(action, "/")
	}
}

// WithRowOptions applies form options to every row and draft.
func WithRowOptions(opts ...Option) FormSetOption {
	return func(fs *FormSet) { fs.rowOpts = append(fs.rowOpts, opts...) }
}

// WithFormSetLogger attaches a logger.
func WithFormSetLogger(logger *zap.Logger) FormSetOption {
	return func(fs *FormSet) {
		if logger != nil {
			fs.logger = logger
		}
	}
}

// FormSet manages the children of one parent record: loaded rows plus an
// in-memory list of drafts keyed by generated ids. Drafts render alongside
// the rows; adding one never touches the others.
type FormSet struct {
	mu sync.Mutex

	api      API
	spec     schema.Formset
	parentID string

	rows    []*SubForm
	drafts  []*SubForm
	loadErr error
	editing string

	refreshParent func(ctx context.Context) error
	skipRefresh   bool
	rowOpts       []Option
	pageURL       string
	actionURL     string
	logger        *zap.Logger
}

// NewFormSet builds a formset for the children of parentID.
func NewFormSet(api API, spec schema.Formset, parentID string, opts ...FormSetOption) *FormSet {
	fs := &FormSet{
		api:      api,
		spec:     spec,
		parentID: parentID,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(fs)
		}
	}
	return fs
}

// Spec returns the formset description.
func (fs *FormSet) Spec() schema.Formset { return fs.spec }

// ParentID returns the parent record id.
func (fs *FormSet) ParentID() string { return fs.parentID }

// Load fetches the children from the nested route. Formsets configured as
// NewEntityOnly never list.
func (fs *FormSet) Load(ctx context.Context) error {
	if fs.spec.NewEntityOnly || fs.parentID == "" {
		fs.mu.Lock()
		fs.rows = nil
		fs.mu.Unlock()
		return nil
	}

	records, err := fs.api.List(ctx, fs.spec.CollectionPath(fs.parentID))
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.loadErr = err
	if err != nil {
		return fmt.Errorf("form: load %s: %w", fs.spec.Entity, err)
	}
	rows := make([]*SubForm, 0, len(records))
	for _, record := range records {
		row := NewRowSubForm(fs.api, fs.spec, fs.parentID, record, fs.rowOptions(Record(record).String("id"))...)
		if row.Key() == fs.editing && fs.editing != "" {
			row.Edit()
		}
		rows = append(rows, row)
	}
	fs.rows = rows
	return nil
}

// Rows returns the loaded rows.
func (fs *FormSet) Rows() []*SubForm {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]*SubForm(nil), fs.rows...)
}

// Row returns the loaded row for a child id.
func (fs *FormSet) Row(id string) (*SubForm, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, row := range fs.rows {
		if row.Key() == id {
			return row, true
		}
	}
	return nil, false
}

// Drafts returns the unsaved rows in creation order.
func (fs *FormSet) Drafts() []*SubForm {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]*SubForm(nil), fs.drafts...)
}

// AddDraft appends a blank row under a fresh id.
func (fs *FormSet) AddDraft() *SubForm {
	return fs.RestoreDraft(uuid.NewString())
}

// RestoreDraft appends a blank row under an existing draft id, as carried by
// a browser round trip. Restoring an id twice returns the existing draft.
func (fs *FormSet) RestoreDraft(id string) *SubForm {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, draft := range fs.drafts {
		if draft.Key() == id {
			return draft
		}
	}
	draft := NewDraftSubForm(fs.api, fs.spec, fs.parentID, id, fs.draftOptions(id)...)
	fs.drafts = append(fs.drafts, draft)
	return draft
}

// Draft returns a draft by id.
func (fs *FormSet) Draft(id string) (*SubForm, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, draft := range fs.drafts {
		if draft.Key() == id {
			return draft, true
		}
	}
	return nil, false
}

// Discard drops a draft without any request.
func (fs *FormSet) Discard(id string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for i, draft := range fs.drafts {
		if draft.Key() == id {
			draft.Cancel()
			fs.drafts = append(fs.drafts[:i], fs.drafts[i+1:]...)
			return true
		}
	}
	return false
}

// Edit marks a loaded row editable, including rows loaded later.
func (fs *FormSet) Edit(id string) {
	fs.mu.Lock()
	fs.editing = id
	rows := append([]*SubForm(nil), fs.rows...)
	fs.mu.Unlock()
	for _, row := range rows {
		if row.Key() == id {
			row.Edit()
		}
	}
}

// SaveDraft posts a draft. On success the draft leaves the drafts list and
// the children are reloaded so it appears as a regular row.
func (fs *FormSet) SaveDraft(ctx context.Context, id string) (client.Record, error) {
	draft, ok := fs.Draft(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	result, err := draft.Submit(ctx)
	if err != nil {
		return nil, err
	}
	fs.mu.Lock()
	for i, d := range fs.drafts {
		if d == draft {
			fs.drafts = append(fs.drafts[:i], fs.drafts[i+1:]...)
			break
		}
	}
	fs.mu.Unlock()
	return result, fs.afterChange(ctx)
}

// SaveDrafts saves every touched draft in order and stops at the first
// failure. Untouched drafts are discarded.
func (fs *FormSet) SaveDrafts(ctx context.Context) error {
	for _, draft := range fs.Drafts() {
		if !draft.Touched() {
			fs.Discard(draft.Key())
			continue
		}
		if _, err := fs.SaveDraft(ctx, draft.Key()); err != nil {
			return err
		}
	}
	return nil
}

// Update saves an edited row and reloads the children.
func (fs *FormSet) Update(ctx context.Context, id string) (client.Record, error) {
	row, ok := fs.Row(id)
	if !ok {
		return nil, fmt.Errorf("form: %s %q not found", fs.spec.Entity, id)
	}
	result, err := row.Submit(ctx)
	if err != nil {
		return nil, err
	}
	fs.mu.Lock()
	if fs.editing == id {
		fs.editing = ""
	}
	fs.mu.Unlock()
	return result, fs.afterChange(ctx)
}

// Delete removes a child. On success the children are reloaded exactly once
// and, when configured, the parent is refreshed exactly once.
func (fs *FormSet) Delete(ctx context.Context, id string) error {
	if err := fs.api.Delete(ctx, fs.spec.ItemPath(fs.parentID, id)); err != nil {
		fs.logger.Debug("formset delete failed",
			zap.String("entity", fs.spec.Entity),
			zap.String("id", id),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrDeleteFailed, err)
	}
	return fs.afterChange(ctx)
}

func (fs *FormSet) afterChange(ctx context.Context) error {
	if fs.skipRefresh {
		return nil
	}
	if err := fs.Load(ctx); err != nil {
		return err
	}
	if fs.spec.RefreshParent && fs.refreshParent != nil {
		if err := fs.refreshParent(ctx); err != nil {
			return fmt.Errorf("form: refresh parent of %s: %w", fs.spec.Entity, err)
		}
	}
	return nil
}

func (fs *FormSet) rowOptions(id string) []Option {
	opts := []Option{WithPrefix(fs.spec.Entity + "-" + id + "-")}
	if fs.actionURL != "" {
		opts = append(opts, WithAction(fs.actionURL+"/"+url.PathEscape(id)+"/"))
	}
	return append(opts, fs.rowOpts...)
}

func (fs *FormSet) draftOptions(id string) []Option {
	opts := []Option{
		WithPrefix(fs.spec.Entity + "-" + id + "-"),
		WithHidden(render.DraftID(id)),
		WithSubmitLabel("Save"),
	}
	if fs.actionURL != "" {
		opts = append(opts, WithAction(fs.actionURL+"/"))
	}
	return append(opts, fs.rowOpts...)
}

// DraftIDs returns the ids of the current drafts in order.
func (fs *FormSet) DraftIDs() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	ids := make([]string, 0, len(fs.drafts))
	for _, draft := range fs.drafts {
		ids = append(ids, draft.Key())
	}
	return ids
}

// View renders rows and drafts. Row and draft links point back at the host
// page carrying the remaining draft ids in the query string.
func (fs *FormSet) View() render.FormsetView {
	rows := fs.Rows()
	drafts := fs.Drafts()
	draftIDs := fs.DraftIDs()

	view := render.FormsetView{
		Entity:   fs.spec.Entity,
		Title:    fs.spec.Title,
		ParentID: fs.parentID,
		Rows:     make([]render.FormView, 0, len(rows)),
		Drafts:   make([]render.FormView, 0, len(drafts)),
	}
	if view.Title == "" {
		view.Title = fs.spec.Entity
	}
	fs.mu.Lock()
	if fs.loadErr != nil {
		view.Errors = []string{render.UnexpectedErrorMessage}
	}
	fs.mu.Unlock()

	if fs.pageURL != "" {
		view.AddURL = fs.pageLink(append(draftIDs, uuid.NewString()), "")
	}

	for _, row := range rows {
		rv := row.View()
		if fs.pageURL != "" {
			rv.EditURL = fs.pageLink(draftIDs, row.Key())
			rv.CancelURL = fs.pageLink(draftIDs, "")
		}
		if fs.actionURL != "" {
			rv.Delete = &render.FormView{
				ID:          rv.ID + "-delete",
				Action:      fs.actionURL + "/" + url.PathEscape(row.Key()) + "/",
				Method:      "POST",
				Hidden:      []render.HiddenField{render.MethodOverride("DELETE")},
				SubmitLabel: "Delete",
				Multipart:   true,
				Confirm:     fmt.Sprintf("Delete this %s?", fs.spec.Entity),
			}
		}
		view.Rows = append(view.Rows, rv)
	}
	for _, draft := range drafts {
		dv := draft.View()
		if fs.pageURL != "" {
			dv.CancelURL = fs.pageLink(without(draftIDs, draft.Key()), "")
		}
		view.Drafts = append(view.Drafts, dv)
	}
	return view
}

func (fs *FormSet) pageLink(drafts []string, edit string) string {
	query := url.Values{}
	for _, id := range drafts {
		query.Add(fs.spec.Entity, id)
	}
	if edit != "" {
		query.Set("edit", fs.spec.Entity+":"+edit)
	}
	if len(query) == 0 {
		return fs.pageURL
	}
	return fs.pageURL + "?" + query.Encode()
}

func without(ids []string, drop string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

// Inline returns the draft rendered for embedding in the parent's create
// form. ok is false for unknown draft ids.
func (fs *FormSet) Inline(id string) (render.NestedView, bool) {
	draft, ok := fs.Draft(id)
	if !ok {
		return render.NestedView{}, false
	}
	title := fs.spec.Title
	if title == "" {
		title = fs.spec.Entity
	}
	return render.NestedView{
		Entity:  fs.spec.Entity,
		Title:   title,
		DraftID: id,
		Fields:  draft.View().Fields,
	}, true
}
