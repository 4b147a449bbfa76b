package form

import (
	"context"
	"net/http"

	"github.com/goliatone/go-handyadmin/pkg/client"
	"github.com/goliatone/go-handyadmin/pkg/render"
	"github.com/goliatone/go-handyadmin/pkg/schema"
)

// SubForm is one row of a FormSet. New rows are always editable. Existing
// rows start read-only, become editable through Edit and revert to the last
// fetched snapshot on Cancel.
type SubForm struct {
	*Form

	key      string
	isNew    bool
	editing  bool
	removed  bool
	snapshot Record
}

// NewDraftSubForm builds an editable row that creates a child of parentID.
// key identifies the draft until it is saved.
func NewDraftSubForm(api Submitter, spec schema.Formset, parentID, key string, opts ...Option) *SubForm {
	base := []Option{WithID(spec.Entity + "-" + key)}
	if spec.ParentKey != "" {
		base = append(base, WithExtra(spec.ParentKey, parentID))
	}
	opts = append(base, opts...)
	return &SubForm{
		Form:    New(api, http.MethodPost, spec.CollectionPath(parentID), spec.Fields, opts...),
		key:     key,
		isNew:   true,
		editing: true,
	}
}

// NewRowSubForm builds a read-only row for an existing child record.
func NewRowSubForm(api Submitter, spec schema.Formset, parentID string, record map[string]any, opts ...Option) *SubForm {
	id := Record(record).String("id")
	base := []Option{WithID(spec.Entity + "-" + id), WithRecord(record)}
	if spec.ParentKey != "" {
		base = append(base, WithExtra(spec.ParentKey, parentID))
	}
	opts = append(base, opts...)
	sf := &SubForm{
		Form:     New(api, http.MethodPatch, spec.ItemPath(parentID, id), spec.Fields, opts...),
		key:      id,
		snapshot: Record(record).Clone(),
	}
	sf.Form.readOnly = true
	return sf
}

// Key is the child id for existing rows and the draft id for new ones.
func (s *SubForm) Key() string { return s.key }

// IsNew reports whether the row has not been saved yet.
func (s *SubForm) IsNew() bool { return s.isNew }

// Editing reports whether the row accepts input.
func (s *SubForm) Editing() bool { return s.editing }

// Removed reports whether a cancelled draft asked to be dropped.
func (s *SubForm) Removed() bool { return s.removed }

// Snapshot returns the last fetched record of an existing row.
func (s *SubForm) Snapshot() Record { return s.snapshot.Clone() }

// Edit switches an existing row to editable.
func (s *SubForm) Edit() {
	s.editing = true
	s.Form.mu.Lock()
	s.Form.readOnly = false
	s.Form.mu.Unlock()
}

// Cancel reverts an existing row to its snapshot without refetching. A new
// row is marked removed instead. Neither issues a request.
func (s *SubForm) Cancel() {
	if s.isNew {
		s.removed = true
		return
	}
	s.Form.Reset(s.snapshot)
	s.editing = false
	s.Form.mu.Lock()
	s.Form.readOnly = true
	s.Form.mu.Unlock()
}

// Submit saves the row. An existing row adopts the response as its new
// snapshot and returns to read-only.
func (s *SubForm) Submit(ctx context.Context) (client.Record, error) {
	result, err := s.Form.Submit(ctx)
	if err != nil {
		return nil, err
	}
	if !s.isNew {
		merged := s.snapshot.Clone()
		for key, value := range result {
			merged[key] = value
		}
		s.snapshot = merged
		s.Form.Reset(merged)
		s.editing = false
		s.Form.mu.Lock()
		s.Form.readOnly = true
		s.Form.mu.Unlock()
	}
	return result, nil
}

// View decorates the form snapshot with row state.
func (s *SubForm) View() render.FormView {
	view := s.Form.View()
	view.IsNew = s.isNew
	view.Editing = s.editing
	view.ReadOnly = !s.editing
	return view
}
