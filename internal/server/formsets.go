package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/goliatone/go-handyadmin/pkg/client"
	"github.com/goliatone/go-handyadmin/pkg/form"
	"github.com/goliatone/go-handyadmin/pkg/render"
	"github.com/goliatone/go-handyadmin/pkg/schema"
)

func formsetAction(res schema.Resource, id string, spec schema.Formset) string {
	return "/" + res.Name + "/" + url.PathEscape(id) + "/" + spec.Entity
}

// entityLabel turns an entity name into toast text: "line_item" reads
// "Line item".
func entityLabel(spec schema.Formset) string {
	label := strings.ReplaceAll(spec.Entity, "_", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// childSet is the formset of one parent record. When the formset refreshes
// its parent after a change, the fetched record is kept for the page
// rendered next.
type childSet struct {
	*form.FormSet
	parent client.Record
}

// newFormSet builds the formset of one parent record, linked to the edit
// page. Formsets that change the parent's computed fields re-fetch it.
func (s *Server) newFormSet(res schema.Resource, spec schema.Formset, parentID string, extra ...form.FormSetOption) *childSet {
	cs := &childSet{}
	opts := []form.FormSetOption{
		form.WithLinks(editURL(res, parentID), formsetAction(res, parentID, spec)),
		form.WithFormSetLogger(s.logger),
	}
	if spec.RefreshParent {
		opts = append(opts, form.WithParentRefresh(func(ctx context.Context) error {
			parent, err := s.api.Get(ctx, res.ItemPath(parentID))
			if err != nil {
				return err
			}
			cs.parent = parent
			return nil
		}))
	}
	cs.FormSet = form.NewFormSet(s.api, spec, parentID, append(opts, extra...)...)
	return cs
}

// renderChanged shows the edit page straight from the refreshed formset and
// parent. A failed refresh falls back to a redirect so the page is fetched
// fresh.
func (s *Server) renderChanged(w http.ResponseWriter, r *http.Request, res schema.Resource, cs *childSet, message string, refreshErr error) {
	parentID := cs.ParentID()
	if refreshErr != nil {
		s.logger.Warn("formset refresh after change failed",
			zap.String("entity", cs.Spec().Entity),
			zap.String("id", parentID),
			zap.Error(refreshErr),
		)
		setFlash(w, success(message))
		redirect(w, r, editURL(res, parentID))
		return
	}
	s.renderEdit(w, r, res, parentID, editState{
		toasts:   []render.Toast{success(message)},
		parent:   cs.parent,
		formsets: map[string]*form.FormSet{cs.Spec().Entity: cs.FormSet},
	})
}

func (s *Server) formsetSpec(w http.ResponseWriter, r *http.Request) (schema.Resource, schema.Formset, bool) {
	res, ok := s.resource(w, r)
	if !ok {
		return schema.Resource{}, schema.Formset{}, false
	}
	spec, ok := res.Formset(chi.URLParam(r, "entity"))
	if !ok {
		s.handleNotFound(w, r)
		return schema.Resource{}, schema.Formset{}, false
	}
	if err := parseForm(r); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return schema.Resource{}, schema.Formset{}, false
	}
	return res, spec, true
}

// handleDraft saves one formset draft under its parent.
func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	res, spec, ok := s.formsetSpec(w, r)
	if !ok {
		return
	}
	if render.EffectiveMethod(r) != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	parentID := chi.URLParam(r, "id")
	draftID := r.FormValue(render.DraftFieldName)
	if draftID == "" {
		http.Error(w, "missing draft id", http.StatusBadRequest)
		return
	}

	fs := s.newFormSet(res, spec, parentID)
	if err := fs.RestoreDraft(draftID).Bind(r.Form, multipartFiles(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := fs.SaveDraft(r.Context(), draftID)
	if err != nil && result == nil {
		if s.unauthorized(w, r, err) {
			return
		}
		if loadErr := fs.Load(r.Context()); loadErr != nil {
			s.logger.Warn("formset load failed", zap.String("entity", spec.Entity), zap.Error(loadErr))
		}
		s.renderEdit(w, r, res, parentID, editState{
			status:   failureStatus(err),
			formsets: map[string]*form.FormSet{spec.Entity: fs.FormSet},
		})
		return
	}
	s.renderChanged(w, r, res, fs, entityLabel(spec)+" successfully created!", err)
}

// handleChild updates or deletes one saved formset row.
func (s *Server) handleChild(w http.ResponseWriter, r *http.Request) {
	res, spec, ok := s.formsetSpec(w, r)
	if !ok {
		return
	}
	parentID := chi.URLParam(r, "id")
	childID := chi.URLParam(r, "child")
	fs := s.newFormSet(res, spec, parentID)

	switch render.EffectiveMethod(r) {
	case http.MethodPatch, http.MethodPut:
		fs.Edit(childID)
		if err := fs.Load(r.Context()); err != nil {
			if s.unauthorized(w, r, err) {
				return
			}
			s.fail(w, r, err)
			return
		}
		row, found := fs.Row(childID)
		if !found {
			s.handleNotFound(w, r)
			return
		}
		if err := row.Bind(r.Form, multipartFiles(r)); err != nil {
			s.fail(w, r, err)
			return
		}
		result, err := fs.Update(r.Context(), childID)
		if err != nil && result == nil {
			if s.unauthorized(w, r, err) {
				return
			}
			s.renderEdit(w, r, res, parentID, editState{
				status:   failureStatus(err),
				formsets: map[string]*form.FormSet{spec.Entity: fs.FormSet},
			})
			return
		}
		s.renderChanged(w, r, res, fs, entityLabel(spec)+" successfully updated!", err)

	case http.MethodDelete:
		err := fs.Delete(r.Context(), childID)
		if err != nil {
			if s.unauthorized(w, r, err) {
				return
			}
			if errors.Is(err, form.ErrDeleteFailed) {
				setFlash(w, failure(DeleteFailedMessage))
				redirect(w, r, editURL(res, parentID))
				return
			}
		}
		s.renderChanged(w, r, res, fs, entityLabel(spec)+" successfully deleted!", err)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
