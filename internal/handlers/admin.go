// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"bcm/internal/expansion"
	"bcm/internal/middleware"
	"bcm/internal/models"
	"bcm/internal/reconcile"
	"bcm/internal/render"
	"bcm/internal/session"
	"bcm/internal/termstore"
)

// Admin serves the term tree pages. Expansion state lives in the visitor's
// session, so every request rebuilds its controller from the store.
type Admin struct {
	renderer *render.Renderer
	terms    *Terms
	sessions *session.Store
}

// NewAdmin creates the admin page handlers. sessions may be nil, in which
// case expansion is not remembered between requests.
func NewAdmin(renderer *render.Renderer, terms *Terms, sessions *session.Store) *Admin {
	return &Admin{renderer: renderer, terms: terms, sessions: sessions}
}

// controller loads the tree of taxonomy with the session's expansion.
// notes may be nil when the request changes nothing.
func (a *Admin) controller(r *http.Request, taxonomy string, notes reconcile.Notifier) (*reconcile.Controller, error) {
	var exp expansion.Store
	if id := middleware.SessionIDFromCtx(r.Context()); id != "" && a.sessions != nil {
		exp = a.sessions.Expansion(id)
	}
	ctrl, err := reconcile.New(reconcile.Options{
		Store:         a.terms,
		Taxonomy:      taxonomy,
		Expansion:     exp,
		Notifier:      notes,
		DefaultTermID: a.terms.DefaultTermID(taxonomy),
	})
	if err != nil {
		return nil, err
	}
	if err := ctrl.Load(r.Context()); err != nil {
		return nil, err
	}
	return ctrl, nil
}

func taxonomyParam(r *http.Request) string {
	if tax := r.FormValue("taxonomy"); tax != "" {
		return tax
	}
	return models.TaxonomyCategory
}

// TermsPage renders the term tree of a taxonomy, filtered by the "q"
// query parameter.
func (a *Admin) TermsPage(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.load(w, r, nil)
	if !ok {
		return
	}
	a.renderTree(w, r, ctrl, nil)
}

// ToggleTerm flips the expansion of one term.
func (a *Admin) ToggleTerm(w http.ResponseWriter, r *http.Request) {
	id, ok := termIDParam(w, r)
	if !ok {
		return
	}
	ctrl, ok := a.load(w, r, nil)
	if !ok {
		return
	}
	if !ctrl.Tree().Has(id) {
		http.NotFound(w, r)
		return
	}
	ctrl.OnToggle(id)
	a.afterPost(w, r, ctrl)
}

// ExpandAll expands every first-level term.
func (a *Admin) ExpandAll(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.load(w, r, nil)
	if !ok {
		return
	}
	ctrl.OnExpandAll()
	a.afterPost(w, r, ctrl)
}

// CollapseAll collapses every first-level term.
func (a *Admin) CollapseAll(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.load(w, r, nil)
	if !ok {
		return
	}
	ctrl.OnCollapseAll()
	a.afterPost(w, r, ctrl)
}

// load builds the controller of the requested taxonomy and applies the
// search query. It writes the error response itself when it fails.
func (a *Admin) load(w http.ResponseWriter, r *http.Request, notes reconcile.Notifier) (*reconcile.Controller, bool) {
	ctrl, err := a.controller(r, taxonomyParam(r), notes)
	if err != nil {
		var rej *termstore.RejectionError
		if errors.As(err, &rej) {
			http.NotFound(w, r)
			return nil, false
		}
		slog.Error("failed to load term tree", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	if q := r.FormValue("q"); q != "" {
		ctrl.OnSearch(q)
	}
	return ctrl, true
}

// afterPost answers an HTMX post with the refreshed tree and a plain form
// post with a redirect back to the page.
func (a *Admin) afterPost(w http.ResponseWriter, r *http.Request, ctrl *reconcile.Controller) {
	if r.Header.Get("HX-Request") == "true" {
		a.renderTree(w, r, ctrl, nil)
		return
	}
	params := url.Values{"taxonomy": {ctrl.Taxonomy()}}
	if q := ctrl.Query(); q != "" {
		params.Set("q", q)
	}
	http.Redirect(w, r, "/admin/terms?"+params.Encode(), http.StatusSeeOther)
}

// notes collects the controller's notifications as page flashes.
type notes []render.Flash

func (n *notes) Notify(level reconcile.Level, message string) {
	typ := "success"
	if level == reconcile.LevelError {
		typ = "error"
	}
	*n = append(*n, render.Flash{Type: typ, Message: message})
}

// add reports an error the controller refused before notifying.
func (n *notes) add(err error) {
	switch {
	case len(*n) > 0:
	case errors.Is(err, reconcile.ErrNotHierarchical):
		n.Notify(reconcile.LevelError, msgNotHierarchical)
	case errors.Is(err, reconcile.ErrBusy):
		n.Notify(reconcile.LevelError, "Another change is still being saved.")
	}
}

func termIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid term ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// change runs one term command on the tree of the request's taxonomy and
// answers with the reloaded tree and the outcome as a flash.
func (a *Admin) change(w http.ResponseWriter, r *http.Request, id int64, run func(context.Context, *reconcile.Controller) error) {
	var n notes
	ctrl, ok := a.load(w, r, &n)
	if !ok {
		return
	}
	if !ctrl.Tree().Has(id) {
		http.NotFound(w, r)
		return
	}
	if err := run(r.Context(), ctrl); err != nil {
		n.add(err)
	}
	a.renderTree(w, r, ctrl, n)
}

// MoveTerm moves a term under the "parent" form value; 0 is the top
// level. The tree page posts here when a row is dropped.
func (a *Admin) MoveTerm(w http.ResponseWriter, r *http.Request) {
	id, ok := termIDParam(w, r)
	if !ok {
		return
	}
	parent, ok := formIDOrZero(r, "parent")
	if !ok {
		http.Error(w, msgInvalidParent, http.StatusBadRequest)
		return
	}
	a.change(w, r, id, func(ctx context.Context, ctrl *reconcile.Controller) error {
		return ctrl.OnDragDrop(ctx, id, parent)
	})
}

// DeleteTerm deletes a term. Its children move up one level.
func (a *Admin) DeleteTerm(w http.ResponseWriter, r *http.Request) {
	id, ok := termIDParam(w, r)
	if !ok {
		return
	}
	a.change(w, r, id, func(ctx context.Context, ctrl *reconcile.Controller) error {
		_, err := ctrl.OnDelete(ctx, id)
		return err
	})
}

// EditTermPage renders the edit form of one term.
func (a *Admin) EditTermPage(w http.ResponseWriter, r *http.Request) {
	id, ok := termIDParam(w, r)
	if !ok {
		return
	}
	data, err := a.terms.GetTermData(r.Context(), id, taxonomyParam(r))
	if err != nil {
		var rej *termstore.RejectionError
		if errors.As(err, &rej) {
			http.NotFound(w, r)
			return
		}
		slog.Error("failed to load term", "term", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	form := models.TermForm{
		TermID:      data.Term.ID,
		Taxonomy:    taxonomyParam(r),
		Name:        data.Term.Name,
		Slug:        data.Term.Slug,
		Description: data.Term.Description,
		Parent:      data.Term.Parent,
	}
	a.renderEdit(w, r, form, data, nil)
}

// SaveTermForm saves the edit form. On success the browser goes back to
// the tree; a refused save shows the form again with the reason.
func (a *Admin) SaveTermForm(w http.ResponseWriter, r *http.Request) {
	id, ok := termIDParam(w, r)
	if !ok {
		return
	}
	parent, ok := formIDOrZero(r, "parent")
	if !ok {
		http.Error(w, msgInvalidParent, http.StatusBadRequest)
		return
	}
	form := models.TermForm{
		TermID:      id,
		Taxonomy:    taxonomyParam(r),
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		Slug:        strings.TrimSpace(r.PostFormValue("slug")),
		Description: r.PostFormValue("description"),
		Parent:      parent,
	}

	var n notes
	ctrl, ok := a.load(w, r, &n)
	if !ok {
		return
	}
	if !ctrl.Tree().Has(id) {
		http.NotFound(w, r)
		return
	}
	if _, err := ctrl.OnSave(r.Context(), form); err != nil {
		n.add(err)
		data, derr := a.terms.GetTermData(r.Context(), id, form.Taxonomy)
		if derr != nil {
			slog.Error("failed to reload term", "term", id, "error", derr)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		a.renderEdit(w, r, form, data, n)
		return
	}

	target := "/admin/terms?" + url.Values{"taxonomy": {form.Taxonomy}}.Encode()
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (a *Admin) renderEdit(w http.ResponseWriter, r *http.Request, form models.TermForm, data *termstore.TermData, flashes []render.Flash) {
	a.renderer.Page(w, r, "term_edit", &render.PageData{
		Title:   "Edit " + data.Term.Name,
		Section: "terms",
		Flashes: flashes,
		Data: map[string]any{
			"Form":         form,
			"Hierarchical": data.Hierarchical,
			"Parents": map[string]any{
				"Options":  data.ParentOptions,
				"Selected": form.Parent,
			},
		},
	})
}

func (a *Admin) renderTree(w http.ResponseWriter, r *http.Request, ctrl *reconcile.Controller, flashes []render.Flash) {
	taxonomies, err := a.terms.Taxonomies()
	if err != nil {
		slog.Error("failed to list taxonomies", "error", err)
	}
	var current models.Taxonomy
	for _, tax := range taxonomies {
		if tax.Name == ctrl.Taxonomy() {
			current = tax
		}
	}

	view := ctrl.Render()
	a.renderer.Page(w, r, "terms", &render.PageData{
		Title:   current.Label,
		Section: "terms",
		Flashes: flashes,
		Data: map[string]any{
			"Taxonomy":   current,
			"Taxonomies": taxonomies,
			"Query":      ctrl.Query(),
			"View":       view,
			"Rows":       view.Rows(),
		},
	})
}
