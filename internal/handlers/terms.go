// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"bcm/internal/cache"
	"bcm/internal/models"
	"bcm/internal/render"
	"bcm/internal/slug"
	"bcm/internal/store"
	"bcm/internal/termstore"
)

// User-facing messages of the term actions.
const (
	msgInvalidTaxonomy = "Invalid taxonomy."
	msgInvalidTerm     = "Invalid term ID."
	msgInvalidParent   = "Invalid parent ID."
	msgTermNotFound    = "Term not found."
	msgParentNotFound  = "Parent term not found."
	msgCycle           = "A term cannot be moved under itself or one of its descendants."
	msgNotHierarchical = "This taxonomy does not support parent terms."
	msgNameTaken       = "A term with the name provided already exists with this parent."
	msgInvalidSlug     = "The slug must contain at least one letter or digit."
	msgDefaultTerm     = "The default category cannot be deleted."

	msgSaved     = "Term saved successfully."
	msgMoved     = "Term hierarchy updated successfully."
	msgDeleted   = "Term deleted successfully."
	msgDeletedUp = "Term deleted successfully. Its child terms were moved up one level."
)

// Terms serves the term actions straight from the database. The AJAX
// handler exposes it over HTTP and the admin pages use it in-process, so
// it implements termstore.Store.
type Terms struct {
	store         *store.TermStore
	cache         *cache.TermCache
	invalidations *store.InvalidationLog
	renderer      *render.Renderer
	defaultSlug   string

	loads singleflight.Group
}

var _ termstore.Store = (*Terms)(nil)

// NewTerms wires the term actions. tc may be nil to disable caching.
// defaultSlug names the category that cannot be deleted.
func NewTerms(ts *store.TermStore, tc *cache.TermCache, invalidations *store.InvalidationLog, rn *render.Renderer, defaultSlug string) *Terms {
	return &Terms{
		store:         ts,
		cache:         tc,
		invalidations: invalidations,
		renderer:      rn,
		defaultSlug:   defaultSlug,
	}
}

// reject builds the error for a refused action. cause, when set, stays
// reachable through errors.Is.
func reject(action, message string, cause error) error {
	rej := &termstore.RejectionError{Action: action, Message: message}
	if cause == nil {
		return rej
	}
	return fmt.Errorf("%w: %w", rej, cause)
}

// storeError turns a store failure into a rejection when the user can act
// on it.
func storeError(action string, err error) error {
	switch {
	case errors.Is(err, store.ErrCycle):
		return reject(action, msgCycle, err)
	case errors.Is(err, store.ErrParentNotFound):
		return reject(action, msgParentNotFound, err)
	case errors.Is(err, store.ErrTermNotFound):
		return reject(action, msgTermNotFound, err)
	}
	return fmt.Errorf("%s: %w", action, err)
}

// taxonomy loads a taxonomy or rejects the action when it does not exist.
func (s *Terms) taxonomy(action, name string) (*models.Taxonomy, error) {
	if name == "" {
		return nil, reject(action, msgInvalidTaxonomy, nil)
	}
	tax, err := s.store.Taxonomy(name)
	if err != nil {
		return nil, fmt.Errorf("%s: load taxonomy: %w", action, err)
	}
	if tax == nil {
		return nil, reject(action, msgInvalidTaxonomy, nil)
	}
	return tax, nil
}

// DefaultTermID returns the ID of the term of taxonomy that cannot be
// deleted, or 0 when it has none.
func (s *Terms) DefaultTermID(taxonomy string) int64 {
	if taxonomy != models.TaxonomyCategory || s.defaultSlug == "" {
		return 0
	}
	t, err := s.store.FindBySlug(taxonomy, s.defaultSlug)
	if err != nil {
		slog.Error("failed to look up default term", "taxonomy", taxonomy, "error", err)
		return 0
	}
	if t == nil {
		return 0
	}
	return t.ID
}

// Taxonomies lists every registered taxonomy.
func (s *Terms) Taxonomies() ([]models.Taxonomy, error) {
	return s.store.Taxonomies()
}

// GetTerms returns every term of a taxonomy. Cache misses for the same
// taxonomy share one query.
func (s *Terms) GetTerms(ctx context.Context, taxonomy string) (*termstore.Terms, error) {
	tax, err := s.taxonomy(termstore.ActionGetTerms, taxonomy)
	if err != nil {
		return nil, err
	}

	if terms, ok := s.cache.Get(ctx, tax.Name); ok {
		return &termstore.Terms{Terms: terms, Hierarchical: tax.Hierarchical}, nil
	}

	v, err, _ := s.loads.Do(tax.Name, func() (any, error) {
		terms, err := s.store.List(tax.Name)
		if err != nil {
			return nil, err
		}
		s.cache.Set(context.WithoutCancel(ctx), tax.Name, terms)
		return terms, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", termstore.ActionGetTerms, err)
	}

	terms := v.([]models.Term)
	if terms == nil {
		terms = []models.Term{}
	}
	return &termstore.Terms{Terms: terms, Hierarchical: tax.Hierarchical}, nil
}

// GetTermData returns one term with the parents it may take.
func (s *Terms) GetTermData(_ context.Context, termID int64, taxonomy string) (*termstore.TermData, error) {
	const action = termstore.ActionGetTermData
	if termID <= 0 {
		return nil, reject(action, msgInvalidTerm, nil)
	}
	tax, err := s.taxonomy(action, taxonomy)
	if err != nil {
		return nil, err
	}

	term, err := s.store.FindByID(tax.Name, termID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	if term == nil {
		return nil, reject(action, msgTermNotFound, store.ErrTermNotFound)
	}

	options, err := s.parentOptions(tax, termID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	return &termstore.TermData{Term: *term, ParentOptions: options, Hierarchical: tax.Hierarchical}, nil
}

// SaveTerm creates the term when form.TermID is 0 and updates it
// otherwise. An empty slug is derived from the name; a taken slug gets a
// numeric suffix.
func (s *Terms) SaveTerm(ctx context.Context, form models.TermForm) (*termstore.Saved, error) {
	const action = termstore.ActionSaveTerm

	form.Name = strings.TrimSpace(form.Name)
	form.Slug = strings.TrimSpace(form.Slug)
	if msg := validateForm(form); msg != "" {
		return nil, reject(action, msg, nil)
	}
	tax, err := s.taxonomy(action, form.Taxonomy)
	if err != nil {
		return nil, err
	}
	if !tax.Hierarchical {
		form.Parent = 0
	}

	if !form.IsNew() {
		existing, err := s.store.FindByID(tax.Name, form.TermID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", action, err)
		}
		if existing == nil {
			return nil, reject(action, msgTermNotFound, store.ErrTermNotFound)
		}
	}

	taken, err := s.store.NameTaken(tax.Name, form.Name, form.Parent, form.TermID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	if taken {
		return nil, reject(action, msgNameTaken, nil)
	}

	base := form.Slug
	if base == "" {
		base = form.Name
	}
	base = slug.Generate(base)
	if base == "" {
		return nil, reject(action, msgInvalidSlug, nil)
	}
	unique, err := slug.Unique(base, func(candidate string) (bool, error) {
		return s.store.SlugExists(tax.Name, candidate, form.TermID)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	term := &models.Term{
		ID:          form.TermID,
		Taxonomy:    tax.Name,
		Name:        form.Name,
		Slug:        unique,
		Description: form.Description,
		Parent:      form.Parent,
	}
	if form.IsNew() {
		created, err := s.store.Create(term)
		if err != nil {
			return nil, storeError(action, err)
		}
		term = created
	} else {
		if err := s.store.Update(term); err != nil {
			return nil, storeError(action, err)
		}
		reloaded, err := s.store.FindByID(tax.Name, form.TermID)
		if err != nil {
			return nil, fmt.Errorf("%s: reload term %d: %w", action, form.TermID, err)
		}
		if reloaded == nil {
			return nil, reject(action, msgTermNotFound, store.ErrTermNotFound)
		}
		term = reloaded
	}

	s.invalidate(ctx, tax.Name, term.ID, action)
	slog.Info("term saved", "taxonomy", tax.Name, "term_id", term.ID, "created", form.IsNew())
	return &termstore.Saved{Message: msgSaved, Term: *term}, nil
}

// DeleteTerm removes a term. Its children move up to its parent.
func (s *Terms) DeleteTerm(ctx context.Context, termID int64, taxonomy string) (*termstore.Deleted, error) {
	const action = termstore.ActionDeleteTerm
	if termID <= 0 {
		return nil, reject(action, msgInvalidTerm, nil)
	}
	tax, err := s.taxonomy(action, taxonomy)
	if err != nil {
		return nil, err
	}
	if termID == s.DefaultTermID(tax.Name) {
		return nil, reject(action, msgDefaultTerm, nil)
	}

	children, err := s.store.Delete(tax.Name, termID)
	if err != nil {
		return nil, storeError(action, err)
	}

	s.invalidate(ctx, tax.Name, termID, action)
	slog.Info("term deleted", "taxonomy", tax.Name, "term_id", termID, "children", children)

	msg := msgDeleted
	if children == models.ChildrenMoved {
		msg = msgDeletedUp
	}
	return &termstore.Deleted{Message: msg, ChildrenAction: children}, nil
}

// UpdateTermHierarchy moves termID under parentID (0 for the root).
func (s *Terms) UpdateTermHierarchy(ctx context.Context, termID, parentID int64, taxonomy string) (*termstore.Message, error) {
	const action = termstore.ActionUpdateTermHierarchy
	if termID <= 0 {
		return nil, reject(action, msgInvalidTerm, nil)
	}
	if parentID < 0 {
		return nil, reject(action, msgInvalidParent, nil)
	}
	tax, err := s.taxonomy(action, taxonomy)
	if err != nil {
		return nil, err
	}
	if !tax.Hierarchical {
		return nil, reject(action, msgNotHierarchical, nil)
	}

	if err := s.store.UpdateParent(tax.Name, termID, parentID); err != nil {
		return nil, storeError(action, err)
	}

	s.invalidate(ctx, tax.Name, termID, action)
	slog.Info("term moved", "taxonomy", tax.Name, "term_id", termID, "parent", parentID)
	return &termstore.Message{Message: msgMoved}, nil
}

// GetParentOptions returns every term of a taxonomy as a parent choice,
// with the dropdown markup the edit form embeds.
func (s *Terms) GetParentOptions(_ context.Context, taxonomy string) (*termstore.ParentOptions, error) {
	const action = termstore.ActionGetParentOptions
	tax, err := s.taxonomy(action, taxonomy)
	if err != nil {
		return nil, err
	}

	options, err := s.parentOptions(tax, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	markup, err := s.renderer.ParentDropdown(options, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	return &termstore.ParentOptions{Markup: markup, Options: options}, nil
}

// parentOptions lists the possible parents of exclude. Flat taxonomies
// have none.
func (s *Terms) parentOptions(tax *models.Taxonomy, exclude int64) ([]models.ParentOption, error) {
	if !tax.Hierarchical {
		return []models.ParentOption{}, nil
	}
	options, err := s.store.ParentOptions(tax.Name, exclude)
	if err != nil {
		return nil, err
	}
	if options == nil {
		options = []models.ParentOption{}
	}
	return options, nil
}

// invalidate drops the cached term list of taxonomy after a mutation.
func (s *Terms) invalidate(ctx context.Context, taxonomy string, termID int64, action string) {
	s.loads.Forget(taxonomy)
	s.cache.Invalidate(context.WithoutCancel(ctx), taxonomy)
	if s.invalidations == nil {
		return
	}
	if err := s.invalidations.Record(taxonomy, termID, action); err != nil {
		slog.Warn("failed to log cache invalidation", "term_id", termID, "action", action, "error", err)
	}
}
