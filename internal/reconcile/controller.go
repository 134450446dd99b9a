// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package reconcile keeps a local term tree in step with the term store.
// Moves are applied optimistically, sent to the store, and then either
// confirmed by a reload or rolled back. One mutation runs at a time; a
// second one is refused with ErrBusy.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"bcm/internal/expansion"
	"bcm/internal/models"
	"bcm/internal/termstore"
	"bcm/internal/termtree"
	"bcm/internal/treeview"
)

var (
	// ErrBusy is returned when a mutation is started while another is pending.
	ErrBusy = errors.New("another change is still being saved")

	// ErrNotHierarchical is returned for moves in a flat taxonomy.
	ErrNotHierarchical = errors.New("taxonomy is not hierarchical")

	// ErrNotLoaded is returned by commands that need a tree before Load.
	ErrNotLoaded = errors.New("terms not loaded")
)

// Options wires a Controller to its collaborators. Store and Taxonomy are
// required.
type Options struct {
	Store    termstore.Store
	Taxonomy string

	Notifier  Notifier
	OnChange  func()
	Expansion expansion.Store
	Observer  Observer

	// DefaultTermID marks the taxonomy's fallback term as not deletable.
	DefaultTermID int64
}

// Controller owns the current tree of one taxonomy.
type Controller struct {
	store         termstore.Store
	taxonomy      string
	notifier      Notifier
	onChange      func()
	expStore      expansion.Store
	observer      Observer
	defaultTermID int64

	loads singleflight.Group

	mu           sync.Mutex
	tree         *termtree.Tree
	hierarchical bool
	exp          *expansion.Tracker
	query        string
	filter       *treeview.Filter
	busy         bool
	recall       sync.Once

	// gen is the last generation handed out; applied is the generation of
	// the tree currently shown. A load older than applied is discarded.
	gen     uint64
	applied uint64
}

// New returns a controller with no tree. Call Load before anything else.
func New(opts Options) (*Controller, error) {
	if opts.Store == nil {
		return nil, errors.New("reconcile: nil store")
	}
	if opts.Taxonomy == "" {
		return nil, errors.New("reconcile: empty taxonomy")
	}
	return &Controller{
		store:         opts.Store,
		taxonomy:      opts.Taxonomy,
		notifier:      opts.Notifier,
		onChange:      opts.OnChange,
		expStore:      opts.Expansion,
		observer:      opts.Observer,
		defaultTermID: opts.DefaultTermID,
		exp:           expansion.NewTracker(termtree.Build(nil)),
	}, nil
}

// Taxonomy returns the taxonomy the controller manages.
func (c *Controller) Taxonomy() string {
	return c.taxonomy
}

const loadKey = "terms"

type loadResult struct {
	gen   uint64
	terms *termstore.Terms
}

// Load fetches the authoritative term list and replaces the tree.
// Concurrent loads share one request, and a response that was overtaken by
// a newer state is dropped. While a mutation is pending Load returns
// ErrBusy; the mutation reloads when it settles.
func (c *Controller) Load(ctx context.Context) error {
	if c.Busy() {
		return ErrBusy
	}
	return c.load(ctx, false)
}

// load runs a coalesced fetch. fresh forces a new request instead of
// joining one that may have started before the latest mutation.
func (c *Controller) load(ctx context.Context, fresh bool) error {
	if fresh {
		c.loads.Forget(loadKey)
	}
	v, err, _ := c.loads.Do(loadKey, func() (any, error) {
		g, err := c.nextGen(fresh)
		if err != nil {
			return nil, err
		}
		terms, err := c.store.GetTerms(ctx, c.taxonomy)
		if err != nil {
			return nil, err
		}
		return loadResult{gen: g, terms: terms}, nil
	})
	if errors.Is(err, ErrBusy) {
		return err
	}
	if err != nil {
		return fmt.Errorf("load %s terms: %w", c.taxonomy, err)
	}

	res := v.(loadResult)
	if c.apply(res) {
		c.recall.Do(func() {
			expansion.Recall(ctx, c.expStore, c.taxonomy, c.exp)
		})
		c.changed()
	}
	return nil
}

// nextGen tags a fetch. Only the reload of the pending mutation itself may
// fetch while busy: any other fetch would carry the pre-mutation state past
// the optimistic tree.
func (c *Controller) nextGen(resync bool) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy && !resync {
		return 0, ErrBusy
	}
	c.gen++
	return c.gen, nil
}

func (c *Controller) apply(res loadResult) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if res.gen <= c.applied {
		slog.Debug("stale term list discarded", "taxonomy", c.taxonomy, "gen", res.gen, "applied", c.applied)
		return false
	}
	c.applied = res.gen
	c.hierarchical = res.terms.Hierarchical
	c.setTreeLocked(termtree.Build(res.terms.Terms))
	return true
}

// setTreeLocked swaps the tree and refreshes everything derived from it.
func (c *Controller) setTreeLocked(t *termtree.Tree) {
	c.tree = t
	c.exp.Bind(t)
	c.filter = treeview.Search(t, c.query)
}

// resync reloads after a mutation. Its own errors are only logged: the
// user already got the one notification for the command.
func (c *Controller) resync(ctx context.Context) {
	if err := c.load(context.WithoutCancel(ctx), true); err != nil {
		slog.Error("resync after mutation failed", "taxonomy", c.taxonomy, "error", err)
	}
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

func (c *Controller) notify(level Level, msg string) {
	if c.notifier != nil {
		c.notifier.Notify(level, msg)
	}
}

func (c *Controller) observe(action, outcome string) {
	if c.observer != nil {
		c.observer.ObserveMutation(action, outcome)
	}
}

// begin marks a mutation as in flight.
func (c *Controller) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	if c.tree == nil {
		return ErrNotLoaded
	}
	c.busy = true
	return nil
}

func (c *Controller) end() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
	c.changed()
}

// OnDragDrop moves itemID under proposedParentID. The move shows at once,
// is then sent to the store, and the tree is reloaded whatever the outcome.
// On failure the pre-drop tree is restored first. Exactly one notification
// is emitted unless the drop is a no-op.
func (c *Controller) OnDragDrop(ctx context.Context, itemID, proposedParentID int64) error {
	c.mu.Lock()
	switch {
	case c.busy:
		c.mu.Unlock()
		return ErrBusy
	case c.tree == nil:
		c.mu.Unlock()
		return ErrNotLoaded
	case !c.hierarchical:
		c.mu.Unlock()
		return ErrNotHierarchical
	}
	snapshot := c.tree
	if snapshot.Has(itemID) && snapshot.ParentOf(itemID) == proposedParentID {
		c.mu.Unlock()
		return nil
	}

	next, err := snapshot.Reparent(itemID, proposedParentID)
	if err != nil {
		c.mu.Unlock()
		// The drag engine never proposes these; seeing one means the local
		// tree is out of date.
		slog.Error("invalid move rejected locally", "term", itemID, "parent", proposedParentID, "error", err)
		c.observe(termstore.ActionUpdateTermHierarchy, OutcomeCycle)
		c.resync(ctx)
		var cycle *termtree.CycleError
		if errors.As(err, &cycle) {
			c.notify(LevelError, cycleMessage)
		} else {
			c.notify(LevelError, moveFailed)
		}
		return err
	}

	c.busy = true
	c.gen++
	c.applied = c.gen
	c.setTreeLocked(next)
	c.mu.Unlock()
	c.changed()
	defer c.end()

	res, err := c.store.UpdateTermHierarchy(ctx, itemID, proposedParentID, c.taxonomy)
	if err != nil {
		c.rollback(snapshot)
		c.resync(ctx)
		c.fail(termstore.ActionUpdateTermHierarchy, err, moveFailed)
		return err
	}

	c.resync(ctx)
	c.observe(termstore.ActionUpdateTermHierarchy, OutcomeSuccess)
	c.notify(LevelSuccess, messageOr(res.Message, DefaultMoveSuccess))
	return nil
}

func (c *Controller) rollback(snapshot *termtree.Tree) {
	c.mu.Lock()
	c.gen++
	c.applied = c.gen
	c.setTreeLocked(snapshot)
	c.mu.Unlock()
	c.changed()
}

// fail reports a store failure: the rejection message when the store gave
// one, the fallback otherwise.
func (c *Controller) fail(action string, err error, fallback string) {
	var rej *termstore.RejectionError
	if errors.As(err, &rej) {
		c.observe(action, OutcomeRejected)
		c.notify(LevelError, messageOr(rej.Message, fallback))
		return
	}
	slog.Error("term store request failed", "action", action, "error", err)
	c.observe(action, OutcomeFailed)
	c.notify(LevelError, fallback)
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

// OnSave creates or updates a term, then reloads.
func (c *Controller) OnSave(ctx context.Context, form models.TermForm) (*termstore.Saved, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	if form.Taxonomy == "" {
		form.Taxonomy = c.taxonomy
	}
	res, err := c.store.SaveTerm(ctx, form)
	c.resync(ctx)
	if err != nil {
		c.fail(termstore.ActionSaveTerm, err, saveFailed)
		return nil, err
	}
	c.observe(termstore.ActionSaveTerm, OutcomeSuccess)
	c.notify(LevelSuccess, messageOr(res.Message, DefaultSaveSuccess))
	return res, nil
}

// OnDelete deletes a term, then reloads. Its children move to its parent.
func (c *Controller) OnDelete(ctx context.Context, termID int64) (*termstore.Deleted, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	res, err := c.store.DeleteTerm(ctx, termID, c.taxonomy)
	c.resync(ctx)
	if err != nil {
		c.fail(termstore.ActionDeleteTerm, err, deleteFailed)
		return nil, err
	}
	c.observe(termstore.ActionDeleteTerm, OutcomeSuccess)
	c.notify(LevelSuccess, messageOr(res.Message, DefaultDeleteSuccess))
	return res, nil
}

// EditData loads the edit form data of one term.
func (c *Controller) EditData(ctx context.Context, termID int64) (*termstore.TermData, error) {
	return c.store.GetTermData(ctx, termID, c.taxonomy)
}

// ParentOptions loads the parent dropdown of the taxonomy.
func (c *Controller) ParentOptions(ctx context.Context) (*termstore.ParentOptions, error) {
	return c.store.GetParentOptions(ctx, c.taxonomy)
}

// OnToggle flips the expansion of termID and returns its new state.
func (c *Controller) OnToggle(termID int64) bool {
	open := c.exp.Toggle(termID)
	expansion.Persist(context.Background(), c.expStore, c.taxonomy, c.exp)
	c.changed()
	return open
}

// OnExpandAll expands every first-level term. Deeper levels keep their state.
func (c *Controller) OnExpandAll() {
	c.bulk(c.exp.ExpandAll)
}

// OnCollapseAll collapses every first-level term. Deeper levels keep their state.
func (c *Controller) OnCollapseAll() {
	c.bulk(c.exp.CollapseAll)
}

func (c *Controller) bulk(apply func([]int64)) {
	c.mu.Lock()
	if c.tree == nil || !c.hierarchical {
		c.mu.Unlock()
		return
	}
	ids := treeview.FirstLevel(c.tree.Root())
	c.mu.Unlock()

	apply(ids)
	expansion.Persist(context.Background(), c.expStore, c.taxonomy, c.exp)
	c.changed()
}

// OnSearch filters the view to names containing query. An empty query
// clears the filter.
func (c *Controller) OnSearch(query string) {
	c.mu.Lock()
	c.query = query
	if c.tree != nil {
		c.filter = treeview.Search(c.tree, query)
	}
	c.mu.Unlock()
	c.changed()
}

// Render projects the current state.
func (c *Controller) Render() treeview.View {
	return c.RenderDrag(nil)
}

// RenderDrag projects the current state with a live drag preview.
func (c *Controller) RenderDrag(preview *treeview.DragPreview) treeview.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tree == nil {
		return treeview.View{}
	}
	return treeview.Render(c.tree.Root(), c.exp, treeview.Options{
		Hierarchical:  c.hierarchical,
		Filter:        c.filter,
		Drag:          preview,
		DefaultTermID: c.defaultTermID,
	})
}

// Busy reports whether a mutation is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Tree returns the current tree, nil before the first Load.
func (c *Controller) Tree() *termtree.Tree {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree
}

// Hierarchical reports whether the loaded taxonomy allows nesting.
func (c *Controller) Hierarchical() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hierarchical
}

// Query returns the active search query.
func (c *Controller) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Expansion exposes the expansion tracker for shells that render directly.
func (c *Controller) Expansion() *expansion.Tracker {
	return c.exp
}
