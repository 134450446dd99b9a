// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package dragdrop decides, from a stream of pointer samples, where a
// dragged term will land. A drag either nests the item under the nearest
// candidate row (an explicit move to the right) or reorders it among the
// siblings of the list it sits in.
package dragdrop

import (
	"errors"
	"fmt"
	"sync"

	"bcm/internal/termtree"
)

var (
	// ErrNotHierarchical is returned by Begin for flat taxonomies.
	ErrNotHierarchical = errors.New("drag disabled: taxonomy is not hierarchical")

	// ErrDragActive is returned by Begin while another drag is running.
	ErrDragActive = errors.New("a drag is already in progress")

	// ErrNotDragging is returned by Drop when no drag is running.
	ErrNotDragging = errors.New("no drag in progress")

	// ErrNoTree is returned by Begin before Use has supplied a tree.
	ErrNoTree = errors.New("drag engine has no tree")
)

// State is the engine state. Idle is both the initial and the final state.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Sample is one pointer-move event.
type Sample struct {
	Pointer      Point
	PlaceholderX float64
}

// Intent is the drop intent after a sample. When Nest is false the drop
// reorders among siblings and ParentID is 0.
type Intent struct {
	ParentID int64
	Nest     bool
	Delta    float64
}

// Session is the state of a running drag.
type Session struct {
	ItemID  int64
	Start   Point
	Current Point
	Intent  Intent
}

// Proposal is the reparent a drop asks for.
type Proposal struct {
	ItemID   int64
	ParentID int64
	Nested   bool
}

// Engine runs one drag at a time. It is safe for concurrent use, though
// shells normally drive it from a single event loop.
type Engine struct {
	cfg Config

	mu           sync.Mutex
	tree         *termtree.Tree
	hierarchical bool
	state        State
	session      Session
	rows         []Row
	excluded     map[int64]bool
}

// NewEngine returns an idle engine using cfg.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg.WithDefaults()}
}

// Config returns the geometry in use.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// SetConfig swaps the geometry. A running drag picks it up on its next sample.
func (e *Engine) SetConfig(cfg Config) {
	e.mu.Lock()
	e.cfg = cfg.WithDefaults()
	e.mu.Unlock()
}

// Use gives the engine the tree the next drag runs against.
func (e *Engine) Use(tree *termtree.Tree, hierarchical bool) {
	e.mu.Lock()
	e.tree = tree
	e.hierarchical = hierarchical
	e.mu.Unlock()
}

// Begin starts dragging itemID from start. rows is the geometry of the
// visible rows; the dragged item and its current descendants are never
// candidates.
func (e *Engine) Begin(itemID int64, start Point, rows []Row) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Dragging {
		return ErrDragActive
	}
	if !e.hierarchical {
		return ErrNotHierarchical
	}
	if e.tree == nil {
		return ErrNoTree
	}
	if !e.tree.Has(itemID) {
		return fmt.Errorf("begin drag %d: %w", itemID, termtree.ErrTermNotFound)
	}

	e.excluded = map[int64]bool{itemID: true}
	for _, id := range e.tree.Descendants(itemID) {
		e.excluded[id] = true
	}
	e.rows = append(e.rows[:0], rows...)
	e.session = Session{ItemID: itemID, Start: start, Current: start}
	e.state = Dragging
	return nil
}

// Move records a pointer sample and returns the recomputed intent.
// Outside a drag it returns the zero Intent.
func (e *Engine) Move(s Sample) Intent {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Dragging {
		return Intent{}
	}
	e.session.Current = s.Pointer
	e.session.Intent = e.intent(s)
	return e.session.Intent
}

func (e *Engine) intent(s Sample) Intent {
	in := Intent{Delta: s.Pointer.X - e.session.Start.X}
	if in.Delta <= e.cfg.NestThreshold {
		return in
	}
	if id, ok := Nearest(e.rows, s, e.cfg.ProximityBand, e.excluded); ok {
		in.ParentID = id
		in.Nest = true
	}
	return in
}

// Nearest returns the candidate parent row for a sample: among rows above
// the pointer whose X lies within band of the placeholder, and which are not
// excluded, the one closest to the pointer. Ties go to the earlier row.
func Nearest(rows []Row, s Sample, band float64, excluded map[int64]bool) (int64, bool) {
	var (
		best  int64
		bestD float64
		found bool
	)
	for _, r := range rows {
		if r.Y >= s.Pointer.Y || excluded[r.TermID] {
			continue
		}
		if dx := r.X - s.PlaceholderX; dx > band || dx < -band {
			continue
		}
		d := s.Pointer.DistanceTo(r.Pos())
		if !found || d < bestD {
			best, bestD, found = r.TermID, d, true
		}
	}
	return best, found
}

// Drop ends the drag. The item nests under the candidate of the last sample
// when the nesting gesture was made, otherwise it goes to structuralParent.
func (e *Engine) Drop(structuralParent int64) (Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Dragging {
		return Proposal{}, ErrNotDragging
	}
	p := Proposal{ItemID: e.session.ItemID, ParentID: structuralParent}
	if e.session.Intent.Nest {
		p.ParentID = e.session.Intent.ParentID
		p.Nested = true
	}
	e.reset()
	return p, nil
}

// Cancel discards the drag, if any.
func (e *Engine) Cancel() {
	e.mu.Lock()
	e.reset()
	e.mu.Unlock()
}

func (e *Engine) reset() {
	e.state = Idle
	e.session = Session{}
	e.rows = e.rows[:0]
	e.excluded = nil
}

// State returns the current engine state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Session returns a copy of the running session and whether one exists.
func (e *Engine) Session() (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session, e.state == Dragging
}

// Excluded reports whether id can never be a candidate in the running drag.
func (e *Engine) Excluded(id int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.excluded[id]
}

// StructuralParent returns the parent a non-nesting drop lands under: the
// parent of the nearest row above pointerY, skipping excluded rows. With
// nothing above, the item goes to the root. A drop just below an expanded
// row, above its first child, lands after that row as its sibling; making
// it the first child takes the nesting gesture.
func StructuralParent(rows []Row, pointerY float64, tree *termtree.Tree, excluded map[int64]bool) int64 {
	var (
		above int64
		bestY float64
		found bool
	)
	for _, r := range rows {
		if r.Y >= pointerY || excluded[r.TermID] {
			continue
		}
		if !found || r.Y > bestY {
			above, bestY, found = r.TermID, r.Y, true
		}
	}
	if !found {
		return 0
	}
	return tree.ParentOf(above)
}

// StructuralParent is the engine-bound form of the package function, using
// the rows and exclusions of the running drag.
func (e *Engine) StructuralParent(pointerY float64) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tree == nil {
		return 0
	}
	return StructuralParent(e.rows, pointerY, e.tree, e.excluded)
}
