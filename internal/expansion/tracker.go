// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package expansion tracks which tree rows the user has expanded. The set
// survives tree reloads: ids that disappear from the tree are kept and
// simply never match, so a term that comes back keeps its state.
package expansion

import (
	"slices"
	"sync"
)

// ChildChecker reports whether a term has children. *termtree.Tree
// satisfies it.
type ChildChecker interface {
	HasChildren(id int64) bool
}

// Tracker is the expansion set of one taxonomy. It is safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	expanded map[int64]struct{}
	checker  ChildChecker
}

// NewTracker creates an empty (all collapsed) tracker bound to checker.
// A nil checker makes every id toggleable until Bind is called.
func NewTracker(checker ChildChecker) *Tracker {
	return &Tracker{
		expanded: make(map[int64]struct{}),
		checker:  checker,
	}
}

// Bind switches the tracker to a new tree, typically after a reload.
// The expansion set itself is left as it is.
func (t *Tracker) Bind(checker ChildChecker) {
	t.mu.Lock()
	t.checker = checker
	t.mu.Unlock()
}

func (t *Tracker) toggleable(id int64) bool {
	if id <= 0 {
		return false
	}
	return t.checker == nil || t.checker.HasChildren(id)
}

// Toggle flips the expansion state of id and returns the new state.
// Childless and unknown terms are not toggleable: the call is a no-op and
// reports the current state.
func (t *Tracker) Toggle(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, open := t.expanded[id]
	if !t.toggleable(id) {
		return open
	}
	if open {
		delete(t.expanded, id)
		return false
	}
	t.expanded[id] = struct{}{}
	return true
}

// IsExpanded reports whether id is in the expansion set.
func (t *Tracker) IsExpanded(id int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.expanded[id]
	return ok
}

// ExpandAll expands every toggleable id in ids. Other ids keep their state.
func (t *Tracker) ExpandAll(ids []int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		if t.toggleable(id) {
			t.expanded[id] = struct{}{}
		}
	}
}

// CollapseAll collapses every id in ids. Other ids keep their state.
func (t *Tracker) CollapseAll(ids []int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		delete(t.expanded, id)
	}
}

// Snapshot returns the expanded ids in ascending order.
func (t *Tracker) Snapshot() []int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]int64, 0, len(t.expanded))
	for id := range t.expanded {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Restore replaces the expansion set with ids. Ids are taken as they are,
// including ids the current tree does not know.
func (t *Tracker) Restore(ids []int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expanded = make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id > 0 {
			t.expanded[id] = struct{}{}
		}
	}
}

// Len returns the size of the expansion set, stale ids included.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.expanded)
}
