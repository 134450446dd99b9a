// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package termtree turns the flat, parent-pointer term list returned by the
// term store into a navigable tree. A Tree is immutable: Reparent returns a
// new tree and leaves the receiver untouched, so a previous tree can always be
// kept as a rollback snapshot.
package termtree

import (
	"errors"
	"fmt"

	"bcm/internal/models"
)

var (
	// ErrTermNotFound is returned when an operation names a term id that is not in the tree.
	ErrTermNotFound = errors.New("term not found")

	// ErrParentNotFound is returned when a reparent target is neither 0 nor a known term.
	ErrParentNotFound = errors.New("parent term not found")
)

// CycleError reports an attempt to move a term under itself or under one of
// its own descendants.
type CycleError struct {
	TermID   int64
	ParentID int64
}

func (e *CycleError) Error() string {
	if e.TermID == e.ParentID {
		return fmt.Sprintf("term %d cannot be its own parent", e.TermID)
	}
	return fmt.Sprintf("term %d cannot move under its descendant %d", e.TermID, e.ParentID)
}

// Node is one term in the tree. The synthetic root has a zero Term.
// Nodes are shared with the Tree that built them and must not be modified.
type Node struct {
	Term     models.Term
	Children []*Node
}

// ID returns the term id of the node (0 for the synthetic root).
func (n *Node) ID() int64 {
	return n.Term.ID
}

// Tree is the hierarchical view of one taxonomy's terms.
type Tree struct {
	root  *Node
	nodes map[int64]*Node
	order []int64 // term ids in input order, duplicates removed
}

// Build creates a tree from a flat term list. Children keep the input order
// within each parent group. Terms whose parent is unknown, negative or the
// term itself are attached to the root, and so are terms trapped in a parent
// cycle, so every valid input id appears exactly once. Terms with an id <= 0
// cannot be addressed and are skipped; for duplicate ids the first wins.
func Build(terms []models.Term) *Tree {
	t := &Tree{
		root:  &Node{},
		nodes: make(map[int64]*Node, len(terms)),
		order: make([]int64, 0, len(terms)),
	}

	for _, term := range terms {
		if term.ID <= 0 {
			continue
		}
		if _, dup := t.nodes[term.ID]; dup {
			continue
		}
		t.nodes[term.ID] = &Node{Term: term}
		t.order = append(t.order, term.ID)
	}

	for _, id := range t.order {
		n := t.nodes[id]
		p := n.Term.Parent
		switch {
		case p == 0:
		case p < 0, p == id:
			n.Term.Parent = 0
		default:
			if _, ok := t.nodes[p]; !ok {
				n.Term.Parent = 0
			}
		}
	}

	t.breakCycles()

	for _, id := range t.order {
		n := t.nodes[id]
		parent := t.root
		if n.Term.Parent != 0 {
			parent = t.nodes[n.Term.Parent]
		}
		parent.Children = append(parent.Children, n)
	}

	return t
}

// breakCycles attaches to the root every term that cannot be reached from it.
// Such terms only exist when the input parent graph contains a cycle.
func (t *Tree) breakCycles() {
	childrenOf := make(map[int64][]int64, len(t.order))
	for _, id := range t.order {
		p := t.nodes[id].Term.Parent
		childrenOf[p] = append(childrenOf[p], id)
	}

	reached := make(map[int64]bool, len(t.order))
	mark := func(start int64) {
		stack := []int64{start}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, child := range childrenOf[id] {
				if !reached[child] {
					reached[child] = true
					stack = append(stack, child)
				}
			}
		}
	}

	mark(0)
	for _, id := range t.order {
		if reached[id] {
			continue
		}
		t.nodes[id].Term.Parent = 0
		reached[id] = true
		mark(id)
	}
}

// Root returns the synthetic root node (Term.ID 0).
func (t *Tree) Root() *Node {
	return t.root
}

// Node returns the node for a term id.
func (t *Tree) Node(id int64) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Has reports whether the tree contains the term.
func (t *Tree) Has(id int64) bool {
	_, ok := t.nodes[id]
	return ok
}

// Len returns the number of terms in the tree (the root is not counted).
func (t *Tree) Len() int {
	return len(t.order)
}

// Terms returns the normalized flat term list in input order. Parents carry
// the coerced values, so Build(t.Terms()) yields an identical tree.
func (t *Tree) Terms() []models.Term {
	out := make([]models.Term, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.nodes[id].Term)
	}
	return out
}

// Flatten returns every term in pre-order (parents before children, siblings
// in tree order).
func (t *Tree) Flatten() []models.Term {
	out := make([]models.Term, 0, len(t.order))
	t.walk(t.root, func(n *Node) {
		out = append(out, n.Term)
	})
	return out
}

// walk visits the descendants of start in pre-order, excluding start itself.
func (t *Tree) walk(start *Node, visit func(*Node)) {
	stack := make([]*Node, 0, len(start.Children))
	for i := len(start.Children) - 1; i >= 0; i-- {
		stack = append(stack, start.Children[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(n)
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// HasChildren reports whether any term has id as its parent. For id 0 this
// is true whenever the tree is non-empty.
func (t *Tree) HasChildren(id int64) bool {
	if id == 0 {
		return len(t.root.Children) > 0
	}
	n, ok := t.nodes[id]
	return ok && len(n.Children) > 0
}

// ParentOf returns the (normalized) parent id of a term, or 0 if unknown.
func (t *Tree) ParentOf(id int64) int64 {
	if n, ok := t.nodes[id]; ok {
		return n.Term.Parent
	}
	return 0
}

// Descendants returns the ids of every term below id, in pre-order.
func (t *Tree) Descendants(id int64) []int64 {
	start := t.root
	if id != 0 {
		n, ok := t.nodes[id]
		if !ok {
			return nil
		}
		start = n
	}
	var out []int64
	t.walk(start, func(n *Node) {
		out = append(out, n.Term.ID)
	})
	return out
}

// IsDescendant reports whether id sits somewhere below ancestor.
func (t *Tree) IsDescendant(id, ancestor int64) bool {
	if id == ancestor {
		return false
	}
	n, ok := t.nodes[id]
	if !ok {
		return false
	}
	if ancestor == 0 {
		return true
	}
	for p := n.Term.Parent; p != 0; p = t.nodes[p].Term.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// Ancestors returns the parent chain of id, nearest parent first. The root
// is not included.
func (t *Tree) Ancestors(id int64) []int64 {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	var out []int64
	for p := n.Term.Parent; p != 0; p = t.nodes[p].Term.Parent {
		out = append(out, p)
	}
	return out
}

// Depth returns how many ancestors id has; root-level terms have depth 0.
func (t *Tree) Depth(id int64) int {
	return len(t.Ancestors(id))
}

// Reparent returns a new tree in which id has newParent as its parent. Moving
// a term under itself or one of its descendants fails with a *CycleError.
// Sibling order follows the input order of the flat list.
func (t *Tree) Reparent(id, newParent int64) (*Tree, error) {
	if !t.Has(id) {
		return nil, fmt.Errorf("reparent %d: %w", id, ErrTermNotFound)
	}
	if newParent == id || t.IsDescendant(newParent, id) {
		return nil, &CycleError{TermID: id, ParentID: newParent}
	}
	if newParent < 0 || (newParent != 0 && !t.Has(newParent)) {
		return nil, fmt.Errorf("reparent %d under %d: %w", id, newParent, ErrParentNotFound)
	}
	if t.ParentOf(id) == newParent {
		return t, nil
	}

	terms := t.Terms()
	for i := range terms {
		if terms[i].ID == id {
			terms[i].Parent = newParent
			break
		}
	}
	return Build(terms), nil
}
