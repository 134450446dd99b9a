// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package treeview projects a term tree and its expansion set onto a
// display structure. Rendering is pure: the same inputs always produce the
// same view, and nothing is read back from a rendered view.
package treeview

import (
	"bcm/internal/termtree"
)

// DefaultIndent is the indent per depth level when Options.IndentWidth is 0.
const DefaultIndent = 20

// FlatDragReason explains why drag handles are disabled on flat taxonomies.
const FlatDragReason = "Drag and drop is only available for hierarchical taxonomies."

// ExpansionReader is the read side of the expansion tracker.
type ExpansionReader interface {
	IsExpanded(id int64) bool
}

// DragPreview is the live drag intent, used for the potential-parent
// highlight and the indent preview of the dragged row.
type DragPreview struct {
	ItemID   int64
	ParentID int64
	Nest     bool
}

// Options controls one render.
type Options struct {
	Hierarchical bool
	Filter       *Filter
	Drag         *DragPreview

	// DefaultTermID is the taxonomy's fallback term, which cannot be deleted.
	DefaultTermID int64

	IndentWidth int
}

// DragHandle is the drag affordance of a row.
type DragHandle struct {
	Enabled bool
	Reason  string
}

// Row is one displayed term.
type Row struct {
	TermID      int64
	Name        string
	Description string
	Count       int
	Depth       int
	Indent      int

	HasChildren bool
	Expanded    bool
	ShowToggle  bool
	Editable    bool
	Deletable   bool
	Drag        DragHandle

	PotentialParent bool
	Dragged         bool

	// Match is set when the row matched the active search, Context when
	// it is only shown as the ancestor of a match.
	Match   bool
	Context bool
}

// Item is a row with its rendered children.
type Item struct {
	Row
	Children []*Item
}

// View is a rendered tree.
type View struct {
	Items           []*Item
	Hierarchical    bool
	ShowBulkToggles bool
	Searching       bool
}

type frame struct {
	node   *termtree.Node
	parent *Item
	depth  int
}

// Render builds the view of the tree under root. Children of a collapsed
// row are omitted, except while a search is active: matches and their
// ancestors are always shown.
func Render(root *termtree.Node, exp ExpansionReader, opts Options) View {
	v := View{
		Hierarchical:    opts.Hierarchical,
		ShowBulkToggles: opts.Hierarchical,
		Searching:       opts.Filter != nil,
	}
	if root == nil {
		return v
	}
	indent := opts.IndentWidth
	if indent == 0 {
		indent = DefaultIndent
	}

	var stack []frame
	push := func(children []*termtree.Node, parent *Item, depth int) {
		for i := len(children) - 1; i >= 0; i-- {
			if opts.Filter.Visible(children[i].ID()) {
				stack = append(stack, frame{node: children[i], parent: parent, depth: depth})
			}
		}
	}
	push(root.Children, nil, 0)

	var dragged *Item
	depthOf := make(map[int64]int)

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		depth := f.depth
		if !opts.Hierarchical {
			depth = 0
		}
		it := &Item{Row: newRow(f.node, depth, indent, exp, opts)}
		depthOf[it.TermID] = depth
		if it.Dragged {
			dragged = it
		}

		if f.parent == nil {
			v.Items = append(v.Items, it)
		} else {
			f.parent.Children = append(f.parent.Children, it)
		}

		if !opts.Hierarchical {
			// Flat taxonomies list everything at one level.
			push(f.node.Children, nil, 0)
			continue
		}
		if it.Expanded {
			push(f.node.Children, it, f.depth+1)
		}
	}

	if dragged != nil && opts.Drag.Nest {
		if d, ok := depthOf[opts.Drag.ParentID]; ok {
			dragged.Indent = (d + 1) * indent
		}
	}
	return v
}

func newRow(n *termtree.Node, depth, indent int, exp ExpansionReader, opts Options) Row {
	id := n.ID()
	hasChildren := len(n.Children) > 0
	r := Row{
		TermID:      id,
		Name:        n.Term.Name,
		Description: n.Term.Description,
		Count:       n.Term.Count,
		Depth:       depth,
		Indent:      depth * indent,
		HasChildren: hasChildren,
		Editable:    true,
		Deletable:   id != opts.DefaultTermID,
		Match:       opts.Filter.Match(id),
	}
	r.Context = opts.Filter != nil && !r.Match

	if !opts.Hierarchical {
		r.Drag = DragHandle{Reason: FlatDragReason}
		return r
	}
	r.Drag = DragHandle{Enabled: true}
	r.ShowToggle = hasChildren
	if hasChildren {
		if opts.Filter != nil {
			r.Expanded = hasVisibleChild(n, opts.Filter)
		} else {
			r.Expanded = exp != nil && exp.IsExpanded(id)
		}
	}
	if d := opts.Drag; d != nil {
		r.Dragged = d.ItemID == id
		r.PotentialParent = d.Nest && d.ParentID == id
	}
	return r
}

func hasVisibleChild(n *termtree.Node, f *Filter) bool {
	for _, c := range n.Children {
		if f.Visible(c.ID()) {
			return true
		}
	}
	return false
}

// Rows returns every rendered row in display (pre-)order.
func (v View) Rows() []Row {
	var out []Row
	stack := make([]*Item, 0, len(v.Items))
	for i := len(v.Items) - 1; i >= 0; i-- {
		stack = append(stack, v.Items[i])
	}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, it.Row)
		for i := len(it.Children) - 1; i >= 0; i-- {
			stack = append(stack, it.Children[i])
		}
	}
	return out
}

// Find returns the rendered row for id.
func (v View) Find(id int64) (Row, bool) {
	for _, r := range v.Rows() {
		if r.TermID == id {
			return r, true
		}
	}
	return Row{}, false
}

// FirstLevel returns the ids of the root's direct children that have
// children of their own: the targets of expand-all and collapse-all.
func FirstLevel(root *termtree.Node) []int64 {
	if root == nil {
		return nil
	}
	var ids []int64
	for _, c := range root.Children {
		if len(c.Children) > 0 {
			ids = append(ids, c.ID())
		}
	}
	return ids
}
