// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the term and taxonomy types shared by the SQL store,
// the tree core and the HTTP layer.
package models

// Term is a single taxonomy entry (a category or a tag). Parent 0 means the
// term sits at the root of its taxonomy.
type Term struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Parent      int64  `json:"parent"`
	Count       int    `json:"count"`
	Taxonomy    string `json:"taxonomy,omitempty"`
}

// IsRoot reports whether the term has no parent.
func (t Term) IsRoot() bool {
	return t.Parent == 0
}

// ParentOption is one entry of a "parent term" dropdown. Depth drives the
// indentation of the option label.
type ParentOption struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Depth int    `json:"depth"`
}

// TermForm carries the fields of the term edit form. TermID 0 creates a new term.
type TermForm struct {
	TermID      int64  `json:"term_id" validate:"gte=0"`
	Taxonomy    string `json:"taxonomy" validate:"required,max=32"`
	Name        string `json:"name" validate:"required,max=200"`
	Slug        string `json:"slug" validate:"max=200"`
	Description string `json:"description" validate:"max=5000"`
	Parent      int64  `json:"parent" validate:"gte=0"`
}

// IsNew reports whether the form creates a term rather than updating one.
func (f TermForm) IsNew() bool {
	return f.TermID == 0
}

// ChildrenAction describes what happened to the children of a deleted term.
type ChildrenAction string

const (
	// ChildrenMoved means the children were re-parented to the deleted term's parent.
	ChildrenMoved ChildrenAction = "moved"
	// ChildrenNone means the deleted term had no children.
	ChildrenNone ChildrenAction = "none"
)
