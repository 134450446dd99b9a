// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package termstore defines the contract of the term store that owns the
// authoritative term data, and an HTTP client for the admin AJAX endpoint
// that serves it.
package termstore

import (
	"context"

	"bcm/internal/models"
)

// Store is the authoritative source of terms. Every operation either
// returns its result or a *RequestError / *RejectionError.
type Store interface {
	GetTerms(ctx context.Context, taxonomy string) (*Terms, error)
	GetTermData(ctx context.Context, termID int64, taxonomy string) (*TermData, error)
	SaveTerm(ctx context.Context, form models.TermForm) (*Saved, error)
	DeleteTerm(ctx context.Context, termID int64, taxonomy string) (*Deleted, error)
	UpdateTermHierarchy(ctx context.Context, termID, parentID int64, taxonomy string) (*Message, error)
	GetParentOptions(ctx context.Context, taxonomy string) (*ParentOptions, error)
}

// Terms is the full term list of a taxonomy.
type Terms struct {
	Terms        []models.Term `json:"terms"`
	Hierarchical bool          `json:"is_hierarchical"`
}

// TermData is everything the edit form needs for one term.
type TermData struct {
	Term          models.Term           `json:"term"`
	ParentOptions []models.ParentOption `json:"parent_options"`
	Hierarchical  bool                  `json:"category_is_hierarchical"`
}

// Message is the reply of mutations that only report a message.
type Message struct {
	Message string `json:"message"`
}

// Saved is the reply of SaveTerm.
type Saved struct {
	Message string      `json:"message"`
	Term    models.Term `json:"term"`
}

// Deleted is the reply of DeleteTerm.
type Deleted struct {
	Message        string                `json:"message"`
	ChildrenAction models.ChildrenAction `json:"children_action"`
}

// ParentOptions is the parent dropdown of a taxonomy, as server-rendered
// markup and as structured options.
type ParentOptions struct {
	Markup  string                `json:"parent_dropdown"`
	Options []models.ParentOption `json:"options"`
}
