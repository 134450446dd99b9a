// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package session

import (
	"context"
	"slices"

	"bcm/internal/expansion"
)

// Expansion returns the expansion store of session id.
func (s *Store) Expansion(id string) expansion.Store {
	return &expansionState{store: s, id: id}
}

type expansionState struct {
	store *Store
	id    string
}

// Load returns the expanded terms of taxonomy. An expired session has none.
func (e *expansionState) Load(ctx context.Context, taxonomy string) ([]int64, error) {
	data, err := e.store.Get(ctx, e.id)
	if err != nil || data == nil {
		return nil, err
	}
	return data.Expanded[taxonomy], nil
}

// Save replaces the expanded terms of taxonomy.
func (e *expansionState) Save(ctx context.Context, taxonomy string, ids []int64) error {
	data, err := e.store.Get(ctx, e.id)
	if err != nil {
		return err
	}
	if data == nil {
		data = &Data{}
	}
	if data.Expanded == nil {
		data.Expanded = make(map[string][]int64)
	}
	if len(ids) == 0 {
		delete(data.Expanded, taxonomy)
	} else {
		data.Expanded[taxonomy] = slices.Clone(ids)
	}
	return e.store.Save(ctx, e.id, data)
}
