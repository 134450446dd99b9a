// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package treeview

import (
	"strings"

	"bcm/internal/termtree"
)

// Filter is the result of a search: the matching terms plus the ancestor
// chain of every match, which stays visible as context.
type Filter struct {
	Query   string
	matches map[int64]bool
	visible map[int64]bool
}

// Search matches query against term names, case-insensitively, as a
// substring. A blank query returns nil, meaning "no filter".
func Search(tree *termtree.Tree, query string) *Filter {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	f := &Filter{
		Query:   strings.TrimSpace(query),
		matches: make(map[int64]bool),
		visible: make(map[int64]bool),
	}
	for _, term := range tree.Flatten() {
		if !strings.Contains(strings.ToLower(term.Name), q) {
			continue
		}
		f.matches[term.ID] = true
		f.visible[term.ID] = true
		for _, a := range tree.Ancestors(term.ID) {
			if f.visible[a] {
				break
			}
			f.visible[a] = true
		}
	}
	return f
}

// Match reports whether the term itself matched the query.
func (f *Filter) Match(id int64) bool {
	return f != nil && f.matches[id]
}

// Visible reports whether the term is shown, as a match or as context.
// A nil filter shows everything.
func (f *Filter) Visible(id int64) bool {
	return f == nil || f.visible[id]
}

// Matches returns the number of matching terms.
func (f *Filter) Matches() int {
	if f == nil {
		return 0
	}
	return len(f.matches)
}
