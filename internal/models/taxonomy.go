// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// Taxonomy describes a term vocabulary. Hierarchical taxonomies (category-like)
// allow parents; flat ones (tag-like) do not, and reparenting is disabled.
type Taxonomy struct {
	Name         string `json:"name"`
	Label        string `json:"label"`
	Hierarchical bool   `json:"hierarchical"`
}

// Well-known taxonomies created by the seed.
const (
	TaxonomyCategory = "category"
	TaxonomyTag      = "post_tag"
)
