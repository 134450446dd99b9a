// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"database/sql"
	"fmt"
	"log/slog"
)

type seedTerm struct {
	key, name, slug, parent string
	count                   int
}

// seedTaxonomies are created on an empty database. Terms reference their
// parent by key; a blank parent is the root.
var seedTaxonomies = []struct {
	name, label  string
	hierarchical bool
	terms        []seedTerm
}{
	{
		name: "category", label: "Categories", hierarchical: true,
		terms: []seedTerm{
			{key: "uncategorized", name: "Uncategorized", slug: "uncategorized", count: 3},
			{key: "fruit", name: "Fruit", slug: "fruit", count: 5},
			{key: "apple", name: "Apple", slug: "apple", parent: "fruit", count: 2},
			{key: "pear", name: "Pear", slug: "pear", parent: "fruit", count: 1},
			{key: "veg", name: "Vegetables", slug: "vegetables", count: 4},
			{key: "roots", name: "Root vegetables", slug: "root-vegetables", parent: "veg", count: 1},
			{key: "carrot", name: "Carrot", slug: "carrot", parent: "roots"},
		},
	},
	{
		name: "post_tag", label: "Tags", hierarchical: false,
		terms: []seedTerm{
			{key: "seasonal", name: "seasonal", slug: "seasonal", count: 6},
			{key: "organic", name: "organic", slug: "organic", count: 2},
			{key: "recipes", name: "recipes", slug: "recipes"},
		},
	},
}

// Seed populates an empty database with the default taxonomies and a few
// demo terms. It does nothing when any taxonomy exists.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM taxonomies").Scan(&count); err != nil {
		return fmt.Errorf("seed check taxonomies: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	terms := 0
	for _, tax := range seedTaxonomies {
		if _, err := tx.Exec(
			"INSERT INTO taxonomies (name, label, hierarchical) VALUES ($1, $2, $3)",
			tax.name, tax.label, tax.hierarchical,
		); err != nil {
			return fmt.Errorf("seed insert taxonomy %s: %w", tax.name, err)
		}

		ids := make(map[string]int64, len(tax.terms))
		for i, t := range tax.terms {
			var id int64
			if err := tx.QueryRow(`
				INSERT INTO terms (taxonomy, name, slug, parent, count, position)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id`,
				tax.name, t.name, t.slug, ids[t.parent], t.count, i,
			).Scan(&id); err != nil {
				return fmt.Errorf("seed insert term %s: %w", t.slug, err)
			}
			ids[t.key] = id
			terms++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded", "taxonomies", len(seedTaxonomies), "terms", terms)
	return nil
}
