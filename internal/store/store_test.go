// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// store_test.go provides a shared test database helper for all store
// integration tests. Each test gets its own in-memory SQLite database.
package store

import (
	"database/sql"
	"testing"

	"bcm/internal/database"
	"bcm/internal/models"
)

const memoryDSN = "file::memory:?_pragma=foreign_keys(1)"

// testDB opens a fresh in-memory database and runs migrations. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Connect(database.DriverSQLite, memoryDSN)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db, database.DriverSQLite); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// seededDB returns a test database holding the default taxonomies and terms.
func seededDB(t *testing.T) *sql.DB {
	t.Helper()
	db := testDB(t)
	if err := database.Seed(db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

// termID looks up a seeded term by slug.
func termID(t *testing.T, s *TermStore, taxonomy, slug string) int64 {
	t.Helper()
	term, err := s.FindBySlug(taxonomy, slug)
	if err != nil {
		t.Fatalf("FindBySlug(%q): %v", slug, err)
	}
	if term == nil {
		t.Fatalf("term %q not seeded", slug)
	}
	return term.ID
}

func parentOf(t *testing.T, s *TermStore, taxonomy string, id int64) int64 {
	t.Helper()
	term, err := s.FindByID(taxonomy, id)
	if err != nil || term == nil {
		t.Fatalf("FindByID(%d): %v %v", id, term, err)
	}
	return term.Parent
}

func names(terms []models.Term) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = t.Name
	}
	return out
}
