// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store provides the SQL persistence of taxonomies and terms.
// Queries use $N placeholders and standard SQL only, so the same store
// runs on PostgreSQL and SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	"bcm/internal/models"
	"bcm/internal/termtree"
)

var (
	// ErrCycle is returned when a term would become its own ancestor.
	ErrCycle = errors.New("term cannot be moved under itself or its descendants")

	// ErrParentNotFound is returned when the parent is not a term of the same taxonomy.
	ErrParentNotFound = errors.New("parent term not found")

	// ErrTermNotFound is returned by mutations on a missing term.
	ErrTermNotFound = errors.New("term not found")
)

// TermStore manages taxonomies and their terms in the database.
type TermStore struct {
	db *sql.DB
}

// NewTermStore returns a new TermStore.
func NewTermStore(db *sql.DB) *TermStore {
	return &TermStore{db: db}
}

const termColumns = `id, taxonomy, name, slug, description, parent, count`

// scanTerm scans a row into a Term struct.
func scanTerm(scanner interface{ Scan(...any) error }) (*models.Term, error) {
	var t models.Term
	err := scanner.Scan(&t.ID, &t.Taxonomy, &t.Name, &t.Slug, &t.Description, &t.Parent, &t.Count)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Taxonomy returns a taxonomy by name. Returns nil if not found.
func (s *TermStore) Taxonomy(name string) (*models.Taxonomy, error) {
	var tax models.Taxonomy
	err := s.db.QueryRow(
		`SELECT name, label, hierarchical FROM taxonomies WHERE name = $1`, name,
	).Scan(&tax.Name, &tax.Label, &tax.Hierarchical)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find taxonomy: %w", err)
	}
	return &tax, nil
}

// Taxonomies returns every taxonomy ordered by name.
func (s *TermStore) Taxonomies() ([]models.Taxonomy, error) {
	rows, err := s.db.Query(`SELECT name, label, hierarchical FROM taxonomies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list taxonomies: %w", err)
	}
	defer rows.Close()

	var items []models.Taxonomy
	for rows.Next() {
		var tax models.Taxonomy
		if err := rows.Scan(&tax.Name, &tax.Label, &tax.Hierarchical); err != nil {
			return nil, fmt.Errorf("scan taxonomy: %w", err)
		}
		items = append(items, tax)
	}
	return items, rows.Err()
}

// List returns all terms of a taxonomy in sibling order.
func (s *TermStore) List(taxonomy string) ([]models.Term, error) {
	rows, err := s.db.Query(`
		SELECT `+termColumns+`
		FROM terms
		WHERE taxonomy = $1
		ORDER BY position, name, id
	`, taxonomy)
	if err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	defer rows.Close()

	var items []models.Term
	for rows.Next() {
		t, err := scanTerm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan term: %w", err)
		}
		items = append(items, *t)
	}
	return items, rows.Err()
}

// FindByID retrieves a term of a taxonomy by ID. Returns nil if not found.
func (s *TermStore) FindByID(taxonomy string, id int64) (*models.Term, error) {
	row := s.db.QueryRow(`SELECT `+termColumns+` FROM terms WHERE taxonomy = $1 AND id = $2`, taxonomy, id)
	t, err := scanTerm(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find term by id: %w", err)
	}
	return t, nil
}

// FindBySlug retrieves a term of a taxonomy by slug. Returns nil if not found.
func (s *TermStore) FindBySlug(taxonomy, slug string) (*models.Term, error) {
	row := s.db.QueryRow(`SELECT `+termColumns+` FROM terms WHERE taxonomy = $1 AND slug = $2`, taxonomy, slug)
	t, err := scanTerm(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find term by slug: %w", err)
	}
	return t, nil
}

// SlugExists reports whether slug is used in taxonomy by a term other than excludeID.
func (s *TermStore) SlugExists(taxonomy, slug string, excludeID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS (SELECT 1 FROM terms WHERE taxonomy = $1 AND slug = $2 AND id <> $3)
	`, taxonomy, slug, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

// NameTaken reports whether a sibling under parent (other than excludeID)
// already has name, compared case-insensitively.
func (s *TermStore) NameTaken(taxonomy, name string, parent, excludeID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM terms
			WHERE taxonomy = $1 AND LOWER(name) = LOWER($2) AND parent = $3 AND id <> $4
		)
	`, taxonomy, name, parent, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check name: %w", err)
	}
	return exists, nil
}

// Create inserts a new term at the end of its sibling list and returns it.
func (s *TermStore) Create(t *models.Term) (*models.Term, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := checkParent(tx, t.Taxonomy, 0, t.Parent); err != nil {
		return nil, err
	}

	row := tx.QueryRow(`
		INSERT INTO terms (taxonomy, name, slug, description, parent, position)
		VALUES ($1, $2, $3, $4, $5,
			(SELECT COALESCE(MAX(position), -1) + 1 FROM terms WHERE taxonomy = $1 AND parent = $5))
		RETURNING `+termColumns,
		t.Taxonomy, t.Name, t.Slug, t.Description, t.Parent,
	)
	result, err := scanTerm(row)
	if err != nil {
		return nil, fmt.Errorf("create term: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create term: %w", err)
	}
	return result, nil
}

// Update modifies the name, slug, description and parent of a term.
func (s *TermStore) Update(t *models.Term) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := checkParent(tx, t.Taxonomy, t.ID, t.Parent); err != nil {
		return err
	}

	res, err := tx.Exec(`
		UPDATE terms SET
			name = $1, slug = $2, description = $3, parent = $4,
			updated_at = CURRENT_TIMESTAMP
		WHERE taxonomy = $5 AND id = $6
	`, t.Name, t.Slug, t.Description, t.Parent, t.Taxonomy, t.ID)
	if err != nil {
		return fmt.Errorf("update term: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update term %d: %w", t.ID, ErrTermNotFound)
	}
	return tx.Commit()
}

// UpdateParent moves a term under parent (0 for the root). The move goes to
// the end of the new sibling list.
func (s *TermStore) UpdateParent(taxonomy string, id, parent int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := checkParent(tx, taxonomy, id, parent); err != nil {
		return err
	}

	res, err := tx.Exec(`
		UPDATE terms SET
			parent = $1,
			position = (SELECT COALESCE(MAX(position), -1) + 1 FROM terms WHERE taxonomy = $2 AND parent = $1),
			updated_at = CURRENT_TIMESTAMP
		WHERE taxonomy = $2 AND id = $3 AND parent <> $1
	`, parent, taxonomy, id)
	if err != nil {
		return fmt.Errorf("update term parent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either the term is missing or it already sits under parent.
		var exists bool
		if err := tx.QueryRow(
			`SELECT EXISTS (SELECT 1 FROM terms WHERE taxonomy = $1 AND id = $2)`, taxonomy, id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check term: %w", err)
		}
		if !exists {
			return fmt.Errorf("move term %d: %w", id, ErrTermNotFound)
		}
	}
	return tx.Commit()
}

// checkParent validates parent for term id (0 for a new term): it must be
// the root or a term of the same taxonomy outside the subtree of id.
func checkParent(tx *sql.Tx, taxonomy string, id, parent int64) error {
	if parent == 0 {
		return nil
	}
	if parent < 0 {
		return ErrParentNotFound
	}
	if parent == id {
		return ErrCycle
	}

	var exists bool
	if err := tx.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM terms WHERE taxonomy = $1 AND id = $2)`, taxonomy, parent,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check parent: %w", err)
	}
	if !exists {
		return ErrParentNotFound
	}
	if id == 0 {
		return nil
	}

	var inSubtree bool
	err := tx.QueryRow(`
		WITH RECURSIVE subtree(id) AS (
			SELECT id FROM terms WHERE taxonomy = $1 AND id = $2
			UNION
			SELECT t.id FROM terms t JOIN subtree s ON t.parent = s.id
			WHERE t.taxonomy = $1
		)
		SELECT EXISTS (SELECT 1 FROM subtree WHERE id = $3)
	`, taxonomy, id, parent).Scan(&inSubtree)
	if err != nil {
		return fmt.Errorf("check cycle: %w", err)
	}
	if inSubtree {
		return ErrCycle
	}
	return nil
}

// Delete removes a term. Its children move up to the deleted term's parent,
// keeping their own subtrees. Reports whether any children were moved.
func (s *TermStore) Delete(taxonomy string, id int64) (models.ChildrenAction, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parent int64
	err = tx.QueryRow(`SELECT parent FROM terms WHERE taxonomy = $1 AND id = $2`, taxonomy, id).Scan(&parent)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("delete term %d: %w", id, ErrTermNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("delete term: %w", err)
	}

	res, err := tx.Exec(`
		UPDATE terms SET parent = $1, updated_at = CURRENT_TIMESTAMP
		WHERE taxonomy = $2 AND parent = $3
	`, parent, taxonomy, id)
	if err != nil {
		return "", fmt.Errorf("move children: %w", err)
	}
	moved, _ := res.RowsAffected()

	if _, err := tx.Exec(`DELETE FROM terms WHERE taxonomy = $1 AND id = $2`, taxonomy, id); err != nil {
		return "", fmt.Errorf("delete term: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit delete term: %w", err)
	}

	if moved > 0 {
		return models.ChildrenMoved, nil
	}
	return models.ChildrenNone, nil
}

// ParentOptions returns the terms of a taxonomy that can be the parent of
// exclude (0 for a new term), in tree order with their depth. exclude and
// its descendants are left out.
func (s *TermStore) ParentOptions(taxonomy string, exclude int64) ([]models.ParentOption, error) {
	terms, err := s.List(taxonomy)
	if err != nil {
		return nil, err
	}
	tree := termtree.Build(terms)

	skip := map[int64]bool{}
	if exclude > 0 && tree.Has(exclude) {
		skip[exclude] = true
		for _, id := range tree.Descendants(exclude) {
			skip[id] = true
		}
	}

	var options []models.ParentOption
	for _, t := range tree.Flatten() {
		if skip[t.ID] {
			continue
		}
		options = append(options, models.ParentOption{ID: t.ID, Name: t.Name, Depth: tree.Depth(t.ID)})
	}
	return options, nil
}
