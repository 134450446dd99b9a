// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"
)

// Invalidation is one clear of a taxonomy's cached term list, caused by
// Action on TermID. At is the database timestamp as text.
type Invalidation struct {
	Taxonomy string
	TermID   int64
	Action   string
	At       string
}

// InvalidationLog records term cache invalidations so a stale tree can be
// traced back to the write that should have cleared it.
type InvalidationLog struct {
	db *sql.DB
}

// NewInvalidationLog creates an InvalidationLog.
func NewInvalidationLog(db *sql.DB) *InvalidationLog {
	return &InvalidationLog{db: db}
}

// Record appends an invalidation of taxonomy.
func (l *InvalidationLog) Record(taxonomy string, termID int64, action string) error {
	if _, err := l.db.Exec(
		`INSERT INTO cache_invalidation_log (taxonomy, term_id, action) VALUES ($1, $2, $3)`,
		taxonomy, termID, action,
	); err != nil {
		return fmt.Errorf("record invalidation of %s: %w", taxonomy, err)
	}
	return nil
}

// Latest returns the last invalidation of every taxonomy that has one.
func (l *InvalidationLog) Latest() (map[string]Invalidation, error) {
	rows, err := l.db.Query(`
		SELECT taxonomy, term_id, action, invalidated_at
		FROM cache_invalidation_log l
		WHERE id = (SELECT MAX(id) FROM cache_invalidation_log WHERE taxonomy = l.taxonomy)
	`)
	if err != nil {
		return nil, fmt.Errorf("query latest invalidations: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]Invalidation)
	for rows.Next() {
		var inv Invalidation
		if err := rows.Scan(&inv.Taxonomy, &inv.TermID, &inv.Action, &inv.At); err != nil {
			return nil, fmt.Errorf("scan invalidation: %w", err)
		}
		latest[inv.Taxonomy] = inv
	}
	return latest, rows.Err()
}

// Trim drops all but the newest keep entries and returns how many went.
func (l *InvalidationLog) Trim(keep int) (int64, error) {
	res, err := l.db.Exec(`
		DELETE FROM cache_invalidation_log
		WHERE id <= (SELECT MAX(id) FROM cache_invalidation_log) - $1
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("trim invalidation log: %w", err)
	}
	return res.RowsAffected()
}
