// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests.
// Every test runs against its own seeded in-memory SQLite database with the
// term cache disabled.
package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"bcm/internal/database"
	"bcm/internal/render"
	"bcm/internal/store"
	"bcm/internal/termstore"
)

type testEnv struct {
	terms         *Terms
	store         *store.TermStore
	invalidations *store.InvalidationLog
	renderer      *render.Renderer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Connect(database.DriverSQLite, "file::memory:?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db, database.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.Seed(db); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rn, err := render.New(false)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	ts := store.NewTermStore(db)
	invalidations := store.NewInvalidationLog(db)
	return &testEnv{
		terms:         NewTerms(ts, nil, invalidations, rn, "uncategorized"),
		store:         ts,
		invalidations: invalidations,
		renderer:      rn,
	}
}

// id returns the ID of a seeded term.
func (e *testEnv) id(t *testing.T, taxonomy, slug string) int64 {
	t.Helper()
	term, err := e.store.FindBySlug(taxonomy, slug)
	if err != nil || term == nil {
		t.Fatalf("FindBySlug(%q) = %v, %v", slug, term, err)
	}
	return term.ID
}

// recordingObserver collects mutation outcomes.
type recordingObserver struct {
	mu   sync.Mutex
	seen []string
}

func (o *recordingObserver) ObserveMutation(action, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, action+":"+outcome)
}

func (o *recordingObserver) outcomes() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.seen...)
}

// postAjax sends one AJAX action straight to the handler.
func postAjax(h *Ajax, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, termstore.AjaxPath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.Handle(rr, req)
	return rr
}

// decodeEnvelope decodes a response envelope and, when out is non-nil,
// its data.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, out any) termstore.Envelope {
	t.Helper()
	var env termstore.Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope %q: %v", rr.Body.String(), err)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decode data %s: %v", env.Data, err)
		}
	}
	return env
}
