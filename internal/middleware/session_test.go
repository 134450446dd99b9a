// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bcm/internal/session"
)

type failingBackend struct{}

func (failingBackend) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, context.DeadlineExceeded
}
func (failingBackend) Set(context.Context, string, []byte, time.Duration) error {
	return context.DeadlineExceeded
}
func (failingBackend) Del(context.Context, string) error { return nil }

func TestLoadSession(t *testing.T) {
	store := session.NewStore(session.NewMemoryBackend(), false)

	var id string
	h := LoadSession(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id = SessionIDFromCtx(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/terms", nil))
	if id == "" || id != cookieValue(rr, session.CookieName) {
		t.Fatalf("session id %q, cookie %q", id, cookieValue(rr, session.CookieName))
	}

	first := id
	req := httptest.NewRequest(http.MethodGet, "/admin/terms", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: first})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if id != first {
		t.Errorf("session not resumed: got %q, want %q", id, first)
	}
}

func TestLoadSessionBackendDown(t *testing.T) {
	store := session.NewStore(failingBackend{}, false)

	var called bool
	h := LoadSession(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if got := SessionIDFromCtx(r.Context()); got != "" {
			t.Errorf("expected no session, got %q", got)
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/terms", nil))
	if !called {
		t.Error("request should continue without a session")
	}
}
