// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	var ctxID string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = RequestIDFromCtx(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, err := uuid.Parse(ctxID); err != nil {
		t.Errorf("generated id %q is not a UUID: %v", ctxID, err)
	}
	if rr.Header().Get(RequestIDHeader) != ctxID {
		t.Error("response header should echo the request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if ctxID != "abc-123" {
		t.Errorf("incoming id: got %q", ctxID)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", maxRequestIDLength+1))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if len(ctxID) > maxRequestIDLength {
		t.Error("oversized incoming id should be replaced")
	}
}

type observed struct {
	method, route string
	status        int
}

type requestRecorder struct{ got []observed }

func (r *requestRecorder) ObserveRequest(method, route string, status int, _ time.Duration) {
	r.got = append(r.got, observed{method, route, status})
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	rec := &requestRecorder{}
	r := chi.NewRouter()
	r.Use(Metrics(rec))
	r.Post("/admin/terms/{id}/toggle", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/admin/terms/42/toggle", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	if len(rec.got) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(rec.got))
	}
	if rec.got[0] != (observed{http.MethodPost, "/admin/terms/{id}/toggle", http.StatusNoContent}) {
		t.Errorf("first: %+v", rec.got[0])
	}
	if rec.got[1].status != http.StatusNotFound {
		t.Errorf("second: %+v", rec.got[1])
	}
}
