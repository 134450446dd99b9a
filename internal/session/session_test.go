// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// testValkeyClient returns a Redis client connected to the test Valkey.
// Skips the test if Valkey is unavailable.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15, // Use DB 15 for tests to isolate from dev data.
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, keyPrefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})

	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

// backends runs fn against the memory backend, and Valkey when reachable.
func backends(t *testing.T, fn func(t *testing.T, store *Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewStore(NewMemoryBackend(), false))
	})
	t.Run("valkey", func(t *testing.T) {
		fn(t, NewStore(NewValkeyBackend(testValkeyClient(t)), false))
	})
}

func TestStartCreatesSession(t *testing.T) {
	backends(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/admin/terms", nil)

		id, err := store.Start(ctx, w, r)
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		if len(id) != idLength*2 {
			t.Errorf("session id length: got %d, want %d", len(id), idLength*2)
		}

		cookie := sessionCookie(t, w)
		if cookie.Value != id || !cookie.HttpOnly || cookie.Secure {
			t.Errorf("unexpected cookie: %+v", cookie)
		}

		data, err := store.Get(ctx, id)
		if err != nil || data == nil {
			t.Fatalf("Get: %v %v", data, err)
		}
		if data.CreatedAt.IsZero() {
			t.Error("expected CreatedAt to be set")
		}
	})
}

func TestStartReusesSession(t *testing.T) {
	backends(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		first := httptest.NewRecorder()
		id, err := store.Start(ctx, first, httptest.NewRequest(http.MethodGet, "/", nil))
		if err != nil {
			t.Fatalf("Start: %v", err)
		}

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(sessionCookie(t, first))
		w := httptest.NewRecorder()
		again, err := store.Start(ctx, w, r)
		if err != nil {
			t.Fatalf("Start again: %v", err)
		}
		if again != id {
			t.Errorf("expected session %s to be reused, got %s", id, again)
		}
		if len(w.Result().Cookies()) != 0 {
			t.Error("reused session should not set a new cookie")
		}
	})
}

func TestStartReplacesUnknownSession(t *testing.T) {
	backends(t, func(t *testing.T, store *Store) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: CookieName, Value: "expired"})
		w := httptest.NewRecorder()

		id, err := store.Start(context.Background(), w, r)
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		if id == "expired" {
			t.Error("expected a new session id")
		}
		sessionCookie(t, w)
	})
}

func TestDestroy(t *testing.T) {
	backends(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		first := httptest.NewRecorder()
		id, _ := store.Start(ctx, first, httptest.NewRequest(http.MethodGet, "/", nil))

		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.AddCookie(sessionCookie(t, first))
		w := httptest.NewRecorder()
		if err := store.Destroy(ctx, w, r); err != nil {
			t.Fatalf("Destroy: %v", err)
		}
		if data, _ := store.Get(ctx, id); data != nil {
			t.Error("session should be gone")
		}
		if c := sessionCookie(t, w); c.MaxAge != -1 {
			t.Errorf("cookie MaxAge: got %d, want -1", c.MaxAge)
		}

		// No cookie: nothing to do.
		if err := store.Destroy(ctx, httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil)); err != nil {
			t.Errorf("Destroy without cookie: %v", err)
		}
	})
}

func TestExpansionState(t *testing.T) {
	backends(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		id, _ := store.Start(ctx, httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		exp := store.Expansion(id)

		if ids, err := exp.Load(ctx, "category"); err != nil || len(ids) != 0 {
			t.Fatalf("fresh session: got %v, %v", ids, err)
		}

		if err := exp.Save(ctx, "category", []int64{3, 12}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if err := exp.Save(ctx, "post_tag", []int64{7}); err != nil {
			t.Fatalf("Save: %v", err)
		}

		ids, err := exp.Load(ctx, "category")
		if err != nil || !slices.Equal(ids, []int64{3, 12}) {
			t.Errorf("category: got %v, %v", ids, err)
		}

		if err := exp.Save(ctx, "category", nil); err != nil {
			t.Fatalf("Save empty: %v", err)
		}
		data, _ := store.Get(ctx, id)
		if _, ok := data.Expanded["category"]; ok {
			t.Error("empty set should remove the taxonomy")
		}
		if !slices.Equal(data.Expanded["post_tag"], []int64{7}) {
			t.Errorf("post_tag should be untouched: %v", data.Expanded)
		}
		if data.CreatedAt.IsZero() {
			t.Error("saving expansion should keep CreatedAt")
		}
	})
}

func TestSecureCookie(t *testing.T) {
	store := NewStore(NewMemoryBackend(), true)
	w := httptest.NewRecorder()
	if _, err := store.Start(context.Background(), w, httptest.NewRequest(http.MethodGet, "/", nil)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !sessionCookie(t, w).Secure {
		t.Error("expected Secure=true for secure store")
	}
}

func TestMemoryBackendExpiry(t *testing.T) {
	b := NewMemoryBackend()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	ctx := context.Background()

	if err := b.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok, _ := b.Get(ctx, "k"); !ok || string(v) != "v" {
		t.Fatalf("Get before expiry: %q %v", v, ok)
	}

	now = now.Add(time.Minute)
	if _, ok, _ := b.Get(ctx, "k"); ok {
		t.Error("entry should expire after its TTL")
	}
}
