// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"bcm/internal/session"
)

const sessionKey contextKey = "session"

// LoadSession starts or resumes the anonymous admin session and stores its
// ID in the request context. A session backend failure is logged and the
// request continues without a session.
func LoadSession(store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := store.Start(r.Context(), w, r)
			if err != nil {
				slog.Warn("session unavailable", "path", r.URL.Path, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, id)))
		})
	}
}

// SessionIDFromCtx returns the session ID of the request, or "" when the
// request has no session.
func SessionIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey).(string)
	return id
}
