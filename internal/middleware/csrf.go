// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
)

const (
	// csrfTokenLength is the number of random bytes in a nonce.
	csrfTokenLength = 32

	// CSRFCookieName is the cookie that holds the nonce.
	CSRFCookieName = "bcm_csrf"

	// CSRFHeaderName carries the nonce on AJAX and HTMX requests.
	CSRFHeaderName = "X-CSRF-Token"

	// CSRFFormField carries the nonce on plain form posts.
	CSRFFormField = "csrf_token"

	csrfKey contextKey = "csrf"
)

type contextKey string

// NewCSRF returns double-submit cookie protection. Every request gets a
// nonce, stored in a cookie and readable through CSRFTokenFromCtx; the AJAX
// endpoint hands it to term store clients. Requests with an unsafe method
// must send it back in CSRFHeaderName or CSRFFormField. secure marks the
// cookie Secure for deployments behind TLS.
func NewCSRF(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nonce, err := ensureNonce(w, r, secure)
			if err != nil {
				slog.Error("nonce generation failed", "error", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), csrfKey, nonce))

			if !safeMethod(r.Method) && !validNonce(r, nonce) {
				slog.Warn("request with invalid nonce rejected",
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", RequestIDFromCtx(r.Context()),
				)
				http.Error(w, "Invalid or expired nonce.", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ensureNonce returns the nonce of the request's cookie, issuing a new
// cookie when there is none.
func ensureNonce(w http.ResponseWriter, r *http.Request, secure bool) (string, error) {
	if c, err := r.Cookie(CSRFCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	b := make([]byte, csrfTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	nonce := hex.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:  CSRFCookieName,
		Value: nonce,
		Path:  "/",
		// Readable by the page script, which copies it into hx-headers.
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nonce, nil
}

func safeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

// validNonce compares the submitted nonce, header first, with the cookie.
func validNonce(r *http.Request, nonce string) bool {
	sent := r.Header.Get(CSRFHeaderName)
	if sent == "" {
		sent = r.FormValue(CSRFFormField)
	}
	return subtle.ConstantTimeCompare([]byte(nonce), []byte(sent)) == 1
}

// CSRFTokenFromCtx returns the nonce of the request, or "" outside the
// CSRF middleware.
func CSRFTokenFromCtx(ctx context.Context) string {
	nonce, _ := ctx.Value(csrfKey).(string)
	return nonce
}
