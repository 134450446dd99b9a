// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const sweepInterval = 5 * time.Minute

// RateLimiter allows each client limit requests per sliding window. Term
// mutations go through it so that a runaway script cannot hammer the store.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time

	stop chan struct{}
	once sync.Once
}

// NewRateLimiter returns a limiter of limit requests per window. Idle
// clients are forgotten by a background sweep until Stop is called.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
		stop:   make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

// Stop ends the background sweep. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// take records a request of client. When the client is over its limit it
// returns false and how long until the oldest request leaves the window.
func (rl *RateLimiter) take(client string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	recent := inWindow(rl.hits[client], now.Add(-rl.window))
	if len(recent) >= rl.limit {
		rl.hits[client] = recent
		return false, recent[0].Add(rl.window).Sub(now)
	}
	rl.hits[client] = append(recent, now)
	return true, 0
}

// inWindow drops the timestamps at or before cutoff. hits is sorted.
func inWindow(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

// sweep forgets clients with no request inside the window.
func (rl *RateLimiter) sweep() {
	cutoff := rl.now().Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for client, hits := range rl.hits {
		if len(inWindow(hits, cutoff)) == 0 {
			delete(rl.hits, client)
		}
	}
}

// Middleware limits every request.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return rl.Only(func(*http.Request) bool { return true })(next)
}

// Only limits the requests for which match is true. The others pass
// through and are not counted.
func (rl *RateLimiter) Only(match func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !match(r) {
				next.ServeHTTP(w, r)
				return
			}
			client := clientIP(r)
			if ok, retry := rl.take(client); !ok {
				slog.Warn("rate limit exceeded",
					"path", r.URL.Path,
					"client", client,
					"request_id", RequestIDFromCtx(r.Context()),
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
				http.Error(w, "Too many changes, slow down.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is the address a request came from: the first X-Forwarded-For
// hop, then X-Real-IP, then the remote address without its port.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if i := strings.LastIndex(r.RemoteAddr, ":"); i != -1 {
		return r.RemoteAddr[:i]
	}
	return r.RemoteAddr
}
