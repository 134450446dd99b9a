// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up the HTTP routes and middleware chains of the
// category manager: the admin term pages, the AJAX endpoint and the
// operational endpoints.
package router

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"bcm/internal/handlers"
	"bcm/internal/metrics"
	"bcm/internal/middleware"
	"bcm/internal/session"
	"bcm/web"
)

// Deps are the handlers and shared services the router wires together.
// Metrics and RateLimiter are optional.
type Deps struct {
	Sessions    *session.Store
	Admin       *handlers.Admin
	Ajax        *handlers.Ajax
	Metrics     *metrics.Collector
	RateLimiter *middleware.RateLimiter

	AllowedOrigins []string
	SecureCookies  bool
}

// New creates the configured Chi router.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}

	r.Get("/health", healthHandler)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	static, _ := fs.Sub(web.StaticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/terms", http.StatusFound)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.NewCSRF(d.SecureCookies))

		// Term tree pages.
		r.Group(func(r chi.Router) {
			r.Use(middleware.LoadSession(d.Sessions))
			r.Get("/terms", d.Admin.TermsPage)
			r.Post("/terms/expand-all", d.Admin.ExpandAll)
			r.Post("/terms/collapse-all", d.Admin.CollapseAll)
			r.Post("/terms/{id}/toggle", d.Admin.ToggleTerm)
			r.Get("/terms/{id}/edit", d.Admin.EditTermPage)

			r.Group(func(r chi.Router) {
				if d.RateLimiter != nil {
					r.Use(d.RateLimiter.Only(func(*http.Request) bool { return true }))
				}
				r.Post("/terms/{id}/move", d.Admin.MoveTerm)
				r.Post("/terms/{id}/delete", d.Admin.DeleteTerm)
				r.Post("/terms/{id}", d.Admin.SaveTermForm)
			})
		})

		// AJAX endpoint of the term store clients, see termstore.AjaxPath.
		r.Route("/ajax", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   d.AllowedOrigins,
				AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Content-Type", middleware.CSRFHeaderName, middleware.RequestIDHeader},
				ExposedHeaders:   []string{middleware.RequestIDHeader},
				AllowCredentials: true,
				MaxAge:           300,
			}))
			if d.RateLimiter != nil {
				r.Use(d.RateLimiter.Only(handlers.IsMutation))
			}
			r.Get("/nonce", d.Ajax.Nonce)
			r.Post("/", d.Ajax.Handle)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
