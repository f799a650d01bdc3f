// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/marquee/internal/middleware"
	"github.com/tomtom215/marquee/internal/models"
)

// Router wires handlers and middleware into a Chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil mw uses default middleware settings.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()
	h := router.handler

	// Global middleware, outermost first.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.PrometheusMetrics)
	r.Use(h.perfMon.Middleware)
	r.Use(chimiddleware.Compress(5, "application/json"))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, &models.APIError{
			Code:    ErrCodeNotFound,
			Message: "Route not found",
		}, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, &models.APIError{
			Code:    ErrCodeMethodNotAllowed,
			Message: "Method not allowed",
		}, nil)
	})

	// Diagnostics are not rate limited.
	r.Get("/perf_counters", h.PerfCounters)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	searchLimit := router.chiMiddleware.RateLimit("search")
	r.With(searchLimit).Get("/", h.Search)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(searchLimit)
			r.Get("/movies", h.Search)
			r.Get("/movies/by-title", h.FindByTitle)
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit("catalog"))
			r.Get("/stats", h.CatalogStats)
			r.Post("/reload", h.Reload)
			r.Post("/ingest", h.Ingest)
		})
	})

	return r
}
