// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"context"
	"time"

	"github.com/tomtom215/marquee/internal/index"
	"github.com/tomtom215/marquee/internal/middleware"
	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/search"
)

// Version is reported by the health endpoint. Set at build time.
var Version = "dev"

// Catalog is the catalog surface the handlers need. Satisfied by
// *catalog.Service.
type Catalog interface {
	Search(ctx context.Context, q search.Query) (search.Result, error)
	FindByTitle(title string) []models.Movie
	Stats() models.CatalogStats
	Reload(ctx context.Context) (index.Stats, error)
	Ingest(ctx context.Context) (*models.IngestReport, error)
	Reloads() int64
}

// HandlerConfig holds request limits.
type HandlerConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultHandlerConfig returns page size 10, capped at 1000.
func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{DefaultPageSize: 10, MaxPageSize: 1000}
}

// StatusFunc reports the state of an optional dependency for /health.
type StatusFunc func() string

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_search.go: search and title lookup
//   - handlers_catalog.go: stats, reload and ingest
//   - handlers_health.go: health and perf counters
type Handler struct {
	catalog   Catalog
	config    HandlerConfig
	perfMon   *middleware.PerformanceMonitor
	startTime time.Time

	storageStatus StatusFunc
	natsStatus    StatusFunc
	eventsStatus  StatusFunc
}

// HandlerOption configures optional Handler dependencies.
type HandlerOption func(*Handler)

// WithStorageStatus reports the blob store breaker state on /health.
func WithStorageStatus(fn StatusFunc) HandlerOption {
	return func(h *Handler) { h.storageStatus = fn }
}

// WithNATSStatus reports NATS connectivity on /health.
func WithNATSStatus(fn StatusFunc) HandlerOption {
	return func(h *Handler) { h.natsStatus = fn }
}

// WithEventsStatus reports the event transport on /health.
func WithEventsStatus(fn StatusFunc) HandlerOption {
	return func(h *Handler) { h.eventsStatus = fn }
}

// WithPerformanceMonitor shares a monitor with the router middleware.
func WithPerformanceMonitor(pm *middleware.PerformanceMonitor) HandlerOption {
	return func(h *Handler) { h.perfMon = pm }
}

// NewHandler creates the API handler.
//
//	h := api.NewHandler(svc, api.HandlerConfig{DefaultPageSize: 10, MaxPageSize: 1000},
//	    api.WithNATSStatus(natsStatus))
//	router := api.NewRouter(h, api.NewChiMiddleware(nil))
//	http.ListenAndServe(":8080", router.Setup())
func NewHandler(c Catalog, cfg HandlerConfig, opts ...HandlerOption) *Handler {
	defaults := DefaultHandlerConfig()
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = defaults.DefaultPageSize
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = defaults.MaxPageSize
	}

	h := &Handler{
		catalog:   c,
		config:    cfg,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.perfMon == nil {
		h.perfMon = middleware.NewPerformanceMonitor(1000)
	}
	return h
}

// PerformanceMonitor returns the monitor backing /perf_counters.
func (h *Handler) PerformanceMonitor() *middleware.PerformanceMonitor {
	return h.perfMon
}
