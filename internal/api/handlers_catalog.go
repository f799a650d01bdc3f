// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/marquee/internal/logging"
)

// CatalogStats handles GET /api/v1/catalog/stats.
func (h *Handler) CatalogStats(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, time.Now(), h.catalog.Stats())
}

// Reload handles POST /api/v1/catalog/reload. The query cache is cleared as
// part of the swap. On failure the previous snapshot keeps serving.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if _, err := h.catalog.Reload(r.Context()); err != nil {
		respondFailure(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().Msg("Catalog reloaded via API")
	respondSuccess(w, r, start, h.catalog.Stats())
}

// Ingest handles POST /api/v1/catalog/ingest. A run already holding the lock
// yields 409.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	report, err := h.catalog.Ingest(r.Context())
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	respondSuccess(w, r, start, report)
}
