// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/marquee/internal/models"
)

// Health handles GET /api/v1/health.
//
// The service is degraded when the storage breaker is open or a configured
// NATS connection is down. It still answers 200 so load balancers keep
// routing queries to the in-memory snapshot.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	stats := h.catalog.Stats()

	health := models.HealthStatus{
		Status:   models.HealthHealthy,
		Version:  Version,
		Records:  stats.Records,
		LoadedAt: stats.LoadedAt,
		Reloads:  h.catalog.Reloads(),
		Storage:  statusOr(h.storageStatus, "closed"),
		NATS:     statusOr(h.natsStatus, models.ComponentDisabled),
		Events:   statusOr(h.eventsStatus, models.ComponentDisabled),
		Uptime:   time.Since(h.startTime).Seconds(),
	}
	if health.Storage == "open" || health.NATS == models.ComponentDisconnected {
		health.Status = models.HealthDegraded
	}

	respondSuccess(w, r, start, health)
}

// PerfCounters handles GET /perf_counters.
func (h *Handler) PerfCounters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.perfMon.Counters())
}

func statusOr(fn StatusFunc, fallback string) string {
	if fn == nil {
		return fallback
	}
	return fn()
}
