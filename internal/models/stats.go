// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package models

// Health status values.
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
)

// Component status values reported in HealthStatus.
const (
	ComponentConnected    = "connected"
	ComponentDisconnected = "disconnected"
	ComponentDisabled     = "disabled"
)

// HealthStatus represents the health check response.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version"`

	// Records is the size of the snapshot currently serving.
	Records  int    `json:"records"`
	LoadedAt string `json:"loaded_at,omitempty"`
	Reloads  int64  `json:"reloads"`

	// Storage is the blob store breaker state: closed, half-open or open.
	Storage string `json:"storage"`
	NATS    string `json:"nats"`
	Events  string `json:"events"`

	Uptime float64 `json:"uptime_seconds"`
}
