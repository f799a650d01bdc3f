// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package eventprocessor

import (
	"time"
)

// DefaultTopic is the subject ingestion events are published on.
const DefaultTopic = "catalog.ingested"

// ServerConfig configures the embedded NATS server.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig returns single-node defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   256 * 1024 * 1024,
		JetStreamMaxStore: 4 * 1024 * 1024 * 1024,
	}
}

// BusConfig configures the NATS-backed bus.
type BusConfig struct {
	URL             string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int
	ConnectTimeout  time.Duration

	// SubscribersCount is the number of goroutines consuming each topic.
	SubscribersCount int

	// CloseTimeout bounds how long Close waits for in-flight handlers.
	CloseTimeout time.Duration
}

// DefaultBusConfig returns reconnect-forever defaults for url.
func DefaultBusConfig(url string) BusConfig {
	return BusConfig{
		URL:              url,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024,
		ConnectTimeout:   10 * time.Second,
		SubscribersCount: 1,
		CloseTimeout:     30 * time.Second,
	}
}

// CircuitBreakerConfig holds circuit breaker settings for publishing.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             "event-publisher",
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}
