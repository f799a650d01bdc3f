// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
)

// BreakerConfig configures BreakerStore.
type BreakerConfig struct {
	// Backend labels metrics and names the breaker ("blobstore-<backend>").
	Backend string

	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold uint32

	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration

	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32
}

// DefaultBreakerConfig returns conservative breaker settings.
func DefaultBreakerConfig(backend string) BreakerConfig {
	return BreakerConfig{
		Backend:          backend,
		FailureThreshold: 5,
		Timeout:          30 * time.Second,
		MaxRequests:      1,
	}
}

// BreakerStore guards a Store with a circuit breaker. Backend failures and an
// open circuit surface as models.ErrStorageUnavailable; ErrNotFound, invalid
// names and context cancellation pass through untouched and do not count as
// failures.
type BreakerStore struct {
	next    Store
	cb      *gobreaker.CircuitBreaker[interface{}]
	name    string
	backend string
}

// NewBreakerStore wraps next.
func NewBreakerStore(next Store, cfg BreakerConfig) *BreakerStore {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	name := "blobstore-" + cfg.Backend

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isBackendFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &BreakerStore{next: next, cb: cb, name: name, backend: cfg.Backend}
}

// isBackendFailure reports whether err reflects an unhealthy backend rather
// than a caller mistake or an expected miss.
func isBackendFailure(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidName),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return true
	}
}

// State returns the breaker state for health reporting.
func (s *BreakerStore) State() string {
	return s.cb.State().String()
}

// Unwrap returns the guarded store.
func (s *BreakerStore) Unwrap() Store {
	return s.next
}

func (s *BreakerStore) execute(op string, fn func() (interface{}, error)) (interface{}, error) {
	start := time.Now()
	result, err := s.cb.Execute(fn)
	metrics.RecordBlobstoreOp(s.backend, op, time.Since(start), errIfFailure(err))

	if err == nil {
		metrics.CircuitBreakerRequests.WithLabelValues(s.name, "success").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(s.name).Set(0)
		return result, nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.CircuitBreakerRequests.WithLabelValues(s.name, "rejected").Inc()
		logging.Warn().Err(err).Str("breaker", s.name).Str("operation", op).Msg("[CIRCUIT BREAKER] Request rejected")
		return nil, fmt.Errorf("%w: %s: %w", models.ErrStorageUnavailable, op, err)
	}

	if !isBackendFailure(err) {
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(s.name, "failure").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(s.name).Set(float64(s.cb.Counts().ConsecutiveFailures))
	return nil, fmt.Errorf("%w: %w", models.ErrStorageUnavailable, err)
}

func errIfFailure(err error) error {
	if err != nil && isBackendFailure(err) {
		return err
	}
	return nil
}

// List implements Store.
func (s *BreakerStore) List(ctx context.Context, collection string) ([]ObjectInfo, error) {
	res, err := s.execute("list", func() (interface{}, error) {
		return s.next.List(ctx, collection)
	})
	if err != nil {
		return nil, err
	}
	return res.([]ObjectInfo), nil
}

// Get implements Store.
func (s *BreakerStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	res, err := s.execute("get", func() (interface{}, error) {
		return s.next.Get(ctx, collection, key)
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

// Put implements Store.
func (s *BreakerStore) Put(ctx context.Context, collection, key string, data []byte) error {
	_, err := s.execute("put", func() (interface{}, error) {
		return nil, s.next.Put(ctx, collection, key, data)
	})
	return err
}

// Delete implements Store.
func (s *BreakerStore) Delete(ctx context.Context, collection, key string) error {
	_, err := s.execute("delete", func() (interface{}, error) {
		return nil, s.next.Delete(ctx, collection, key)
	})
	return err
}

// Close closes the guarded store if it holds resources.
func (s *BreakerStore) Close() error {
	if c, ok := s.next.(Closer); ok {
		return c.Close()
	}
	return nil
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
