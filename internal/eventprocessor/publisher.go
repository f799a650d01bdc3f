// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// Publisher sends catalog events through a Watermill publisher guarded by a
// circuit breaker. It satisfies ingest.Notifier.
type Publisher struct {
	publisher      message.Publisher
	topic          string
	source         string
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	mu             sync.RWMutex
	closed         bool
}

// NewPublisher wraps pub. Events are stamped with source, normally the
// process name ("server" or "indexer").
func NewPublisher(pub message.Publisher, topic, source string, cb CircuitBreakerConfig) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	if cb.Name == "" {
		cb.Name = "event-publisher"
	}
	return &Publisher{
		publisher:      pub,
		topic:          topic,
		source:         source,
		circuitBreaker: NewCircuitBreaker(cb),
	}
}

// Topic returns the subject events are published on.
func (p *Publisher) Topic() string {
	return p.topic
}

// Publish serializes and sends event.
func (p *Publisher) Publish(ctx context.Context, event *IngestedEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	data, err := SerializeEvent(event)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	msg := message.NewMessage(event.EventID, data)
	msg.SetContext(ctx)
	msg.Metadata.Set("source", event.Source)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set("correlation_id", id)
	}

	_, err = p.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, p.publisher.Publish(p.topic, msg)
	})
	metrics.RecordEventPublished(p.topic, err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", p.topic, err)
	}
	return nil
}

// IngestCompleted publishes an IngestedEvent for report.
func (p *Publisher) IngestCompleted(ctx context.Context, report *models.IngestReport) error {
	event := NewIngestedEvent(p.source, report)
	if err := p.Publish(ctx, event); err != nil {
		return err
	}
	logging.Ctx(ctx).Debug().
		Str("event_id", event.EventID).
		Str("topic", p.topic).
		Msg("Ingestion event published")
	return nil
}

// BreakerState returns the publish breaker state.
func (p *Publisher) BreakerState() string {
	return CircuitBreakerState(p.circuitBreaker)
}

// Close marks the publisher closed. The underlying Watermill publisher is
// owned by the Bus and closed there.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
