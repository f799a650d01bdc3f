// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package eventprocessor

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
)

// EventHandler reacts to a decoded ingestion event.
type EventHandler func(ctx context.Context, event *IngestedEvent) error

// Listener consumes ingestion events and hands them to a handler.
//
// Messages are always acked: a failed handler is logged and the event is
// dropped, because redelivering a reload request cannot make it succeed.
// Listener implements suture.Service.
type Listener struct {
	subscriber message.Subscriber
	topic      string
	handler    EventHandler
	name       string
}

// NewListener creates a listener for topic.
func NewListener(sub message.Subscriber, topic string, handler EventHandler) *Listener {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Listener{
		subscriber: sub,
		topic:      topic,
		handler:    handler,
		name:       "event-listener",
	}
}

// Serve subscribes and processes messages until ctx is canceled.
func (l *Listener) Serve(ctx context.Context) error {
	messages, err := l.subscriber.Subscribe(ctx, l.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", l.topic, err)
	}

	logging.Info().Str("topic", l.topic).Msg("Listening for catalog events")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("subscription to %s closed", l.topic)
			}
			l.process(ctx, msg)
		}
	}
}

func (l *Listener) process(ctx context.Context, msg *message.Message) {
	defer msg.Ack()
	metrics.EventsReceived.WithLabelValues(l.topic).Inc()

	if id := msg.Metadata.Get("correlation_id"); id != "" {
		ctx = logging.ContextWithCorrelationID(ctx, id)
	}
	log := logging.Ctx(ctx)

	event, err := DeserializeEvent(msg.Payload)
	if err != nil {
		log.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Discarding undecodable event")
		return
	}
	if l.handler == nil {
		return
	}
	if err := l.handler(ctx, event); err != nil {
		log.Error().Err(err).
			Str("event_id", event.EventID).
			Str("source", event.Source).
			Msg("Event handler failed")
	}
}

// String implements fmt.Stringer for suture logs.
func (l *Listener) String() string {
	return l.name
}
