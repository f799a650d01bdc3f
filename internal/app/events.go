// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/eventprocessor"
	"github.com/tomtom215/marquee/internal/index"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/models"
)

// Events is the ingestion event bus and its publisher.
type Events struct {
	Bus       *eventprocessor.Bus
	Publisher *eventprocessor.Publisher
	topic     string
}

// OpenEvents creates the event bus. With a NATS connection the bus is core
// NATS so every server hears every ingestion; otherwise it is in-process.
// Returns nil when events are disabled.
func OpenEvents(cfg *config.Config, natsc *NATS, source string) (*Events, error) {
	if !cfg.Events.Enabled {
		logging.Info().Msg("Ingestion events disabled")
		return nil, nil
	}

	logger := eventprocessor.NewWatermillLogger()
	var bus *eventprocessor.Bus
	if natsc != nil {
		busCfg := eventprocessor.DefaultBusConfig(natsc.URL)
		busCfg.ConnectTimeout = cfg.NATS.ConnectTimeout
		b, err := eventprocessor.NewNATSBus(busCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create NATS event bus: %w", err)
		}
		bus = b
	} else {
		bus = eventprocessor.NewChannelBus(logger)
	}

	pub := eventprocessor.NewPublisher(bus.Publisher, cfg.Events.Topic, source, eventprocessor.DefaultCircuitBreakerConfig())

	logging.Info().
		Str("transport", bus.Transport).
		Str("topic", cfg.Events.Topic).
		Msg("Ingestion events enabled")

	return &Events{Bus: bus, Publisher: pub, topic: cfg.Events.Topic}, nil
}

// Listener returns a supervised listener that calls handler per event.
func (e *Events) Listener(handler eventprocessor.EventHandler) *eventprocessor.Listener {
	return eventprocessor.NewListener(e.Bus.Subscriber, e.topic, handler)
}

// Status reports the publisher health. A nil receiver is disabled.
func (e *Events) Status() string {
	if e == nil {
		return models.ComponentDisabled
	}
	if e.Publisher.BreakerState() == "open" {
		return models.ComponentDisconnected
	}
	return models.ComponentConnected
}

// Close stops publishing and closes the bus.
func (e *Events) Close() error {
	if e == nil {
		return nil
	}
	return errors.Join(e.Publisher.Close(), e.Bus.Close())
}

// Reloader is satisfied by *catalog.Service.
type Reloader interface {
	Reload(ctx context.Context) (index.Stats, error)
}

// ReloadOnIngest returns an event handler that rebuilds the snapshot.
func ReloadOnIngest(r Reloader) eventprocessor.EventHandler {
	return func(ctx context.Context, event *eventprocessor.IngestedEvent) error {
		stats, err := r.Reload(ctx)
		if err != nil {
			return fmt.Errorf("reload after ingestion %s: %w", event.EventID, err)
		}
		logging.Ctx(ctx).Info().
			Str("event_id", event.EventID).
			Str("source", event.Source).
			Int("records", stats.Records).
			Msg("Catalog reloaded after ingestion")
		return nil
	}
}
