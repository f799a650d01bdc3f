// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package services

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/models"
)

// IngestRunner is satisfied by *catalog.Service.
type IngestRunner interface {
	Ingest(ctx context.Context) (*models.IngestReport, error)
}

// IngestSchedulerService runs ingestion every interval until canceled.
// Failures never stop the loop; the next tick retries.
type IngestSchedulerService struct {
	runner   IngestRunner
	interval time.Duration
	name     string
}

// NewIngestSchedulerService creates a scheduler. Values of interval <= 0
// use one minute.
func NewIngestSchedulerService(runner IngestRunner, interval time.Duration) *IngestSchedulerService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &IngestSchedulerService{
		runner:   runner,
		interval: interval,
		name:     "ingest-scheduler",
	}
}

// Serve implements suture.Service.
func (s *IngestSchedulerService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *IngestSchedulerService) runOnce(ctx context.Context) {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	log := logging.Ctx(ctx)

	report, err := s.runner.Ingest(ctx)
	switch {
	case err == nil:
		log.Info().
			Int("processed", report.Processed).
			Int("items_updated", report.ItemsUpdated).
			Int("items_appended", report.ItemsAppended).
			Msg("Scheduled ingestion completed")
	case errors.Is(err, models.ErrLockContention):
		log.Debug().Msg("Scheduled ingestion skipped, lock held elsewhere")
	case errors.Is(err, context.Canceled):
		// shutting down
	default:
		log.Warn().Err(err).Msg("Scheduled ingestion failed")
	}
}

// String implements fmt.Stringer.
func (s *IngestSchedulerService) String() string {
	return s.name
}
