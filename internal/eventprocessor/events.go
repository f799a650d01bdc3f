// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package eventprocessor

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/marquee/internal/models"
)

// Event validation errors.
var (
	ErrMissingEventID    = errors.New("event_id is required")
	ErrMissingOccurredAt = errors.New("occurred_at is required")
	ErrNegativeCount     = errors.New("counts must not be negative")
)

// IngestedEvent announces that an ingestion run rewrote the canonical dataset.
type IngestedEvent struct {
	EventID       string    `json:"event_id"`
	OccurredAt    time.Time `json:"occurred_at"`
	Source        string    `json:"source"`
	Processed     int       `json:"processed"`
	Skipped       int       `json:"skipped"`
	ItemsUpdated  int       `json:"items_updated"`
	ItemsAppended int       `json:"items_appended"`
	DatasetSize   int       `json:"dataset_size"`
}

// NewIngestedEvent builds an event from a completed run's report.
func NewIngestedEvent(source string, report *models.IngestReport) *IngestedEvent {
	ev := &IngestedEvent{
		EventID:    uuid.New().String(),
		OccurredAt: time.Now().UTC(),
		Source:     source,
	}
	if report != nil {
		ev.Processed = report.Processed
		ev.Skipped = report.Skipped
		ev.ItemsUpdated = report.ItemsUpdated
		ev.ItemsAppended = report.ItemsAppended
		ev.DatasetSize = report.DatasetSize
	}
	return ev
}

// Validate checks the event carries an identity and sane counts.
func (e *IngestedEvent) Validate() error {
	if e.EventID == "" {
		return ErrMissingEventID
	}
	if e.OccurredAt.IsZero() {
		return ErrMissingOccurredAt
	}
	if e.Processed < 0 || e.Skipped < 0 || e.ItemsUpdated < 0 || e.ItemsAppended < 0 || e.DatasetSize < 0 {
		return fmt.Errorf("%w: processed=%d skipped=%d updated=%d appended=%d size=%d",
			ErrNegativeCount, e.Processed, e.Skipped, e.ItemsUpdated, e.ItemsAppended, e.DatasetSize)
	}
	return nil
}
