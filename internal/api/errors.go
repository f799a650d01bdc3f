// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/marquee/internal/catalog"
	"github.com/tomtom215/marquee/internal/models"
)

// Error codes for API responses.
const (
	ErrCodeInvalidArgument    = "INVALID_ARGUMENT"
	ErrCodeValidationFailed   = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	ErrCodeLockContention     = "LOCK_CONTENTION"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
	ErrCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	ErrCodeIngestDisabled     = "INGEST_DISABLED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// classifyError maps an error onto an HTTP status and error code.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		return http.StatusBadRequest, ErrCodeInvalidArgument
	case errors.Is(err, models.ErrLockContention):
		return http.StatusConflict, ErrCodeLockContention
	case errors.Is(err, models.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, ErrCodeStorageUnavailable
	case errors.Is(err, catalog.ErrIngestDisabled):
		return http.StatusNotImplemented, ErrCodeIngestDisabled
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}

// publicMessage is the client-facing message for an error. Internal failures
// are not echoed back.
func publicMessage(status int, err error) string {
	switch status {
	case http.StatusInternalServerError:
		return "Internal server error"
	case http.StatusServiceUnavailable:
		return "Catalog storage is unavailable"
	default:
		return err.Error()
	}
}
