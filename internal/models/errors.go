// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package models

import (
	"errors"
	"fmt"
)

// Error taxonomy. Callers match with errors.Is.
var (
	// ErrMissingField indicates a dataset record lacks a required attribute.
	// Fatal to the index build that encountered it.
	ErrMissingField = errors.New("missing required field")

	// ErrDecode indicates a stored document could not be decoded.
	ErrDecode = errors.New("decode failed")

	// ErrStorageUnavailable indicates the blob store could not be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrLockContention indicates the ingestion lock is held by another run.
	ErrLockContention = errors.New("ingestion lock held by another holder")

	// ErrInvalidArgument indicates an out-of-domain query parameter.
	ErrInvalidArgument = errors.New("invalid argument")
)

// FieldError describes which record and attribute failed index construction.
type FieldError struct {
	Position int
	Field    string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("record %d: %s: %s", e.Position, ErrMissingField, e.Field)
}

// Unwrap allows errors.Is(err, ErrMissingField).
func (e *FieldError) Unwrap() error {
	return ErrMissingField
}

// DecodeError describes a stored document that failed to decode.
type DecodeError struct {
	Collection string
	Key        string
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s %s/%s: %v", ErrDecode, e.Collection, e.Key, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}

// InvalidArgument builds an ErrInvalidArgument error for a named parameter.
func InvalidArgument(param string, value int) error {
	return fmt.Errorf("%w: %s must not be negative, got %d", ErrInvalidArgument, param, value)
}
