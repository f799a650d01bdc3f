// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package testinfra provides NATS test fixtures.
//
// StartEmbeddedNATS runs an in-process JetStream server and needs nothing
// beyond the Go toolchain, so unit tests use it freely.
//
// NewNATSContainer (build tag integration) starts the official nats image
// through testcontainers-go for tests that must run against a real broker:
//
//	go test -tags integration ./internal/blobstore/... ./internal/lock/...
//
// Container tests call SkipIfNoDocker first and are skipped when Docker is
// unavailable.
package testinfra
