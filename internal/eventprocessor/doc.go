// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package eventprocessor carries catalog events between Marquee processes
// using Watermill.
//
// The only event today is catalog.ingested, published after an ingestion run
// rewrites the canonical dataset. Query servers subscribe to it and reload
// their index snapshot, so a standalone indexer can refresh every server
// without an HTTP round trip:
//
//	┌────────────┐   catalog.ingested   ┌──────────────┐
//	│  indexer   │ ───────────────────▶ │ NATS (core)  │
//	└────────────┘                      └──────┬───────┘
//	                                           │ fan-out
//	                              ┌────────────┼────────────┐
//	                              ▼            ▼            ▼
//	                         ┌────────┐   ┌────────┐   ┌────────┐
//	                         │ server │   │ server │   │ server │
//	                         └────────┘   └────────┘   └────────┘
//
// Two transports are provided. NewNATSBus speaks core NATS through
// watermill-nats with JetStream disabled and no queue group, so every
// subscriber receives every event. NewChannelBus uses Watermill's in-process
// gochannel for single-process deployments and tests.
//
// Delivery is at most once. A missed event leaves a server on its previous
// snapshot until the next event or a manual reload; nothing is corrupted.
//
// An EmbeddedServer runs nats-server in-process for deployments that want
// NATS-backed storage or locks without operating a separate cluster.
package eventprocessor
