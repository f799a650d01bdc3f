// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package testinfra

import (
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EmbeddedNATS is an in-process JetStream server bound to a random port.
type EmbeddedNATS struct {
	Server *server.Server
	URL    string
}

// StartEmbeddedNATS starts a JetStream server for the duration of the test.
// Storage lives in t.TempDir and everything is torn down by t.Cleanup.
func StartEmbeddedNATS(t testing.TB) *EmbeddedNATS {
	t.Helper()

	ns, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      server.RANDOM_PORT,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
		NoSigs:    true,
	})
	if err != nil {
		t.Fatalf("create NATS server: %v", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		t.Fatal("NATS server not ready within timeout")
	}

	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	return &EmbeddedNATS{Server: ns, URL: ns.ClientURL()}
}

// Connect opens a client connection closed at test cleanup.
func (e *EmbeddedNATS) Connect(t testing.TB) *natsgo.Conn {
	t.Helper()
	return Connect(t, e.URL)
}

// JetStream returns a JetStream context on a fresh connection.
func (e *EmbeddedNATS) JetStream(t testing.TB) jetstream.JetStream {
	t.Helper()
	return JetStream(t, e.URL)
}

// Connect opens a client connection to url closed at test cleanup.
func Connect(t testing.TB, url string) *natsgo.Conn {
	t.Helper()

	nc, err := natsgo.Connect(url, natsgo.Timeout(5*time.Second))
	if err != nil {
		t.Fatalf("connect to NATS at %s: %v", url, err)
	}
	t.Cleanup(nc.Close)
	return nc
}

// JetStream returns a JetStream context on a fresh connection to url.
func JetStream(t testing.TB, url string) jetstream.JetStream {
	t.Helper()

	js, err := jetstream.New(Connect(t, url))
	if err != nil {
		t.Fatalf("create JetStream context: %v", err)
	}
	return js
}
