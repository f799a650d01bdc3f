// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/eventprocessor"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/models"
)

// NATS holds the shared NATS connection and, when configured, the embedded
// server it points at.
type NATS struct {
	Server *eventprocessor.EmbeddedServer
	Conn   *natsgo.Conn
	JS     jetstream.JetStream
	URL    string
}

// ConnectNATS starts the embedded server if configured and connects to it or
// to the configured URL. Returns nil when NATS is disabled.
func ConnectNATS(cfg *config.Config) (*NATS, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS disabled")
		return nil, nil
	}

	n := &NATS{URL: cfg.NATS.URL}
	if cfg.NATS.EmbeddedServer {
		server, err := eventprocessor.NewEmbeddedServer(eventprocessor.ServerConfig{
			Host:              cfg.NATS.Host,
			Port:              cfg.NATS.Port,
			StoreDir:          cfg.NATS.StoreDir,
			JetStreamMaxMem:   cfg.NATS.MaxMemory,
			JetStreamMaxStore: cfg.NATS.MaxStore,
		})
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		n.Server = server
		n.URL = server.ClientURL()
		logging.Info().Str("url", n.URL).Msg("Embedded NATS server started")
	}

	nc, err := natsgo.Connect(n.URL,
		natsgo.Name("marquee"),
		natsgo.Timeout(cfg.NATS.ConnectTimeout),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(c *natsgo.Conn) {
			logging.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		n.shutdownServer()
		return nil, fmt.Errorf("connect to NATS at %s: %w", n.URL, err)
	}
	n.Conn = nc

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		n.shutdownServer()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	n.JS = js

	logging.Info().Str("url", n.URL).Bool("embedded", n.Server != nil).Msg("Connected to NATS")
	return n, nil
}

// Status reports connectivity for the health endpoint. A nil receiver is
// disabled.
func (n *NATS) Status() string {
	if n == nil || n.Conn == nil {
		return models.ComponentDisabled
	}
	if n.Conn.IsConnected() {
		return models.ComponentConnected
	}
	return models.ComponentDisconnected
}

// CloseConn drains and closes the client connection. The embedded server is
// left running.
func (n *NATS) CloseConn() error {
	if n == nil || n.Conn == nil {
		return nil
	}
	if err := n.Conn.Drain(); err != nil && !errors.Is(err, natsgo.ErrConnectionClosed) {
		n.Conn.Close()
		return err
	}
	return nil
}

// Close closes the connection and shuts down the embedded server.
func (n *NATS) Close(ctx context.Context) error {
	if n == nil {
		return nil
	}
	err := n.CloseConn()
	if n.Server != nil && n.Server.IsRunning() {
		err = errors.Join(err, n.Server.Shutdown(ctx))
	}
	return err
}

func (n *NATS) shutdownServer() {
	if n.Server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = n.Server.Shutdown(ctx)
}
