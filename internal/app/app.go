// Package app wires config, persistence, transport and the session manager
// into a runnable client.
package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/matthiasburger/planningpoker-go/internal/config"
	"github.com/matthiasburger/planningpoker-go/internal/identity"
	"github.com/matthiasburger/planningpoker-go/internal/session"
	"github.com/matthiasburger/planningpoker-go/internal/store"
	"github.com/matthiasburger/planningpoker-go/internal/store/sqlite"
	"github.com/matthiasburger/planningpoker-go/internal/transport/ws"
)

// App owns the assembled client and its resources.
type App struct {
	Session *session.Manager

	kv  store.Store
	log *zerolog.Logger
}

// New constructs the client from configuration. When the state database
// cannot be opened the client still works, just without a durable identity
// or silent rejoin.
func New(cfg config.Config, logger *zerolog.Logger) *App {
	var kv store.Store
	if cfg.StatePath != "" {
		st, err := sqlite.New(cfg.StatePath)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.StatePath).Msg("state db unavailable, persistence disabled")
		} else {
			kv = st
		}
	}

	ids := identity.New(kv, logger)

	conn := ws.NewConn(ws.Options{
		URL:           cfg.ServerURL,
		DialTimeout:   cfg.DialTimeout,
		InvokeTimeout: cfg.InvokeTimeout,
		Reconnect:     ws.DefaultReconnect(),
		Logger:        logger,
	})

	return &App{
		Session: session.New(conn, ids, logger),
		kv:      kv,
		log:     logger,
	}
}

// Start connects to the hub.
func (a *App) Start(ctx context.Context) error {
	return a.Session.Start(ctx)
}

// Close releases the connection and the state database.
func (a *App) Close() {
	if err := a.Session.Close(); err != nil {
		a.log.Warn().Err(err).Msg("close session")
	}
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			a.log.Warn().Err(err).Msg("close state db")
		}
	}
}
