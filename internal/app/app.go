// Package app wires all Lyrico subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves the HTTP/WS API until the context ends, and
// Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithStore,
// WithGenerator, etc.). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hanbyeol/lyrico/internal/api"
	"github.com/hanbyeol/lyrico/internal/config"
	"github.com/hanbyeol/lyrico/internal/gamify"
	"github.com/hanbyeol/lyrico/internal/health"
	"github.com/hanbyeol/lyrico/internal/lesson"
	"github.com/hanbyeol/lyrico/internal/mission"
	"github.com/hanbyeol/lyrico/internal/mission/postgres"
	"github.com/hanbyeol/lyrico/internal/observe"
	"github.com/hanbyeol/lyrico/internal/session"
)

// shutdownTimeout bounds the HTTP server drain during Run teardown.
const shutdownTimeout = 10 * time.Second

// App owns all subsystem lifetimes.
type App struct {
	cfg *config.Config

	// Subsystems — initialised in New, torn down in Shutdown.
	store    mission.Store
	sessions *session.Manager
	ledger   *gamify.Ledger
	gen      lesson.Generator
	metrics  *observe.Metrics
	checkers []health.Checker
	server   *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a mission store instead of creating one from config.
func WithStore(s mission.Store) Option {
	return func(a *App) { a.store = s }
}

// WithGenerator injects a lesson generator instead of creating one through
// the provider registry.
func WithGenerator(g lesson.Generator) Option {
	return func(a *App) { a.gen = g }
}

// WithMetrics injects a metrics set instead of using the global default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The registry holds
// the lesson provider factories registered by main.go. Use Option functions
// to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, reg *config.Registry, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	// ── 1. Metrics ───────────────────────────────────────────────────────
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 2. Mission store ─────────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	// ── 3. Lesson generator ──────────────────────────────────────────────
	if err := a.initGenerator(reg); err != nil {
		return nil, fmt.Errorf("app: init lesson generator: %w", err)
	}

	// ── 4. Sessions ──────────────────────────────────────────────────────
	if err := a.initSessions(); err != nil {
		return nil, fmt.Errorf("app: init sessions: %w", err)
	}

	// ── 5. Ledger ────────────────────────────────────────────────────────
	a.ledger = gamify.NewLedger(a.store)

	// ── 6. HTTP server ───────────────────────────────────────────────────
	if err := a.initServer(); err != nil {
		return nil, fmt.Errorf("app: init server: %w", err)
	}

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initStore sets up the PostgreSQL mission store, or the in-memory store
// when no DSN is configured.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	dsn := a.cfg.Storage.PostgresDSN
	if dsn == "" {
		slog.Warn("no postgres_dsn configured, using in-memory store; missions are lost on restart")
		a.store = mission.NewMemStore()
		return nil
	}

	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return err
	}
	a.store = store
	a.checkers = append(a.checkers, health.Checker{Name: "postgres", Check: store.Ping})
	a.closers = append(a.closers, func() error {
		store.Close()
		return nil
	})
	slog.Info("connected to postgres mission store")
	return nil
}

// initGenerator creates the configured lesson generator through the
// registry. An empty provider name disables lesson generation.
func (a *App) initGenerator(reg *config.Registry) error {
	if a.gen != nil {
		return nil
	}
	entry := a.cfg.Lesson.Provider
	if entry.Name == "" {
		slog.Warn("no lesson provider configured, lesson generation disabled")
		return nil
	}
	gen, err := reg.CreateGenerator(entry)
	if err != nil {
		return err
	}
	a.gen = gen
	slog.Info("lesson generator ready", "provider", entry.Name, "model", entry.Model)
	return nil
}

// initSessions creates the session manager over the mission store.
func (a *App) initSessions() error {
	mgr, err := session.NewManager(session.ManagerConfig{
		Store:        a.store,
		Metrics:      a.metrics,
		TickInterval: a.cfg.Session.TickInterval,
		ProducerRate: a.cfg.Session.ProducerRate,
	})
	if err != nil {
		return err
	}
	a.sessions = mgr
	return nil
}

// initServer assembles the route table and the http.Server around it.
func (a *App) initServer() error {
	srv, err := api.New(api.Config{
		Manager:       a.sessions,
		Store:         a.store,
		Ledger:        a.ledger,
		Generator:     a.gen,
		GeneratorName: a.cfg.Lesson.Provider.Name,
		CardPool:      a.cfg.Gamify.CardPool,
		Metrics:       a.metrics,
		Health:        health.New(a.checkers...),
	})
	if err != nil {
		return err
	}

	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	a.server = &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// ApplyConfigDiff applies the hot-reloadable parts of a config change.
// Sessions opened after the call use the new values; live sessions are left
// alone.
func (a *App) ApplyConfigDiff(d config.ConfigDiff) {
	if d.TickIntervalChanged {
		a.sessions.SetTickInterval(d.NewTickInterval)
		slog.Info("session tick interval updated", "tick_interval", d.NewTickInterval)
	}
	if d.ProducerRateChanged {
		a.sessions.SetProducerRate(d.NewProducerRate)
		slog.Info("producer rate updated", "producer_rate", d.NewProducerRate)
	}
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves the HTTP/WS API and blocks until ctx is cancelled or the
// server fails. On cancellation the server is drained before Run returns
// ctx.Err().
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("listening", "addr", a.server.Addr, "tls", a.cfg.Server.TLS != nil)
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.server.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(drainCtx); err != nil {
			return fmt.Errorf("app: drain server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		// Stop the live sessions first so nothing writes to the store
		// while it closes.
		if a.sessions != nil {
			a.sessions.Shutdown()
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
