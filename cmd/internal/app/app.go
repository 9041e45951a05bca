// Package app wires the Vouch server runtime: config, logging, database,
// migrations and HTTP routes.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"vouch/cmd/identity"
	"vouch/cmd/internal/auth/api"
	"vouch/cmd/security/password"
	"vouch/cmd/security/token"
)

// App is the Vouch server runtime. It owns the connection pool and HTTP
// server wiring.
type App struct {
	cfg Config
	log Logger

	dbPool   *pgxpool.Pool
	registry *prometheus.Registry

	auth *api.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("app: VOUCH_DATABASE_URL is required")
	}

	if cfg.MigrateOnStart {
		if err := MigrateUp(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		log.Info("db.migrated")
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("db.connected")

	hasher, err := password.FromEnv()
	if err != nil {
		pool.Close()
		return nil, err
	}

	tokenCfg, err := token.ConfigFromEnv()
	if err != nil {
		pool.Close()
		return nil, err
	}
	tokens, err := token.NewManager(tokenCfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	store, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	svc, err := identity.NewService(log, store, hasher, tokens)
	if err != nil {
		pool.Close()
		return nil, err
	}

	reg := newRegistry()
	authHandler, err := api.NewHandler(log, api.LoadConfigFromEnv(), hasher, svc, api.NewMetrics(reg))
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &App{
		cfg:      cfg,
		log:      log,
		dbPool:   pool,
		registry: reg,
		auth:     authHandler,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.dbPool, a.registry, a.auth)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if a.dbPool != nil {
		a.dbPool.Close()
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
