// Package app wires the server runtime: config, logging, storage, the auth session core and HTTP routes.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"socialapp/cmd/identity"
	authapi "socialapp/cmd/internal/auth/api"
	"socialapp/cmd/internal/auth/session"
	"socialapp/cmd/security/keys"
	"socialapp/cmd/security/password"
)

// Store is a small app-level lifecycle abstraction.
// It exists to allow DB-backed resources to be closed gracefully.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore is used for in-memory store mode.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

type dbStore struct {
	pool *pgxpool.Pool
}

func (s dbStore) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// App is the server runtime: it owns the HTTP server and the storage lifecycle.
type App struct {
	cfg Config
	log Logger

	store Store

	dbPool    *pgxpool.Pool
	dbEnabled bool

	registry *prometheus.Registry
	accounts *identity.Service
	sessions *session.Service
	auth     *authapi.Handler
}

// backends groups the storage implementations picked by newBackends.
type backends struct {
	store     Store
	pool      *pgxpool.Pool
	dbEnabled bool

	accounts identity.Store
	refresh  func(resolver session.IdentityResolver) session.Store
	audit    authapi.AuditSink
}

// New constructs a fully wired App instance from config and logger.
// Key material problems are fatal.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	ctx := context.Background()

	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	pair, err := keys.Load(keys.LoadConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("signing keys: %w", err)
	}
	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}

	tokens, err := session.NewRS256Manager(sessCfg, pair)
	if err != nil {
		return nil, err
	}

	be, err := newBackends(ctx, cfg, sessCfg, log)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*App, error) {
		_ = be.store.Close(ctx)
		return nil, err
	}

	accounts, err := identity.NewService(be.accounts, pwCfg)
	if err != nil {
		return fail(err)
	}
	dir := authapi.NewAccountDirectory(accounts)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := session.NewMetrics(reg)
	if err != nil {
		return fail(err)
	}

	sessions, err := session.NewService(sessCfg, tokens, be.refresh(dir), dir, session.WithMetrics(metrics))
	if err != nil {
		return fail(err)
	}

	authCfg := authapi.LoadConfigFromEnv(sessCfg.RefreshTTL)
	auth, err := authapi.NewHandler(log, authCfg, sessions, accounts, pair, authapi.WithAuditSink(be.audit))
	if err != nil {
		return fail(err)
	}

	if err := bootstrapAdmin(ctx, accounts, cfg.BootstrapAdmin, log); err != nil {
		return fail(err)
	}

	log.Info("auth.keys.loaded", "kid", pair.KeyID, "bits", pair.Public.N.BitLen())

	return &App{
		cfg:       cfg,
		log:       log,
		store:     be.store,
		dbPool:    be.pool,
		dbEnabled: be.dbEnabled,
		registry:  reg,
		accounts:  accounts,
		sessions:  sessions,
		auth:      auth,
	}, nil
}

// Handler returns the full HTTP stack: routes wrapped in request id, logging,
// security headers and CORS.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.registry, a.auth)

	var h http.Handler = mux
	h = WithCORS(h, a.cfg, a.log)
	h = WithSecurityHeaders(h)
	h = WithRequestLogging(h, a.log)
	h = WithRequestID(h)
	return h
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

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
		_ = a.store.Close(context.Background())
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.store.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

// Close releases storage without serving. Used when New succeeded but Run is never called.
func (a *App) Close(ctx context.Context) error {
	return a.store.Close(ctx)
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

// newBackends decides between Postgres-backed persistence and in-memory stores.
func newBackends(ctx context.Context, cfg Config, sessCfg session.Config, log Logger) (backends, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return backends{
			store:    nopStore{},
			accounts: identity.NewMemoryStore(),
			refresh: func(r session.IdentityResolver) session.Store {
				return session.NewMemoryStore(sessCfg, r)
			},
			audit: authapi.NewMemoryAuditSink(),
		}, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return backends{}, err
	}
	log.Info("db.enabled.postgres_store")

	if cfg.DBMigrate {
		if err := Migrate(ctx, pool, log); err != nil {
			pool.Close()
			return backends{}, err
		}
	}

	accounts, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return backends{}, err
	}
	audit, err := authapi.NewPostgresAuditSink(pool)
	if err != nil {
		pool.Close()
		return backends{}, err
	}

	return backends{
		store:     dbStore{pool: pool},
		pool:      pool,
		dbEnabled: true,
		accounts:  accounts,
		refresh: func(session.IdentityResolver) session.Store {
			return session.NewPostgresStore(pool, sessCfg)
		},
		audit: audit,
	}, nil
}
