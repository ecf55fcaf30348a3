// Package app wires the vidtube server runtime: config, logging, stores,
// session service, HTTP routes and metrics.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	authapi "github.com/Myash21/vidtube/internal/auth/api"
	"github.com/Myash21/vidtube/internal/auth/session"
	"github.com/Myash21/vidtube/internal/identity"
	"github.com/Myash21/vidtube/internal/media"
	"github.com/Myash21/vidtube/internal/security/password"
	"github.com/Myash21/vidtube/internal/video"
	videoapi "github.com/Myash21/vidtube/internal/video/api"
)

// App is the vidtube server runtime.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	users   *authapi.Handler
	videos  *videoapi.Handler
	metrics *Metrics
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if err := ValidateSecurityConfig(cfg, sessCfg); err != nil {
		return nil, err
	}

	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}

	accountStore, videoStore, dbPool, dbEnabled, err := newStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	objectStore, err := newObjectStore(ctx, log)
	if err != nil {
		if dbPool != nil {
			dbPool.Close()
		}
		return nil, err
	}

	codec, err := session.NewJWTCodec(sessCfg)
	if err != nil {
		if dbPool != nil {
			dbPool.Close()
		}
		return nil, err
	}
	sessions, err := session.NewService(sessCfg, accountStore, codec, pwCfg)
	if err != nil {
		if dbPool != nil {
			dbPool.Close()
		}
		return nil, err
	}

	apiCfg := authapi.LoadConfigFromEnv()
	users, err := authapi.NewHandler(log, apiCfg, sessions, accountStore, objectStore)
	if err != nil {
		if dbPool != nil {
			dbPool.Close()
		}
		return nil, err
	}

	videos, err := videoapi.NewHandler(log, videoapi.Config{
		MaxBodyBytes:   apiCfg.MaxBodyBytes,
		MaxUploadBytes: apiCfg.MaxUploadBytes,
	}, users.Gate(), videoStore, objectStore)
	if err != nil {
		if dbPool != nil {
			dbPool.Close()
		}
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		users:     users,
		videos:    videos,
		metrics:   NewMetrics(),
	}, nil
}

// Handler builds the complete HTTP handler: routes plus the middleware chain.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.users, a.videos, a.metrics)

	var h http.Handler = mux
	h = a.metrics.Middleware(h)
	h = WithSecurityHeaders(h)
	h = WithCORS(h, a.cfg, a.log)
	h = WithRequestLogging(h, a.log)
	return h
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 60*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 60*time.Second),
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

// newStores decides between Postgres-backed persistence and the in-memory
// dev stores. With a database URL the embedded migrations run first.
func newStores(ctx context.Context, cfg Config, log Logger) (identity.Store, video.Store, *pgxpool.Pool, bool, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return identity.NewMemoryStore(), video.NewMemoryStore(), nil, false, nil
	}

	if err := RunMigrations(ctx, cfg.DatabaseURL); err != nil {
		return nil, nil, nil, false, err
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, nil, false, err
	}

	accounts, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, nil, false, err
	}
	videos, err := video.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, nil, false, err
	}

	log.Info("db.enabled.postgres_store")
	return accounts, videos, pool, true, nil
}

// newObjectStore selects S3-backed object storage when configured and the
// in-memory fake otherwise.
func newObjectStore(ctx context.Context, log Logger) (media.Store, error) {
	s3cfg := media.LoadS3ConfigFromEnv()
	if !s3cfg.Enabled() {
		log.Info("media.disabled.inmemory_store")
		return media.NewMemoryStore(), nil
	}

	store, err := media.NewS3Store(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	log.Info("media.enabled.s3_store", "bucket", s3cfg.Bucket)
	return store, nil
}
