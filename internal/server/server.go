// Package server wires the storefront together and runs the HTTP server.
//
// This is the composition root: every dependency is built here, in one place,
// and handed down explicitly. Nothing else in the module constructs a
// database, a Redis client or an S3 client.
//
// DEPENDENCY CHAIN:
//
//	config → sqldb.DB ──────────────→ service.DataManager ─┐
//	       → SessionStore (Redis|memory) → auth.Sessions ───┼→ handler.Handler → chi router
//	       → ImageStore (S3|disk) ─────→ view.Renderer ─────┘
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/storefront/internal/auth"
	"github.com/sakif/storefront/internal/config"
	"github.com/sakif/storefront/internal/flash"
	"github.com/sakif/storefront/internal/handler"
	"github.com/sakif/storefront/internal/middleware"
	"github.com/sakif/storefront/internal/repository/sqldb"
	"github.com/sakif/storefront/internal/service"
	"github.com/sakif/storefront/internal/upload"
	"github.com/sakif/storefront/internal/view"
)

// Server owns the router and every long-lived resource behind it.
//
// RESOURCE MANAGEMENT:
// The database pool and the Redis client are closed by Close, which Start
// calls on the way out after in-flight requests have drained.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqldb.DB
	redis  *redis.Client // nil when sessions are revoked in memory
}

// New opens the stores and builds the router. On error, anything already
// opened is closed again.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *Server, err error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	if s.db, err = openDB(ctx, cfg); err != nil {
		return nil, err
	}

	store, err := s.sessionStore(ctx)
	if err != nil {
		return nil, err
	}

	images, err := imageStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenService(cfg.SecretKey, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	sessions := auth.NewSessions(tokens, store, !cfg.Development(), logger)

	views, err := view.New(images, logger)
	if err != nil {
		return nil, err
	}

	data := service.NewDataManager(s.db, auth.NewPasswordService(), logger)
	pages := handler.New(data, sessions, views, images, logger)

	s.setupRoutes(pages, sessions, data)
	return s, nil
}

// openDB picks SQLite in development and PostgreSQL otherwise.
func openDB(ctx context.Context, cfg *config.Config) (*sqldb.DB, error) {
	opts := sqldb.Options{Dialect: sqldb.Postgres, DSN: cfg.PostgresURI}
	if cfg.Development() {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		opts = sqldb.Options{Dialect: sqldb.SQLite, DSN: cfg.DBPath}
	}

	db, err := sqldb.New(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// sessionStore uses Redis when REDIS_ADDR is set, so revocations survive
// restarts and are shared between replicas. A configured but unreachable
// Redis is a startup error.
func (s *Server) sessionStore(ctx context.Context) (auth.SessionStore, error) {
	if s.config.Redis.Addr == "" {
		return auth.NewMemorySessionStore(), nil
	}

	s.redis = redis.NewClient(&redis.Options{
		Addr:     s.config.Redis.Addr,
		Password: s.config.Redis.Password,
		DB:       s.config.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.redis.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", s.config.Redis.Addr, err)
	}
	return auth.NewRedisSessionStore(s.redis), nil
}

// imageStore uses S3 when S3_BUCKET is set and the upload directory otherwise.
func imageStore(ctx context.Context, cfg *config.Config) (upload.ImageStore, error) {
	if cfg.S3.Bucket != "" {
		store, err := upload.NewS3Store(ctx, upload.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PublicURL: cfg.S3.PublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("creating s3 image store: %w", err)
		}
		return store, nil
	}

	store, err := upload.NewDiskStore(cfg.UploadDir, "/uploads")
	if err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return store, nil
}

// setupRoutes installs middleware and routes.
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: tags each request (the logger prints it)
//  2. RealIP: client IP from X-Forwarded-For / X-Real-IP
//  3. Logger: one line per request
//  4. Recoverer: a panicking handler becomes a 500, not a dead process
//
// Pages additionally get flash messages and the session user. Assets skip
// both, so serving a stylesheet never touches the database.
func (s *Server) setupRoutes(pages *handler.Handler, sessions *auth.Sessions, users auth.UserLoader) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(view.StaticFS()))))
	if s.config.S3.Bucket == "" {
		s.router.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.config.UploadDir))))
	}

	s.router.Group(func(r chi.Router) {
		r.Use(flash.Middleware)
		r.Use(sessions.LoadUser(users))
		pages.Routes(r)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database and Redis connections.
func (s *Server) Close() error {
	var errs []error
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	return errors.Join(errs...)
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully:
//  1. stop accepting connections
//  2. give in-flight requests 30 seconds to finish
//  3. close the stores
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("env", s.config.Env),
			slog.String("database", string(s.db.Dialect())),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
