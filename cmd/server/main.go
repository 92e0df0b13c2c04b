package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/gatehouse-auth/gatehouse/internal"
	"github.com/gatehouse-auth/gatehouse/internal/auth"
	authdb "github.com/gatehouse-auth/gatehouse/internal/auth/db"
	"github.com/gatehouse-auth/gatehouse/internal/db"
	"github.com/gatehouse-auth/gatehouse/internal/migrate"
	"github.com/gatehouse-auth/gatehouse/internal/web"
	"github.com/gatehouse-auth/gatehouse/migrations"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Stderr))
}

func run(ctx context.Context, w io.Writer) int {
	logger := slog.New(slog.NewTextHandler(w, nil))

	cfg, err := configFromEnv()
	if err != nil {
		logger.Error("failed to get config from environment", "error", err)
		return 1
	}

	sqlDB, err := db.OpenSQLite(cfg.db.file, true)
	if err != nil {
		logger.Error("failed to open database", "error", err, "file", cfg.db.file)
		return 1
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	logger.Info("attempting to migrate database", "file", cfg.db.file)

	migrated, err := migrate.RunFS(ctx, sqlDB, migrations.FS, migrate.Metadata{
		AppVersion: internal.Build.Revision,
		Timestamp:  internal.Build.RevisionTime,
	})
	if err != nil {
		logger.Error("failed to migrate database", "error", err)
		return 1
	}

	logger.Info("database migrated", "migrations", len(migrated))

	store := authdb.New(sqlDB, nil)

	svc, err := auth.NewService(store)
	if err != nil {
		logger.Error("failed to create auth service", "error", err)
		return 1
	}

	authenticator, err := auth.NewAuthenticator(cfg.auth.kind, cfg.auth.excludedPaths, svc)
	if err != nil {
		logger.Error("failed to create authenticator", "error", err)
		return 1
	}

	handler := web.NewServer(&web.ServerDeps{
		Logger:        logger,
		AuthService:   svc,
		Authenticator: authenticator,
	}, web.ServerConfig{
		SessionCookie: cfg.auth.sessionCookie,
		SecureCookie:  cfg.auth.secureCookie,
	})

	srv := &http.Server{
		Addr:         cfg.http.addr,
		ReadTimeout:  cfg.http.readTimeout,
		WriteTimeout: cfg.http.writeTimeout,
		IdleTimeout:  cfg.http.idleTimeout,
		Handler:      handler,
	}

	// We need to run two tasks concurrently:
	// - Listen and serving of the HTTP server.
	// - Waiting for a signal to stop the server.

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server",
			"addr", cfg.http.addr,
			"authType", cfg.auth.kind,
			"buildRevision", internal.Build.Revision,
			"buildRevisionTime", internal.Build.RevisionTime,
			"buildModified", internal.Build.Modified,
		)
		// ListenAndServe always returns a non-nil error,
		// g will cancel gCtx when an error is returned, so
		// this will also stop the other goroutine.
		return srv.ListenAndServe()
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("stopping http server")

		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.http.shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutCtx)
	})

	err = g.Wait()
	if err != nil && err != http.ErrServerClosed {
		logger.Error("http server stopped with error", "error", err)
		return 1
	}

	logger.Info("http server stopped successfully")

	return 0
}
