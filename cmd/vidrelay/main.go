// Package main provides the vidrelay binary entry point. It loads
// configuration from environment variables, prepares the data directory,
// wires the extraction, registry, file store, reaper, and metrics
// components together, and serves the HTTP API.
//
// The application flow:
//  1. Load defaults and apply environment variables.
//  2. Validate configuration.
//  3. Prepare the data, files, and scratch directories.
//  4. Ensure the extraction binary is available.
//  5. Start the metrics flusher and the reaper.
//  6. Serve HTTP until interrupted, then stop the background loops.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vidrelay/vidrelay/internal/app"
	"github.com/vidrelay/vidrelay/internal/config"
	"github.com/vidrelay/vidrelay/internal/extract"
	"github.com/vidrelay/vidrelay/internal/filestore"
	"github.com/vidrelay/vidrelay/internal/httpx"
	"github.com/vidrelay/vidrelay/internal/metrics"
	"github.com/vidrelay/vidrelay/internal/reaper"
	"github.com/vidrelay/vidrelay/internal/registry"
)

// realClock implements app.Clock using time.Now.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "err", err)
		os.Exit(2)
	}
	return cfg
}

// ensureDirs creates the data root plus the files and scratch
// subdirectories, refusing paths that exist but are not directories.
func ensureDirs(cfg *config.Config) error {
	for _, dir := range []string{cfg.DataDir, cfg.FilesDir(), cfg.ScratchDir()} {
		st, err := os.Stat(dir)
		switch {
		case errors.Is(err, os.ErrNotExist):
			if mkErr := os.MkdirAll(dir, 0o700); mkErr != nil {
				return fmt.Errorf("create %s: %w", dir, mkErr)
			}
		case err != nil:
			return fmt.Errorf("stat %s: %w", dir, err)
		case !st.IsDir():
			return fmt.Errorf("data path %s is not a directory", dir)
		}
	}
	return nil
}

func openMetrics(ctx context.Context, cfg *config.Config) (*sql.DB, *metrics.Manager, error) {
	db, err := sql.Open("sqlite3", cfg.MetricsDSN())
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite driver: %w", err)
	}
	mgr := metrics.New(db, metrics.Config{FlushInterval: cfg.MetricsFlushInterval})
	if err := mgr.InitSchema(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("init metrics schema: %w", err)
	}
	return db, mgr, nil
}

func buildService(cfg *config.Config, reg *registry.Registry, files *filestore.Store, mgr *metrics.Manager) *app.Service {
	return &app.Service{
		Registry:    reg,
		Files:       files,
		Extractor:   extract.New(cfg.ScratchDir(), slog.Default()),
		Cookies:     extract.NewCookieStager(cfg.ScratchDir()),
		Clock:       realClock{},
		Metrics:     mgr,
		BaseURL:     cfg.BaseURL,
		URLValidity: cfg.URLValidity,
		Logger:      slog.Default(),
	}
}

func buildHandler(cfg *config.Config, svc *app.Service, db *sql.DB, mgr *metrics.Manager) http.Handler {
	readiness := func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		if _, err := os.ReadDir(cfg.FilesDir()); err != nil {
			return err
		}
		return nil
	}
	h := httpx.New(svc, cfg.MaxBodyBytes, readiness)
	h.Metrics = metrics.Handler(mgr, cfg.MetricsToken)
	return h.Router()
}

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	// WriteTimeout stays generous so large media streams are not cut off.
	return &http.Server{Addr: cfg.Addr, Handler: handler, ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Minute, IdleTimeout: 120 * time.Second}
}

func run() error {
	cfg := loadConfig()
	if err := ensureDirs(cfg); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := extract.Install(ctx); err != nil {
		return fmt.Errorf("install extractor: %w", err)
	}

	db, mgr, err := openMetrics(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	mgr.Start(ctx)

	reg := registry.New()
	files, err := filestore.New(cfg.FilesDir())
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	svc := buildService(cfg, reg, files, mgr)

	rpr := reaper.New(reg, files, realClock{}, reaper.Config{
		Interval:  cfg.ReapInterval,
		Retention: cfg.Retention,
	})
	rpr.SetRecorder(mgr)
	rpr.Start(ctx)

	srv := newServer(cfg, buildHandler(cfg, svc, db, mgr))
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("starting server", "addr", cfg.Addr, "pid", os.Getpid())
	serveErr := srv.ListenAndServe()
	rpr.Stop()
	mgr.Stop(context.Background())
	if serveErr != nil && serveErr != http.ErrServerClosed {
		return serveErr
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
