package main

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

	"github.com/spf13/cobra"

	"github.com/trialdash/trialdash/server/internal/alerts"
	"github.com/trialdash/trialdash/server/internal/api"
	"github.com/trialdash/trialdash/server/internal/auth"
	"github.com/trialdash/trialdash/server/internal/config"
	"github.com/trialdash/trialdash/server/internal/ingest"
	"github.com/trialdash/trialdash/server/internal/metrics"
	"github.com/trialdash/trialdash/server/internal/source"
	"github.com/trialdash/trialdash/server/internal/store"
	"github.com/trialdash/trialdash/server/internal/ws"
)

func runServe(cmd *cobra.Command, _ []string) error {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(args.config)
	if err != nil {
		return err
	}
	level.Set(cfg.Level())

	slog.Info("trialdash starting",
		"config", args.config,
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"alert_rules", len(cfg.Alerts.Rules),
	)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st := store.New()

	// The alerts engine evaluates rules against every newly loaded dataset.
	alertEngine := alerts.New(cfg.Alerts)
	rcv := ingest.New(st, alertEngine)

	// The WebSocket hub pushes the dashboard on every tick and after each load.
	hub := ws.New(st, cfg.Server.Stream.Interval)
	rcv.OnLoad(func(*store.Snapshot) { hub.Broadcast() })
	go hub.Run(ctx)

	if args.config != "" {
		go func() {
			err := config.Watch(ctx, args.config, func(c *config.Config) {
				alertEngine.SetConfig(c.Alerts)
				level.Set(c.Level())
			})
			if err != nil {
				slog.Error("config watch stopped", "err", err)
			}
		}()
	}

	if cfg.Data.Path != "" || cfg.Data.URL != "" {
		go source.Run(ctx, cfg.Data, func(name string, data []byte) error {
			_, _, err := rcv.LoadBytes(name, data)
			return err
		})
	}

	apiHandler := api.New(st, rcv, alertEngine, api.Options{
		MaxUploadBytes: cfg.Server.Upload.MaxBytes,
		Guard: auth.APIKey(
			cfg.Server.Auth.Mode,
			cfg.Server.Auth.EffectiveHeader(),
			cfg.Server.Auth.Key(),
		),
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(st))
	mux.Handle("/ws/stream", hub)
	if args.uiDir == "" {
		mux.Handle("/", apiHandler)
	} else {
		// The UI owns "/"; the API keeps its prefixed routes and /health.
		mux.Handle("/api/", apiHandler)
		mux.Handle("/health", apiHandler)
		mux.Handle("/", spaHandler(args.uiDir))
		slog.Info("serving UI static files", "dir", args.uiDir)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           api.WithCORS(cfg.Server.CORS.AllowedOrigins, mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	slog.Info("trialdash shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	return httpSrv.Shutdown(shutdownCtx)
}

// loadConfig reads path, or returns the built-in defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// spaHandler serves files from dir and falls back to index.html for unknown
// paths so client-side routes resolve.
func spaHandler(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if _, err := os.Stat(p); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	})
}
