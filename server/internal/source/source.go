package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/trialdash/trialdash/server/internal/config"
	"github.com/trialdash/trialdash/server/internal/filewatch"
)

// Sink receives a raw dataset. name carries the file name or URL path so the
// receiver can pick a decoder.
type Sink func(name string, data []byte) error

// Run loads cfg.Path and cfg.URL once, then watches the file (when cfg.Watch
// is set) and polls the URL every cfg.Refresh. It blocks until ctx is
// cancelled. Failed loads are logged and never stop the loop.
func Run(ctx context.Context, cfg config.DataConfig, sink Sink) {
	done := make(chan struct{}, 2)
	running := 0

	if cfg.Path != "" {
		loadFile(cfg.Path, sink)
		if cfg.Watch {
			running++
			go func() {
				defer func() { done <- struct{}{} }()
				slog.Info("source: watching dataset", "path", cfg.Path)
				if err := filewatch.Watch(ctx, cfg.Path, filewatch.DefaultSettle, func() { loadFile(cfg.Path, sink) }); err != nil {
					slog.Error("source: watch failed", "path", cfg.Path, "err", err)
				}
			}()
		}
	}

	if cfg.URL != "" {
		client := NewHTTPClient(cfg)
		name := urlName(cfg.URL)
		fetch := func(ctx context.Context) {
			data, err := Fetch(ctx, client, cfg.URL)
			if err != nil {
				slog.Error("source: fetch failed, keeping previous dataset", "url", cfg.URL, "err", err)
				return
			}
			if err := sink(name, data); err != nil {
				slog.Error("source: load failed, keeping previous dataset", "url", cfg.URL, "err", err)
			}
		}
		fetch(ctx)
		running++
		go func() {
			defer func() { done <- struct{}{} }()
			Poll(ctx, cfg.Refresh, fetch)
		}()
	}

	for i := 0; i < running; i++ {
		<-done
	}
}

// ReadFile reads a dataset file from disk.
func ReadFile(p string) ([]byte, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("source: read %q: %w", p, err)
	}
	return data, nil
}

func loadFile(p string, sink Sink) {
	data, err := ReadFile(p)
	if err != nil {
		slog.Error("source: load failed, keeping previous dataset", "path", p, "err", err)
		return
	}
	if err := sink(p, data); err != nil {
		slog.Error("source: load failed, keeping previous dataset", "path", p, "err", err)
	}
}

// Poll calls fn every interval until ctx is cancelled. A non-positive
// interval falls back to config.DefaultRefresh.
func Poll(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		interval = config.DefaultRefresh
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn(ctx)
		}
	}
}

// urlName returns the last path element of raw, or raw itself when it has none.
func urlName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" || u.Path == "/" {
		return raw
	}
	return path.Base(u.Path)
}
