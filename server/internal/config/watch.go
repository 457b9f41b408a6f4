package config

import (
	"context"
	"log/slog"

	"github.com/trialdash/trialdash/server/internal/filewatch"
)

// Watch reloads path whenever it changes and passes each successfully loaded
// Config to onChange. A file that fails to load is logged and skipped, so
// the previous config stays in effect. Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	slog.Info("config: watching for changes", "path", path)
	return filewatch.Watch(ctx, path, filewatch.DefaultSettle, func() {
		cfg, err := Load(path)
		if err != nil {
			slog.Error("config: reload failed, keeping previous config", "path", path, "err", err)
			return
		}
		slog.Info("config: reloaded", "path", path, "log_level", cfg.Level().String(), "alert_rules", len(cfg.Alerts.Rules))
		onChange(cfg)
	})
}
