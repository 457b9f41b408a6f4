// Package filewatch calls back when a single file changes on disk.
//
// The parent directory is watched rather than the file itself, so saves that
// replace the file (write to a temp file, then rename) are seen the same way
// as in-place writes. A burst of events such as truncate followed by write
// is coalesced into one callback once the file has been quiet for the
// settle period.
package filewatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is the quiet period used when Watch is given zero.
const DefaultSettle = 100 * time.Millisecond

// Watch calls onChange after each burst of writes to path, or after path is
// created or renamed into place. It returns an error if path does not exist
// or cannot be watched, and nil once ctx is cancelled.
func Watch(ctx context.Context, path string, settle time.Duration, onChange func()) error {
	if settle <= 0 {
		settle = DefaultSettle
	}
	target := filepath.Clean(path)
	if _, err := os.Stat(target); err != nil {
		return fmt.Errorf("filewatch: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("filewatch: new watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("filewatch: watch %q: %w", filepath.Dir(target), err)
	}

	quiet := time.NewTimer(settle)
	if !quiet.Stop() {
		<-quiet.C
	}
	defer quiet.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !relevant(event) {
				continue
			}
			slog.Debug("filewatch: event", "path", target, "op", event.Op.String())
			if pending && !quiet.Stop() {
				<-quiet.C
			}
			quiet.Reset(settle)
			pending = true

		case <-quiet.C:
			pending = false
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("filewatch: watcher error", "path", target, "err", err)
		}
	}
}

// relevant reports whether event may have changed the file's content.
// Remove and Chmod never do; a replacing save ends with Create.
func relevant(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
