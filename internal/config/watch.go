package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchSettle coalesces the burst of fsnotify events an editor save or
// atomic rename produces into a single reload.
const watchSettle = 250 * time.Millisecond

// Watch follows the config file at path and calls onChange with the freshly
// loaded configuration after every change. Files that fail to load are
// logged and skipped; the previous configuration stays in effect. Watch
// blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file itself, because most
// editors replace the file on save and an inode watch would go stale.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	slog.Info("watching config file", "path", path)

	var settle *time.Timer
	var settleC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Op.Has(fsnotify.Write | fsnotify.Create | fsnotify.Rename) {
				continue
			}
			if settle == nil {
				settle = time.NewTimer(watchSettle)
				settleC = settle.C
			} else {
				settle.Stop()
				settle.Reset(watchSettle)
			}

		case <-settleC:
			settle = nil
			settleC = nil

			cfg, err := LoadFromFile(path)
			if err != nil {
				slog.Warn("config reload skipped", "path", path, "error", err)
				continue
			}
			slog.Info("config reloaded", "path", path)
			onChange(cfg)

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "error", werr)
		}
	}
}
