package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce collapses the burst of events a single save produces.
const watchDebounce = 100 * time.Millisecond

// Watch monitors path and calls onChange with the reloaded upstream settings
// each time the file changes. It runs until ctx is cancelled.
//
// The parent directory is watched rather than the file, so saves that
// replace the file by rename keep being seen.
//
// Only UpstreamConfig is hot-reloaded; server, logging and security settings
// need a restart. A reload that fails to parse or validate is logged and the
// previous settings stay active.
func Watch(ctx context.Context, path string, onChange func(UpstreamConfig)) error {
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	slog.Info("config: watching for changes", "path", path)

	var reload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			reload = time.After(watchDebounce)

		case <-reload:
			reload = nil

			cfg, err := LoadFile(path)
			if err != nil {
				slog.Error("config: reload failed, keeping previous settings",
					"path", path, "error", err)
				continue
			}

			slog.Info("config: reloaded", "path", path, "listing_url", cfg.Upstream.ListingURL)
			onChange(cfg.Upstream)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "error", err)
		}
	}
}
