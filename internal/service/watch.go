package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Reloader rebuilds the map session.
type Reloader interface {
	Reload(ctx context.Context) error
}

// WatchDataset reloads r whenever the file at path is written, created or
// renamed into place. It watches the parent directory because the dataset
// builder replaces the file atomically. It blocks until ctx is done.
func WatchDataset(ctx context.Context, path string, r Reloader, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	name := filepath.Base(path)
	logger.Info("watching dataset", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			logger.Info("dataset changed, reloading", "op", ev.Op.String())
			if err := r.Reload(ctx); err != nil {
				logger.Warn("reload failed", "error", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}
