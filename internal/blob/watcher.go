package blob

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called for external changes to the uploads directory.
// kind is one of "created", "removed".
type EventCallback func(kind string, name string)

// Watch starts an fsnotify watcher on the uploads directory and reports
// changes made behind the service's back until ctx is cancelled. The store
// is the only writer in normal operation, so an unexpected removal means a
// document's backing file is gone and its download will start returning 404.
// No state is mutated; the watcher exists so operators see it in the logs.
func Watch(ctx context.Context, dir string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", dir))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			// The store is flat and holds only content-addressed PDFs;
			// ignore temp files from in-flight atomic writes.
			if !strings.HasSuffix(ev.Name, Extension) {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				logger.Warn("watcher: backing file removed externally",
					slog.String("path", ev.Name))
				if cb != nil {
					cb("removed", ev.Name)
				}
			case ev.Op&fsnotify.Create != 0:
				logger.Debug("watcher: file appeared", slog.String("path", ev.Name))
				if cb != nil {
					cb("created", ev.Name)
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
