package sources

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes the configured input paths and fires a callback
// once changes settle. Bulk copies collapse into a single callback per
// debounce window.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	onChange func()
	debounce time.Duration
}

// NewWatcher builds a watcher over the given filesystem targets,
// usually Loader.WatchTargets.
func NewWatcher(logger *slog.Logger, targets []string, debounce time.Duration, onChange func()) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, target := range targets {
		if err := fsw.Add(target); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", target, err)
		}
	}
	return &Watcher{watcher: fsw, logger: logger, onChange: onChange, debounce: debounce}, nil
}

// Run processes events until the context ends. Call it from its own
// goroutine; Close releases the notify handle afterwards.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("input change detected", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			if w.onChange != nil {
				w.onChange()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// Close releases the underlying notify handle.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
