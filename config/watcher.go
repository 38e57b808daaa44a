package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce is how long to wait for more writes before reloading.
// Editors often produce several events for one save.
const reloadDebounce = 500 * time.Millisecond

// Watcher reloads the config file when it changes and delivers validated
// snapshots on Updates. Invalid or unreadable files are logged and the
// previous config stays in effect.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	pendingMu sync.Mutex
	pending   bool

	updates chan *Config
}

// NewWatcher creates a watcher for the given config file path.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		path:    path,
		watcher: fsw,
		logger:  logger,
		updates: make(chan *Config, 1),
	}, nil
}

// Updates returns the channel of reloaded configs.
func (w *Watcher) Updates() <-chan *Config {
	return w.updates
}

// Start begins watching the config file's directory. Watching the
// directory rather than the file survives rename-based atomic writes.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("config watcher started", "path", w.path)

	return nil
}

// Stop stops the watcher. The updates channel is closed by processEvents
// when it exits.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.updates)
	ticker := time.NewTicker(reloadDebounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.pendingMu.Lock()
				w.pending = true
				w.pendingMu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	dirty := w.pending
	w.pending = false
	w.pendingMu.Unlock()

	if !dirty {
		return
	}

	cfg, err := LoadFromFile(w.path)
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous config",
			"path", w.path,
			"error", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		w.logger.Warn("reloaded config invalid, keeping previous config",
			"path", w.path,
			"error", err)
		return
	}

	select {
	case w.updates <- cfg:
		w.logger.Info("config reloaded", "path", w.path)
	default:
		w.logger.Warn("config update dropped, consumer not ready")
	}
}
