package fs

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher reports edits to a single configuration file. The parent
// directory is watched so that editors replacing the file are seen too.
type ConfigWatcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	log      *slog.Logger

	mu      sync.Mutex
	pending bool
	hash    [32]byte

	changes chan struct{}
}

// NewConfigWatcher creates a watcher for path
func NewConfigWatcher(path string, debounce time.Duration, log *slog.Logger) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	w := &ConfigWatcher{
		path:     abs,
		debounce: debounce,
		watcher:  fsw,
		log:      log.With("component", "ConfigWatcher"),
		changes:  make(chan struct{}, 1),
	}
	w.hash, _ = fileHash(abs)
	return w, nil
}

// Changes delivers one value per settled content change
func (w *ConfigWatcher) Changes() <-chan struct{} {
	return w.changes
}

// Start begins watching until ctx is done
func (w *ConfigWatcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	go w.processEvents(ctx)
	w.log.Debug("watching config file", "path", w.path)
	return nil
}

// Stop releases the underlying watcher
func (w *ConfigWatcher) Stop() error {
	return w.watcher.Close()
}

func (w *ConfigWatcher) processEvents(ctx context.Context) {
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.mu.Lock()
				w.pending = true
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

// flushPending emits a change if the content differs from the last one seen
func (w *ConfigWatcher) flushPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.pending {
		return
	}
	w.pending = false

	hash, err := fileHash(w.path)
	if err != nil {
		// mid-replace; try again on the next tick
		w.pending = true
		return
	}
	if hash == w.hash {
		return
	}
	w.hash = hash
	w.log.Info("config file changed", "path", w.path)

	select {
	case w.changes <- struct{}{}:
	default:
	}
}

func fileHash(path string) ([32]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}
