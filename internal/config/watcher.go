package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// ReloadFunc receives the freshly loaded config together with the set of
// hot-reloadable changes. It is only invoked when at least one such change
// is present; edits to restart-only settings (listen address, TLS, storage
// DSN, lesson providers) update [Watcher.Current] silently.
type ReloadFunc func(cfg *Config, d ConfigDiff)

// Watcher polls the config file and applies hot reloads. Polling (rather
// than fsnotify) keeps the dependency surface flat and survives editors
// that replace the file instead of writing in place.
type Watcher struct {
	path     string
	interval time.Duration
	onReload ReloadFunc

	mu       sync.Mutex
	current  *Config
	done     chan struct{}
	stopOnce sync.Once

	// Last observed file state, for cheap change detection.
	modTime time.Time
	sum     [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads the config at path and starts polling it for changes in
// a background goroutine. The initial load must succeed.
func NewWatcher(path string, onReload ReloadFunc, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		onReload: onReload,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, sum, modTime, err := w.load()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg
	w.sum = sum
	w.modTime = modTime

	go w.poll()
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop ends the polling goroutine. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check re-reads the config when the file looks different and, if the new
// content is valid and changes a hot-reloadable setting, hands it to the
// reload callback. An invalid file keeps the old config in place.
func (w *Watcher) check() {
	// mtime gate first so an untouched file costs one stat per poll.
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("config watcher: stat failed", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	modTime := w.modTime
	w.mu.Unlock()

	if info.ModTime().Equal(modTime) {
		return
	}

	cfg, sum, newModTime, err := w.load()
	if err != nil {
		slog.Warn("config watcher: keeping previous config", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()

	if sum == w.sum {
		// Touched but identical, remember the new mtime and move on.
		w.modTime = newModTime
		w.mu.Unlock()
		return
	}

	old := w.current
	w.current = cfg
	w.sum = sum
	w.modTime = newModTime
	w.mu.Unlock()

	d := Diff(old, cfg)
	if !d.Any() {
		slog.Info("config watcher: change needs a restart to take effect", "path", w.path)
		return
	}

	slog.Info("config watcher: applying hot reload",
		"path", w.path,
		"log_level", d.LogLevelChanged,
		"tick_interval", d.TickIntervalChanged,
		"producer_rate", d.ProducerRateChanged)

	// Outside the lock so the callback can safely call Current().
	if w.onReload != nil {
		w.onReload(cfg, d)
	}
}

// load reads and validates the config file, returning it alongside the
// file's SHA-256 sum and modification time.
func (w *Watcher) load() (*Config, [sha256.Size]byte, time.Time, error) {
	var zero [sha256.Size]byte

	f, err := os.Open(w.path)
	if err != nil {
		return nil, zero, time.Time{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, zero, time.Time{}, err
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, zero, time.Time{}, err
	}

	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, zero, time.Time{}, err
	}

	return cfg, sha256.Sum256(data), info.ModTime(), nil
}
