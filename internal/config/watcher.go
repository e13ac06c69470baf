package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/autark/internal/logging"
)

// ErrWatcherRunning is returned by Start on a running watcher.
var ErrWatcherRunning = errors.New("config watcher already running")

// DefaultDebounce coalesces the bursts of events editors produce when
// saving a file.
const DefaultDebounce = 200 * time.Millisecond

// ReloadHandler receives each successfully reloaded configuration.
type ReloadHandler func(*AppConfig)

// Watcher reloads the configuration file when it changes on disk. It
// watches the file's directory rather than the file itself so
// rename-style saves keep working. Reloads that fail to parse or
// validate are logged and dropped; the handler only ever sees valid
// configurations.
type Watcher struct {
	path     string
	debounce time.Duration
	log      *logging.Logger

	mu       sync.Mutex
	handlers []ReloadHandler
	running  bool

	fsw  *fsnotify.Watcher
	stop chan struct{}
	wg   sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger sets the watcher's logger.
func WithWatcherLogger(log *logging.Logger) WatcherOption {
	return func(w *Watcher) { w.log = log }
}

// NewWatcher creates a watcher for the config file at path.
func NewWatcher(path string, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:     path,
		debounce: DefaultDebounce,
		log:      logging.Discard,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnReload registers a handler for reloaded configurations.
func (w *Watcher) OnReload(h ReloadHandler) {
	if h == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

// Start begins watching. It is an error to start a running watcher.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return ErrWatcherRunning
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return fmt.Errorf("config watcher: watch %s: %w", dir, err)
	}

	w.fsw = fsw
	w.stop = make(chan struct{})
	w.running = true
	w.wg.Add(1)
	go w.loop()

	w.log.Info("watching config file %s", w.path)
	return nil
}

// Stop halts watching and waits for the loop to exit. Safe on a
// stopped watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stop)
	w.mu.Unlock()

	w.wg.Wait()
	w.fsw.Close()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time

	target := filepath.Clean(w.path)
	for {
		select {
		case <-w.stop:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
		case <-timerC:
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warn("config reload rejected: %v", err)
		return
	}
	w.log.Info("config reloaded from %s", w.path)

	w.mu.Lock()
	handlers := make([]ReloadHandler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.Unlock()

	for _, h := range handlers {
		h(cfg)
	}
}
