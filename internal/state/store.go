package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dshills/autark/internal/logging"
)

// Store persists AppState snapshots as JSON. Writes go to a temp file
// in the same directory which is then renamed over the target, so a
// crash mid-write leaves the previous snapshot intact.
type Store struct {
	path string
	log  *logging.Logger

	mu       sync.Mutex
	snapshot func() AppState
	stop     chan struct{}
	wg       sync.WaitGroup
	running  bool
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the store's logger.
func WithStoreLogger(log *logging.Logger) StoreOption {
	return func(s *Store) { s.log = log }
}

// NewStore creates a store writing to path.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path: path,
		log:  logging.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the snapshot file path.
func (s *Store) Path() string { return s.path }

// SetSnapshot installs the function auto-save and ForceSave use to read
// the live state.
func (s *Store) SetSnapshot(fn func() AppState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = fn
}

// Load reads the persisted snapshot. A missing file is not an error; it
// returns (nil, nil).
func (s *Store) Load() (*AppState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading state file %s: %w", s.path, err)
	}

	var st AppState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing state file %s: %w", s.path, err)
	}
	return &st, nil
}

// Save writes a snapshot atomically.
func (s *Store) Save(st AppState) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing state file: %w", err)
	}

	s.log.Debug("state saved to %s", s.path)
	return nil
}

// ForceSave writes the live state out of band using the snapshot
// function.
func (s *Store) ForceSave() error {
	s.mu.Lock()
	snapshot := s.snapshot
	s.mu.Unlock()

	if snapshot == nil {
		return ErrNoSnapshot
	}
	return s.Save(snapshot())
}

// StartAutoSave begins saving the live state on a fixed interval. A
// failed save is logged and retried on the next tick, never
// immediately.
func (s *Store) StartAutoSave(interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot == nil {
		return ErrNoSnapshot
	}
	if s.running {
		return ErrAutoSaveRunning
	}

	s.stop = make(chan struct{})
	s.running = true
	s.wg.Add(1)

	go s.autoSaveLoop(interval, s.stop, s.snapshot)

	s.log.Info("auto-save started, interval %s", interval)
	return nil
}

func (s *Store) autoSaveLoop(interval time.Duration, stop <-chan struct{}, snapshot func() AppState) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.Save(snapshot()); err != nil {
				s.log.Error("auto-save failed: %v", err)
			}
		}
	}
}

// Stop cancels the auto-save task and waits for it to exit. It is safe
// to call when auto-save was never started.
func (s *Store) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
}
