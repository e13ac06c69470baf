package state

import (
	"context"
	"sync"
	"time"

	"github.com/dshills/autark/internal/event"
	"github.com/dshills/autark/internal/logging"
)

// ActionFunc is an externally supplied action executed during a
// transient transition phase (Starting or Stopping). It runs outside
// the state lock, so a slow action never blocks readers.
type ActionFunc func(ctx context.Context) error

// Machine owns the canonical AppState and is its only mutator.
//
// Every successful transition is delivered twice: synchronously and
// in-order through the ObserverRegistry, and best-effort through the
// change bus. The two paths have different guarantees and are kept
// deliberately distinct.
type Machine struct {
	mu    sync.RWMutex
	state AppState

	observers *ObserverRegistry
	bus       *event.Bus[Change]

	store            *Store
	autoSaveInterval time.Duration

	startAction ActionFunc
	stopAction  ActionFunc

	log *logging.Logger
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithStore attaches a persistence store. Initialize will load the
// persisted snapshot and Shutdown will issue a final save.
func WithStore(store *Store, autoSaveInterval time.Duration) MachineOption {
	return func(m *Machine) {
		m.store = store
		m.autoSaveInterval = autoSaveInterval
	}
}

// WithStartAction sets the action executed while in the Starting state.
func WithStartAction(fn ActionFunc) MachineOption {
	return func(m *Machine) { m.startAction = fn }
}

// WithStopAction sets the action executed while in the Stopping state.
func WithStopAction(fn ActionFunc) MachineOption {
	return func(m *Machine) { m.stopAction = fn }
}

// WithLogger sets the machine's logger.
func WithLogger(log *logging.Logger) MachineOption {
	return func(m *Machine) { m.log = log }
}

// WithBusCapacity sets the change bus per-subscriber buffer size.
func WithBusCapacity(n int) MachineOption {
	return func(m *Machine) { m.bus = event.NewBus[Change](event.WithCapacity(n)) }
}

// NewMachine creates a machine in the initial state.
func NewMachine(opts ...MachineOption) *Machine {
	m := &Machine{
		state:     NewAppState(),
		observers: NewObserverRegistry(),
		bus:       event.NewBus[Change](),
		log:       logging.Discard,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.observers.SetPanicHandler(func(recovered any) {
		m.log.Error("state observer panicked: %v", recovered)
	})
	return m
}

// Initialize loads the persisted snapshot (if a store is attached) and
// starts the auto-save task.
func (m *Machine) Initialize() error {
	if m.store == nil {
		return nil
	}

	loaded, err := m.store.Load()
	if err != nil {
		return err
	}
	if loaded != nil {
		m.mu.Lock()
		m.state = *loaded
		m.mu.Unlock()
		m.log.Info("loaded persisted state: program=%s game=%s",
			loaded.ProgramState, loaded.GameState)
	}

	m.store.SetSnapshot(m.State)
	if m.autoSaveInterval > 0 {
		if err := m.store.StartAutoSave(m.autoSaveInterval); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown stops the auto-save task and writes a final snapshot. The
// background writer is halted before the final save so the two cannot
// race.
func (m *Machine) Shutdown() error {
	m.bus.Close()
	if m.store == nil {
		return nil
	}
	m.store.Stop()
	return m.store.Save(m.State())
}

// State returns a snapshot of the current state.
func (m *Machine) State() AppState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// ProgramState returns the current program state.
func (m *Machine) ProgramState() ProgramState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.ProgramState
}

// GameState returns the current game state.
func (m *Machine) GameState() GameState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.GameState
}

// CanStartCore reports whether StartCore would currently be legal.
func (m *Machine) CanStartCore() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.CanStartCore()
}

// CanStopCore reports whether StopCore would currently be legal.
func (m *Machine) CanStopCore() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.CanStopCore()
}

// ShouldDisableConfig reports whether config editing should be locked.
func (m *Machine) ShouldDisableConfig() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.ShouldDisableConfig()
}

// AddObserver registers a synchronous observer.
func (m *Machine) AddObserver(obs Observer) {
	m.observers.Add(obs)
}

// RemoveObserver removes the observer at the given position.
func (m *Machine) RemoveObserver(index int) bool {
	return m.observers.RemoveAt(index)
}

// Subscribe returns a best-effort receiver of state changes.
func (m *Machine) Subscribe() *event.Receiver[Change] {
	return m.bus.Subscribe()
}

// StartCore transitions Stopped -> Starting -> Running, executing the
// configured start action between the two writes. If the precondition
// fails nothing is mutated and an InvalidTransitionError is returned.
// If the start action fails the program state rolls back to Stopped.
func (m *Machine) StartCore(ctx context.Context) error {
	if err := m.transitionProgram(ProgramStarting, AppState.CanStartCore); err != nil {
		return err
	}

	if m.startAction != nil {
		if err := m.startAction(ctx); err != nil {
			m.log.Error("start action failed: %v", err)
			m.forceProgram(ProgramStopped)
			return err
		}
	}

	m.forceProgram(ProgramRunning)
	m.log.Info("core started")
	return nil
}

// StopCore transitions Running -> Stopping -> Stopped, executing the
// configured stop action between the two writes. A stop action failure
// rolls the program state back to Running.
func (m *Machine) StopCore(ctx context.Context) error {
	if err := m.transitionProgram(ProgramStopping, AppState.CanStopCore); err != nil {
		return err
	}

	if m.stopAction != nil {
		if err := m.stopAction(ctx); err != nil {
			m.log.Error("stop action failed: %v", err)
			m.forceProgram(ProgramRunning)
			return err
		}
	}

	m.forceProgram(ProgramStopped)
	m.log.Info("core stopped")
	return nil
}

// UpdateGameState records a new game state. Setting the current value
// again is a no-op: no event is emitted and the timestamp is untouched.
func (m *Machine) UpdateGameState(gs GameState) {
	m.mu.Lock()
	old := m.state.GameState
	if old == gs {
		m.mu.Unlock()
		return
	}
	m.state.GameState = gs
	m.state.LastUpdated = time.Now()
	m.mu.Unlock()

	m.log.Info("game state: %s -> %s", old, gs)
	m.emitGame(old, gs)
}

// ForceSave writes the current state out of band. It is a no-op when no
// store is attached.
func (m *Machine) ForceSave() error {
	if m.store == nil {
		return nil
	}
	return m.store.Save(m.State())
}

// transitionProgram verifies the precondition and writes the transient
// state under the lock; emission happens after release.
func (m *Machine) transitionProgram(to ProgramState, ok func(AppState) bool) error {
	m.mu.Lock()
	if !ok(m.state) {
		cur := m.state.ProgramState
		m.mu.Unlock()
		return &InvalidTransitionError{From: cur, To: to}
	}
	old := m.state.ProgramState
	m.state.ProgramState = to
	m.state.LastUpdated = time.Now()
	m.mu.Unlock()

	m.emitProgram(old, to)
	return nil
}

// forceProgram writes a settled program state unconditionally. Only the
// start/stop paths use it, after holding the corresponding transient
// state.
func (m *Machine) forceProgram(to ProgramState) {
	m.mu.Lock()
	old := m.state.ProgramState
	m.state.ProgramState = to
	m.state.LastUpdated = time.Now()
	m.mu.Unlock()

	m.emitProgram(old, to)
}

func (m *Machine) emitProgram(old, new ProgramState) {
	now := time.Now()
	m.observers.NotifyProgramStateChanged(old, new)
	m.bus.Publish(ProgramStateChange{Old: old, New: new, Timestamp: now})
}

func (m *Machine) emitGame(old, new GameState) {
	now := time.Now()
	m.observers.NotifyGameStateChanged(old, new)
	m.bus.Publish(GameStateChange{Old: old, New: new, Timestamp: now})
}
