package state

import (
	"sync"
)

// Observer receives synchronous, in-order notifications for every
// transition. Handlers run inline with the transition call, after the
// state write has already happened, so a failing observer can never
// roll back a transition.
type Observer interface {
	OnProgramStateChanged(old, new ProgramState)
	OnGameStateChanged(old, new GameState)
}

// ObserverRegistry holds an ordered list of observers. It is safe for
// concurrent use.
type ObserverRegistry struct {
	mu        sync.RWMutex
	observers []Observer

	// onPanic is invoked when an observer panics during delivery.
	onPanic func(recovered any)
}

// NewObserverRegistry creates an empty registry.
func NewObserverRegistry() *ObserverRegistry {
	return &ObserverRegistry{}
}

// SetPanicHandler installs a handler for observer panics. A nil handler
// means panics are silently swallowed.
func (r *ObserverRegistry) SetPanicHandler(fn func(recovered any)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onPanic = fn
}

// Add appends an observer. Observers are notified in registration order.
func (r *ObserverRegistry) Add(obs Observer) {
	if obs == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, obs)
}

// RemoveAt removes the observer at the given position. It reports
// whether a removal occurred.
func (r *ObserverRegistry) RemoveAt(index int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.observers) {
		return false
	}
	r.observers = append(r.observers[:index], r.observers[index+1:]...)
	return true
}

// Len returns the number of registered observers.
func (r *ObserverRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.observers)
}

// snapshot copies the observer list so delivery happens without holding
// the registry lock.
func (r *ObserverRegistry) snapshot() ([]Observer, func(recovered any)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Observer, len(r.observers))
	copy(out, r.observers)
	return out, r.onPanic
}

// NotifyProgramStateChanged delivers a program state transition to every
// observer, in order. Panics are recovered per observer so one bad
// listener cannot break delivery to the rest.
func (r *ObserverRegistry) NotifyProgramStateChanged(old, new ProgramState) {
	observers, onPanic := r.snapshot()
	for _, obs := range observers {
		notifyOne(onPanic, func() { obs.OnProgramStateChanged(old, new) })
	}
}

// NotifyGameStateChanged delivers a game state transition to every
// observer, in order.
func (r *ObserverRegistry) NotifyGameStateChanged(old, new GameState) {
	observers, onPanic := r.snapshot()
	for _, obs := range observers {
		notifyOne(onPanic, func() { obs.OnGameStateChanged(old, new) })
	}
}

func notifyOne(onPanic func(recovered any), fn func()) {
	defer func() {
		if rec := recover(); rec != nil && onPanic != nil {
			onPanic(rec)
		}
	}()
	fn()
}
