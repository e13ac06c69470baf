// Package state owns the canonical application state: the program
// lifecycle (stopped/starting/running/stopping) and the detected game
// state. All mutation goes through the Machine, which enforces legal
// transitions and notifies observers and bus subscribers on every change.
package state

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProgramState is the lifecycle state of the automation core.
type ProgramState string

const (
	// ProgramStopped means the core is not running.
	ProgramStopped ProgramState = "Stopped"

	// ProgramStarting is the transient state while the core starts.
	ProgramStarting ProgramState = "Starting"

	// ProgramRunning means the core is active.
	ProgramRunning ProgramState = "Running"

	// ProgramStopping is the transient state while the core shuts down.
	ProgramStopping ProgramState = "Stopping"
)

// Valid reports whether p is one of the defined program states.
func (p ProgramState) Valid() bool {
	switch p {
	case ProgramStopped, ProgramStarting, ProgramRunning, ProgramStopping:
		return true
	default:
		return false
	}
}

// GameState is the detection state of the target game window.
type GameState string

const (
	// GameNotDetected means no target window is tracked.
	GameNotDetected GameState = "NotDetected"

	// GameDetected means the target window is tracked.
	GameDetected GameState = "Detected"

	// GameInBattle means the tracked window is in a battle scene.
	GameInBattle GameState = "InBattle"
)

// Valid reports whether g is one of the defined game states.
func (g GameState) Valid() bool {
	switch g {
	case GameNotDetected, GameDetected, GameInBattle:
		return true
	default:
		return false
	}
}

// AppState is the complete application state snapshot.
type AppState struct {
	ProgramState ProgramState
	GameState    GameState
	LastUpdated  time.Time
}

// NewAppState returns the initial state: core stopped, no game detected.
func NewAppState() AppState {
	return AppState{
		ProgramState: ProgramStopped,
		GameState:    GameNotDetected,
		LastUpdated:  time.Now(),
	}
}

// CanStartCore reports whether a start transition is currently legal:
// the core must be stopped and the game window detected (or in battle).
func (s AppState) CanStartCore() bool {
	if s.ProgramState != ProgramStopped {
		return false
	}
	return s.GameState == GameDetected || s.GameState == GameInBattle
}

// CanStopCore reports whether a stop transition is currently legal.
func (s AppState) CanStopCore() bool {
	return s.ProgramState == ProgramRunning
}

// ShouldDisableConfig reports whether configuration editing should be
// locked out. Editing is only allowed while the core is fully stopped.
func (s AppState) ShouldDisableConfig() bool {
	return s.ProgramState != ProgramStopped
}

// appStateJSON is the persisted wire form. LastUpdated is stored as
// whole epoch seconds.
type appStateJSON struct {
	ProgramState ProgramState `json:"program_state"`
	GameState    GameState    `json:"game_state"`
	LastUpdated  int64        `json:"last_updated"`
}

// MarshalJSON implements json.Marshaler.
func (s AppState) MarshalJSON() ([]byte, error) {
	return json.Marshal(appStateJSON{
		ProgramState: s.ProgramState,
		GameState:    s.GameState,
		LastUpdated:  s.LastUpdated.Unix(),
	})
}

// UnmarshalJSON implements json.Unmarshaler. Unknown enum values are
// rejected so a corrupt snapshot cannot smuggle in an undefined state.
func (s *AppState) UnmarshalJSON(data []byte) error {
	var raw appStateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !raw.ProgramState.Valid() {
		return fmt.Errorf("invalid program state %q", raw.ProgramState)
	}
	if !raw.GameState.Valid() {
		return fmt.Errorf("invalid game state %q", raw.GameState)
	}
	s.ProgramState = raw.ProgramState
	s.GameState = raw.GameState
	s.LastUpdated = time.Unix(raw.LastUpdated, 0)
	return nil
}

// Change is a state transition notification. The two concrete types are
// ProgramStateChange and GameStateChange.
type Change interface {
	change()
	// At returns when the transition occurred.
	At() time.Time
}

// ProgramStateChange reports a program state transition.
type ProgramStateChange struct {
	Old       ProgramState
	New       ProgramState
	Timestamp time.Time
}

func (ProgramStateChange) change() {}

// At returns when the transition occurred.
func (c ProgramStateChange) At() time.Time { return c.Timestamp }

// GameStateChange reports a game state transition.
type GameStateChange struct {
	Old       GameState
	New       GameState
	Timestamp time.Time
}

func (GameStateChange) change() {}

// At returns when the transition occurred.
func (c GameStateChange) At() time.Time { return c.Timestamp }
