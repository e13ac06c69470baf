package state

import (
	"errors"
	"fmt"
)

// Sentinel errors for the state package.
var (
	// ErrInvalidTransition is the base error matched by
	// InvalidTransitionError via errors.Is.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrNoSnapshot is returned when a save is requested but the store
	// has no snapshot source configured.
	ErrNoSnapshot = errors.New("no state snapshot source configured")

	// ErrAutoSaveRunning is returned when StartAutoSave is called twice.
	ErrAutoSaveRunning = errors.New("auto-save already running")
)

// InvalidTransitionError reports an attempted illegal program state
// transition. The state is left unchanged; the caller may retry once
// the preconditions hold.
type InvalidTransitionError struct {
	From ProgramState
	To   ProgramState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// Is allows errors.Is to match against ErrInvalidTransition.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
