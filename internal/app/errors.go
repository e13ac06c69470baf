package app

import "errors"

var (
	// ErrConfigLocked is returned when a configuration change arrives
	// while the automation core is not stopped.
	ErrConfigLocked = errors.New("configuration locked while automation is active")

	// ErrControllerRunning is returned by Start on a running
	// controller.
	ErrControllerRunning = errors.New("controller already running")

	// ErrControllerStopped is returned by operations that need a
	// running controller.
	ErrControllerStopped = errors.New("controller not running")
)
