// Package mode manages the two operation modes, their configurations,
// and the registry of game operations. Mode switches validate the
// target configuration first and never leave the manager half-switched.
package mode

import "time"

// OperationMode selects how operations are driven.
type OperationMode string

const (
	// Macro replays preset input sequences on hotkeys.
	Macro OperationMode = "macro"

	// Intelligent drives operations from image recognition.
	Intelligent OperationMode = "intelligent"
)

// Valid reports whether the mode is a known value.
func (m OperationMode) Valid() bool {
	return m == Macro || m == Intelligent
}

// String returns the mode name.
func (m OperationMode) String() string { return string(m) }

// ChangeKind discriminates manager change events.
type ChangeKind int

const (
	// ModeSwitched reports a completed mode switch.
	ModeSwitched ChangeKind = iota

	// ConfigUpdated reports a replaced or reset mode configuration.
	ConfigUpdated

	// HotkeyUpdated reports a single hotkey change.
	HotkeyUpdated
)

// String returns the change kind name.
func (k ChangeKind) String() string {
	switch k {
	case ModeSwitched:
		return "mode_switched"
	case ConfigUpdated:
		return "config_updated"
	case HotkeyUpdated:
		return "hotkey_updated"
	default:
		return "unknown"
	}
}

// ChangeEvent is published on every manager change. Only the fields
// relevant to Kind are set.
type ChangeEvent struct {
	Kind ChangeKind
	At   time.Time

	// ModeSwitched
	From OperationMode
	To   OperationMode

	// ConfigUpdated, HotkeyUpdated
	Mode OperationMode

	// ConfigUpdated
	ConfigType string

	// HotkeyUpdated. HadOld is false when the operation had no
	// binding before.
	Operation string
	OldHotkey string
	HadOld    bool
	NewHotkey string
}
