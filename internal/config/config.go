// Package config loads and persists the application configuration:
// operation-mode settings, global game keys, window detection, state
// persistence, and logging. The TOML file on disk can be hot-reloaded
// through Watcher.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/autark/internal/mode"
	"github.com/dshills/autark/internal/window"
)

// ErrInvalidConfig is matched by every configuration validation error.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError describes a single failed configuration check.
type ValidationError struct {
	Section string
	Field   string
	Reason  string
}

// Error returns a description of the failed check.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Section, e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidConfig.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// sectionError carries a nested section's validation failure. It
// matches ErrInvalidConfig directly and keeps the section's own error
// chain intact, so mode-section failures still satisfy
// errors.Is(err, ErrInvalidConfig).
type sectionError struct {
	section string
	err     error
}

func (e *sectionError) Error() string { return e.section + ": " + e.err.Error() }

func (e *sectionError) Unwrap() error { return e.err }

func (e *sectionError) Is(target error) bool { return target == ErrInvalidConfig }

// SupportedGameFunctions lists the in-game key bindings every
// configuration must carry.
func SupportedGameFunctions() []string {
	return []string{
		"battle_speed",
		"skill_activation",
		"retreat_operator",
		"exit_return",
	}
}

// GlobalSettings holds mode-independent behavior.
type GlobalSettings struct {
	// GameKeys maps in-game functions to the keys the game expects.
	GameKeys map[string]string `toml:"game_keys"`

	// AutoStartOnDetection starts automation as soon as the target
	// window is found.
	AutoStartOnDetection bool `toml:"auto_start_on_detection"`
}

// DefaultGlobalSettings returns the stock in-game key bindings.
func DefaultGlobalSettings() GlobalSettings {
	return GlobalSettings{
		GameKeys: map[string]string{
			"battle_speed":     "2",
			"skill_activation": "Space",
			"retreat_operator": "Delete",
			"exit_return":      "Escape",
		},
	}
}

// Validate checks that every supported game function is bound.
func (g GlobalSettings) Validate() error {
	for _, fn := range SupportedGameFunctions() {
		key, ok := g.GameKeys[fn]
		if !ok {
			return &ValidationError{Section: "global", Field: fn, Reason: "missing game key"}
		}
		if strings.TrimSpace(key) == "" {
			return &ValidationError{Section: "global", Field: fn, Reason: "blank game key"}
		}
	}
	return nil
}

// FixInvalidValues restores missing or blank game keys from defaults.
func (g *GlobalSettings) FixInvalidValues() {
	if g.GameKeys == nil {
		g.GameKeys = make(map[string]string)
	}
	defaults := DefaultGlobalSettings().GameKeys
	for _, fn := range SupportedGameFunctions() {
		if strings.TrimSpace(g.GameKeys[fn]) == "" {
			g.GameKeys[fn] = defaults[fn]
		}
	}
}

// DetectionSettings configures window detection. The interval is a
// plain millisecond count so the TOML stays readable.
type DetectionSettings struct {
	TargetTitle    string `toml:"target_title"`
	TargetProcess  string `toml:"target_process"`
	IntervalMS     int    `toml:"interval_ms"`
	VisibleOnly    bool   `toml:"visible_only"`
	ForegroundOnly bool   `toml:"foreground_only"`
}

// DefaultDetectionSettings mirrors window.DefaultDetectionConfig.
func DefaultDetectionSettings() DetectionSettings {
	base := window.DefaultDetectionConfig()
	return DetectionSettings{
		TargetTitle:    base.TargetTitle,
		TargetProcess:  base.TargetProcess,
		IntervalMS:     int(base.Interval / time.Millisecond),
		VisibleOnly:    base.VisibleOnly,
		ForegroundOnly: base.ForegroundOnly,
	}
}

// Validate checks the detection settings.
func (d DetectionSettings) Validate() error {
	if strings.TrimSpace(d.TargetTitle) == "" {
		return &ValidationError{Section: "detection", Field: "target_title", Reason: "must not be blank"}
	}
	if d.IntervalMS < 100 {
		return &ValidationError{
			Section: "detection",
			Field:   "interval_ms",
			Reason:  fmt.Sprintf("%d below minimum 100", d.IntervalMS),
		}
	}
	return nil
}

// FixInvalidValues restores blank or out-of-range detection settings.
func (d *DetectionSettings) FixInvalidValues() {
	defaults := DefaultDetectionSettings()
	if strings.TrimSpace(d.TargetTitle) == "" {
		d.TargetTitle = defaults.TargetTitle
	}
	if d.IntervalMS < 100 {
		d.IntervalMS = defaults.IntervalMS
	}
}

// DetectionConfig converts the settings to the tracker's config type.
func (d DetectionSettings) DetectionConfig() window.DetectionConfig {
	return window.DetectionConfig{
		TargetTitle:    d.TargetTitle,
		TargetProcess:  d.TargetProcess,
		Interval:       time.Duration(d.IntervalMS) * time.Millisecond,
		VisibleOnly:    d.VisibleOnly,
		ForegroundOnly: d.ForegroundOnly,
	}
}

// StateSettings configures runtime state persistence.
type StateSettings struct {
	// Path is the state snapshot file.
	Path string `toml:"path"`

	// AutoSaveSeconds is the auto-save interval; zero disables
	// auto-save.
	AutoSaveSeconds int `toml:"auto_save_seconds"`
}

// DefaultStateSettings saves to state.json every 30 seconds.
func DefaultStateSettings() StateSettings {
	return StateSettings{
		Path:            "state.json",
		AutoSaveSeconds: 30,
	}
}

// Validate checks the state settings.
func (s StateSettings) Validate() error {
	if strings.TrimSpace(s.Path) == "" {
		return &ValidationError{Section: "state", Field: "path", Reason: "must not be blank"}
	}
	if s.AutoSaveSeconds < 0 {
		return &ValidationError{Section: "state", Field: "auto_save_seconds", Reason: "must not be negative"}
	}
	return nil
}

// FixInvalidValues restores blank or negative state settings.
func (s *StateSettings) FixInvalidValues() {
	defaults := DefaultStateSettings()
	if strings.TrimSpace(s.Path) == "" {
		s.Path = defaults.Path
	}
	if s.AutoSaveSeconds < 0 {
		s.AutoSaveSeconds = defaults.AutoSaveSeconds
	}
}

// AutoSaveInterval returns the auto-save interval, zero when disabled.
func (s StateSettings) AutoSaveInterval() time.Duration {
	return time.Duration(s.AutoSaveSeconds) * time.Second
}

// LoggingSettings configures the logger.
type LoggingSettings struct {
	Level string `toml:"level"`
}

// DefaultLoggingSettings logs at info.
func DefaultLoggingSettings() LoggingSettings {
	return LoggingSettings{Level: "info"}
}

// Validate checks the logging settings.
func (l LoggingSettings) Validate() error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return &ValidationError{
			Section: "logging",
			Field:   "level",
			Reason:  fmt.Sprintf("unknown level %q", l.Level),
		}
	}
}

// FixInvalidValues restores an unknown log level to info.
func (l *LoggingSettings) FixInvalidValues() {
	if l.Validate() != nil {
		l.Level = "info"
	}
}

// AppConfig is the whole application configuration.
type AppConfig struct {
	Mode        mode.OperationMode     `toml:"mode"`
	Macro       mode.MacroConfig       `toml:"macro"`
	Intelligent mode.IntelligentConfig `toml:"intelligent"`
	Global      GlobalSettings         `toml:"global"`
	Detection   DetectionSettings      `toml:"detection"`
	State       StateSettings          `toml:"state"`
	Logging     LoggingSettings        `toml:"logging"`
}

// DefaultConfig returns the complete default configuration.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Mode:        mode.Macro,
		Macro:       mode.DefaultMacroConfig(),
		Intelligent: mode.DefaultIntelligentConfig(),
		Global:      DefaultGlobalSettings(),
		Detection:   DefaultDetectionSettings(),
		State:       DefaultStateSettings(),
		Logging:     DefaultLoggingSettings(),
	}
}

// Validate checks every section; the first failed check is returned.
func (c *AppConfig) Validate() error {
	if !c.Mode.Valid() {
		return &ValidationError{
			Section: "root",
			Field:   "mode",
			Reason:  fmt.Sprintf("unknown mode %q", c.Mode),
		}
	}
	if err := c.Macro.Validate(); err != nil {
		return &sectionError{section: "macro config", err: err}
	}
	if err := c.Intelligent.Validate(); err != nil {
		return &sectionError{section: "intelligent config", err: err}
	}
	if err := c.Global.Validate(); err != nil {
		return err
	}
	if err := c.Detection.Validate(); err != nil {
		return err
	}
	if err := c.State.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}

// FixInvalidValues repairs every section in place with defaults.
func (c *AppConfig) FixInvalidValues() {
	if !c.Mode.Valid() {
		c.Mode = mode.Macro
	}
	c.Macro.FixInvalidValues()
	c.Intelligent.FixInvalidValues()
	c.Global.FixInvalidValues()
	c.Detection.FixInvalidValues()
	c.State.FixInvalidValues()
	c.Logging.FixInvalidValues()
}
