package mode

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is matched by every configuration ValidationError.
var ErrInvalidConfig = errors.New("invalid mode configuration")

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

// SupportedOperations lists the operation names every mode must bind a
// hotkey for.
func SupportedOperations() []string {
	return []string{
		"deploy_operator",
		"activate_skill",
		"retreat_operator",
		"focus_view",
		"pause_game",
	}
}

// SupportedFeatures lists the recognized intelligent features.
func SupportedFeatures() []string {
	return []string{
		"small_number_selection",
		"auto_skill_timing",
		"smart_deployment",
	}
}

// OverlayDisplayMode controls when the overlay window shows.
type OverlayDisplayMode string

const (
	OverlayAlways         OverlayDisplayMode = "always"
	OverlayWhenForeground OverlayDisplayMode = "when_foreground"
	OverlayAboveProgram   OverlayDisplayMode = "above_program"
)

// OverlaySettings configures the in-game overlay.
type OverlaySettings struct {
	Enabled      bool               `yaml:"enabled" toml:"enabled"`
	DisplayMode  OverlayDisplayMode `yaml:"display_mode" toml:"display_mode"`
	Transparency int                `yaml:"transparency" toml:"transparency"`
}

// DefaultOverlaySettings returns the enabled foreground overlay at 80%
// transparency.
func DefaultOverlaySettings() OverlaySettings {
	return OverlaySettings{
		Enabled:      true,
		DisplayMode:  OverlayWhenForeground,
		Transparency: 80,
	}
}

// Validate checks the overlay settings.
func (o OverlaySettings) Validate() error {
	if o.Transparency < 0 || o.Transparency > 100 {
		return &ValidationError{
			Section: "overlay",
			Field:   "transparency",
			Reason:  fmt.Sprintf("%d out of range 0-100", o.Transparency),
		}
	}
	switch o.DisplayMode {
	case OverlayAlways, OverlayWhenForeground, OverlayAboveProgram:
	default:
		return &ValidationError{
			Section: "overlay",
			Field:   "display_mode",
			Reason:  fmt.Sprintf("unknown mode %q", o.DisplayMode),
		}
	}
	return nil
}

// FixInvalidValues clamps or replaces out-of-range settings.
func (o *OverlaySettings) FixInvalidValues() {
	if o.Transparency < 0 {
		o.Transparency = 0
	}
	if o.Transparency > 100 {
		o.Transparency = 100
	}
	switch o.DisplayMode {
	case OverlayAlways, OverlayWhenForeground, OverlayAboveProgram:
	default:
		o.DisplayMode = OverlayWhenForeground
	}
}

// Config is the behavior both mode configurations share.
type Config interface {
	// Hotkeys returns the operation-to-hotkey map.
	Hotkeys() map[string]string

	// SetHotkey binds an operation to a hotkey.
	SetHotkey(operation, hotkey string)

	// Validate checks the whole configuration; the first failed
	// check is returned.
	Validate() error

	// EnabledFeatures names the features this configuration turns on.
	EnabledFeatures() []string
}

// MacroConfig configures macro mode.
type MacroConfig struct {
	Keys            map[string]string `yaml:"hotkeys" toml:"hotkeys"`
	Overlay         OverlaySettings   `yaml:"overlay" toml:"overlay"`
	BattleDetection bool              `yaml:"battle_detection" toml:"battle_detection"`
}

// DefaultMacroConfig returns macro mode defaults with all five
// operations bound.
func DefaultMacroConfig() MacroConfig {
	return MacroConfig{
		Keys:            defaultHotkeys(),
		Overlay:         DefaultOverlaySettings(),
		BattleDetection: true,
	}
}

// Hotkeys returns the operation-to-hotkey map.
func (c MacroConfig) Hotkeys() map[string]string { return c.Keys }

// SetHotkey binds an operation to a hotkey.
func (c *MacroConfig) SetHotkey(operation, hotkey string) {
	if c.Keys == nil {
		c.Keys = make(map[string]string)
	}
	c.Keys[operation] = hotkey
}

// Validate checks hotkey completeness and the overlay settings.
func (c MacroConfig) Validate() error {
	if err := validateHotkeys("macro", c.Keys); err != nil {
		return err
	}
	return c.Overlay.Validate()
}

// FixInvalidValues restores missing or blank hotkeys from defaults and
// repairs the overlay settings.
func (c *MacroConfig) FixInvalidValues() {
	fixHotkeys(&c.Keys)
	c.Overlay.FixInvalidValues()
}

// EnabledFeatures names the macro features currently on.
func (c MacroConfig) EnabledFeatures() []string {
	var features []string
	if c.BattleDetection {
		features = append(features, "battle_detection")
	}
	if c.Overlay.Enabled {
		features = append(features, "overlay")
	}
	return features
}

// IntelligentConfig configures intelligent mode.
type IntelligentConfig struct {
	Keys     map[string]string `yaml:"hotkeys" toml:"hotkeys"`
	Overlay  OverlaySettings   `yaml:"overlay" toml:"overlay"`
	Features []string          `yaml:"features" toml:"features"`
}

// DefaultIntelligentConfig returns intelligent mode defaults with
// small-number selection on.
func DefaultIntelligentConfig() IntelligentConfig {
	return IntelligentConfig{
		Keys:     defaultHotkeys(),
		Overlay:  DefaultOverlaySettings(),
		Features: []string{"small_number_selection"},
	}
}

// Hotkeys returns the operation-to-hotkey map.
func (c IntelligentConfig) Hotkeys() map[string]string { return c.Keys }

// SetHotkey binds an operation to a hotkey.
func (c *IntelligentConfig) SetHotkey(operation, hotkey string) {
	if c.Keys == nil {
		c.Keys = make(map[string]string)
	}
	c.Keys[operation] = hotkey
}

// Validate checks hotkey completeness, feature names, and the overlay
// settings.
func (c IntelligentConfig) Validate() error {
	if err := validateHotkeys("intelligent", c.Keys); err != nil {
		return err
	}
	supported := SupportedFeatures()
	for _, feature := range c.Features {
		if !contains(supported, feature) {
			return &ValidationError{
				Section: "intelligent",
				Field:   "features",
				Reason:  fmt.Sprintf("unsupported feature %q", feature),
			}
		}
	}
	return c.Overlay.Validate()
}

// FixInvalidValues restores missing hotkeys, drops unknown features,
// and repairs the overlay settings. A feature list left empty gets the
// default feature back.
func (c *IntelligentConfig) FixInvalidValues() {
	fixHotkeys(&c.Keys)

	supported := SupportedFeatures()
	kept := c.Features[:0]
	for _, feature := range c.Features {
		if contains(supported, feature) {
			kept = append(kept, feature)
		}
	}
	c.Features = kept
	if len(c.Features) == 0 {
		c.Features = []string{"small_number_selection"}
	}

	c.Overlay.FixInvalidValues()
}

// EnabledFeatures names the intelligent features currently on.
func (c IntelligentConfig) EnabledFeatures() []string {
	features := make([]string, 0, len(c.Features)+1)
	features = append(features, c.Features...)
	if c.Overlay.Enabled {
		features = append(features, "overlay")
	}
	return features
}

func defaultHotkeys() map[string]string {
	return map[string]string{
		"deploy_operator":  "1",
		"activate_skill":   "2",
		"retreat_operator": "3",
		"focus_view":       "4",
		"pause_game":       "Space",
	}
}

func validateHotkeys(section string, keys map[string]string) error {
	for _, operation := range SupportedOperations() {
		hotkey, ok := keys[operation]
		if !ok {
			return &ValidationError{
				Section: section,
				Field:   operation,
				Reason:  "missing hotkey binding",
			}
		}
		if strings.TrimSpace(hotkey) == "" {
			return &ValidationError{
				Section: section,
				Field:   operation,
				Reason:  "blank hotkey binding",
			}
		}
	}
	return nil
}

func fixHotkeys(keys *map[string]string) {
	if *keys == nil {
		*keys = make(map[string]string)
	}
	defaults := defaultHotkeys()
	for _, operation := range SupportedOperations() {
		if strings.TrimSpace((*keys)[operation]) == "" {
			(*keys)[operation] = defaults[operation]
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
