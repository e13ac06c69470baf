package mode

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dshills/autark/internal/action"
	"github.com/dshills/autark/internal/event"
	"github.com/dshills/autark/internal/logging"
)

// DefaultMaxHistory bounds the switch history.
const DefaultMaxHistory = 50

// HistoryEntry records one mode becoming current.
type HistoryEntry struct {
	Mode OperationMode
	At   time.Time
}

// Stats aggregates history for one mode.
type Stats struct {
	// Switches counts how many times the mode became current.
	Switches int

	// Active is the cumulative time the mode was current.
	Active time.Duration
}

// Manager owns the current operation mode, both mode configurations,
// and the registry of game operations.
type Manager struct {
	mu sync.RWMutex

	current     OperationMode
	macro       MacroConfig
	intelligent IntelligentConfig
	operations  map[string]action.Operation

	history    []HistoryEntry
	maxHistory int

	bus *event.Bus[ChangeEvent]
	log *logging.Logger
	now func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithConfigs sets the initial mode configurations.
func WithConfigs(macro MacroConfig, intelligent IntelligentConfig) ManagerOption {
	return func(m *Manager) {
		m.macro = macro
		m.intelligent = intelligent
	}
}

// WithManagerLogger sets the manager's logger.
func WithManagerLogger(log *logging.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// withClock overrides the manager's clock in tests.
func withClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager in macro mode with both configurations
// at defaults and the built-in operations registered.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		current:     Macro,
		macro:       DefaultMacroConfig(),
		intelligent: DefaultIntelligentConfig(),
		operations:  make(map[string]action.Operation),
		maxHistory:  DefaultMaxHistory,
		bus:         event.NewBus[ChangeEvent](),
		log:         logging.Discard,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, op := range action.DefaultOperations() {
		m.operations[op.Name] = op
	}
	m.history = append(m.history, HistoryEntry{Mode: m.current, At: m.now()})

	return m
}

// CurrentMode returns the active mode.
func (m *Manager) CurrentMode() OperationMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// SwitchMode makes mode current. Switching to the active mode is a
// no-op. The target configuration is validated first; on failure the
// current mode is unchanged.
func (m *Manager) SwitchMode(mode OperationMode) error {
	if !mode.Valid() {
		return fmt.Errorf("switch mode: unknown mode %q", mode)
	}

	m.mu.Lock()
	if m.current == mode {
		m.mu.Unlock()
		return nil
	}
	if err := m.configFor(mode).Validate(); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("switch to %s: %w", mode, err)
	}

	old := m.current
	m.current = mode
	m.appendHistory(mode)
	m.mu.Unlock()

	m.log.Info("mode switched: %s -> %s", old, mode)
	m.bus.Publish(ChangeEvent{
		Kind: ModeSwitched,
		At:   m.now(),
		From: old,
		To:   mode,
	})
	return nil
}

// CanSwitchTo reports whether mode's configuration passes validation.
func (m *Manager) CanSwitchTo(mode OperationMode) bool {
	if !mode.Valid() {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configFor(mode).Validate() == nil
}

// MacroConfig returns a copy of the macro configuration.
func (m *Manager) MacroConfig() MacroConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := m.macro
	cfg.Keys = copyKeys(m.macro.Keys)
	return cfg
}

// IntelligentConfig returns a copy of the intelligent configuration.
func (m *Manager) IntelligentConfig() IntelligentConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := m.intelligent
	cfg.Keys = copyKeys(m.intelligent.Keys)
	cfg.Features = append([]string(nil), m.intelligent.Features...)
	return cfg
}

// SetMacroConfig replaces the macro configuration after validating it.
func (m *Manager) SetMacroConfig(cfg MacroConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.macro = cfg
	m.mu.Unlock()

	m.bus.Publish(ChangeEvent{
		Kind:       ConfigUpdated,
		At:         m.now(),
		Mode:       Macro,
		ConfigType: "macro",
	})
	return nil
}

// SetIntelligentConfig replaces the intelligent configuration after
// validating it.
func (m *Manager) SetIntelligentConfig(cfg IntelligentConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.intelligent = cfg
	m.mu.Unlock()

	m.bus.Publish(ChangeEvent{
		Kind:       ConfigUpdated,
		At:         m.now(),
		Mode:       Intelligent,
		ConfigType: "intelligent",
	})
	return nil
}

// CurrentHotkeys returns a copy of the active mode's hotkey map.
func (m *Manager) CurrentHotkeys() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyKeys(m.configFor(m.current).Hotkeys())
}

// UpdateHotkey binds operation to hotkey in the active mode and emits
// the old binding alongside the new one.
func (m *Manager) UpdateHotkey(operation, hotkey string) error {
	if strings.TrimSpace(hotkey) == "" {
		return &ValidationError{
			Section: "hotkeys",
			Field:   operation,
			Reason:  "blank hotkey binding",
		}
	}

	m.mu.Lock()
	cfg := m.configFor(m.current)
	old, hadOld := cfg.Hotkeys()[operation]
	cfg.SetHotkey(operation, hotkey)
	mode := m.current
	m.mu.Unlock()

	m.log.Debug("hotkey updated: %s -> %s", operation, hotkey)
	m.bus.Publish(ChangeEvent{
		Kind:      HotkeyUpdated,
		At:        m.now(),
		Mode:      mode,
		Operation: operation,
		OldHotkey: old,
		HadOld:    hadOld,
		NewHotkey: hotkey,
	})
	return nil
}

// EnabledFeatures names the features the active mode turns on.
func (m *Manager) EnabledFeatures() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configFor(m.current).EnabledFeatures()
}

// ValidateCurrent checks the active mode's configuration.
func (m *Manager) ValidateCurrent() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configFor(m.current).Validate()
}

// Operation returns a copy of the named game operation.
func (m *Manager) Operation(name string) (action.Operation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	op, ok := m.operations[name]
	if !ok {
		return action.Operation{}, false
	}
	return op.Clone(), true
}

// Operations returns copies of all registered operations, sorted by
// name.
func (m *Manager) Operations() []action.Operation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ops := make([]action.Operation, 0, len(m.operations))
	for _, op := range m.operations {
		ops = append(ops, op.Clone())
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Name < ops[j].Name })
	return ops
}

// SetOperation registers or replaces a game operation.
func (m *Manager) SetOperation(op action.Operation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[op.Name] = op.Clone()
}

// Subscribe returns a receiver for change events.
func (m *Manager) Subscribe() *event.Receiver[ChangeEvent] {
	return m.bus.Subscribe()
}

// History returns a copy of the switch history, oldest first.
func (m *Manager) History() []HistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]HistoryEntry(nil), m.history...)
}

// SetMaxHistory bounds the history to max entries, evicting the oldest
// immediately when the current history is longer.
func (m *Manager) SetMaxHistory(max int) {
	if max < 1 {
		max = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxHistory = max
	if excess := len(m.history) - max; excess > 0 {
		m.history = append(m.history[:0], m.history[excess:]...)
	}
}

// ModeStats aggregates the history into per-mode switch counts and
// cumulative active time. The current mode's entry includes the time
// since it became current.
func (m *Manager) ModeStats() map[OperationMode]Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[OperationMode]Stats)
	for i, entry := range m.history {
		s := stats[entry.Mode]
		s.Switches++
		if i+1 < len(m.history) {
			s.Active += m.history[i+1].At.Sub(entry.At)
		} else {
			s.Active += m.now().Sub(entry.At)
		}
		stats[entry.Mode] = s
	}
	return stats
}

// ResetToDefaults restores both configurations, the operation
// registry, and the history, and returns to macro mode.
func (m *Manager) ResetToDefaults() {
	m.mu.Lock()
	m.macro = DefaultMacroConfig()
	m.intelligent = DefaultIntelligentConfig()
	m.current = Macro

	m.operations = make(map[string]action.Operation)
	for _, op := range action.DefaultOperations() {
		m.operations[op.Name] = op
	}

	m.history = m.history[:0]
	m.appendHistory(Macro)
	m.mu.Unlock()

	m.log.Info("mode manager reset to defaults")
	m.bus.Publish(ChangeEvent{
		Kind:       ConfigUpdated,
		At:         m.now(),
		Mode:       Macro,
		ConfigType: "reset_to_defaults",
	})
}

// Describe returns a human-readable summary of a mode and its enabled
// features.
func (m *Manager) Describe(mode OperationMode) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !mode.Valid() {
		return fmt.Sprintf("unknown mode %q", mode)
	}
	features := m.configFor(mode).EnabledFeatures()
	if len(features) == 0 {
		return fmt.Sprintf("%s mode", mode)
	}
	return fmt.Sprintf("%s mode (features: %s)", mode, strings.Join(features, ", "))
}

// configFor returns the configuration backing mode. Callers hold m.mu.
func (m *Manager) configFor(mode OperationMode) Config {
	if mode == Intelligent {
		return &m.intelligent
	}
	return &m.macro
}

// appendHistory records mode becoming current. Callers hold m.mu.
func (m *Manager) appendHistory(mode OperationMode) {
	m.history = append(m.history, HistoryEntry{Mode: mode, At: m.now()})
	if excess := len(m.history) - m.maxHistory; excess > 0 {
		m.history = append(m.history[:0], m.history[excess:]...)
	}
}

func copyKeys(keys map[string]string) map[string]string {
	out := make(map[string]string, len(keys))
	for k, v := range keys {
		out[k] = v
	}
	return out
}
