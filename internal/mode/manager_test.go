package mode

import (
	"errors"
	"testing"
	"time"
)

func drainEvents(t *testing.T, rcv interface{ C() <-chan ChangeEvent }, n int) []ChangeEvent {
	t.Helper()
	events := make([]ChangeEvent, 0, n)
	for i := 0; i < n; i++ {
		select {
		case ev := <-rcv.C():
			events = append(events, ev)
		default:
			t.Fatalf("expected %d events, got %d", n, len(events))
		}
	}
	select {
	case ev := <-rcv.C():
		t.Fatalf("unexpected extra event %+v", ev)
	default:
	}
	return events
}

func TestNewManager(t *testing.T) {
	m := NewManager()

	if got := m.CurrentMode(); got != Macro {
		t.Errorf("CurrentMode() = %v, want Macro", got)
	}
	if got := len(m.Operations()); got != 5 {
		t.Errorf("operations = %d, want 5", got)
	}
	if got := len(m.History()); got != 1 {
		t.Errorf("history length = %d, want 1", got)
	}
	if err := m.ValidateCurrent(); err != nil {
		t.Errorf("ValidateCurrent() error = %v", err)
	}
}

func TestManager_SwitchMode(t *testing.T) {
	m := NewManager()
	rcv := m.Subscribe()
	defer rcv.Close()

	if err := m.SwitchMode(Intelligent); err != nil {
		t.Fatalf("SwitchMode(Intelligent) error = %v", err)
	}
	if got := m.CurrentMode(); got != Intelligent {
		t.Fatalf("CurrentMode() = %v", got)
	}

	events := drainEvents(t, rcv, 1)
	if events[0].Kind != ModeSwitched || events[0].From != Macro || events[0].To != Intelligent {
		t.Errorf("event = %+v", events[0])
	}

	// Switching to the active mode does nothing.
	if err := m.SwitchMode(Intelligent); err != nil {
		t.Fatalf("same-mode switch error = %v", err)
	}
	drainEvents(t, rcv, 0)
	if got := len(m.History()); got != 2 {
		t.Errorf("history length = %d, want 2", got)
	}

	if err := m.SwitchMode("turbo"); err == nil {
		t.Error("unknown mode accepted")
	}
}

func TestManager_SwitchModeValidatesTarget(t *testing.T) {
	broken := DefaultIntelligentConfig()
	delete(broken.Keys, "pause_game")
	m := NewManager(WithConfigs(DefaultMacroConfig(), broken))

	err := m.SwitchMode(Intelligent)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("error = %v, want ErrInvalidConfig", err)
	}
	if got := m.CurrentMode(); got != Macro {
		t.Errorf("failed switch changed the mode to %v", got)
	}
	if m.CanSwitchTo(Intelligent) {
		t.Error("CanSwitchTo reported true for a broken config")
	}
	if !m.CanSwitchTo(Macro) {
		t.Error("CanSwitchTo reported false for a valid config")
	}
}

func TestManager_UpdateHotkey(t *testing.T) {
	m := NewManager()
	rcv := m.Subscribe()
	defer rcv.Close()

	if err := m.UpdateHotkey("deploy_operator", "Q"); err != nil {
		t.Fatalf("UpdateHotkey() error = %v", err)
	}
	if got := m.CurrentHotkeys()["deploy_operator"]; got != "Q" {
		t.Errorf("hotkey = %q, want Q", got)
	}

	events := drainEvents(t, rcv, 1)
	ev := events[0]
	if ev.Kind != HotkeyUpdated || ev.Operation != "deploy_operator" {
		t.Fatalf("event = %+v", ev)
	}
	if !ev.HadOld || ev.OldHotkey != "1" || ev.NewHotkey != "Q" {
		t.Errorf("old/new = %+v", ev)
	}

	// A binding for a previously unbound operation carries no old key.
	if err := m.UpdateHotkey("custom_burst", "5"); err != nil {
		t.Fatalf("UpdateHotkey() error = %v", err)
	}
	ev = drainEvents(t, rcv, 1)[0]
	if ev.HadOld {
		t.Errorf("HadOld = true for a fresh binding")
	}

	if err := m.UpdateHotkey("deploy_operator", "   "); err == nil {
		t.Error("blank hotkey accepted")
	}
}

func TestManager_HotkeysPerMode(t *testing.T) {
	m := NewManager()

	if err := m.UpdateHotkey("deploy_operator", "Q"); err != nil {
		t.Fatal(err)
	}
	if err := m.SwitchMode(Intelligent); err != nil {
		t.Fatal(err)
	}
	if got := m.CurrentHotkeys()["deploy_operator"]; got != "1" {
		t.Errorf("intelligent hotkey = %q, want untouched default", got)
	}
}

func TestManager_HistoryBounded(t *testing.T) {
	m := NewManager()
	m.SetMaxHistory(3)

	modes := []OperationMode{Intelligent, Macro, Intelligent, Macro}
	for _, mode := range modes {
		if err := m.SwitchMode(mode); err != nil {
			t.Fatal(err)
		}
	}

	history := m.History()
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	// Oldest entries evicted; the tail survives in order.
	want := []OperationMode{Macro, Intelligent, Macro}
	for i, entry := range history {
		if entry.Mode != want[i] {
			t.Errorf("history[%d] = %v, want %v", i, entry.Mode, want[i])
		}
	}

	// Shrinking below the current length truncates immediately.
	m.SetMaxHistory(1)
	if got := len(m.History()); got != 1 {
		t.Errorf("history length = %d, want 1", got)
	}
}

func TestManager_ModeStats(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	now := func() time.Time { return clock }
	m := NewManager(withClock(func() time.Time { return now() }))

	clock = clock.Add(10 * time.Second)
	if err := m.SwitchMode(Intelligent); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(5 * time.Second)
	if err := m.SwitchMode(Macro); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(2 * time.Second)

	stats := m.ModeStats()
	macro := stats[Macro]
	if macro.Switches != 2 {
		t.Errorf("macro switches = %d, want 2", macro.Switches)
	}
	if macro.Active != 12*time.Second {
		t.Errorf("macro active = %v, want 12s", macro.Active)
	}
	intelligent := stats[Intelligent]
	if intelligent.Switches != 1 {
		t.Errorf("intelligent switches = %d, want 1", intelligent.Switches)
	}
	if intelligent.Active != 5*time.Second {
		t.Errorf("intelligent active = %v, want 5s", intelligent.Active)
	}
}

func TestManager_ResetToDefaults(t *testing.T) {
	m := NewManager()
	rcv := m.Subscribe()
	defer rcv.Close()

	if err := m.SwitchMode(Intelligent); err != nil {
		t.Fatal(err)
	}
	if err := m.UpdateHotkey("custom", "X"); err != nil {
		t.Fatal(err)
	}
	drainEvents(t, rcv, 2)

	m.ResetToDefaults()

	if got := m.CurrentMode(); got != Macro {
		t.Errorf("CurrentMode() = %v, want Macro", got)
	}
	if _, ok := m.CurrentHotkeys()["custom"]; ok {
		t.Error("custom hotkey survived reset")
	}
	if got := len(m.History()); got != 1 {
		t.Errorf("history length = %d, want 1", got)
	}

	ev := drainEvents(t, rcv, 1)[0]
	if ev.Kind != ConfigUpdated || ev.ConfigType != "reset_to_defaults" {
		t.Errorf("event = %+v", ev)
	}
}

func TestManager_Operations(t *testing.T) {
	m := NewManager()

	op, ok := m.Operation("deploy_operator")
	if !ok {
		t.Fatal("missing built-in operation")
	}

	// Mutating the returned copy must not touch the registry.
	op.Sequence.AddKeyPress("Z")
	fresh, _ := m.Operation("deploy_operator")
	if fresh.Sequence.Len() == op.Sequence.Len() {
		t.Error("registry shares state with returned copies")
	}

	custom := op
	custom.Name = "custom_op"
	m.SetOperation(custom)
	if _, ok := m.Operation("custom_op"); !ok {
		t.Error("SetOperation did not register the operation")
	}

	ops := m.Operations()
	if len(ops) != 6 {
		t.Fatalf("operations = %d, want 6", len(ops))
	}
	for i := 1; i < len(ops); i++ {
		if ops[i-1].Name > ops[i].Name {
			t.Errorf("operations not sorted: %q before %q", ops[i-1].Name, ops[i].Name)
		}
	}
}

func TestManager_Describe(t *testing.T) {
	m := NewManager()

	got := m.Describe(Macro)
	want := "macro mode (features: battle_detection, overlay)"
	if got != want {
		t.Errorf("Describe(Macro) = %q, want %q", got, want)
	}

	if got := m.Describe("turbo"); got != `unknown mode "turbo"` {
		t.Errorf("Describe(turbo) = %q", got)
	}
}
