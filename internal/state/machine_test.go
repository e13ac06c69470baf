package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// countingObserver records transitions for assertions.
type countingObserver struct {
	mu      sync.Mutex
	program []ProgramStateChange
	game    []GameStateChange
}

func (o *countingObserver) OnProgramStateChanged(old, new ProgramState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.program = append(o.program, ProgramStateChange{Old: old, New: new})
}

func (o *countingObserver) OnGameStateChanged(old, new GameState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.game = append(o.game, GameStateChange{Old: old, New: new})
}

func (o *countingObserver) programChanges() []ProgramStateChange {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]ProgramStateChange, len(o.program))
	copy(out, o.program)
	return out
}

func (o *countingObserver) gameCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.game)
}

func TestNewMachine(t *testing.T) {
	m := NewMachine()
	st := m.State()

	if st.ProgramState != ProgramStopped {
		t.Errorf("initial program state = %s, want %s", st.ProgramState, ProgramStopped)
	}
	if st.GameState != GameNotDetected {
		t.Errorf("initial game state = %s, want %s", st.GameState, GameNotDetected)
	}
}

func TestMachine_CanStartCore(t *testing.T) {
	tests := []struct {
		name string
		game GameState
		want bool
	}{
		{"not detected", GameNotDetected, false},
		{"detected", GameDetected, true},
		{"in battle", GameInBattle, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine()
			m.UpdateGameState(tt.game)
			if got := m.CanStartCore(); got != tt.want {
				t.Errorf("CanStartCore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMachine_StartStopCycle(t *testing.T) {
	m := NewMachine()
	ctx := context.Background()

	if m.CanStartCore() {
		t.Fatal("expected start to be illegal before detection")
	}

	m.UpdateGameState(GameDetected)
	if !m.CanStartCore() {
		t.Fatal("expected start to be legal after detection")
	}

	if err := m.StartCore(ctx); err != nil {
		t.Fatalf("StartCore() failed: %v", err)
	}
	if got := m.ProgramState(); got != ProgramRunning {
		t.Errorf("program state = %s, want %s", got, ProgramRunning)
	}
	if !m.CanStopCore() {
		t.Error("expected stop to be legal while running")
	}

	if err := m.StopCore(ctx); err != nil {
		t.Fatalf("StopCore() failed: %v", err)
	}
	if got := m.ProgramState(); got != ProgramStopped {
		t.Errorf("program state = %s, want %s", got, ProgramStopped)
	}
}

func TestMachine_InvalidTransitions(t *testing.T) {
	m := NewMachine()
	ctx := context.Background()
	before := m.State()

	err := m.StartCore(ctx)
	if err == nil {
		t.Fatal("expected StartCore to fail without detection")
	}
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected *InvalidTransitionError, got %T", err)
	}
	if ite.From != ProgramStopped || ite.To != ProgramStarting {
		t.Errorf("transition error = %s -> %s, want %s -> %s",
			ite.From, ite.To, ProgramStopped, ProgramStarting)
	}

	if err := m.StopCore(ctx); err == nil {
		t.Fatal("expected StopCore to fail while stopped")
	}

	after := m.State()
	if after.ProgramState != before.ProgramState || after.GameState != before.GameState {
		t.Error("failed transition mutated state")
	}
	if !after.LastUpdated.Equal(before.LastUpdated) {
		t.Error("failed transition touched LastUpdated")
	}
}

func TestMachine_ObserverNotifications(t *testing.T) {
	m := NewMachine()
	obs := &countingObserver{}
	m.AddObserver(obs)
	ctx := context.Background()

	m.UpdateGameState(GameDetected)
	if got := obs.gameCount(); got != 1 {
		t.Errorf("game changes = %d, want 1", got)
	}

	if err := m.StartCore(ctx); err != nil {
		t.Fatalf("StartCore() failed: %v", err)
	}
	if err := m.StopCore(ctx); err != nil {
		t.Fatalf("StopCore() failed: %v", err)
	}

	want := []ProgramStateChange{
		{Old: ProgramStopped, New: ProgramStarting},
		{Old: ProgramStarting, New: ProgramRunning},
		{Old: ProgramRunning, New: ProgramStopping},
		{Old: ProgramStopping, New: ProgramStopped},
	}
	got := obs.programChanges()
	if len(got) != len(want) {
		t.Fatalf("program changes = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Old != want[i].Old || got[i].New != want[i].New {
			t.Errorf("change %d = %s -> %s, want %s -> %s",
				i, got[i].Old, got[i].New, want[i].Old, want[i].New)
		}
	}
}

func TestMachine_UpdateGameStateNoOp(t *testing.T) {
	m := NewMachine()
	obs := &countingObserver{}
	m.AddObserver(obs)

	m.UpdateGameState(GameDetected)
	first := m.State().LastUpdated

	m.UpdateGameState(GameDetected)
	if got := obs.gameCount(); got != 1 {
		t.Errorf("game changes = %d, want 1 (duplicate update must not emit)", got)
	}
	if !m.State().LastUpdated.Equal(first) {
		t.Error("duplicate update changed LastUpdated")
	}
}

func TestMachine_BusDelivery(t *testing.T) {
	m := NewMachine()
	recv := m.Subscribe()
	ctx := context.Background()

	m.UpdateGameState(GameDetected)
	if err := m.StartCore(ctx); err != nil {
		t.Fatalf("StartCore() failed: %v", err)
	}

	// 1 game change + 2 program changes.
	var changes []Change
	timeout := time.After(time.Second)
	for len(changes) < 3 {
		select {
		case c := <-recv.C():
			changes = append(changes, c)
		case <-timeout:
			t.Fatalf("received %d changes, want 3", len(changes))
		}
	}

	pc1, ok := changes[1].(ProgramStateChange)
	if !ok {
		t.Fatalf("change 1 is %T, want ProgramStateChange", changes[1])
	}
	if pc1.Old != ProgramStopped || pc1.New != ProgramStarting {
		t.Errorf("first program change = %s -> %s", pc1.Old, pc1.New)
	}
	pc2, ok := changes[2].(ProgramStateChange)
	if !ok {
		t.Fatalf("change 2 is %T, want ProgramStateChange", changes[2])
	}
	if pc2.Old != ProgramStarting || pc2.New != ProgramRunning {
		t.Errorf("second program change = %s -> %s", pc2.Old, pc2.New)
	}
}

func TestMachine_StartActionFailureRollsBack(t *testing.T) {
	boom := errors.New("boom")
	m := NewMachine(WithStartAction(func(context.Context) error { return boom }))
	m.UpdateGameState(GameDetected)

	err := m.StartCore(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected action error, got %v", err)
	}
	if got := m.ProgramState(); got != ProgramStopped {
		t.Errorf("program state after failed start = %s, want %s", got, ProgramStopped)
	}
	if !m.CanStartCore() {
		t.Error("expected start to be legal again after rollback")
	}
}

func TestMachine_PanickingObserverDoesNotCorruptState(t *testing.T) {
	m := NewMachine()
	m.AddObserver(panickyObserver{})
	obs := &countingObserver{}
	m.AddObserver(obs)

	m.UpdateGameState(GameDetected)
	if err := m.StartCore(context.Background()); err != nil {
		t.Fatalf("StartCore() failed: %v", err)
	}

	if got := m.ProgramState(); got != ProgramRunning {
		t.Errorf("program state = %s, want %s", got, ProgramRunning)
	}
	// Later observers still receive the notification.
	if got := len(obs.programChanges()); got != 2 {
		t.Errorf("second observer saw %d program changes, want 2", got)
	}
}

type panickyObserver struct{}

func (panickyObserver) OnProgramStateChanged(old, new ProgramState) { panic("observer bug") }
func (panickyObserver) OnGameStateChanged(old, new GameState)       { panic("observer bug") }

func TestMachine_ShouldDisableConfig(t *testing.T) {
	m := NewMachine()
	ctx := context.Background()

	if m.ShouldDisableConfig() {
		t.Error("config should be editable while stopped")
	}

	m.UpdateGameState(GameDetected)
	if err := m.StartCore(ctx); err != nil {
		t.Fatalf("StartCore() failed: %v", err)
	}
	if !m.ShouldDisableConfig() {
		t.Error("config should be locked while running")
	}

	if err := m.StopCore(ctx); err != nil {
		t.Fatalf("StopCore() failed: %v", err)
	}
	if m.ShouldDisableConfig() {
		t.Error("config should be editable again after stop")
	}
}

func TestObserverRegistry_RemoveAt(t *testing.T) {
	r := NewObserverRegistry()
	a := &countingObserver{}
	b := &countingObserver{}
	r.Add(a)
	r.Add(b)

	if !r.RemoveAt(0) {
		t.Fatal("RemoveAt(0) = false, want true")
	}
	if r.RemoveAt(5) {
		t.Error("RemoveAt(5) = true, want false")
	}
	if got := r.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}

	r.NotifyGameStateChanged(GameNotDetected, GameDetected)
	if a.gameCount() != 0 {
		t.Error("removed observer was notified")
	}
	if b.gameCount() != 1 {
		t.Error("remaining observer was not notified")
	}
}
