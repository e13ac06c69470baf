// Package action defines game operations and the input sequences they
// replay: key presses, mouse movement, clicks, and timed waits. The
// five built-in operations cover the standard battle controls; user
// operations come from Lua scripts.
package action

import "time"

// StepKind discriminates sequence steps.
type StepKind int

const (
	// KeyPress sends a single key.
	KeyPress StepKind = iota

	// MouseMove moves the cursor to window coordinates.
	MouseMove

	// MouseClick clicks a button at window coordinates.
	MouseClick

	// Wait pauses before the next step.
	Wait
)

// String returns the step kind name.
func (k StepKind) String() string {
	switch k {
	case KeyPress:
		return "key_press"
	case MouseMove:
		return "mouse_move"
	case MouseClick:
		return "mouse_click"
	case Wait:
		return "wait"
	default:
		return "unknown"
	}
}

// MouseButton identifies a mouse button.
type MouseButton int

const (
	Left MouseButton = iota
	Right
	Middle
)

// String returns the button name.
func (b MouseButton) String() string {
	switch b {
	case Left:
		return "left"
	case Right:
		return "right"
	case Middle:
		return "middle"
	default:
		return "unknown"
	}
}

// Step is one entry in a sequence. Only the fields relevant to Kind
// are set.
type Step struct {
	Kind   StepKind
	Key    string        // KeyPress
	Button MouseButton   // MouseClick
	X, Y   int           // MouseMove, MouseClick
	Delay  time.Duration // Wait
}

// Sequence is an ordered list of input steps.
type Sequence struct {
	Name        string
	Description string
	Steps       []Step
}

// NewSequence creates an empty named sequence.
func NewSequence(name string) *Sequence {
	return &Sequence{Name: name}
}

// AddKeyPress appends a key press.
func (s *Sequence) AddKeyPress(key string) {
	s.Steps = append(s.Steps, Step{Kind: KeyPress, Key: key})
}

// AddMouseMove appends a cursor move.
func (s *Sequence) AddMouseMove(x, y int) {
	s.Steps = append(s.Steps, Step{Kind: MouseMove, X: x, Y: y})
}

// AddMouseClick appends a button click.
func (s *Sequence) AddMouseClick(button MouseButton, x, y int) {
	s.Steps = append(s.Steps, Step{Kind: MouseClick, Button: button, X: x, Y: y})
}

// AddWait appends a pause.
func (s *Sequence) AddWait(d time.Duration) {
	s.Steps = append(s.Steps, Step{Kind: Wait, Delay: d})
}

// Len returns the number of steps.
func (s *Sequence) Len() int { return len(s.Steps) }

// IsEmpty reports whether the sequence has no steps.
func (s *Sequence) IsEmpty() bool { return len(s.Steps) == 0 }

// Clone returns a deep copy of the sequence.
func (s *Sequence) Clone() *Sequence {
	out := &Sequence{Name: s.Name, Description: s.Description}
	out.Steps = make([]Step, len(s.Steps))
	copy(out.Steps, s.Steps)
	return out
}

// Operation binds a named game action to its trigger hotkey, the
// in-game key it drives, and the input sequence replayed when it fires.
type Operation struct {
	Name     string
	Hotkey   string
	GameKey  string
	Sequence *Sequence
	Enabled  bool
}

// NewOperation creates an enabled operation with an empty sequence.
func NewOperation(name, hotkey, gameKey string) Operation {
	return Operation{
		Name:     name,
		Hotkey:   hotkey,
		GameKey:  gameKey,
		Sequence: NewSequence(name),
		Enabled:  true,
	}
}

// Clone returns a deep copy of the operation.
func (o Operation) Clone() Operation {
	out := o
	if o.Sequence != nil {
		out.Sequence = o.Sequence.Clone()
	}
	return out
}

// DefaultOperations returns the five built-in battle operations.
func DefaultOperations() []Operation {
	deploy := NewOperation("deploy_operator", "1", "1")
	deploy.Sequence.AddKeyPress("1")
	deploy.Sequence.AddWait(100 * time.Millisecond)

	skill := NewOperation("activate_skill", "2", "Space")
	skill.Sequence.AddKeyPress("Space")
	skill.Sequence.AddWait(50 * time.Millisecond)

	retreat := NewOperation("retreat_operator", "3", "Delete")
	retreat.Sequence.AddKeyPress("Delete")
	retreat.Sequence.AddWait(100 * time.Millisecond)

	focus := NewOperation("focus_view", "4", "F")
	focus.Sequence.AddKeyPress("F")
	focus.Sequence.AddWait(50 * time.Millisecond)

	pause := NewOperation("pause_game", "Space", "Escape")
	pause.Sequence.AddKeyPress("Escape")
	pause.Sequence.AddWait(100 * time.Millisecond)

	return []Operation{deploy, skill, retreat, focus, pause}
}
