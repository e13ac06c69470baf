package action

import (
	"fmt"
	"os"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// Scripts get a sandboxed state with no standard libraries; the builder
// functions below are the whole API. Language constructs (locals,
// loops, arithmetic) need no library support.
//
//	key_press(key)              -- send a key
//	mouse_move(x, y)            -- move the cursor
//	mouse_click(button, x, y)   -- "left", "right" or "middle"
//	wait_ms(n)                  -- pause n milliseconds
//	describe(text)              -- set the sequence description

// ScriptedSequence builds a sequence by executing a Lua script.
func ScriptedSequence(name, source string) (*Sequence, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	seq := NewSequence(name)

	L.SetGlobal("key_press", L.NewFunction(func(L *lua.LState) int {
		seq.AddKeyPress(L.CheckString(1))
		return 0
	}))
	L.SetGlobal("mouse_move", L.NewFunction(func(L *lua.LState) int {
		seq.AddMouseMove(L.CheckInt(1), L.CheckInt(2))
		return 0
	}))
	L.SetGlobal("mouse_click", L.NewFunction(func(L *lua.LState) int {
		button, err := parseButton(L.CheckString(1))
		if err != nil {
			L.ArgError(1, err.Error())
			return 0
		}
		seq.AddMouseClick(button, L.CheckInt(2), L.CheckInt(3))
		return 0
	}))
	L.SetGlobal("wait_ms", L.NewFunction(func(L *lua.LState) int {
		ms := L.CheckInt(1)
		if ms < 0 {
			L.ArgError(1, "wait must not be negative")
			return 0
		}
		seq.AddWait(time.Duration(ms) * time.Millisecond)
		return 0
	}))
	L.SetGlobal("describe", L.NewFunction(func(L *lua.LState) int {
		seq.Description = L.CheckString(1)
		return 0
	}))

	if err := L.DoString(source); err != nil {
		return nil, fmt.Errorf("action script %q: %w", name, err)
	}
	return seq, nil
}

// ScriptedOperation builds an operation whose sequence comes from a
// Lua script.
func ScriptedOperation(name, hotkey, gameKey, source string) (Operation, error) {
	seq, err := ScriptedSequence(name, source)
	if err != nil {
		return Operation{}, err
	}
	op := NewOperation(name, hotkey, gameKey)
	op.Sequence = seq
	return op, nil
}

// LoadScriptFile reads a script from disk and builds an operation named
// after it.
func LoadScriptFile(name, hotkey, gameKey, path string) (Operation, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return Operation{}, fmt.Errorf("action script %q: %w", name, err)
	}
	return ScriptedOperation(name, hotkey, gameKey, string(source))
}

func parseButton(s string) (MouseButton, error) {
	switch s {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	case "middle":
		return Middle, nil
	default:
		return 0, fmt.Errorf("unknown mouse button %q", s)
	}
}
