package window

// EventKind discriminates window events.
type EventKind int

const (
	// Found means a matching window appeared where none was tracked.
	Found EventKind = iota

	// Updated means the tracked window's handle or geometry changed.
	Updated

	// Lost means a poll found no match while a session was tracked.
	Lost
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case Found:
		return "found"
	case Updated:
		return "updated"
	case Lost:
		return "lost"
	default:
		return "unknown"
	}
}

// Event reports a change in the tracked session. Info is zero for Lost
// events. SessionID identifies the tracked session the event belongs
// to; Found mints a new one, Updated and Lost carry it forward.
type Event struct {
	Kind      EventKind
	Info      Info
	SessionID string
}

// Callback receives window events synchronously, in registration order,
// on the polling goroutine. Callbacks must be fast; a slow callback
// delays the next poll.
type Callback func(Event)
