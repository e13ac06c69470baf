// Package window tracks a single target application window: a
// background poll loop matches candidate windows against a detection
// config, keeps the matched session's last-known geometry, and emits
// found/lost/updated events to an event channel and registered
// callbacks.
package window

import (
	"time"
)

// Handle is an opaque platform window identifier.
type Handle uint64

// Info describes a top-level window at a point in time. At most one
// Info is the tracked session; it is owned by the Tracker and replaced
// wholesale, never mutated field by field.
type Info struct {
	Handle     Handle
	X, Y       int
	Width      int
	Height     int
	Title      string
	PID        int32
	Visible    bool
	Foreground bool
}

// Center returns the window's center point in screen coordinates.
func (w Info) Center() (int, int) {
	return w.X + w.Width/2, w.Y + w.Height/2
}

// Contains reports whether the screen point (x, y) lies inside the
// window.
func (w Info) Contains(x, y int) bool {
	return x >= w.X && x < w.X+w.Width && y >= w.Y && y < w.Y+w.Height
}

// ScreenToWindow translates a screen point into window-relative
// coordinates. It returns ok=false when the point falls outside the
// window.
func (w Info) ScreenToWindow(x, y int) (wx, wy int, ok bool) {
	wx = x - w.X
	wy = y - w.Y
	if wx < 0 || wx >= w.Width || wy < 0 || wy >= w.Height {
		return 0, 0, false
	}
	return wx, wy, true
}

// WindowToScreen translates window-relative coordinates into screen
// coordinates.
func (w Info) WindowToScreen(x, y int) (int, int) {
	return w.X + x, w.Y + y
}

// sameGeometry reports whether two infos refer to the same window with
// identical placement.
func sameGeometry(a, b Info) bool {
	return a.Handle == b.Handle &&
		a.X == b.X && a.Y == b.Y &&
		a.Width == b.Width && a.Height == b.Height
}

// DetectionConfig controls how the tracker matches candidate windows.
// It is immutable for the lifetime of a Tracker.
type DetectionConfig struct {
	// TargetTitle is matched as a substring of the window title.
	TargetTitle string

	// TargetProcess is matched as a case-insensitive substring of the
	// owning process name.
	TargetProcess string

	// Interval is the poll interval.
	Interval time.Duration

	// VisibleOnly skips invisible windows.
	VisibleOnly bool

	// ForegroundOnly skips windows that are not in the foreground.
	ForegroundOnly bool
}

// DefaultDetectionConfig returns the stock detection settings.
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		TargetTitle:    "明日方舟",
		TargetProcess:  "Arknights.exe",
		Interval:       time.Second,
		VisibleOnly:    true,
		ForegroundOnly: false,
	}
}
