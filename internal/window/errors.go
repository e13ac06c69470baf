package window

import "errors"

// Sentinel errors for the window package.
var (
	// ErrWindowNotFound means no window is currently tracked.
	ErrWindowNotFound = errors.New("no window tracked")

	// ErrWindowClosed means the tracked window's handle changed,
	// usually because the application restarted.
	ErrWindowClosed = errors.New("tracked window closed")

	// ErrCaptureThrottled means Capture was called again before the
	// minimum inter-call interval elapsed.
	ErrCaptureThrottled = errors.New("capture throttled")

	// ErrNoCapturer means the tracker was built without a capture
	// collaborator.
	ErrNoCapturer = errors.New("no capturer configured")

	// ErrTrackerRunning is returned when Start is called twice.
	ErrTrackerRunning = errors.New("tracker already running")
)
