// Package platform supplies the OS-facing collaborators for window
// tracking: process resolution backed by gopsutil, and the enumeration
// and capture seams that desktop backends plug into.
package platform

import (
	"errors"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/dshills/autark/internal/window"
)

// ErrUnsupported is returned by enumeration and capture on platforms
// without a desktop windowing backend.
var ErrUnsupported = errors.New("no desktop windowing backend on this platform")

// Processes resolves process metadata through gopsutil. The zero value
// is ready to use.
type Processes struct{}

// Name returns the executable name for pid.
func (Processes) Name(pid int32) (string, error) {
	p, err := process.NewProcess(pid)
	if err != nil {
		return "", err
	}
	return p.Name()
}

// Alive reports whether pid refers to a live process.
func (Processes) Alive(pid int32) bool {
	ok, err := process.PidExists(pid)
	return err == nil && ok
}

// NewEnumerator returns the window enumerator for the current platform.
func NewEnumerator() window.Enumerator {
	return newEnumerator()
}

// NewCapturer returns the bitmap capturer for the current platform, or
// nil when capture is unavailable.
func NewCapturer() window.Capturer {
	return newCapturer()
}
