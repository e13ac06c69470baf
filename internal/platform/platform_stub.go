//go:build !windows

package platform

import "github.com/dshills/autark/internal/window"

type stubEnumerator struct{}

func (stubEnumerator) Windows() ([]window.Info, error) {
	return nil, ErrUnsupported
}

func newEnumerator() window.Enumerator { return stubEnumerator{} }

func newCapturer() window.Capturer { return nil }
