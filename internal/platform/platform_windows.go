//go:build windows

package platform

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/dshills/autark/internal/window"
)

var (
	user32 = syscall.NewLazyDLL("user32.dll")
	gdi32  = syscall.NewLazyDLL("gdi32.dll")

	procEnumWindows              = user32.NewProc("EnumWindows")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowRect            = user32.NewProc("GetWindowRect")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procGetWindowThreadProcessID = user32.NewProc("GetWindowThreadProcessId")
	procGetDC                    = user32.NewProc("GetDC")
	procReleaseDC                = user32.NewProc("ReleaseDC")

	procCreateCompatibleDC     = gdi32.NewProc("CreateCompatibleDC")
	procCreateCompatibleBitmap = gdi32.NewProc("CreateCompatibleBitmap")
	procSelectObject           = gdi32.NewProc("SelectObject")
	procBitBlt                 = gdi32.NewProc("BitBlt")
	procGetDIBits              = gdi32.NewProc("GetDIBits")
	procDeleteObject           = gdi32.NewProc("DeleteObject")
	procDeleteDC               = gdi32.NewProc("DeleteDC")
)

const srcCopy = 0x00CC0020

type winRect struct {
	Left, Top, Right, Bottom int32
}

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

type win32Enumerator struct{}

func newEnumerator() window.Enumerator { return win32Enumerator{} }

// Windows enumerates top-level windows in Z order. Untitled windows
// are skipped; they can never match a title filter.
func (win32Enumerator) Windows() ([]window.Info, error) {
	var wins []window.Info
	fg, _, _ := procGetForegroundWindow.Call()

	cb := syscall.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		var title [512]uint16
		n, _, _ := procGetWindowTextW.Call(hwnd,
			uintptr(unsafe.Pointer(&title[0])), uintptr(len(title)))
		if n == 0 {
			return 1
		}

		var r winRect
		procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&r)))
		var pid uint32
		procGetWindowThreadProcessID.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
		visible, _, _ := procIsWindowVisible.Call(hwnd)

		wins = append(wins, window.Info{
			Handle:     window.Handle(hwnd),
			X:          int(r.Left),
			Y:          int(r.Top),
			Width:      int(r.Right - r.Left),
			Height:     int(r.Bottom - r.Top),
			Title:      syscall.UTF16ToString(title[:n]),
			PID:        int32(pid),
			Visible:    visible != 0,
			Foreground: hwnd == fg,
		})
		return 1
	})

	ret, _, err := procEnumWindows.Call(cb, 0)
	if ret == 0 {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}
	return wins, nil
}

type win32Capturer struct{}

func newCapturer() window.Capturer { return win32Capturer{} }

// Capture grabs the window's client content as a top-down 32-bit BGRA
// buffer.
func (win32Capturer) Capture(info window.Info) ([]byte, error) {
	hwnd := uintptr(info.Handle)
	w, h := info.Width, info.Height
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("capture: degenerate window %dx%d", w, h)
	}

	hdc, _, _ := procGetDC.Call(hwnd)
	if hdc == 0 {
		return nil, window.ErrWindowClosed
	}
	defer procReleaseDC.Call(hwnd, hdc)

	memDC, _, _ := procCreateCompatibleDC.Call(hdc)
	if memDC == 0 {
		return nil, fmt.Errorf("capture: CreateCompatibleDC failed")
	}
	defer procDeleteDC.Call(memDC)

	bmp, _, _ := procCreateCompatibleBitmap.Call(hdc, uintptr(w), uintptr(h))
	if bmp == 0 {
		return nil, fmt.Errorf("capture: CreateCompatibleBitmap failed")
	}
	defer procDeleteObject.Call(bmp)
	procSelectObject.Call(memDC, bmp)

	ret, _, err := procBitBlt.Call(memDC, 0, 0, uintptr(w), uintptr(h),
		hdc, 0, 0, srcCopy)
	if ret == 0 {
		return nil, fmt.Errorf("capture: BitBlt: %w", err)
	}

	hdr := bitmapInfoHeader{
		Size:     uint32(unsafe.Sizeof(bitmapInfoHeader{})),
		Width:    int32(w),
		Height:   -int32(h), // top-down
		Planes:   1,
		BitCount: 32,
	}
	buf := make([]byte, w*h*4)
	ret, _, err = procGetDIBits.Call(memDC, bmp, 0, uintptr(h),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&hdr)), 0)
	if ret == 0 {
		return nil, fmt.Errorf("capture: GetDIBits: %w", err)
	}
	return buf, nil
}
