//go:build windows

package capture

// Windows screen capture using per-call GDI allocations. Each grabRect
// creates a temporary DIB, BitBlts the screen into it, converts the BGRA
// pixels straight to luma in a heap-owned *image.Gray and frees every GDI
// handle before returning, so polling at a few Hz never accumulates native
// resources.

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	smCxScreen   = 0
	smCyScreen   = 1
	srccopy      = 0x00CC0020
	dibRGBColors = 0
	biRgb        = 0
)

var (
	user32                 = windows.NewLazySystemDLL("user32.dll")
	gdi32                  = windows.NewLazySystemDLL("gdi32.dll")
	procGetDC              = user32.NewProc("GetDC")
	procReleaseDC          = user32.NewProc("ReleaseDC")
	procGetSystemMetrics   = user32.NewProc("GetSystemMetrics")
	procCreateCompatibleDC = gdi32.NewProc("CreateCompatibleDC")
	procDeleteDC           = gdi32.NewProc("DeleteDC")
	procSelectObject       = gdi32.NewProc("SelectObject")
	procBitBlt             = gdi32.NewProc("BitBlt")
	procCreateDIBSection   = gdi32.NewProc("CreateDIBSection")
	procDeleteObject       = gdi32.NewProc("DeleteObject")
)

// BITMAPINFO structures (Win32 layout).
type bitmapInfoHeader struct {
	BiSize          uint32
	BiWidth         int32
	BiHeight        int32
	BiPlanes        uint16
	BiBitCount      uint16
	BiCompression   uint32
	BiSizeImage     uint32
	BiXPelsPerMeter int32
	BiYPelsPerMeter int32
	BiClrUsed       uint32
	BiClrImportant  uint32
}

type bitmapInfo struct {
	Header bitmapInfoHeader
	_      [4]byte // one RGBQUAD placeholder (unused for 32-bit)
}

// grabRect captures r clipped to the primary screen bounds.
func grabRect(r image.Rectangle) (image.Image, error) {
	if r.Empty() {
		return nil, errors.New("capture: empty selection")
	}
	screen := image.Rect(0, 0, int(getSystemMetric(smCxScreen)), int(getSystemMetric(smCyScreen)))
	clipped := r.Intersect(screen)
	if clipped.Empty() {
		return nil, fmt.Errorf("capture: selection out of bounds sel=%v screen=%v", r, screen)
	}
	return bitBltGray(clipped)
}

// bitBltGray BitBlts r into a top-down 32-bit DIB section and converts the
// BGRA pixels straight to luma, skipping the intermediate RGBA copy.
func bitBltGray(r image.Rectangle) (*image.Gray, error) {
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("capture: invalid rect %v", r)
	}

	screenDC, _, _ := procGetDC.Call(0)
	if screenDC == 0 {
		return nil, fmt.Errorf("capture: GetDC failed winerr=%d", getLastError())
	}
	defer procReleaseDC.Call(0, screenDC)

	memDC, _, _ := procCreateCompatibleDC.Call(screenDC)
	if memDC == 0 {
		return nil, fmt.Errorf("capture: CreateCompatibleDC failed winerr=%d", getLastError())
	}
	defer procDeleteDC.Call(memDC)

	var bi bitmapInfo
	bi.Header.BiSize = uint32(unsafe.Sizeof(bi.Header))
	bi.Header.BiWidth = int32(w)
	bi.Header.BiHeight = -int32(h) // top-down
	bi.Header.BiPlanes = 1
	bi.Header.BiBitCount = 32
	bi.Header.BiCompression = biRgb
	bi.Header.BiSizeImage = uint32(w * h * 4)

	var bits unsafe.Pointer
	bmp, _, _ := procCreateDIBSection.Call(memDC, uintptr(unsafe.Pointer(&bi)), dibRGBColors, uintptr(unsafe.Pointer(&bits)), 0, 0)
	if bmp == 0 || bits == nil {
		return nil, fmt.Errorf("capture: CreateDIBSection failed winerr=%d", getLastError())
	}
	defer procDeleteObject.Call(bmp)

	prev, _, _ := procSelectObject.Call(memDC, bmp)
	if prev == 0 || prev == ^uintptr(0) { // failure or GDI_ERROR
		return nil, fmt.Errorf("capture: SelectObject failed winerr=%d", getLastError())
	}
	defer procSelectObject.Call(memDC, prev)

	ok, _, _ := procBitBlt.Call(memDC, 0, 0, uintptr(w), uintptr(h), screenDC, uintptr(r.Min.X), uintptr(r.Min.Y), srccopy)
	if ok == 0 {
		return nil, fmt.Errorf("capture: BitBlt failed x=%d y=%d w=%d h=%d winerr=%d", r.Min.X, r.Min.Y, w, h, getLastError())
	}

	src := unsafe.Slice((*byte)(bits), w*h*4)
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for i, j := 0, 0; j < len(dst.Pix); i, j = i+4, j+1 {
		b := uint32(src[i])
		g := uint32(src[i+1])
		r8 := uint32(src[i+2])
		dst.Pix[j] = uint8((19595*r8 + 38470*g + 7471*b + 1<<15) >> 16)
	}
	return dst, nil
}

func getSystemMetric(idx int) int32 {
	v, _, _ := procGetSystemMetrics.Call(uintptr(idx))
	return int32(v)
}

func getLastError() uint32 {
	if errno, ok := windows.GetLastError().(windows.Errno); ok {
		return uint32(errno)
	}
	return 0
}
