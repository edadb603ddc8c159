package capture

import (
	"errors"
	"image"
	"time"
)

// ErrCaptureFailed is returned when the OS-level grab fails or yields an
// empty image. Callers treat it as transient.
var ErrCaptureFailed = errors.New("capture failed")

// Source captures a grayscale pixel buffer for a rectangle given in absolute
// screen coordinates. The returned image always has its origin at (0,0).
type Source interface {
	Capture(r image.Rectangle) (*image.Gray, error)
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc func(r image.Rectangle) (*image.Gray, error)

func (f SourceFunc) Capture(r image.Rectangle) (*image.Gray, error) { return f(r) }

// CaptureStats summarises capture behaviour for instrumentation.
type CaptureStats struct {
	Captures    uint64
	Failures    uint64
	AvgCapture  time.Duration
	LastCapture time.Time
}
