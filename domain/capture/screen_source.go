package capture

import (
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"
)

// ScreenSource grabs screen rectangles through the platform backend and
// converts them to grayscale. Every call is independent: no frame is cached
// between calls and all OS resources are released before returning.
type ScreenSource struct {
	logger       *slog.Logger
	grab         func(image.Rectangle) (image.Image, error)
	captures     atomic.Uint64
	failures     atomic.Uint64
	captureNanos atomic.Uint64
	lastCapture  atomic.Int64
}

// NewScreenSource returns a Source backed by the platform screen grabber.
func NewScreenSource(logger *slog.Logger) *ScreenSource {
	return &ScreenSource{logger: logger, grab: grabRect}
}

// Capture implements Source.
func (s *ScreenSource) Capture(r image.Rectangle) (*image.Gray, error) {
	if r.Empty() {
		s.failures.Add(1)
		return nil, fmt.Errorf("%w: empty rectangle %v", ErrCaptureFailed, r)
	}
	start := time.Now()
	img, err := s.grab(r)
	if err != nil {
		s.failures.Add(1)
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	if img == nil || img.Bounds().Empty() {
		s.failures.Add(1)
		return nil, fmt.Errorf("%w: empty image for %v", ErrCaptureFailed, r)
	}
	gray := ToGray(img)
	s.captureNanos.Add(uint64(time.Since(start).Nanoseconds()))
	s.captures.Add(1)
	s.lastCapture.Store(time.Now().UnixNano())
	return gray, nil
}

// Stats returns capture counters accumulated since construction.
func (s *ScreenSource) Stats() CaptureStats {
	captures := s.captures.Load()
	var avg time.Duration
	if captures > 0 {
		avg = time.Duration(s.captureNanos.Load() / captures)
	}
	var last time.Time
	if ns := s.lastCapture.Load(); ns > 0 {
		last = time.Unix(0, ns)
	}
	return CaptureStats{
		Captures:    captures,
		Failures:    s.failures.Load(),
		AvgCapture:  avg,
		LastCapture: last,
	}
}

// LogStats writes the current counters at debug level.
func (s *ScreenSource) LogStats() {
	if s.logger == nil {
		return
	}
	stats := s.Stats()
	s.logger.Debug("capture.stats",
		"captures", stats.Captures,
		"failures", stats.Failures,
		"avg_capture", stats.AvgCapture,
	)
}
