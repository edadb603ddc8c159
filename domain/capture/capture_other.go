//go:build !windows

package capture

import (
	"errors"
	"fmt"
	"image"

	"github.com/vova616/screenshot"
)

// grabRect captures r (clipped to the screen) through the screenshot library.
func grabRect(r image.Rectangle) (image.Image, error) {
	if r.Empty() {
		return nil, errors.New("capture: empty selection")
	}
	screen, err := screenshot.ScreenRect()
	if err != nil {
		return nil, fmt.Errorf("capture: screen rect: %w", err)
	}
	clipped := r.Intersect(screen)
	if clipped.Empty() {
		return nil, fmt.Errorf("capture: selection out of bounds sel=%v screen=%v", r, screen)
	}
	img, err := screenshot.CaptureRect(clipped)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, errors.New("capture: screenshot returned no image")
	}
	return img, nil
}
