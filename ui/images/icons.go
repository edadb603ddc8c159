package images

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
)

// EncodePNG encodes an image to PNG bytes. Errors are ignored and may return an empty slice.
func EncodePNG(img image.Image) []byte {
	if img == nil {
		return nil
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// FitIcon scales src to fit inside size x size preserving aspect ratio.
func FitIcon(src image.Image, size int) *image.NRGBA {
	if src == nil {
		return nil
	}
	if size < 1 {
		size = 1
	}
	return imaging.Fit(src, size, size, imaging.Lanczos)
}

// WithOpacity returns a copy of src with every alpha value scaled by alpha
// (clamped to [0,1]).
func WithOpacity(src image.Image, alpha float64) *image.NRGBA {
	if src == nil {
		return nil
	}
	dst := imaging.Clone(src)
	alpha = min(max(alpha, 0), 1)
	if alpha == 1 {
		return dst
	}
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = uint8(float64(dst.Pix[i])*alpha + 0.5)
	}
	return dst
}

// Placeholder draws a bordered square used when a marker has no icon.
func Placeholder(size int, fill color.NRGBA) *image.NRGBA {
	if size < 1 {
		size = 1
	}
	img := imaging.New(size, size, fill)
	edge := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	for i := 0; i < size; i++ {
		img.SetNRGBA(i, 0, edge)
		img.SetNRGBA(i, size-1, edge)
		img.SetNRGBA(0, i, edge)
		img.SetNRGBA(size-1, i, edge)
	}
	return img
}

// IconSet loads icons from dir, fitted to one size, and keeps them for reuse.
// Missing or undecodable files yield a placeholder and are reported once.
type IconSet struct {
	dir  string
	size int
	fill color.NRGBA

	mu     sync.Mutex
	icons  map[string]*image.NRGBA
	failed map[string]error
}

func NewIconSet(dir string, size int, fill color.NRGBA) *IconSet {
	if size < 1 {
		size = 48
	}
	return &IconSet{dir: dir, size: size, fill: fill, icons: make(map[string]*image.NRGBA), failed: make(map[string]error)}
}

// Size returns the edge length every icon is fitted to.
func (s *IconSet) Size() int { return s.size }

// Get returns the fitted icon for ref and any load error. The image is never
// nil: a placeholder stands in on error.
func (s *IconSet) Get(ref string) (*image.NRGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if img, ok := s.icons[ref]; ok {
		return img, s.failed[ref]
	}
	img, err := s.load(ref)
	if err != nil {
		s.failed[ref] = err
		img = Placeholder(s.size, s.fill)
	}
	s.icons[ref] = img
	return img, err
}

func (s *IconSet) load(ref string) (*image.NRGBA, error) {
	if ref == "" {
		return nil, fmt.Errorf("no icon reference")
	}
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.dir, ref)
	}
	src, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open icon %s: %w", path, err)
	}
	return FitIcon(src, s.size), nil
}
