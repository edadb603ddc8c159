package match

import (
	"fmt"
	"image"
	_ "image/jpeg" // JPEG templates
	_ "image/png"  // PNG templates
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	lru "github.com/hashicorp/golang-lru/v2"
	_ "golang.org/x/image/webp" // WebP templates

	"github.com/soocke/debuff-tracker-go/domain/capture"
)

// DefaultTemplateCacheSize bounds the number of decoded templates kept.
const DefaultTemplateCacheSize = 128

type cachedTemplate struct {
	img     *image.Gray
	modTime time.Time
	size    int64
}

// TemplateStore resolves template references relative to a root directory
// and decodes them to grayscale. Decoded templates are cached, but every Load
// stats the file so a deleted or replaced asset is noticed on the next call.
type TemplateStore struct {
	dir   string
	cache *lru.Cache[string, cachedTemplate]
}

// NewTemplateStore returns a store rooted at dir holding at most size decoded
// templates (DefaultTemplateCacheSize when size <= 0).
func NewTemplateStore(dir string, size int) (*TemplateStore, error) {
	if size <= 0 {
		size = DefaultTemplateCacheSize
	}
	c, err := lru.New[string, cachedTemplate](size)
	if err != nil {
		return nil, fmt.Errorf("template cache: %w", err)
	}
	return &TemplateStore{dir: dir, cache: c}, nil
}

// Dir returns the asset root.
func (s *TemplateStore) Dir() string { return s.dir }

// Resolve maps a reference to a file path. Absolute references are used as is.
func (s *TemplateStore) Resolve(ref string) string {
	p := filepath.FromSlash(ref)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.dir, p)
}

// Load implements TemplateLoader. Any failure to stat or decode the asset is
// reported as ErrTemplateMissing.
func (s *TemplateStore) Load(ref string) (*image.Gray, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrTemplateMissing)
	}
	path := s.Resolve(ref)
	fi, err := os.Stat(path)
	if err != nil {
		s.cache.Remove(path)
		return nil, fmt.Errorf("%w: %v", ErrTemplateMissing, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrTemplateMissing, path)
	}
	if c, ok := s.cache.Get(path); ok && c.modTime.Equal(fi.ModTime()) && c.size == fi.Size() {
		return c.img, nil
	}
	img, err := imaging.Open(path)
	if err != nil {
		s.cache.Remove(path)
		return nil, fmt.Errorf("%w: decode %s: %v", ErrTemplateMissing, path, err)
	}
	gray := capture.ToGray(img)
	if gray == nil || gray.Bounds().Empty() {
		return nil, fmt.Errorf("%w: %s decoded to an empty image", ErrTemplateMissing, path)
	}
	s.cache.Add(path, cachedTemplate{img: gray, modTime: fi.ModTime(), size: fi.Size()})
	return gray, nil
}

// Len reports the number of cached templates.
func (s *TemplateStore) Len() int { return s.cache.Len() }
