package match

import (
	"errors"
	"image"
)

var (
	// ErrTemplateMissing means a template reference could not be resolved to
	// a decodable image. It is recoverable: the asset may appear later.
	ErrTemplateMissing = errors.New("template missing")
	// ErrTemplateTooLarge means the template exceeds the search buffer in at
	// least one dimension.
	ErrTemplateTooLarge = errors.New("template larger than search buffer")
	// ErrMatch wraps any other matching failure.
	ErrMatch = errors.New("match failed")
)

// Matcher returns the best-match confidence of tmpl inside search.
type Matcher interface {
	Match(search, tmpl *image.Gray) (float64, error)
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(search, tmpl *image.Gray) (float64, error)

func (f MatcherFunc) Match(search, tmpl *image.Gray) (float64, error) { return f(search, tmpl) }

// TemplateLoader resolves a template reference to a grayscale raster.
type TemplateLoader interface {
	Load(ref string) (*image.Gray, error)
}
