package model

import (
	"fmt"
	"image"
	"regexp"
	"strconv"
	"strings"
)

// geomRe matches window geometry strings in the format "WIDTHxHEIGHT+X+Y".
var geomRe = regexp.MustCompile(`^(\d+)x(\d+)([+-]-?\d+)([+-]-?\d+)$`)

// ParseGeometry parses a Tk geometry string into a screen rectangle.
func ParseGeometry(g string) (image.Rectangle, bool) {
	m := geomRe.FindStringSubmatch(strings.TrimSpace(g))
	if len(m) != 5 {
		return image.Rectangle{}, false
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	x, okX := parseOffset(m[3])
	y, okY := parseOffset(m[4])
	if w <= 0 || h <= 0 || !okX || !okY {
		return image.Rectangle{}, false
	}
	return image.Rect(x, y, x+w, y+h), true
}

// parseOffset accepts "+N", "-N" and "+-N" (Tk's form for negative
// positions on multi-monitor setups).
func parseOffset(s string) (int, bool) {
	s = strings.TrimPrefix(s, "+")
	v, err := strconv.Atoi(s)
	return v, err == nil
}

// ParsePosition returns the top-left corner of a Tk geometry string.
func ParsePosition(g string) (image.Point, bool) {
	r, ok := ParseGeometry(g)
	return r.Min, ok
}

// FormatGeometry renders r as a Tk geometry string.
func FormatGeometry(r image.Rectangle) string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Dx(), r.Dy(), r.Min.X, r.Min.Y)
}
