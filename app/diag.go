package app

import (
	"fmt"
	"image"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/soocke/debuff-tracker-go/config"
	"github.com/soocke/debuff-tracker-go/domain/capture"
	"github.com/soocke/debuff-tracker-go/domain/match"
	"github.com/soocke/debuff-tracker-go/domain/monitor"
)

// ParseRegion reads "x,y,w,h" into a screen rectangle.
func ParseRegion(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("%w: %q is not x,y,w,h", monitor.ErrInvalidRegion, s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("%w: %q: %v", monitor.ErrInvalidRegion, s, err)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, fmt.Errorf("%w: %q has no area", monitor.ErrInvalidRegion, s)
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}

// ProbeResult is the outcome of a single capture and match.
type ProbeResult struct {
	Region    image.Rectangle
	Template  image.Rectangle
	Score     float64
	Threshold float64
	Detected  bool
	Elapsed   time.Duration
}

// Probe captures r once and matches the template ref against it.
func Probe(src capture.Source, m match.Matcher, templates match.TemplateLoader, r image.Rectangle, ref string, threshold float64) (ProbeResult, error) {
	res := ProbeResult{Region: r, Threshold: threshold}
	tmpl, err := templates.Load(ref)
	if err != nil {
		return res, err
	}
	res.Template = tmpl.Bounds()
	start := time.Now()
	buf, err := src.Capture(r)
	if err != nil {
		return res, err
	}
	score, err := m.Match(buf, tmpl)
	res.Elapsed = time.Since(start)
	if err != nil {
		return res, err
	}
	res.Score = score
	res.Detected = match.Detected(score, threshold)
	return res, nil
}

// AssetProblem is one template or icon reference that cannot be used.
type AssetProblem struct {
	Owner string // "marker Stun", "category Player"
	Kind  string // detect, icon or anchor
	Ref   string
	Err   error
}

// CheckAssets loads every detect, icon and anchor reference in cfg and
// returns the ones that fail.
func CheckAssets(cfg *config.Config, store *match.TemplateStore) []AssetProblem {
	var out []AssetProblem
	for _, m := range cfg.Markers {
		owner := "marker " + m.Name
		if _, err := store.Load(m.DetectImage); err != nil {
			out = append(out, AssetProblem{Owner: owner, Kind: "detect", Ref: m.DetectImage, Err: err})
		}
		if m.IconImage == "" {
			continue
		}
		if _, err := imaging.Open(store.Resolve(m.IconImage)); err != nil {
			out = append(out, AssetProblem{Owner: owner, Kind: "icon", Ref: m.IconImage, Err: err})
		}
	}
	for _, cat := range cfg.Categories {
		if !cat.AnchorDetectionEnabled {
			continue
		}
		if _, err := store.Load(cat.AnchorImage); err != nil {
			out = append(out, AssetProblem{Owner: "category " + cat.Name, Kind: "anchor", Ref: cat.AnchorImage, Err: err})
		}
	}
	return out
}
