package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/soocke/debuff-tracker-go/assets"
	"github.com/soocke/debuff-tracker-go/domain/marker"
	"github.com/soocke/debuff-tracker-go/domain/monitor"
)

// ErrInvalidEntry marks a settings entry that Validate repaired or dropped.
// Load returns it alongside a usable Config; callers log it and continue.
var ErrInvalidEntry = errors.New("invalid settings entry")

// ErrUnknownCategory is returned by the category helpers for a missing name.
var ErrUnknownCategory = errors.New("unknown category")

// Display modes for a category's icon panel.
const (
	DisplayDefault = "default" // icon shown while the marker is absent
	DisplayInvert  = "invert"  // icon shown while the marker is present
	DisplayOpacity = "opacity" // every icon shown, dimmed while absent
)

const (
	LayoutVertical   = "vertical"
	LayoutHorizontal = "horizontal"
)

const (
	DefaultAssetsDir       = "images"
	DefaultStopGraceMS     = 1500
	DefaultTemplateCache   = 128
	DefaultRegionSize      = 100
	DefaultWindowPos       = 100
	DefaultIconSize        = 48
	DefaultInactiveOpacity = 0.3
)

// Config is the settings document: a marker library plus the categories that
// select from it. It can be stored as JSON or YAML.
type Config struct {
	Debug         bool   `json:"debug" yaml:"debug"`
	AssetsDir     string `json:"assets_dir" yaml:"assets_dir"`
	EventBuffer   int    `json:"event_buffer" yaml:"event_buffer"`
	StopGraceMS   int    `json:"stop_grace_ms" yaml:"stop_grace_ms"`
	TemplateCache int    `json:"template_cache" yaml:"template_cache"`

	Markers    []Marker   `json:"markers" yaml:"markers"`
	Categories []Category `json:"categories" yaml:"categories"`
}

// Marker is one library entry. DetectImage is matched on screen; IconImage is
// what the overlay shows.
type Marker struct {
	Name        string `json:"name" yaml:"name"`
	DetectImage string `json:"detect_image" yaml:"detect_image"`
	IconImage   string `json:"icon_image" yaml:"icon_image"`
	Priority    int    `json:"priority" yaml:"priority"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
}

// Category holds one watched screen area and its overlay settings. Regions
// are absolute screen coordinates; a zero width or height means unset.
type Category struct {
	Name   string `json:"name" yaml:"name"`
	X      int    `json:"x" yaml:"x"`
	Y      int    `json:"y" yaml:"y"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`

	AnchorDetectionEnabled bool   `json:"anchor_detection_enabled" yaml:"anchor_detection_enabled"`
	AnchorImage            string `json:"anchor_image" yaml:"anchor_image"`
	AnchorX                int    `json:"anchor_x" yaml:"anchor_x"`
	AnchorY                int    `json:"anchor_y" yaml:"anchor_y"`
	AnchorWidth            int    `json:"anchor_width" yaml:"anchor_width"`
	AnchorHeight           int    `json:"anchor_height" yaml:"anchor_height"`

	SelectedDebuffs []string `json:"selected_debuffs" yaml:"selected_debuffs"`
	CycleIntervalMS int      `json:"cycle_interval_ms" yaml:"cycle_interval_ms"`
	MatchThreshold  float64  `json:"match_threshold" yaml:"match_threshold"`

	WindowX         int     `json:"window_x" yaml:"window_x"`
	WindowY         int     `json:"window_y" yaml:"window_y"`
	IconSize        int     `json:"icon_size" yaml:"icon_size"`
	Layout          string  `json:"layout" yaml:"layout"`
	DisplayMode     string  `json:"display_mode" yaml:"display_mode"`
	InactiveOpacity float64 `json:"inactive_opacity" yaml:"inactive_opacity"`
}

// DefaultConfig returns an empty settings document with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		AssetsDir:     DefaultAssetsDir,
		EventBuffer:   monitor.DefaultEventBuffer,
		StopGraceMS:   DefaultStopGraceMS,
		TemplateCache: DefaultTemplateCache,
	}
}

// DefaultCategory returns a category with every field at its default.
func DefaultCategory(name string) Category {
	return Category{
		Name:            name,
		Width:           DefaultRegionSize,
		Height:          DefaultRegionSize,
		SelectedDebuffs: []string{},
		CycleIntervalMS: int(monitor.DefaultCycleInterval / time.Millisecond),
		MatchThreshold:  monitor.DefaultMatchThreshold,
		WindowX:         DefaultWindowPos,
		WindowY:         DefaultWindowPos,
		IconSize:        DefaultIconSize,
		Layout:          LayoutVertical,
		DisplayMode:     DisplayDefault,
		InactiveOpacity: DefaultInactiveOpacity,
	}
}

// Fields absent from a stored category or marker keep their defaults; the
// raw aliases avoid recursing into these methods.
type rawCategory Category
type rawMarker Marker

func (c *Category) UnmarshalJSON(data []byte) error {
	r := rawCategory(DefaultCategory(""))
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*c = Category(r)
	return nil
}

func (c *Category) UnmarshalYAML(n *yaml.Node) error {
	r := rawCategory(DefaultCategory(""))
	if err := n.Decode(&r); err != nil {
		return err
	}
	*c = Category(r)
	return nil
}

func (m *Marker) UnmarshalJSON(data []byte) error {
	r := rawMarker{Enabled: true}
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*m = Marker(r)
	return nil
}

func (m *Marker) UnmarshalYAML(n *yaml.Node) error {
	r := rawMarker{Enabled: true}
	if err := n.Decode(&r); err != nil {
		return err
	}
	*m = Marker(r)
	return nil
}

// Validate clamps values to safe ranges, drops unusable library entries and
// unknown selections, and renames duplicate categories. Everything it had to
// change is reported as a joined error wrapping ErrInvalidEntry; the Config
// is usable either way.
func (c *Config) Validate() error {
	var issues []error
	report := func(format string, args ...any) {
		issues = append(issues, fmt.Errorf("%w: "+format, append([]any{ErrInvalidEntry}, args...)...))
	}

	if strings.TrimSpace(c.AssetsDir) == "" {
		c.AssetsDir = DefaultAssetsDir
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = monitor.DefaultEventBuffer
	}
	if c.StopGraceMS <= 0 {
		c.StopGraceMS = DefaultStopGraceMS
	}
	if c.TemplateCache <= 0 {
		c.TemplateCache = DefaultTemplateCache
	}

	library := make(map[string]bool, len(c.Markers))
	markers := c.Markers[:0]
	for i, m := range c.Markers {
		switch {
		case m.Name == "" || m.DetectImage == "":
			report("marker at index %d needs name and detect_image", i)
			continue
		case library[m.Name]:
			report("duplicate marker %q", m.Name)
			continue
		}
		library[m.Name] = true
		markers = append(markers, m)
	}
	c.Markers = markers

	names := make(map[string]bool, len(c.Categories))
	for i := range c.Categories {
		cat := &c.Categories[i]
		if strings.TrimSpace(cat.Name) == "" {
			cat.Name = fmt.Sprintf("Category_%d", i+1)
		}
		if names[cat.Name] {
			base := cat.Name
			for n := 2; names[cat.Name]; n++ {
				cat.Name = fmt.Sprintf("%s (%d)", base, n)
			}
			report("duplicate category %q renamed to %q", base, cat.Name)
		}
		names[cat.Name] = true
		cat.normalize()

		selected := make([]string, 0, len(cat.SelectedDebuffs))
		seen := make(map[string]bool, len(cat.SelectedDebuffs))
		for _, s := range cat.SelectedDebuffs {
			if !library[s] {
				report("category %q selects unknown marker %q", cat.Name, s)
				continue
			}
			if seen[s] {
				continue
			}
			seen[s] = true
			selected = append(selected, s)
		}
		cat.SelectedDebuffs = selected
	}
	return errors.Join(issues...)
}

func (cat *Category) normalize() {
	cat.Width = max(cat.Width, 0)
	cat.Height = max(cat.Height, 0)
	cat.AnchorWidth = max(cat.AnchorWidth, 0)
	cat.AnchorHeight = max(cat.AnchorHeight, 0)
	if cat.CycleIntervalMS <= 0 {
		cat.CycleIntervalMS = int(monitor.DefaultCycleInterval / time.Millisecond)
	}
	if cat.MatchThreshold <= 0 || cat.MatchThreshold > 1 {
		cat.MatchThreshold = monitor.DefaultMatchThreshold
	}
	if cat.IconSize <= 0 {
		cat.IconSize = DefaultIconSize
	}
	switch strings.ToLower(cat.Layout) {
	case LayoutHorizontal:
		cat.Layout = LayoutHorizontal
	default:
		cat.Layout = LayoutVertical
	}
	switch strings.ToLower(cat.DisplayMode) {
	case DisplayInvert:
		cat.DisplayMode = DisplayInvert
	case DisplayOpacity:
		cat.DisplayMode = DisplayOpacity
	default:
		cat.DisplayMode = DisplayDefault
	}
	cat.InactiveOpacity = min(max(cat.InactiveOpacity, 0), 1)
	if cat.SelectedDebuffs == nil {
		cat.SelectedDebuffs = []string{}
	}
}

// SearchRegion returns the category's search rectangle.
func (cat *Category) SearchRegion() image.Rectangle {
	return image.Rect(cat.X, cat.Y, cat.X+cat.Width, cat.Y+cat.Height)
}

// AnchorRegion returns the category's anchor rectangle.
func (cat *Category) AnchorRegion() image.Rectangle {
	return image.Rect(cat.AnchorX, cat.AnchorY, cat.AnchorX+cat.AnchorWidth, cat.AnchorY+cat.AnchorHeight)
}

// SetRegion stores r as the search or anchor region.
func (cat *Category) SetRegion(kind monitor.RegionKind, r image.Rectangle) error {
	r = r.Canon()
	switch kind {
	case monitor.RegionSearch:
		cat.X, cat.Y, cat.Width, cat.Height = r.Min.X, r.Min.Y, r.Dx(), r.Dy()
	case monitor.RegionAnchor:
		cat.AnchorX, cat.AnchorY, cat.AnchorWidth, cat.AnchorHeight = r.Min.X, r.Min.Y, r.Dx(), r.Dy()
	default:
		return fmt.Errorf("%w: unknown region kind %q", monitor.ErrInvalidRegion, kind)
	}
	return nil
}

// Marker returns the library entry called name.
func (c *Config) Marker(name string) (Marker, bool) {
	for _, m := range c.Markers {
		if m.Name == name {
			return m, true
		}
	}
	return Marker{}, false
}

// Category returns a pointer into c.Categories for name.
func (c *Config) Category(name string) (*Category, error) {
	for i := range c.Categories {
		if c.Categories[i].Name == name {
			return &c.Categories[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

// NewCategoryName returns the first free "New Category N".
func (c *Config) NewCategoryName() string {
	taken := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		taken[cat.Name] = true
	}
	n := 1
	for taken[fmt.Sprintf("New Category %d", n)] {
		n++
	}
	return fmt.Sprintf("New Category %d", n)
}

// AddCategory appends a default category with a fresh name and returns a
// copy of it.
func (c *Config) AddCategory() Category {
	cat := DefaultCategory(c.NewCategoryName())
	c.Categories = append(c.Categories, cat)
	return cat
}

// RemoveCategory deletes the category called name.
func (c *Config) RemoveCategory(name string) error {
	for i := range c.Categories {
		if c.Categories[i].Name == name {
			c.Categories = append(c.Categories[:i], c.Categories[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

// MonitorConfig builds the detection engine's view of cat. Markers follow the
// selection order; selections missing from the library are skipped.
func (c *Config) MonitorConfig(cat Category) monitor.Config {
	defs := make([]marker.Definition, 0, len(cat.SelectedDebuffs))
	for _, name := range cat.SelectedDebuffs {
		m, ok := c.Marker(name)
		if !ok {
			continue
		}
		defs = append(defs, marker.Definition{
			Name:        m.Name,
			TemplateRef: m.DetectImage,
			IconRef:     m.IconImage,
			Enabled:     m.Enabled,
			Priority:    m.Priority,
		})
	}
	return monitor.Config{
		Name:         cat.Name,
		SearchRegion: cat.SearchRegion(),
		Anchor: marker.Anchor{
			Enabled:     cat.AnchorDetectionEnabled,
			TemplateRef: cat.AnchorImage,
			Region:      cat.AnchorRegion(),
		},
		Markers:        defs,
		CycleInterval:  time.Duration(cat.CycleIntervalMS) * time.Millisecond,
		MatchThreshold: cat.MatchThreshold,
	}
}

// StopGrace returns the configured monitor stop grace period.
func (c *Config) StopGrace() time.Duration {
	return time.Duration(c.StopGraceMS) * time.Millisecond
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Markers = append([]Marker(nil), c.Markers...)
	out.Categories = make([]Category, len(c.Categories))
	for i, cat := range c.Categories {
		cat.SelectedDebuffs = append([]string(nil), cat.SelectedDebuffs...)
		out.Categories[i] = cat
	}
	return &out
}

// isYAML picks the document format from the file extension.
func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Parse decodes a settings document. YAML is used when yamlDoc is true,
// JSON otherwise.
func Parse(data []byte, yamlDoc bool) (*Config, error) {
	cfg := DefaultConfig()
	var err error
	if yamlDoc {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

// Load reads the settings document at path. A missing file is created from
// the embedded default document. Decode failures return defaults with the
// error. Repairs made by Validate come back as an error wrapping
// ErrInvalidEntry together with the repaired Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return bootstrap(path)
	}
	if err != nil {
		return DefaultConfig(), err
	}
	cfg, err := Parse(data, isYAML(path))
	if err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func bootstrap(path string) (*Config, error) {
	cfg, err := Parse(assets.DefaultSettings, false)
	if err != nil {
		return cfg, fmt.Errorf("embedded default settings: %w", err)
	}
	_ = cfg.Validate()
	if err := cfg.Save(path); err != nil {
		return cfg, fmt.Errorf("write default settings: %w", err)
	}
	return cfg, nil
}

// Marshal encodes the settings document in the format implied by path.
func (c *Config) Marshal(path string) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(c)
	}
	return json.MarshalIndent(c, "", "  ")
}

// Save validates and writes the document to path, replacing it atomically.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	data, err := c.Marshal(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
