package model

import (
	"strings"

	"github.com/soocke/debuff-tracker-go/config"
	"github.com/soocke/debuff-tracker-go/domain/monitor"
)

// IconState is how one marker icon should be drawn.
type IconState struct {
	Marker  string
	IconRef string
	Shown   bool
	Opacity float64
}

// CategoryModel mirrors the detection state of one category for the overlay.
// It only changes through Apply, so it is always consistent with the event
// stream seen so far. Not safe for concurrent use; owned by the UI thread.
type CategoryModel struct {
	name            string
	run             string
	displayMode     string
	inactiveOpacity float64
	anchorEnabled   bool
	anchorFound     bool
	order           []string
	icons           map[string]string
	detected        map[string]bool
	Activity        *ActivityModel
}

// NewCategoryModel builds the model for cat. Icons follow the category's
// selection order; iconRefs maps marker name to icon reference.
func NewCategoryModel(cat config.Category, iconRefs map[string]string) *CategoryModel {
	m := &CategoryModel{
		name:            cat.Name,
		displayMode:     normalizeMode(cat.DisplayMode),
		inactiveOpacity: cat.InactiveOpacity,
		anchorEnabled:   cat.AnchorDetectionEnabled && cat.AnchorImage != "",
		order:           append([]string(nil), cat.SelectedDebuffs...),
		icons:           make(map[string]string, len(cat.SelectedDebuffs)),
		detected:        make(map[string]bool, len(cat.SelectedDebuffs)),
		Activity:        NewActivityModel(),
	}
	for _, name := range m.order {
		m.icons[name] = iconRefs[name]
	}
	return m
}

// Name returns the category name.
func (m *CategoryModel) Name() string { return m.name }

// DisplayMode returns the normalized display mode.
func (m *CategoryModel) DisplayMode() string { return m.displayMode }

// SetDisplayMode switches the display mode; unknown values fall back to
// default.
func (m *CategoryModel) SetDisplayMode(mode string) { m.displayMode = normalizeMode(mode) }

// SetRun restricts the model to events from one monitor run, so a
// restarted monitor's stale events are ignored. Empty accepts any run.
func (m *CategoryModel) SetRun(id string) { m.run = id }

// Apply folds e into the model and reports whether anything visible changed.
// Repeated events are harmless.
func (m *CategoryModel) Apply(e monitor.Event) bool {
	if m == nil || e.Category != m.name {
		return false
	}
	if m.run != "" && e.Run != m.run {
		return false
	}
	if e.Anchor {
		changed := m.anchorFound != e.Detected
		m.anchorFound = e.Detected
		return changed
	}
	if _, ok := m.icons[e.Marker]; !ok {
		return false
	}
	changed := m.detected[e.Marker] != e.Detected
	m.detected[e.Marker] = e.Detected
	return changed
}

// Detected reports the last value seen for marker.
func (m *CategoryModel) Detected(marker string) bool { return m.detected[marker] }

// Active reports whether detection currently runs ungated.
func (m *CategoryModel) Active() bool { return !m.anchorEnabled || m.anchorFound }

// Visible reports whether the category panel should be on screen: always
// without anchor gating, otherwise only while the anchor is found.
func (m *CategoryModel) Visible() bool { return m.Active() }

// Icons returns the icon states in selection order.
func (m *CategoryModel) Icons() []IconState {
	out := make([]IconState, 0, len(m.order))
	for _, name := range m.order {
		det := m.detected[name]
		s := IconState{Marker: name, IconRef: m.icons[name], Opacity: 1}
		switch m.displayMode {
		case config.DisplayInvert:
			s.Shown = det
		case config.DisplayOpacity:
			s.Shown = true
			if !det {
				s.Opacity = m.inactiveOpacity
			}
		default:
			s.Shown = !det
		}
		out = append(out, s)
	}
	return out
}

func normalizeMode(mode string) string {
	switch strings.ToLower(mode) {
	case config.DisplayInvert:
		return config.DisplayInvert
	case config.DisplayOpacity:
		return config.DisplayOpacity
	default:
		return config.DisplayDefault
	}
}
