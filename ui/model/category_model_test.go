package model

import (
	"testing"

	"github.com/soocke/debuff-tracker-go/config"
	"github.com/soocke/debuff-tracker-go/domain/monitor"
)

func testCategory(mode string) config.Category {
	cat := config.DefaultCategory("Player")
	cat.SelectedDebuffs = []string{"Stun", "Root"}
	cat.DisplayMode = mode
	cat.InactiveOpacity = 0.25
	return cat
}

func shown(icons []IconState) map[string]IconState {
	out := make(map[string]IconState, len(icons))
	for _, ic := range icons {
		out[ic.Marker] = ic
	}
	return out
}

func TestCategoryModel_DefaultShowsAbsentMarkers(t *testing.T) {
	m := NewCategoryModel(testCategory(config.DisplayDefault), map[string]string{"Stun": "stun_icon.png"})
	if !m.Apply(monitor.Event{Category: "Player", Marker: "Stun", Detected: true}) {
		t.Fatalf("first detection should change the model")
	}
	icons := m.Icons()
	if len(icons) != 2 || icons[0].Marker != "Stun" || icons[1].Marker != "Root" {
		t.Fatalf("icon order = %+v", icons)
	}
	if icons[0].Shown || !icons[1].Shown {
		t.Fatalf("default mode: %+v", icons)
	}
	if icons[0].IconRef != "stun_icon.png" {
		t.Fatalf("icon ref = %q", icons[0].IconRef)
	}
}

func TestCategoryModel_InvertShowsPresentMarkers(t *testing.T) {
	m := NewCategoryModel(testCategory("INVERT"), nil)
	m.Apply(monitor.Event{Category: "Player", Marker: "Root", Detected: true})
	got := shown(m.Icons())
	if got["Stun"].Shown || !got["Root"].Shown {
		t.Fatalf("invert mode: %+v", got)
	}
}

func TestCategoryModel_OpacityDimsAbsentMarkers(t *testing.T) {
	m := NewCategoryModel(testCategory(config.DisplayOpacity), nil)
	m.Apply(monitor.Event{Category: "Player", Marker: "Stun", Detected: true})
	got := shown(m.Icons())
	if !got["Stun"].Shown || got["Stun"].Opacity != 1 {
		t.Fatalf("detected icon = %+v", got["Stun"])
	}
	if !got["Root"].Shown || got["Root"].Opacity != 0.25 {
		t.Fatalf("absent icon = %+v", got["Root"])
	}
	m.SetDisplayMode("bogus")
	if m.DisplayMode() != config.DisplayDefault {
		t.Fatalf("unknown mode should fall back, got %q", m.DisplayMode())
	}
}

func TestCategoryModel_ApplyIsIdempotentAndScoped(t *testing.T) {
	m := NewCategoryModel(testCategory(config.DisplayDefault), nil)
	e := monitor.Event{Category: "Player", Marker: "Stun", Detected: false}
	if m.Apply(e) || m.Apply(e) {
		t.Fatalf("false on an absent marker is not a change")
	}
	if m.Apply(monitor.Event{Category: "Target", Marker: "Stun", Detected: true}) {
		t.Fatalf("event for another category applied")
	}
	if m.Apply(monitor.Event{Category: "Player", Marker: "Unselected", Detected: true}) {
		t.Fatalf("event for unselected marker applied")
	}
	if m.Detected("Stun") {
		t.Fatalf("Stun should still be false")
	}
}

func TestCategoryModel_AnchorGatesVisibility(t *testing.T) {
	cat := testCategory(config.DisplayDefault)
	if !NewCategoryModel(cat, nil).Visible() {
		t.Fatalf("ungated category should be visible")
	}
	cat.AnchorDetectionEnabled = true
	cat.AnchorImage = "combat.png"
	m := NewCategoryModel(cat, nil)
	if m.Visible() {
		t.Fatalf("gated category hidden until anchor found")
	}
	if !m.Apply(monitor.Event{Category: "Player", Anchor: true, Detected: true}) || !m.Visible() {
		t.Fatalf("anchor found should show the panel")
	}
	m.Apply(monitor.Event{Category: "Player", Anchor: true, Detected: false})
	if m.Visible() {
		t.Fatalf("anchor lost should hide the panel")
	}
}

func TestCategoryModel_IgnoresOtherRuns(t *testing.T) {
	m := NewCategoryModel(testCategory(config.DisplayDefault), nil)
	m.SetRun("new")
	if m.Apply(monitor.Event{Category: "Player", Run: "old", Marker: "Stun", Detected: true}) {
		t.Fatalf("stale run applied")
	}
	if !m.Apply(monitor.Event{Category: "Player", Run: "new", Marker: "Stun", Detected: true}) {
		t.Fatalf("current run rejected")
	}
}
