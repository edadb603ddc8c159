package app

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/soocke/debuff-tracker-go/config"
	"github.com/soocke/debuff-tracker-go/domain/capture"
	"github.com/soocke/debuff-tracker-go/domain/match"
	"github.com/soocke/debuff-tracker-go/domain/monitor"
)

var discardLogger = slog.New(slog.NewTextHandler(&discardWriter{}, nil))

type discardWriter struct{}

func (d *discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// flatTemplates serves a small gray square for every reference.
type flatTemplates struct{}

func (flatTemplates) Load(ref string) (*image.Gray, error) {
	if ref == "" {
		return nil, match.ErrTemplateMissing
	}
	return image.NewGray(image.Rect(0, 0, 4, 4)), nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Markers = []config.Marker{
		{Name: "Stun", DetectImage: "stun.png", IconImage: "stun_icon.png", Enabled: true},
		{Name: "Root", DetectImage: "root.png", Enabled: true},
	}
	cat := config.DefaultCategory("Player")
	cat.SelectedDebuffs = []string{"Stun"}
	cat.CycleIntervalMS = 5
	cfg.Categories = []config.Category{cat}
	_ = cfg.Validate()
	return cfg
}

func newTestTracker(t *testing.T) (*Tracker, *monitor.Coordinator, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	cfg := testConfig()
	bus := monitor.NewBus(64, discardLogger)
	coord := monitor.NewCoordinator(monitor.Deps{
		Source:    capture.SourceFunc(func(r image.Rectangle) (*image.Gray, error) { return image.NewGray(r), nil }),
		Matcher:   match.MatcherFunc(func(_, _ *image.Gray) (float64, error) { return 0, nil }),
		Templates: flatTemplates{},
		Sink:      bus,
		Logger:    discardLogger,
		Timing:    monitor.Timing{RetryDelay: 5 * time.Millisecond, ErrorBackoff: 5 * time.Millisecond},
	}, time.Second)
	tr := NewTracker(cfg, path, coord, bus, discardLogger)
	t.Cleanup(func() { _ = tr.Shutdown(context.Background()) })
	if err := tr.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return tr, coord, path
}

func reload(t *testing.T, path string) *config.Config {
	t.Helper()
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load saved settings: %v", err)
	}
	return cfg
}

func TestTracker_StartRunsEveryCategory(t *testing.T) {
	_, coord, _ := newTestTracker(t)
	infos := coord.List()
	if len(infos) != 1 || infos[0].Name != "Player" {
		t.Fatalf("running monitors = %+v", infos)
	}
	if infos[0].State != monitor.StateRunning {
		t.Fatalf("state = %v", infos[0].State)
	}
}

func TestTracker_AddAndDeleteCategoryPersist(t *testing.T) {
	tr, coord, path := newTestTracker(t)
	cat, err := tr.AddCategory()
	if err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	if cat.Name != "New Category 1" {
		t.Fatalf("new name = %q", cat.Name)
	}
	if _, ok := coord.Get(cat.Name); !ok {
		t.Fatalf("new category has no monitor")
	}
	if _, err := reload(t, path).Category(cat.Name); err != nil {
		t.Fatalf("new category not saved: %v", err)
	}

	if err := tr.DeleteCategory("Player"); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	if _, ok := coord.Get("Player"); ok {
		t.Fatalf("deleted category still monitored")
	}
	if _, err := reload(t, path).Category("Player"); !errors.Is(err, config.ErrUnknownCategory) {
		t.Fatalf("deleted category still saved: %v", err)
	}
	if err := tr.DeleteCategory("Player"); !errors.Is(err, config.ErrUnknownCategory) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestTracker_UpdateRegionReachesMonitorAndFile(t *testing.T) {
	tr, coord, path := newTestTracker(t)
	search := image.Rect(10, 20, 110, 70)
	if err := tr.UpdateRegion("Player", monitor.RegionSearch, search); err != nil {
		t.Fatalf("UpdateRegion search: %v", err)
	}
	anchor := image.Rect(5, 5, 25, 15)
	if err := tr.UpdateRegion("Player", monitor.RegionAnchor, anchor); err != nil {
		t.Fatalf("UpdateRegion anchor: %v", err)
	}
	m, _ := coord.Get("Player")
	if m.SearchRegion() != search || m.AnchorRegion() != anchor {
		t.Fatalf("monitor regions = %v / %v", m.SearchRegion(), m.AnchorRegion())
	}
	saved, err := reload(t, path).Category("Player")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if saved.SearchRegion() != search || saved.AnchorRegion() != anchor {
		t.Fatalf("saved regions = %v / %v", saved.SearchRegion(), saved.AnchorRegion())
	}
	if err := tr.UpdateRegion("Nobody", monitor.RegionSearch, search); !errors.Is(err, config.ErrUnknownCategory) {
		t.Fatalf("unknown category err = %v", err)
	}
	if err := tr.UpdateRegion("Player", "sideways", search); !errors.Is(err, monitor.ErrInvalidRegion) {
		t.Fatalf("bad kind err = %v", err)
	}
}

func TestTracker_ApplySettingsRestartsMonitor(t *testing.T) {
	tr, coord, path := newTestTracker(t)
	before, _ := coord.Get("Player")
	cat, _ := tr.Category("Player")
	cat.SelectedDebuffs = []string{"Root", "Ghost", "Stun"}
	cat.DisplayMode = config.DisplayInvert
	stored, err := tr.ApplySettings("Player", cat)
	if err != nil {
		t.Fatalf("ApplySettings: %v", err)
	}
	if !slices.Equal(stored.SelectedDebuffs, []string{"Root", "Stun"}) {
		t.Fatalf("stored selection = %v", stored.SelectedDebuffs)
	}
	after, ok := coord.Get("Player")
	if !ok || after == before || after.RunID() == before.RunID() {
		t.Fatalf("monitor was not restarted")
	}
	if before.State() != monitor.StateStopped {
		t.Fatalf("old monitor state = %v", before.State())
	}
	names := make([]string, 0, 2)
	for _, d := range after.Markers() {
		names = append(names, d.Name)
	}
	if !slices.Equal(names, []string{"Root", "Stun"}) {
		t.Fatalf("restarted markers = %v", names)
	}
	saved, _ := reload(t, path).Category("Player")
	if saved.DisplayMode != config.DisplayInvert {
		t.Fatalf("display mode not saved: %q", saved.DisplayMode)
	}
}

func TestTracker_IconRefsFallBackToDetectImage(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	refs := tr.IconRefs()
	if refs["Stun"] != "stun_icon.png" || refs["Root"] != "root.png" {
		t.Fatalf("icon refs = %v", refs)
	}
	if names := tr.MarkerNames(); !slices.Equal(names, []string{"Stun", "Root"}) {
		t.Fatalf("marker names = %v", names)
	}
}

func TestTracker_WindowPositionSavedOnRequest(t *testing.T) {
	tr, _, path := newTestTracker(t)
	if err := tr.SetWindowPosition("Player", image.Pt(300, 400)); err != nil {
		t.Fatalf("SetWindowPosition: %v", err)
	}
	if err := tr.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	saved, _ := reload(t, path).Category("Player")
	if saved.WindowX != 300 || saved.WindowY != 400 {
		t.Fatalf("window position = %d,%d", saved.WindowX, saved.WindowY)
	}
}

func TestTracker_ShutdownStopsAndClosesStream(t *testing.T) {
	tr, coord, _ := newTestTracker(t)
	m, _ := coord.Get("Player")
	if err := tr.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if m.State() != monitor.StateStopped {
		t.Fatalf("monitor state = %v", m.State())
	}
	if err := tr.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
	// Drain whatever was buffered; the stream must end.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-tr.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("event stream not closed")
		}
	}
}

func TestLogTransitions_EndsWithStream(t *testing.T) {
	events := make(chan monitor.Event, 2)
	events <- monitor.Event{Category: "Player", Marker: "Stun", Detected: true}
	close(events)
	done := make(chan struct{})
	go func() {
		LogTransitions(context.Background(), events, discardLogger, nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("LogTransitions did not return after close")
	}
}

func TestLogTransitions_EndsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	LogTransitions(ctx, make(chan monitor.Event), discardLogger, nil)
}
