package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/soocke/debuff-tracker-go/config"
	"github.com/soocke/debuff-tracker-go/domain/monitor"
)

// Tracker owns the settings document and keeps the running monitors in step
// with it. Every edit is applied to the coordinator and then persisted.
// Methods are safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	cfg    *config.Config
	path   string
	coord  *monitor.Coordinator
	bus    *monitor.Bus
	logger *slog.Logger

	shutdown sync.Once
}

func NewTracker(cfg *config.Config, path string, coord *monitor.Coordinator, bus *monitor.Bus, logger *slog.Logger) *Tracker {
	return &Tracker{cfg: cfg, path: path, coord: coord, bus: bus, logger: logger}
}

// Events is the transition stream of every monitor.
func (t *Tracker) Events() <-chan monitor.Event { return t.bus.Events() }

// Start launches a monitor per configured category. A category that fails to
// start is logged and skipped; the joined errors are returned.
func (t *Tracker) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var errs []error
	for _, cat := range t.cfg.Categories {
		if err := t.startLocked(cat); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *Tracker) startLocked(cat config.Category) error {
	if _, err := t.coord.Add(t.cfg.MonitorConfig(cat)); err != nil {
		if t.logger != nil {
			t.logger.Error("category not started", "category", cat.Name, "error", err)
		}
		return err
	}
	return nil
}

// Categories returns copies of the configured categories in order.
func (t *Tracker) Categories() []config.Category {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg.Clone().Categories
}

// Category returns a copy of the category called name.
func (t *Tracker) Category(name string) (config.Category, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cat, err := t.cfg.Category(name)
	if err != nil {
		return config.Category{}, err
	}
	out := *cat
	out.SelectedDebuffs = append([]string(nil), cat.SelectedDebuffs...)
	return out, nil
}

// MarkerNames lists the marker library.
func (t *Tracker) MarkerNames() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.cfg.Markers))
	for _, m := range t.cfg.Markers {
		out = append(out, m.Name)
	}
	return out
}

// IconRefs maps marker names to the image drawn for them. Markers without an
// icon use their detection template.
func (t *Tracker) IconRefs() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]string, len(t.cfg.Markers))
	for _, m := range t.cfg.Markers {
		ref := m.IconImage
		if ref == "" {
			ref = m.DetectImage
		}
		out[m.Name] = ref
	}
	return out
}

// AddCategory creates a default category, starts its monitor and saves.
func (t *Tracker) AddCategory() (config.Category, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cat := t.cfg.AddCategory()
	if err := t.startLocked(cat); err != nil {
		_ = t.cfg.RemoveCategory(cat.Name)
		return config.Category{}, err
	}
	if t.logger != nil {
		t.logger.Info("category added", "category", cat.Name)
	}
	return cat, t.saveLocked()
}

// DeleteCategory stops the category's monitor and removes it from the
// settings.
func (t *Tracker) DeleteCategory(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.cfg.RemoveCategory(name); err != nil {
		return err
	}
	if err := t.coord.Remove(name); err != nil && !errors.Is(err, monitor.ErrUnknownCategory) {
		return err
	}
	if t.logger != nil {
		t.logger.Info("category deleted", "category", name)
	}
	return t.saveLocked()
}

// UpdateRegion moves the search or anchor region of a category. The running
// monitor picks the new rectangle up on its next cycle.
func (t *Tracker) UpdateRegion(name string, kind monitor.RegionKind, r image.Rectangle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cat, err := t.cfg.Category(name)
	if err != nil {
		return err
	}
	if err := t.coord.Apply(monitor.RegionUpdate{Category: name, Kind: kind, Rect: r}); err != nil {
		if !errors.Is(err, monitor.ErrUnknownCategory) {
			return err
		}
		if t.logger != nil {
			t.logger.Warn("region saved for category without a monitor", "category", name, "kind", kind)
		}
	}
	if err := cat.SetRegion(kind, r); err != nil {
		return err
	}
	return t.saveLocked()
}

// ApplySettings replaces the category called prev with updated and restarts
// its monitor so marker, anchor and timing changes take effect. The stored
// (validated) category is returned.
func (t *Tracker) ApplySettings(prev string, updated config.Category) (config.Category, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := -1
	for i := range t.cfg.Categories {
		if t.cfg.Categories[i].Name == prev {
			idx = i
			break
		}
	}
	if idx < 0 {
		return config.Category{}, fmt.Errorf("%w: %q", config.ErrUnknownCategory, prev)
	}
	t.cfg.Categories[idx] = updated
	if verr := t.cfg.Validate(); verr != nil && t.logger != nil {
		t.logger.Warn("category settings repaired", "category", prev, "error", verr)
	}
	out := t.cfg.Categories[idx]
	out.SelectedDebuffs = append([]string(nil), out.SelectedDebuffs...)
	if err := t.coord.Remove(prev); err != nil && !errors.Is(err, monitor.ErrUnknownCategory) {
		return config.Category{}, err
	}
	if err := t.startLocked(out); err != nil {
		return out, err
	}
	return out, t.saveLocked()
}

// SetWindowPosition records where a category's overlay panel sits.
func (t *Tracker) SetWindowPosition(name string, p image.Point) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cat, err := t.cfg.Category(name)
	if err != nil {
		return err
	}
	cat.WindowX, cat.WindowY = p.X, p.Y
	return nil
}

// Save writes the settings document.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

func (t *Tracker) saveLocked() error {
	if t.path == "" {
		return nil
	}
	if err := t.cfg.Save(t.path); err != nil {
		if t.logger != nil {
			t.logger.Error("save settings failed", "path", t.path, "error", err)
		}
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Shutdown stops every monitor in parallel and closes the event stream. Only
// the first call does any work.
func (t *Tracker) Shutdown(ctx context.Context) error {
	var err error
	t.shutdown.Do(func() {
		err = t.coord.Close(ctx)
		t.bus.Close()
		if t.logger != nil {
			if err != nil {
				t.logger.Warn("shutdown incomplete", "error", err, "coalesced_events", t.bus.Coalesced())
			} else {
				t.logger.Info("shutdown complete", "coalesced_events", t.bus.Coalesced())
			}
		}
	})
	return err
}
