// Package gui is the Tk front end: a control window plus one overlay panel
// per category, fed by the monitors' transition stream.
package gui

import (
	"context"
	"image"
	"log/slog"
	"time"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"

	"github.com/soocke/debuff-tracker-go/app"
	"github.com/soocke/debuff-tracker-go/config"
	"github.com/soocke/debuff-tracker-go/domain/monitor"
	"github.com/soocke/debuff-tracker-go/ui/model"
	"github.com/soocke/debuff-tracker-go/ui/presenter"
	"github.com/soocke/debuff-tracker-go/ui/theme"
	"github.com/soocke/debuff-tracker-go/ui/view"
)

const tick = 100 * time.Millisecond

type gui struct {
	ctx     context.Context
	c       *app.Container
	tracker *app.Tracker
	logger  *slog.Logger

	root     *view.RootView
	overlay  *view.OverlayView
	overlayP *presenter.OverlayPresenter
	loop     *presenter.Loop

	picker  *view.RegionPicker
	panel   *view.CategoryPanel
	afterID string
	exiting bool
}

// Run shows the windows, starts every monitor and blocks in the Tk event
// loop until the user exits or ctx ends. Monitors are then stopped, each
// within grace.
func Run(ctx context.Context, c *app.Container, title string, grace time.Duration) error {
	g := &gui{ctx: ctx, c: c, tracker: c.Tracker, logger: c.Logger}
	theme.InitStyles()

	g.root = view.NewRootView(c.Logger)
	g.overlay = view.NewOverlayView(c.Config.AssetsDir, c.Logger)
	g.overlayP = presenter.NewOverlayPresenter(g.tracker.Events(), g.overlay, c.Logger)
	activity := presenter.NewActivityPresenter(g.overlayP, g.root)
	g.loop = presenter.NewLoop(g.overlayP, activity, g.schedule)

	if err := g.tracker.Start(); err != nil && g.logger != nil {
		g.logger.Warn("some categories failed to start", "error", err)
	}
	for _, cat := range g.tracker.Categories() {
		g.addPanel(cat)
	}
	g.root.Build(title, view.RootHandlers{
		AddCategory:    g.addCategory,
		DeleteCategory: g.deleteCategory,
		PickSearch:     func(name string) { g.pickRegion(name, monitor.RegionSearch) },
		PickAnchor:     func(name string) { g.pickRegion(name, monitor.RegionAnchor) },
		OpenSettings:   g.openSettings,
		ToggleTheme:    func() { theme.ToggleDark() },
		Exit:           g.exit,
	})
	g.refreshRows()
	g.schedule()
	App.Wait()

	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return g.tracker.Shutdown(sctx)
}

func (g *gui) schedule() {
	if g.exiting {
		return
	}
	if g.ctx.Err() != nil {
		if g.logger != nil {
			g.logger.Info("shutdown requested")
		}
		g.exit()
		return
	}
	g.afterID = TclAfter(tick, g.loop.Tick)
}

func (g *gui) addPanel(cat config.Category) {
	g.overlay.AddPanel(cat)
	m := model.NewCategoryModel(cat, g.tracker.IconRefs())
	if mon, ok := g.c.Coordinator.Get(cat.Name); ok {
		m.SetRun(mon.RunID())
	}
	g.overlayP.Register(m)
}

func (g *gui) removePanel(name string) {
	g.overlayP.Unregister(name)
	g.overlay.RemovePanel(name)
}

func (g *gui) refreshRows() {
	cats := g.tracker.Categories()
	names := make([]string, 0, len(cats))
	for _, cat := range cats {
		names = append(names, cat.Name)
	}
	g.root.SetCategories(names)
}

func (g *gui) addCategory() {
	cat, err := g.tracker.AddCategory()
	if err != nil {
		g.fail("add category", err)
		if cat.Name == "" {
			return
		}
	}
	g.addPanel(cat)
	g.refreshRows()
}

func (g *gui) deleteCategory(name string) {
	if err := g.tracker.DeleteCategory(name); err != nil {
		g.fail("delete category", err)
	}
	g.removePanel(name)
	g.refreshRows()
}

func (g *gui) pickRegion(name string, kind monitor.RegionKind) {
	cat, err := g.tracker.Category(name)
	if err != nil {
		g.fail("pick region", err)
		return
	}
	initial, border, title := cat.SearchRegion(), theme.RegionSearch, "Search Region: "
	if kind == monitor.RegionAnchor {
		initial, border, title = cat.AnchorRegion(), theme.RegionAnchor, "Anchor Region: "
	}
	g.picker.Close()
	g.picker = view.OpenRegionPicker(title+name, initial, border, g.logger, func(r image.Rectangle) {
		if err := g.tracker.UpdateRegion(name, kind, r); err != nil {
			g.fail("update region", err)
		}
	})
}

func (g *gui) openSettings(name string) {
	cat, err := g.tracker.Category(name)
	if err != nil {
		g.fail("open settings", err)
		return
	}
	g.panel.Close()
	g.panel = view.OpenCategoryPanel(cat, g.tracker.MarkerNames(), g.logger, g.applySettings)
}

func (g *gui) applySettings(prev string, updated config.Category) {
	// Keep the panel where the user dragged it.
	if p, ok := g.overlay.Position(prev); ok {
		updated.WindowX, updated.WindowY = p.X, p.Y
	}
	stored, err := g.tracker.ApplySettings(prev, updated)
	if err != nil {
		g.fail("apply settings", err)
		if stored.Name == "" {
			return
		}
	}
	g.removePanel(prev)
	g.addPanel(stored)
	g.refreshRows()
}

func (g *gui) savePositions() {
	for _, cat := range g.tracker.Categories() {
		if p, ok := g.overlay.Position(cat.Name); ok {
			_ = g.tracker.SetWindowPosition(cat.Name, p)
		}
	}
	if err := g.tracker.Save(); err != nil {
		g.fail("save settings", err)
	}
}

func (g *gui) exit() {
	if g.exiting {
		return
	}
	g.exiting = true
	if g.afterID != "" {
		TclAfterCancel(g.afterID)
	}
	g.savePositions()
	g.picker.Close()
	g.panel.Close()
	Destroy(App)
}

func (g *gui) fail(op string, err error) {
	if g.logger != nil {
		g.logger.Error(op+" failed", "error", err)
	}
}
