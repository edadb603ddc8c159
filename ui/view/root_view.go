package view

import (
	"fmt"
	"log/slog"
	"time"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// RootHandlers are the user actions the control window can trigger.
type RootHandlers struct {
	AddCategory    func()
	DeleteCategory func(name string)
	PickSearch     func(name string)
	PickAnchor     func(name string)
	OpenSettings   func(name string)
	ToggleTheme    func()
	Exit           func()
}

// RootView is the control window: one row per category with its activity
// timer and actions, plus global buttons.
type RootView struct {
	logger   *slog.Logger
	handlers RootHandlers

	list     *FrameWidget
	rows     []*Window
	activity map[string]*LabelWidget
}

func NewRootView(logger *slog.Logger) *RootView {
	return &RootView{logger: logger, activity: make(map[string]*LabelWidget)}
}

// Build lays out the static part of the window.
func (rv *RootView) Build(title string, h RootHandlers) {
	if rv == nil {
		return
	}
	rv.handlers = h
	App.WmTitle(title)
	header := Label(Txt("Categories"), Anchor("w"))
	Grid(header, Row(0), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.3m"))

	rv.list = Frame()
	Grid(rv.list, Row(1), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))

	btnFrame := Frame()
	Grid(btnFrame, Row(2), Column(0), Columnspan(2), Sticky("we"), Padx("0.3m"), Pady("0.3m"))
	add := Button(Txt("Add Category"), Command(h.AddCategory))
	Grid(add, In(btnFrame), Row(0), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	dark := Button(Txt("Toggle Theme"), Command(h.ToggleTheme))
	Grid(dark, In(btnFrame), Row(0), Column(1), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	exit := Button(Txt("Exit"), Command(h.Exit))
	Grid(exit, In(btnFrame), Row(0), Column(2), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	WmProtocol(App, "WM_DELETE_WINDOW", h.Exit)
}

// SetCategories rebuilds the category rows.
func (rv *RootView) SetCategories(names []string) {
	if rv == nil || rv.list == nil {
		return
	}
	for _, w := range rv.rows {
		Destroy(w)
	}
	rv.rows = rv.rows[:0]
	rv.activity = make(map[string]*LabelWidget, len(names))
	h := rv.handlers
	for i, name := range names {
		lbl := Label(Txt(name), Anchor("w"), Width(18))
		Grid(lbl, In(rv.list), Row(i), Column(0), Sticky("w"), Padx("0.2m"))
		act := Label(Txt("--:--"), Width(14))
		Grid(act, In(rv.list), Row(i), Column(1), Sticky("w"), Padx("0.2m"))
		search := Button(Txt("Search Region"), Command(func() { h.PickSearch(name) }))
		Grid(search, In(rv.list), Row(i), Column(2), Padx("0.2m"), Pady("0.1m"))
		anchor := Button(Txt("Anchor Region"), Command(func() { h.PickAnchor(name) }))
		Grid(anchor, In(rv.list), Row(i), Column(3), Padx("0.2m"), Pady("0.1m"))
		settings := Button(Txt("Settings"), Command(func() { h.OpenSettings(name) }))
		Grid(settings, In(rv.list), Row(i), Column(4), Padx("0.2m"), Pady("0.1m"))
		del := Button(Txt("Delete"), Command(func() { h.DeleteCategory(name) }))
		Grid(del, In(rv.list), Row(i), Column(5), Padx("0.2m"), Pady("0.1m"))
		rv.activity[name] = act
		rv.rows = append(rv.rows, lbl.Window, act.Window, search.Window, anchor.Window, settings.Window, del.Window)
	}
}

// SetActivity implements presenter.ActivityView.
func (rv *RootView) SetActivity(category string, span, total time.Duration) {
	if rv == nil {
		return
	}
	if lbl := rv.activity[category]; lbl != nil {
		lbl.Configure(Txt(fmt.Sprintf("%s / %s", clock(span), clock(total))))
	}
}

func clock(d time.Duration) string {
	s := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}
