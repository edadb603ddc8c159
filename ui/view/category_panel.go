package view

import (
	"log/slog"
	"strings"

	"github.com/soocke/debuff-tracker-go/config"
	"github.com/soocke/debuff-tracker-go/ui/model"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// CategoryPanel is the settings form for one category. It edits a copy of
// the category and hands the result to onApply; persistence and restarting
// the monitor are the caller's job.
type CategoryPanel struct {
	cat     config.Category
	library []string
	logger  *slog.Logger
	onApply func(prev string, updated config.Category)
	win     *ToplevelWidget
	widgets map[string]*TextWidget
}

// OpenCategoryPanel shows the form for cat. library lists the marker names
// that may be selected; it is shown as a hint.
func OpenCategoryPanel(cat config.Category, library []string, logger *slog.Logger, onApply func(prev string, updated config.Category)) *CategoryPanel {
	v := &CategoryPanel{cat: cat, library: library, logger: logger, onApply: onApply, widgets: make(map[string]*TextWidget)}
	v.build()
	return v
}

func (v *CategoryPanel) build() {
	win := App.Toplevel()
	win.WmTitle("Settings: " + v.cat.Name)
	v.win = win
	values := model.FieldValues(v.cat)
	row := 0
	for _, f := range model.CategoryFields {
		lbl := win.Label(Txt(f.Label), Anchor("w"))
		Grid(lbl, Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
		w := win.Text(Height(1), Width(28))
		Grid(w, Row(row), Column(1), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
		w.Delete("1.0", END)
		w.Insert("1.0", values[f.ID])
		v.widgets[f.ID] = w
		row++
	}
	hint := win.Label(Txt("Available: "+strings.Join(v.library, ", ")), Anchor("w"))
	Grid(hint, Row(row), Column(0), Columnspan(2), Sticky("w"), Padx("0.4m"), Pady("0.3m"))
	row++
	apply := win.Button(Txt("Apply"), Command(v.apply))
	Grid(apply, Row(row), Column(0), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	closeBtn := win.Button(Txt("Close"), Command(v.Close))
	Grid(closeBtn, Row(row), Column(1), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	Bind(win, "<Escape>", Command(v.Close))
}

func (v *CategoryPanel) text(w *TextWidget) string {
	if w == nil {
		return ""
	}
	return strings.TrimSpace(strings.Join(w.Get("1.0", END), ""))
}

func (v *CategoryPanel) apply() {
	raw := make(map[string]string, len(v.widgets))
	for id, w := range v.widgets {
		raw[id] = v.text(w)
	}
	updated, rejected := model.ApplyFields(v.cat, raw)
	if len(rejected) > 0 && v.logger != nil {
		v.logger.Warn("ignored invalid category fields", "category", v.cat.Name, "fields", rejected)
	}
	prev := v.cat.Name
	v.cat = updated
	if v.onApply != nil {
		v.onApply(prev, updated)
	}
}

// Close destroys the form.
func (v *CategoryPanel) Close() {
	if v != nil && v.win != nil {
		Destroy(v.win)
		v.win = nil
	}
}

