package view

import (
	"image"
	"log/slog"

	"github.com/soocke/debuff-tracker-go/ui/model"
	"github.com/soocke/debuff-tracker-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders
	. "modernc.org/tk9.0"
)

// RegionPicker is a see-through, resizable window the user moves over the
// screen area to watch. Confirm reports the window's geometry as the region.
type RegionPicker struct {
	logger    *slog.Logger
	win       *ToplevelWidget
	onConfirm func(image.Rectangle)
}

// minPickerSize keeps a fresh picker grabbable when the current region is
// unset.
const minPickerSize = 40

// OpenRegionPicker shows a picker titled title, initially covering initial
// (or a default box when initial is empty). border colors the frame edges.
func OpenRegionPicker(title string, initial image.Rectangle, border string, logger *slog.Logger, onConfirm func(image.Rectangle)) *RegionPicker {
	p := &RegionPicker{logger: logger, onConfirm: onConfirm}
	win := App.Toplevel(Borderwidth(2), Background(theme.OverlayKey))
	win.WmTitle(title)
	p.win = win
	if initial.Dx() < minPickerSize || initial.Dy() < minPickerSize {
		initial = image.Rect(initial.Min.X, initial.Min.Y, initial.Min.X+200, initial.Min.Y+120)
	}
	WmGeometry(win.Window, model.FormatGeometry(initial))
	WmAttributes(win.Window, "-topmost", 1)
	WmAttributes(win.Window, "-toolwindow", true)
	WmAttributes(win.Window, "-transparentcolor", theme.OverlayKey)
	GridRowConfigure(win.Window, 0, Weight(1))
	GridColumnConfigure(win.Window, 0, Weight(0))
	GridColumnConfigure(win.Window, 1, Weight(1))
	GridColumnConfigure(win.Window, 2, Weight(0))
	left := win.Frame(Width(4), Background(border))
	Grid(left, Row(0), Column(0), Sticky("ns"))
	center := win.Frame(Background(theme.OverlayKey))
	Grid(center, Row(0), Column(1), Sticky("nsew"))
	right := win.Frame(Width(4), Background(border))
	Grid(right, Row(0), Column(2), Sticky("ns"))
	controls := win.Frame()
	Grid(controls, Row(1), Column(0), Columnspan(3), Sticky("we"))
	confirm := win.Button(Txt("Confirm [Enter]"), Command(p.confirm))
	Grid(confirm, In(controls), Row(0), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	clear := win.Button(Txt("Clear"), Command(p.clear))
	Grid(clear, In(controls), Row(0), Column(1), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	cancel := win.Button(Txt("Cancel [Esc]"), Command(p.Close))
	Grid(cancel, In(controls), Row(0), Column(2), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	Bind(win, "<Return>", Command(p.confirm))
	Bind(win, "<Escape>", Command(p.Close))
	return p
}

func (p *RegionPicker) confirm() {
	if p.win == nil {
		return
	}
	geom := WmGeometry(p.win.Window)
	rect, ok := model.ParseGeometry(geom)
	if !ok {
		if p.logger != nil {
			p.logger.Warn("unreadable picker geometry", "geometry", geom)
		}
		return
	}
	p.Close()
	if p.onConfirm != nil {
		p.onConfirm(rect)
	}
}

func (p *RegionPicker) clear() {
	p.Close()
	if p.onConfirm != nil {
		p.onConfirm(image.Rectangle{})
	}
}

// Close destroys the picker without reporting a region.
func (p *RegionPicker) Close() {
	if p != nil && p.win != nil {
		Destroy(p.win)
		p.win = nil
	}
}

