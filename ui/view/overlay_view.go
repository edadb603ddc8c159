package view

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/soocke/debuff-tracker-go/config"
	"github.com/soocke/debuff-tracker-go/ui/images"
	"github.com/soocke/debuff-tracker-go/ui/model"
	"github.com/soocke/debuff-tracker-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// OverlayView owns one borderless, always-on-top panel per category. Icons
// are drawn on the transparent key color, so only the icons stay visible.
// All methods must run on the Tk thread.
type OverlayView struct {
	logger *slog.Logger
	dir    string
	panels map[string]*overlayPanel
}

type overlayPanel struct {
	win     *ToplevelWidget
	layout  string
	icons   *images.IconSet
	photos  map[string]*Img // keyed by icon ref and opacity
	labels  []*LabelWidget
	visible bool
}

// NewOverlayView loads icons from assetsDir.
func NewOverlayView(assetsDir string, logger *slog.Logger) *OverlayView {
	return &OverlayView{logger: logger, dir: assetsDir, panels: make(map[string]*overlayPanel)}
}

// AddPanel creates the panel for cat at its saved window position. An
// existing panel with the same name is replaced.
func (v *OverlayView) AddPanel(cat config.Category) {
	if v == nil {
		return
	}
	v.RemovePanel(cat.Name)
	win := App.Toplevel(Borderwidth(0), Background(theme.OverlayKey))
	win.WmTitle(cat.Name)
	WmGeometry(win.Window, fmt.Sprintf("+%d+%d", cat.WindowX, cat.WindowY))
	WmAttributes(win.Window, "-topmost", 1)
	WmAttributes(win.Window, "-toolwindow", true)
	WmAttributes(win.Window, "-transparentcolor", theme.OverlayKey)
	v.panels[cat.Name] = &overlayPanel{
		win:     win,
		layout:  cat.Layout,
		icons:   images.NewIconSet(v.dir, cat.IconSize, colorNRGBA(theme.PlaceholderRGB)),
		photos:  make(map[string]*Img),
		visible: true,
	}
}

// RemovePanel destroys the panel and its photos.
func (v *OverlayView) RemovePanel(name string) {
	if v == nil {
		return
	}
	p, ok := v.panels[name]
	if !ok {
		return
	}
	delete(v.panels, name)
	p.clearLabels()
	for _, ph := range p.photos {
		ph.Delete()
	}
	Destroy(p.win)
}

// Position reports where the panel currently sits on screen.
func (v *OverlayView) Position(name string) (image.Point, bool) {
	p, ok := v.panels[name]
	if !ok {
		return image.Point{}, false
	}
	return model.ParsePosition(WmGeometry(p.win.Window))
}

// SetPanelVisible implements presenter.OverlayView.
func (v *OverlayView) SetPanelVisible(name string, visible bool) {
	p, ok := v.panels[name]
	if !ok || p.visible == visible {
		return
	}
	p.visible = visible
	alpha := 0.0
	if visible {
		alpha = 1.0
	}
	WmAttributes(p.win.Window, "-alpha", alpha)
}

// SetIcons implements presenter.OverlayView. Only shown icons get a label;
// the panel shrinks to fit them.
func (v *OverlayView) SetIcons(name string, icons []model.IconState) {
	p, ok := v.panels[name]
	if !ok {
		return
	}
	p.clearLabels()
	slot := 0
	for _, ic := range icons {
		if !ic.Shown {
			continue
		}
		photo := v.photo(p, ic)
		lbl := p.win.Label(Image(photo), Background(theme.OverlayKey), Borderwidth(0))
		if p.layout == config.LayoutHorizontal {
			Grid(lbl, Row(0), Column(slot), Padx("0.2m"), Pady("0.2m"))
		} else {
			Grid(lbl, Row(slot), Column(0), Padx("0.2m"), Pady("0.2m"))
		}
		p.labels = append(p.labels, lbl)
		slot++
	}
}

func (v *OverlayView) photo(p *overlayPanel, ic model.IconState) *Img {
	key := fmt.Sprintf("%s@%.2f", ic.IconRef, ic.Opacity)
	if ph, ok := p.photos[key]; ok {
		return ph
	}
	img, err := p.icons.Get(ic.IconRef)
	if err != nil && v.logger != nil {
		v.logger.Debug("icon placeholder used", "marker", ic.Marker, "error", err)
	}
	var src image.Image = img
	if ic.Opacity < 1 {
		src = images.WithOpacity(img, ic.Opacity)
	}
	ph := NewPhoto(Data(images.EncodePNG(src)))
	p.photos[key] = ph
	return ph
}

func (p *overlayPanel) clearLabels() {
	for _, l := range p.labels {
		Destroy(l)
	}
	p.labels = p.labels[:0]
}

func colorNRGBA(rgb [3]uint8) color.NRGBA {
	return color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
}
