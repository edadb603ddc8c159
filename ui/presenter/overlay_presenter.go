package presenter

import (
	"log/slog"

	"github.com/soocke/debuff-tracker-go/domain/monitor"
	"github.com/soocke/debuff-tracker-go/ui/model"
)

// DefaultMaxEventsPerTick bounds the work one UI tick spends on draining.
const DefaultMaxEventsPerTick = 512

// OverlayView draws the per-category icon panels.
type OverlayView interface {
	SetPanelVisible(category string, visible bool)
	SetIcons(category string, icons []model.IconState)
}

// OverlayPresenter drains transition events on the UI thread, folds them
// into the category models and pushes the result to the view once per
// changed category per tick.
type OverlayPresenter struct {
	events  <-chan monitor.Event
	view    OverlayView
	logger  *slog.Logger
	models  map[string]*model.CategoryModel
	order   []string
	maxTick int
	closed  bool
}

func NewOverlayPresenter(events <-chan monitor.Event, view OverlayView, logger *slog.Logger) *OverlayPresenter {
	return &OverlayPresenter{
		events:  events,
		view:    view,
		logger:  logger,
		models:  make(map[string]*model.CategoryModel),
		maxTick: DefaultMaxEventsPerTick,
	}
}

// Register adds (or replaces) a category model and draws its initial state.
func (p *OverlayPresenter) Register(m *model.CategoryModel) {
	if p == nil || m == nil {
		return
	}
	if _, ok := p.models[m.Name()]; !ok {
		p.order = append(p.order, m.Name())
	}
	p.models[m.Name()] = m
	p.render(m)
}

// Unregister forgets a category. Late events for it are ignored.
func (p *OverlayPresenter) Unregister(name string) {
	if p == nil {
		return
	}
	delete(p.models, name)
	for i, n := range p.order {
		if n == name {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Model returns the registered model for name.
func (p *OverlayPresenter) Model(name string) (*model.CategoryModel, bool) {
	if p == nil {
		return nil, false
	}
	m, ok := p.models[name]
	return m, ok
}

// Models returns the registered models in registration order.
func (p *OverlayPresenter) Models() []*model.CategoryModel {
	if p == nil {
		return nil
	}
	out := make([]*model.CategoryModel, 0, len(p.order))
	for _, n := range p.order {
		out = append(out, p.models[n])
	}
	return out
}

// Rerender redraws one category, e.g. after its display mode changed.
func (p *OverlayPresenter) Rerender(name string) {
	if m, ok := p.Model(name); ok {
		p.render(m)
	}
}

// Tick drains pending events without blocking and updates the view. It
// returns the number of events consumed.
func (p *OverlayPresenter) Tick() int {
	if p == nil || p.events == nil || p.closed {
		return 0
	}
	dirty := make(map[string]bool)
	n := 0
drain:
	for n < p.maxTick {
		select {
		case e, ok := <-p.events:
			if !ok {
				p.closed = true
				break drain
			}
			n++
			m, known := p.models[e.Category]
			if !known {
				continue
			}
			if m.Apply(e) {
				dirty[e.Category] = true
			}
		default:
			break drain
		}
	}
	for _, name := range p.order {
		if dirty[name] {
			p.render(p.models[name])
		}
	}
	if n > 0 && p.logger != nil {
		p.logger.Debug("overlay tick", "events", n, "dirty", len(dirty))
	}
	return n
}

func (p *OverlayPresenter) render(m *model.CategoryModel) {
	if p.view == nil {
		return
	}
	p.view.SetPanelVisible(m.Name(), m.Visible())
	p.view.SetIcons(m.Name(), m.Icons())
}
