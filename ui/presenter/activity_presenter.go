package presenter

import (
	"time"
)

// ActivityView displays how long each category has been active.
type ActivityView interface {
	SetActivity(category string, span, total time.Duration)
}

// ActivityPresenter advances every category's activity timer from the
// overlay models and forwards the values to the view.
type ActivityPresenter struct {
	overlay *OverlayPresenter
	view    ActivityView
}

func NewActivityPresenter(overlay *OverlayPresenter, view ActivityView) *ActivityPresenter {
	return &ActivityPresenter{overlay: overlay, view: view}
}

// Tick samples each model's Active flag at now.
func (p *ActivityPresenter) Tick(now time.Time) {
	if p == nil || p.overlay == nil || p.view == nil {
		return
	}
	for _, m := range p.overlay.Models() {
		m.Activity.OnTick(m.Active(), now)
		span, total := m.Activity.Values()
		p.view.SetActivity(m.Name(), span, total)
	}
}
