package presenter

import "time"

// Loop drives the presenters from the UI thread's periodic callback.
//
// The zero value is usable (methods are nil-safe).
type Loop struct {
	Overlay  *OverlayPresenter
	Activity *ActivityPresenter
	Schedule func()
}

func NewLoop(overlay *OverlayPresenter, activity *ActivityPresenter, schedule func()) *Loop {
	return &Loop{Overlay: overlay, Activity: activity, Schedule: schedule}
}

func (l *Loop) Tick() {
	if l == nil {
		return
	}
	// Events first so activity timers see this tick's anchor state.
	if l.Overlay != nil {
		l.Overlay.Tick()
	}
	if l.Activity != nil {
		l.Activity.Tick(time.Now())
	}
	if l.Schedule != nil {
		l.Schedule()
	}
}
