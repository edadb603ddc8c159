package model

import (
	"time"
)

// ActivityModel measures how long a category has been active (anchor found
// or ungated) in the current span and in total. The zero value is ready to
// use; it is driven from the UI tick and needs no locking.
type ActivityModel struct {
	active    bool
	spanStart time.Time
	span      time.Duration
	total     time.Duration
}

// NewActivityModel returns a ready-to-use ActivityModel.
func NewActivityModel() *ActivityModel { return &ActivityModel{} }

// OnTick advances the model with the current activity flag.
func (m *ActivityModel) OnTick(active bool, now time.Time) {
	if m == nil {
		return
	}
	switch {
	case active && !m.active:
		m.active = true
		m.spanStart = now
		m.span = 0
	case active:
		m.span = now.Sub(m.spanStart)
	case m.active:
		m.span = now.Sub(m.spanStart)
		m.total += m.span
		m.active = false
	}
}

// Values returns the latest span and the accumulated total, the running span
// included.
func (m *ActivityModel) Values() (span, total time.Duration) {
	if m == nil {
		return 0, 0
	}
	span, total = m.span, m.total
	if m.active {
		total += span
	}
	return
}
