package model

import (
	"testing"
	"time"
)

func TestActivityModel_SpansAccumulate(t *testing.T) {
	m := NewActivityModel()
	base := time.Unix(0, 0)

	m.OnTick(true, base)
	m.OnTick(true, base.Add(5*time.Second))
	span, total := m.Values()
	if span != 5*time.Second || total != 5*time.Second {
		t.Fatalf("running span: span=%v total=%v", span, total)
	}

	m.OnTick(false, base.Add(6*time.Second))
	m.OnTick(false, base.Add(9*time.Second))
	span, total = m.Values()
	if span != 6*time.Second || total != 6*time.Second {
		t.Fatalf("after stop: span=%v total=%v", span, total)
	}

	m.OnTick(true, base.Add(10*time.Second))
	m.OnTick(true, base.Add(12*time.Second))
	span, total = m.Values()
	if span != 2*time.Second || total != 8*time.Second {
		t.Fatalf("second span: span=%v total=%v", span, total)
	}
}

func TestActivityModel_NilSafe(t *testing.T) {
	var m *ActivityModel
	m.OnTick(true, time.Now())
	if s, tot := m.Values(); s != 0 || tot != 0 {
		t.Fatalf("nil model returned %v/%v", s, tot)
	}
}
