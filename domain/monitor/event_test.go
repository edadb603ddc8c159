package monitor

import (
	"image"
	"testing"
	"time"
)

func TestBus_EmitNeverBlocksWhenFull(t *testing.T) {
	b := NewBus(2, discardLogger)
	defer b.Close()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Emit(Event{Category: "Player", Marker: "A", Detected: i%2 == 0})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Emit blocked on a full bus")
	}
	if b.Pending() > 1 {
		t.Fatalf("Pending = %d, one subject must park at most one event", b.Pending())
	}
}

func TestBus_FullBufferStillDeliversLatestValue(t *testing.T) {
	b := NewBus(1, discardLogger)
	defer b.Close()
	b.Emit(Event{Category: "Player", Run: "r1", Marker: "Stun", Detected: true})
	b.Emit(Event{Category: "Player", Run: "r1", Marker: "Root", Detected: true})
	b.Emit(Event{Category: "Player", Run: "r1", Marker: "Silence", Detected: true})
	b.Emit(Event{Category: "Player", Run: "r1", Marker: "Silence", Detected: false})
	b.Emit(Event{Category: "Player", Run: "r1", Marker: "Silence", Detected: true})

	last := make(map[string]bool)
	var order []string
	deadline := time.After(2 * time.Second)
	for len(last) < 3 {
		select {
		case e := <-b.Events():
			last[e.Subject()] = e.Detected
			order = append(order, e.Subject())
		case <-deadline:
			t.Fatalf("undelivered subjects; got %v", order)
		}
	}
	for _, name := range []string{"Stun", "Root", "Silence"} {
		if !last[name] {
			t.Errorf("%s last value = false, want true (order %v)", name, order)
		}
	}
	if order[0] != "Stun" || order[1] != "Root" {
		t.Fatalf("delivery order = %v", order)
	}
	if b.Coalesced() != 2 {
		t.Fatalf("Coalesced = %d, want 2", b.Coalesced())
	}
}

func TestBus_CycleAfterOverflowReachesConsumer(t *testing.T) {
	f := newFakeScreen()
	f.addTemplate("Stun.png")
	f.addTemplate("Root.png")
	f.scores["Stun.png"] = 0.9
	f.scores["Root.png"] = 0.9
	b := NewBus(1, discardLogger)
	defer b.Close()
	m, err := newMonitor(Config{Name: "Player", SearchRegion: image.Rect(0, 0, 20, 20), Markers: defs("Stun", "Root")}, testDeps(f, b))
	if err != nil {
		t.Fatalf("newMonitor: %v", err)
	}
	m.cycle()
	m.cycle()

	got := make(map[string]bool)
	deadline := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case e := <-b.Events():
			got[e.Subject()] = e.Detected
		case <-deadline:
			t.Fatalf("delivered %v, want Stun and Root", got)
		}
	}
	if !got["Stun"] || !got["Root"] {
		t.Fatalf("delivered %v", got)
	}
}

func TestBus_CloseKeepsBufferedEvents(t *testing.T) {
	b := NewBus(0, nil)
	if cap(b.ch) != DefaultEventBuffer {
		t.Fatalf("capacity = %d, want %d", cap(b.ch), DefaultEventBuffer)
	}
	b.Emit(Event{Anchor: true, Detected: true})
	b.Close()
	b.Close()
	b.Emit(Event{Marker: "late"})

	var got []Event
	for e := range b.Events() {
		got = append(got, e)
	}
	if len(got) != 1 || got[0].Subject() != "anchor" {
		t.Fatalf("drained %+v, want the single anchor event", got)
	}
	if b.Coalesced() != 0 {
		t.Fatalf("emit after close should not be parked")
	}
}

func TestSinkFunc(t *testing.T) {
	var seen Event
	var s Sink = SinkFunc(func(e Event) { seen = e })
	s.Emit(Event{Marker: "Stun", Detected: true})
	if seen.Subject() != "Stun" || !seen.Detected {
		t.Fatalf("SinkFunc delivered %+v", seen)
	}
}
