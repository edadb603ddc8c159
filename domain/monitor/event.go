package monitor

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultEventBuffer is the bus capacity used when none is configured.
const DefaultEventBuffer = 256

// Event is one edge-triggered transition. Anchor events leave Marker empty.
// Run identifies the monitor instance that emitted it.
type Event struct {
	Category string
	Run      string
	Marker   string
	Anchor   bool
	Detected bool
	At       time.Time
}

// Subject names what the event is about ("anchor" for anchor events).
func (e Event) Subject() string {
	if e.Anchor {
		return "anchor"
	}
	return e.Marker
}

// Sink receives events from monitor goroutines. Implementations must not
// block.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Bus is a non-blocking hand-off between monitor goroutines and a single
// consumer. Events go straight into a bounded channel while it has room.
// Once it is full they are parked per (category, run, subject), a later
// event replacing the parked one, and a forwarder goroutine moves them into
// the channel as the consumer frees slots. Detection never waits on
// presentation and the consumer always ends up with the latest value of
// every subject.
type Bus struct {
	logger    *slog.Logger
	mu        sync.Mutex
	ch        chan Event
	closed    bool
	pending   map[eventKey]Event
	queue     []eventKey
	inflight  bool // forwarder holds a popped event not yet in ch
	notify    chan struct{}
	quit      chan struct{}
	fwdDone   chan struct{}
	coalesced atomic.Uint64
}

type eventKey struct {
	category, run, subject string
}

func keyOf(e Event) eventKey {
	return eventKey{category: e.Category, run: e.Run, subject: e.Subject()}
}

// NewBus creates a bus whose channel holds up to capacity undelivered
// events.
func NewBus(capacity int, logger *slog.Logger) *Bus {
	if capacity <= 0 {
		capacity = DefaultEventBuffer
	}
	b := &Bus{
		logger:  logger,
		ch:      make(chan Event, capacity),
		pending: make(map[eventKey]Event),
		notify:  make(chan struct{}, 1),
		quit:    make(chan struct{}),
		fwdDone: make(chan struct{}),
	}
	go b.forward()
	return b
}

// Emit implements Sink. It never blocks.
func (b *Bus) Emit(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	// Parked events go first so a subject's events stay in order.
	if len(b.queue) == 0 && !b.inflight {
		select {
		case b.ch <- e:
			return
		default:
		}
	}
	k := keyOf(e)
	if _, ok := b.pending[k]; ok {
		n := b.coalesced.Add(1)
		if b.logger != nil {
			b.logger.Debug("event coalesced", "category", e.Category, "subject", e.Subject(), "detected", e.Detected, "coalesced_total", n)
		}
	} else {
		b.queue = append(b.queue, k)
	}
	b.pending[k] = e
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// forward moves parked events into the channel, blocking on the consumer
// rather than on the monitors.
func (b *Bus) forward() {
	defer close(b.fwdDone)
	for {
		select {
		case <-b.quit:
			return
		case <-b.notify:
		}
		for {
			e, ok := b.next()
			if !ok {
				break
			}
			select {
			case b.ch <- e:
				b.mu.Lock()
				b.inflight = false
				b.mu.Unlock()
			case <-b.quit:
				b.requeue(e)
				return
			}
		}
	}
}

// next pops the oldest parked event.
func (b *Bus) next() (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return Event{}, false
	}
	k := b.queue[0]
	b.queue = b.queue[1:]
	e := b.pending[k]
	delete(b.pending, k)
	b.inflight = true
	return e, true
}

// requeue parks e again at the front unless a newer value arrived.
func (b *Bus) requeue(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inflight = false
	k := keyOf(e)
	if _, ok := b.pending[k]; ok {
		return
	}
	b.pending[k] = e
	b.queue = append([]eventKey{k}, b.queue...)
}

// Events returns the consumer side. It is closed by Close.
func (b *Bus) Events() <-chan Event { return b.ch }

// Coalesced returns how many parked events were replaced by a later event
// for the same subject before delivery.
func (b *Bus) Coalesced() uint64 { return b.coalesced.Load() }

// Pending returns the number of parked events.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Close stops accepting events and closes the consumer channel. Buffered
// events remain readable; parked events are kept while the channel has room.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()
	close(b.quit)
	<-b.fwdDone

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range b.queue {
		select {
		case b.ch <- b.pending[k]:
		default:
			if b.logger != nil {
				b.logger.Warn("event lost at close", "category", k.category, "subject", k.subject)
			}
		}
	}
	b.queue = nil
	clear(b.pending)
	close(b.ch)
}
