package monitor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	ErrDuplicateCategory = errors.New("duplicate category")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrCoordinatorClosed = errors.New("coordinator closed")
)

// RegionKind selects which rectangle a RegionUpdate replaces.
type RegionKind string

const (
	RegionSearch RegionKind = "search"
	RegionAnchor RegionKind = "anchor"
)

// RegionUpdate is an external request to move one of a category's regions.
type RegionUpdate struct {
	Category string
	Kind     RegionKind
	Rect     image.Rectangle
}

// Info is a point-in-time view of one monitor.
type Info struct {
	Name          string
	State         State
	RunID         string
	SearchRegion  image.Rectangle
	AnchorRegion  image.Rectangle
	AnchorEnabled bool
	Markers       int
	Cycles        uint64
}

// Coordinator owns the running monitors keyed by category name. All methods
// are safe for concurrent use; none of them waits for an in-flight cycle
// except Remove and Close, which stop monitors.
type Coordinator struct {
	deps   Deps
	grace  time.Duration
	logger *slog.Logger

	mu       sync.RWMutex
	monitors map[string]*Monitor
	order    []string
	closed   bool
}

// NewCoordinator returns an empty coordinator. deps are shared by every
// monitor it starts; grace bounds each stop.
func NewCoordinator(deps Deps, grace time.Duration) *Coordinator {
	if grace <= 0 {
		grace = DefaultStopGrace
	}
	return &Coordinator{
		deps:     deps,
		grace:    grace,
		logger:   deps.Logger,
		monitors: make(map[string]*Monitor),
	}
}

// Add starts a monitor for cfg.
func (c *Coordinator) Add(cfg Config) (*Monitor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrCoordinatorClosed
	}
	if _, ok := c.monitors[cfg.Name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateCategory, cfg.Name)
	}
	m, err := New(cfg, c.deps)
	if err != nil {
		return nil, fmt.Errorf("start monitor %q: %w", cfg.Name, err)
	}
	c.monitors[cfg.Name] = m
	c.order = append(c.order, cfg.Name)
	return m, nil
}

// Remove stops the monitor and then unregisters it. While it is stopping the
// name stays taken, so an Add for the same category cannot start a second
// loop next to the old one. A monitor that overruns the grace period is
// logged and abandoned; Remove still succeeds.
func (c *Coordinator) Remove(name string) error {
	m, err := c.lookup(name)
	if err != nil {
		return err
	}
	if !m.Stop(c.grace) && c.logger != nil {
		c.logger.Warn("monitor abandoned after grace period", "category", name, "grace", c.grace)
	}
	c.mu.Lock()
	if c.monitors[name] == m {
		delete(c.monitors, name)
		c.order = removeName(c.order, name)
	}
	c.mu.Unlock()
	return nil
}

// UpdateSearchRegion replaces the search region of a running monitor without
// restarting it.
func (c *Coordinator) UpdateSearchRegion(name string, r image.Rectangle) error {
	m, err := c.lookup(name)
	if err != nil {
		return err
	}
	return m.SetSearchRegion(r)
}

// UpdateAnchorRegion replaces the anchor region of a running monitor without
// restarting it.
func (c *Coordinator) UpdateAnchorRegion(name string, r image.Rectangle) error {
	m, err := c.lookup(name)
	if err != nil {
		return err
	}
	return m.SetAnchorRegion(r)
}

// Apply routes u to the matching update method.
func (c *Coordinator) Apply(u RegionUpdate) error {
	switch u.Kind {
	case RegionSearch:
		return c.UpdateSearchRegion(u.Category, u.Rect)
	case RegionAnchor:
		return c.UpdateAnchorRegion(u.Category, u.Rect)
	default:
		return fmt.Errorf("%w: unknown region kind %q", ErrInvalidRegion, u.Kind)
	}
}

// Get returns the monitor for name.
func (c *Coordinator) Get(name string) (*Monitor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.monitors[name]
	return m, ok
}

// List describes every monitor in insertion order.
func (c *Coordinator) List() []Info {
	c.mu.RLock()
	ms := make([]*Monitor, 0, len(c.order))
	for _, name := range c.order {
		ms = append(ms, c.monitors[name])
	}
	c.mu.RUnlock()

	out := make([]Info, 0, len(ms))
	for _, m := range ms {
		out = append(out, Info{
			Name:          m.Name(),
			State:         m.State(),
			RunID:         m.RunID(),
			SearchRegion:  m.SearchRegion(),
			AnchorRegion:  m.AnchorRegion(),
			AnchorEnabled: m.AnchorEnabled(),
			Markers:       len(m.Markers()),
			Cycles:        m.Cycles(),
		})
	}
	return out
}

// Len returns the number of registered monitors.
func (c *Coordinator) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.monitors)
}

// Close stops every monitor in parallel and rejects further Adds. It returns
// ctx.Err() if ctx ends first; monitors that miss the grace period are
// logged and abandoned.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	ms := make([]*Monitor, 0, len(c.order))
	for _, name := range c.order {
		ms = append(ms, c.monitors[name])
	}
	c.monitors = make(map[string]*Monitor)
	c.order = nil
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, m := range ms {
		g.Go(func() error {
			stopped := make(chan bool, 1)
			go func() { stopped <- m.Stop(c.grace) }()
			select {
			case ok := <-stopped:
				if !ok && c.logger != nil {
					c.logger.Warn("monitor abandoned after grace period", "category", m.Name(), "grace", c.grace)
				}
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	return g.Wait()
}

func (c *Coordinator) lookup(name string) (*Monitor, error) {
	m, ok := c.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	return m, nil
}

func removeName(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
