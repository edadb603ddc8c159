// Package monitor runs the per-category detection loops and the coordinator
// that owns them.
package monitor

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/soocke/debuff-tracker-go/domain/capture"
	"github.com/soocke/debuff-tracker-go/domain/marker"
	"github.com/soocke/debuff-tracker-go/domain/match"
)

const (
	DefaultCycleInterval  = 250 * time.Millisecond
	DefaultMatchThreshold = 0.8
	DefaultRetryDelay     = 500 * time.Millisecond
	DefaultErrorBackoff   = time.Second
	DefaultStopGrace      = 1500 * time.Millisecond
)

var (
	ErrInvalidRegion = errors.New("invalid region")
	ErrInvalidConfig = errors.New("invalid monitor config")
)

// State enumerates the monitor lifecycle. Stopped is terminal.
type State int32

const (
	StateRunning State = iota
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config describes one category. Regions are absolute screen coordinates; an
// empty rectangle means unset.
type Config struct {
	Name           string
	SearchRegion   image.Rectangle
	Anchor         marker.Anchor
	Markers        []marker.Definition
	CycleInterval  time.Duration
	MatchThreshold float64
}

// Timing holds the delays used outside the normal cycle interval.
type Timing struct {
	RetryDelay   time.Duration // empty search region or failed capture
	ErrorBackoff time.Duration // after a recovered panic
}

func (t Timing) withDefaults() Timing {
	if t.RetryDelay <= 0 {
		t.RetryDelay = DefaultRetryDelay
	}
	if t.ErrorBackoff <= 0 {
		t.ErrorBackoff = DefaultErrorBackoff
	}
	return t
}

// Deps are the collaborators shared by every monitor.
type Deps struct {
	Source    capture.Source
	Matcher   match.Matcher
	Templates match.TemplateLoader
	Sink      Sink
	Logger    *slog.Logger
	Timing    Timing
}

// Monitor watches one category. Its goroutine owns the StateTable; only the
// two regions are shared with other goroutines, each behind its own mutex
// that is held just long enough to copy the rectangle.
type Monitor struct {
	name      string
	anchor    marker.Anchor
	registry  *marker.Registry
	interval  time.Duration
	threshold float64
	deps      Deps
	logger    *slog.Logger
	runID     string

	searchMu     sync.Mutex
	searchRegion image.Rectangle
	anchorMu     sync.Mutex
	anchorRegion image.Rectangle

	state    atomic.Int32
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	cycles   atomic.Uint64

	// Loop-owned.
	table  *StateTable
	warned map[string]bool
}

// New validates cfg and starts the monitor goroutine. The returned monitor
// is already Running.
func New(cfg Config, deps Deps) (*Monitor, error) {
	m, err := newMonitor(cfg, deps)
	if err != nil {
		return nil, err
	}
	go m.run()
	return m, nil
}

func newMonitor(cfg Config, deps Deps) (*Monitor, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: empty category name", ErrInvalidConfig)
	}
	if deps.Source == nil || deps.Matcher == nil || deps.Templates == nil {
		return nil, fmt.Errorf("%w: source, matcher and templates are required", ErrInvalidConfig)
	}
	if err := validRegion(cfg.SearchRegion); err != nil {
		return nil, err
	}
	if err := validRegion(cfg.Anchor.Region); err != nil {
		return nil, err
	}
	reg, err := marker.NewRegistry(cfg.Markers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.CycleInterval <= 0 {
		cfg.CycleInterval = DefaultCycleInterval
	}
	if cfg.MatchThreshold <= 0 || cfg.MatchThreshold > 1 {
		cfg.MatchThreshold = DefaultMatchThreshold
	}
	deps.Timing = deps.Timing.withDefaults()
	runID := uuid.NewString()
	logger := deps.Logger
	if logger != nil {
		logger = logger.With("category", cfg.Name, "run", runID)
	}
	m := &Monitor{
		name:         cfg.Name,
		anchor:       cfg.Anchor,
		registry:     reg,
		interval:     cfg.CycleInterval,
		threshold:    cfg.MatchThreshold,
		deps:         deps,
		logger:       logger,
		runID:        runID,
		searchRegion: normRegion(cfg.SearchRegion),
		anchorRegion: normRegion(cfg.Anchor.Region),
		stopCh:       make(chan struct{}),
		done:         make(chan struct{}),
		table:        NewStateTable(),
		warned:       make(map[string]bool),
	}
	m.anchor.Region = image.Rectangle{}
	return m, nil
}

// Name returns the category name.
func (m *Monitor) Name() string { return m.name }

// RunID identifies this monitor instance in logs.
func (m *Monitor) RunID() string { return m.runID }

// State returns the lifecycle state.
func (m *Monitor) State() State { return State(m.state.Load()) }

// Cycles returns the number of completed cycles.
func (m *Monitor) Cycles() uint64 { return m.cycles.Load() }

// Done is closed once the loop has exited.
func (m *Monitor) Done() <-chan struct{} { return m.done }

// Markers returns the category's marker definitions in registry order.
func (m *Monitor) Markers() []marker.Definition { return m.registry.All() }

// AnchorEnabled reports whether anchor gating is active for this category.
func (m *Monitor) AnchorEnabled() bool { return m.anchor.Active() }

// SearchRegion returns a copy of the current search region.
func (m *Monitor) SearchRegion() image.Rectangle {
	m.searchMu.Lock()
	defer m.searchMu.Unlock()
	return m.searchRegion
}

// SetSearchRegion replaces the search region. The running cycle keeps the
// copy it already took; the next cycle sees r.
func (m *Monitor) SetSearchRegion(r image.Rectangle) error {
	if err := validRegion(r); err != nil {
		return err
	}
	m.searchMu.Lock()
	m.searchRegion = normRegion(r)
	m.searchMu.Unlock()
	if m.logger != nil {
		m.logger.Info("search region updated", "region", r)
	}
	return nil
}

// AnchorRegion returns a copy of the current anchor region.
func (m *Monitor) AnchorRegion() image.Rectangle {
	m.anchorMu.Lock()
	defer m.anchorMu.Unlock()
	return m.anchorRegion
}

// SetAnchorRegion replaces the anchor region with the same guarantees as
// SetSearchRegion.
func (m *Monitor) SetAnchorRegion(r image.Rectangle) error {
	if err := validRegion(r); err != nil {
		return err
	}
	m.anchorMu.Lock()
	m.anchorRegion = normRegion(r)
	m.anchorMu.Unlock()
	if m.logger != nil {
		m.logger.Info("anchor region updated", "region", r)
	}
	return nil
}

// Stop requests cooperative cancellation and waits up to grace for the loop
// to exit. It returns false when the loop is still inside a cycle after the
// grace period; the monitor is then abandoned, not killed, and finishes on
// its own at the next cycle boundary.
func (m *Monitor) Stop(grace time.Duration) bool {
	m.stopOnce.Do(func() {
		m.state.CompareAndSwap(int32(StateRunning), int32(StateStopping))
		close(m.stopCh)
	})
	if grace <= 0 {
		grace = DefaultStopGrace
	}
	t := time.NewTimer(grace)
	defer t.Stop()
	select {
	case <-m.done:
		return true
	case <-t.C:
		if m.logger != nil {
			m.logger.Warn("monitor did not exit cleanly", "grace", grace)
		}
		return false
	}
}

func (m *Monitor) run() {
	defer close(m.done)
	defer m.state.Store(int32(StateStopped))
	if m.logger != nil {
		m.logger.Info("monitor started", "markers", m.registry.Len(), "anchor", m.anchor.Active())
		defer m.logger.Info("monitor stopped", "cycles", m.cycles.Load())
	}
	for {
		select {
		case <-m.stopCh:
			return
		default:
		}
		delay := m.safeCycle()
		m.cycles.Add(1)
		t := time.NewTimer(delay)
		select {
		case <-m.stopCh:
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// safeCycle runs one cycle and converts a panic into a logged error and the
// long backoff. The loop never ends because of a cycle failure.
func (m *Monitor) safeCycle() (delay time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			if m.logger != nil {
				m.logger.Error("detection cycle panic", "error", r, "stack", string(debug.Stack()))
			}
			delay = m.deps.Timing.ErrorBackoff
		}
	}()
	return m.cycle()
}

// cycle performs the anchor phase, the gate and the marker phase, and
// returns how long to sleep before the next one.
func (m *Monitor) cycle() time.Duration {
	if !m.anchorPhase() {
		m.clearAll()
		return m.interval
	}

	region := m.SearchRegion()
	if region.Empty() {
		return m.deps.Timing.RetryDelay
	}
	buf, err := m.deps.Source.Capture(region)
	if err != nil {
		if m.logger != nil {
			m.logger.Warn("search capture failed", "region", region, "error", err)
		}
		m.clearAll()
		return m.deps.Timing.RetryDelay
	}

	seen := make(map[string]struct{})
	for _, def := range m.registry.Enabled() {
		detected, ok := m.evaluate(def, buf)
		if !ok {
			continue
		}
		if detected {
			seen[def.Name] = struct{}{}
		}
		if m.table.Set(def.Name, detected) {
			m.emit(Event{Marker: def.Name, Detected: detected})
		}
	}
	for _, name := range m.table.Sweep(seen) {
		m.emit(Event{Marker: name, Detected: false})
	}
	return m.interval
}

// anchorPhase updates the anchor flag and reports whether marker evaluation
// may run. Every failure counts as "anchor lost".
func (m *Monitor) anchorPhase() bool {
	if !m.anchor.Active() {
		return true
	}
	region := m.AnchorRegion()
	if region.Empty() {
		m.setAnchor(false)
		return false
	}
	buf, err := m.deps.Source.Capture(region)
	if err != nil {
		if m.logger != nil {
			m.logger.Warn("anchor capture failed", "region", region, "error", err)
		}
		m.setAnchor(false)
		return false
	}
	tmpl, err := m.deps.Templates.Load(m.anchor.TemplateRef)
	if err != nil {
		m.warnOnce("anchor:template", "anchor template unavailable", "template", m.anchor.TemplateRef, "error", err)
		m.setAnchor(false)
		return false
	}
	score, err := m.deps.Matcher.Match(buf, tmpl)
	if err != nil {
		m.warnOnce("anchor:match", "anchor match failed", "template", m.anchor.TemplateRef, "error", err)
		m.setAnchor(false)
		return false
	}
	m.resetWarn("anchor:template", "anchor:match")
	m.setAnchor(match.Detected(score, m.threshold))
	return m.table.AnchorFound()
}

// evaluate matches one marker against buf. ok is false when the marker has
// to be skipped this cycle (template missing or larger than the region).
func (m *Monitor) evaluate(def marker.Definition, buf *image.Gray) (detected, ok bool) {
	tmpl, err := m.deps.Templates.Load(def.TemplateRef)
	if err != nil {
		m.warnOnce(def.Name+":template", "marker template unavailable", "marker", def.Name, "template", def.TemplateRef, "error", err)
		return false, false
	}
	score, err := m.deps.Matcher.Match(buf, tmpl)
	switch {
	case errors.Is(err, match.ErrTemplateTooLarge):
		m.warnOnce(def.Name+":size", "marker template larger than search region", "marker", def.Name, "error", err)
		return false, false
	case err != nil:
		m.warnOnce(def.Name+":match", "marker match failed", "marker", def.Name, "error", err)
		return false, true
	}
	m.resetWarn(def.Name+":template", def.Name+":size", def.Name+":match")
	return match.Detected(score, m.threshold), true
}

func (m *Monitor) setAnchor(found bool) {
	if m.table.SetAnchor(found) {
		m.emit(Event{Anchor: true, Detected: found})
	}
}

func (m *Monitor) clearAll() {
	for _, name := range m.table.ClearAll() {
		m.emit(Event{Marker: name, Detected: false})
	}
}

func (m *Monitor) emit(e Event) {
	e.Category = m.name
	e.Run = m.runID
	e.At = time.Now()
	if m.logger != nil {
		m.logger.Debug("transition", "subject", e.Subject(), "detected", e.Detected)
	}
	if m.deps.Sink != nil {
		m.deps.Sink.Emit(e)
	}
}

// warnOnce logs at warn level the first time key fires and at debug level
// afterwards, so a persistent misconfiguration does not flood the log every
// cycle.
func (m *Monitor) warnOnce(key, msg string, args ...any) {
	if m.logger == nil {
		return
	}
	if m.warned[key] {
		m.logger.Debug(msg, args...)
		return
	}
	m.warned[key] = true
	m.logger.Warn(msg, args...)
}

func (m *Monitor) resetWarn(keys ...string) {
	for _, k := range keys {
		delete(m.warned, k)
	}
}

func validRegion(r image.Rectangle) error {
	if r.Dx() < 0 || r.Dy() < 0 {
		return fmt.Errorf("%w: %v has negative size", ErrInvalidRegion, r)
	}
	return nil
}

// normRegion collapses every empty rectangle to the zero value.
func normRegion(r image.Rectangle) image.Rectangle {
	if r.Empty() {
		return image.Rectangle{}
	}
	return r
}
