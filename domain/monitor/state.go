package monitor

// StateTable is the per-monitor record of the last emitted value for every
// marker plus the anchor flag. It is owned by the monitor goroutine and is
// not safe for concurrent use.
type StateTable struct {
	states      map[string]bool
	order       []string // first-evaluation order, for deterministic emission
	anchorFound bool
}

// NewStateTable returns an empty table. Absent markers read as not detected.
func NewStateTable() *StateTable {
	return &StateTable{states: make(map[string]bool)}
}

// Get returns the recorded value and whether the marker was ever evaluated.
func (t *StateTable) Get(name string) (detected, evaluated bool) {
	detected, evaluated = t.states[name]
	return
}

// Set records v for name and reports whether it differs from the previous
// value, counting "never evaluated" as false.
func (t *StateTable) Set(name string, v bool) bool {
	prev, ok := t.states[name]
	if !ok {
		t.order = append(t.order, name)
	}
	t.states[name] = v
	return prev != v
}

// Detected returns the names currently recorded true, in first-evaluation
// order.
func (t *StateTable) Detected() []string {
	var out []string
	for _, name := range t.order {
		if t.states[name] {
			out = append(out, name)
		}
	}
	return out
}

// ClearAll flips every true marker to false and returns the flipped names.
func (t *StateTable) ClearAll() []string {
	cleared := t.Detected()
	for _, name := range cleared {
		t.states[name] = false
	}
	return cleared
}

// Sweep flips to false every true marker absent from seen and returns the
// flipped names.
func (t *StateTable) Sweep(seen map[string]struct{}) []string {
	var cleared []string
	for _, name := range t.order {
		if !t.states[name] {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		t.states[name] = false
		cleared = append(cleared, name)
	}
	return cleared
}

// AnchorFound returns the recorded anchor flag.
func (t *StateTable) AnchorFound() bool { return t.anchorFound }

// SetAnchor records the anchor flag and reports whether it changed.
func (t *StateTable) SetAnchor(found bool) bool {
	if t.anchorFound == found {
		return false
	}
	t.anchorFound = found
	return true
}
