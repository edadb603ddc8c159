// Package marker defines the visual markers a category watches for and the
// optional anchor that gates them.
package marker

import (
	"errors"
	"fmt"
	"image"
	"sort"
)

var (
	ErrEmptyName     = errors.New("marker name is empty")
	ErrDuplicateName = errors.New("duplicate marker name")
)

// Definition describes one marker. It is treated as immutable once handed to
// a Registry.
type Definition struct {
	Name        string
	TemplateRef string
	// IconRef is only used by presentation layers.
	IconRef string
	Enabled bool
	// Priority orders presentation; it never affects detection.
	Priority int
}

// Anchor describes the optional gating marker of a category. When Enabled is
// false the gate always passes.
type Anchor struct {
	Enabled     bool
	TemplateRef string
	Region      image.Rectangle
}

// Active reports whether the anchor participates in detection: it must be
// enabled and have a template reference. An empty region still counts as
// active (and as "anchor lost").
func (a Anchor) Active() bool { return a.Enabled && a.TemplateRef != "" }

// Registry is an ordered, name-unique collection of marker definitions.
type Registry struct {
	defs  []Definition
	index map[string]int
}

// NewRegistry validates defs and keeps their order.
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{defs: make([]Definition, 0, len(defs)), index: make(map[string]int, len(defs))}
	for i, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("%w at index %d", ErrEmptyName, i)
		}
		if _, dup := r.index[d.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, d.Name)
		}
		r.index[d.Name] = len(r.defs)
		r.defs = append(r.defs, d)
	}
	return r, nil
}

// Len returns the number of definitions.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.defs)
}

// All returns a copy of every definition in registry order.
func (r *Registry) All() []Definition {
	if r == nil {
		return nil
	}
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Enabled returns enabled definitions in registry order.
func (r *Registry) Enabled() []Definition {
	if r == nil {
		return nil
	}
	out := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		if d.Enabled {
			out = append(out, d)
		}
	}
	return out
}

// Names returns every name in registry order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.defs))
	for i, d := range r.defs {
		out[i] = d.Name
	}
	return out
}

// Lookup returns the definition called name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	i, ok := r.index[name]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

// ByPriority returns every definition sorted by ascending priority; ties keep
// registry order.
func (r *Registry) ByPriority() []Definition {
	out := r.All()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}
