package marker

import (
	"errors"
	"image"
	"testing"
)

func TestNewRegistry_KeepsOrderAndFiltersEnabled(t *testing.T) {
	r, err := NewRegistry([]Definition{
		{Name: "Stun", TemplateRef: "stun.png", Enabled: true, Priority: 2},
		{Name: "Root", TemplateRef: "root.png", Enabled: false, Priority: 1},
		{Name: "Silence", TemplateRef: "silence.png", Enabled: true, Priority: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := r.Names()
	if len(names) != 3 || names[0] != "Stun" || names[2] != "Silence" {
		t.Fatalf("unexpected order %v", names)
	}
	enabled := r.Enabled()
	if len(enabled) != 2 || enabled[0].Name != "Stun" || enabled[1].Name != "Silence" {
		t.Fatalf("unexpected enabled set %+v", enabled)
	}
	byPrio := r.ByPriority()
	if byPrio[0].Name != "Root" || byPrio[1].Name != "Silence" || byPrio[2].Name != "Stun" {
		t.Fatalf("unexpected priority order %+v", byPrio)
	}
	if d, ok := r.Lookup("Root"); !ok || d.TemplateRef != "root.png" {
		t.Fatalf("lookup failed: %+v %v", d, ok)
	}
	if _, ok := r.Lookup("Fear"); ok {
		t.Fatalf("unexpected lookup hit")
	}
}

func TestNewRegistry_RejectsBadNames(t *testing.T) {
	if _, err := NewRegistry([]Definition{{Name: ""}}); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if _, err := NewRegistry([]Definition{{Name: "A"}, {Name: "A"}}); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestRegistry_NilSafe(t *testing.T) {
	var r *Registry
	if r.Len() != 0 || r.Enabled() != nil || r.Names() != nil {
		t.Fatalf("nil registry should be empty")
	}
}

func TestAnchor_Active(t *testing.T) {
	if (Anchor{Enabled: true}).Active() {
		t.Fatalf("anchor without template must not be active")
	}
	if (Anchor{TemplateRef: "a.png", Region: image.Rect(0, 0, 5, 5)}).Active() {
		t.Fatalf("disabled anchor must not be active")
	}
	if !(Anchor{Enabled: true, TemplateRef: "a.png"}).Active() {
		t.Fatalf("enabled anchor with template should be active")
	}
}
