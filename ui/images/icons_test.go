package images

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestFitIcon_PreservesAspect(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 50))
	got := FitIcon(src, 48)
	if b := got.Bounds(); b.Dx() != 48 || b.Dy() != 24 {
		t.Fatalf("fitted to %v, want 48x24", b.Size())
	}
}

func TestWithOpacity_ScalesAlphaOnly(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 100})
	got := WithOpacity(src, 0.5)
	if c := got.NRGBAAt(0, 0); c.A != 128 || c.R != 200 || c.G != 100 || c.B != 50 {
		t.Fatalf("pixel 0 = %+v", c)
	}
	if c := got.NRGBAAt(1, 0); c.A != 50 {
		t.Fatalf("pixel 1 alpha = %d, want 50", c.A)
	}
	if src.NRGBAAt(0, 0).A != 255 {
		t.Fatalf("source modified")
	}
	if c := WithOpacity(src, 7).NRGBAAt(0, 0); c.A != 255 {
		t.Fatalf("alpha above 1 should clamp, got %d", c.A)
	}
}

func TestIconSet_LoadsAndFallsBack(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "stun.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 64, 64))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	set := NewIconSet(dir, 32, color.NRGBA{R: 80, A: 255})
	icon, err := set.Get("stun.png")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if icon.Bounds().Dx() != 32 {
		t.Fatalf("icon width = %d", icon.Bounds().Dx())
	}
	again, _ := set.Get("stun.png")
	if again != icon {
		t.Fatalf("icon not cached")
	}

	ph, err := set.Get("missing.png")
	if err == nil || ph == nil || ph.Bounds().Dx() != 32 {
		t.Fatalf("missing icon: img=%v err=%v", ph, err)
	}
	if _, err := set.Get("missing.png"); err == nil {
		t.Fatalf("cached failure should keep reporting its error")
	}
	if c := ph.NRGBAAt(16, 16); c.R != 80 {
		t.Fatalf("placeholder fill = %+v", c)
	}
}

func TestEncodePNG(t *testing.T) {
	if EncodePNG(nil) != nil {
		t.Fatalf("nil image should encode to nil")
	}
	if len(EncodePNG(Placeholder(4, color.NRGBA{A: 255}))) == 0 {
		t.Fatalf("empty PNG")
	}
}
