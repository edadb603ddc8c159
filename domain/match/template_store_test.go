package match

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func colorSquare(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestTemplateStore_LoadDecodesToGray(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "debuffs", "stun.png"), colorSquare(4, 3, color.RGBA{255, 255, 255, 255}))
	s, err := NewTemplateStore(dir, 0)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	g, err := s.Load("debuffs/stun.png")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if g.Bounds() != image.Rect(0, 0, 4, 3) || g.GrayAt(0, 0).Y != 255 {
		t.Fatalf("unexpected template %v value=%d", g.Bounds(), g.GrayAt(0, 0).Y)
	}
	again, _ := s.Load("debuffs/stun.png")
	if again != g {
		t.Fatalf("expected cached template on second load")
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 cached template, got %d", s.Len())
	}
}

func TestTemplateStore_MissingAndUndecodable(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewTemplateStore(dir, 4)
	if _, err := s.Load(""); !errors.Is(err, ErrTemplateMissing) {
		t.Fatalf("expected ErrTemplateMissing for empty ref, got %v", err)
	}
	if _, err := s.Load("nope.png"); !errors.Is(err, ErrTemplateMissing) {
		t.Fatalf("expected ErrTemplateMissing for absent file, got %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "junk.png"), []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.Load("junk.png"); !errors.Is(err, ErrTemplateMissing) {
		t.Fatalf("expected ErrTemplateMissing for undecodable file, got %v", err)
	}
}

func TestTemplateStore_NoticesDeletionAndReplacement(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anchor.png")
	writePNG(t, path, colorSquare(2, 2, color.Black))
	s, _ := NewTemplateStore(dir, 4)
	if _, err := s.Load("anchor.png"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := s.Load("anchor.png"); !errors.Is(err, ErrTemplateMissing) {
		t.Fatalf("expected ErrTemplateMissing after deletion, got %v", err)
	}
	writePNG(t, path, colorSquare(5, 5, color.White))
	// Make sure the modification time differs from the original write.
	future := time.Now().Add(time.Minute)
	_ = os.Chtimes(path, future, future)
	g, err := s.Load("anchor.png")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if g.Bounds().Dx() != 5 {
		t.Fatalf("expected replaced 5x5 template, got %v", g.Bounds())
	}
}

func TestTemplateStore_ResolveAbsolute(t *testing.T) {
	s, _ := NewTemplateStore("images", 1)
	abs := filepath.Join(t.TempDir(), "x.png")
	if got := s.Resolve(abs); got != abs {
		t.Fatalf("absolute ref should be kept, got %s", got)
	}
	if got := s.Resolve("a/b.png"); got != filepath.Join("images", "a", "b.png") {
		t.Fatalf("unexpected resolution %s", got)
	}
}
