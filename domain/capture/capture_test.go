package capture

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestToGray_RGBAUsesLumaWeights(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 20, 13, 21))
	src.SetRGBA(10, 20, color.RGBA{255, 0, 0, 255})
	src.SetRGBA(11, 20, color.RGBA{0, 255, 0, 255})
	src.SetRGBA(12, 20, color.RGBA{255, 255, 255, 255})
	g := ToGray(src)
	if g.Rect != image.Rect(0, 0, 3, 1) {
		t.Fatalf("expected origin-anchored 3x1, got %v", g.Rect)
	}
	want := []uint8{
		color.GrayModel.Convert(color.RGBA{255, 0, 0, 255}).(color.Gray).Y,
		color.GrayModel.Convert(color.RGBA{0, 255, 0, 255}).(color.Gray).Y,
		255,
	}
	for i, w := range want {
		if g.Pix[i] != w {
			t.Fatalf("pixel %d: expected %d got %d", i, w, g.Pix[i])
		}
	}
}

func TestToGray_GrayPassThrough(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 4, 4))
	if ToGray(src) != src {
		t.Fatalf("expected origin-anchored gray to be returned unchanged")
	}
	if ToGray(nil) != nil {
		t.Fatalf("expected nil for nil input")
	}
}

func TestToGray_NRGBAOffsetOrigin(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 5, 7, 7))
	src.Set(5, 5, color.NRGBA{200, 200, 200, 255})
	src.Set(6, 6, color.NRGBA{0, 255, 0, 255})
	g := ToGray(src)
	if g.Bounds().Dx() != 2 || g.Bounds().Dy() != 2 {
		t.Fatalf("unexpected bounds %v", g.Bounds())
	}
	if g.GrayAt(0, 0).Y != 200 {
		t.Fatalf("expected 200 got %d", g.GrayAt(0, 0).Y)
	}
	want := color.GrayModel.Convert(color.RGBA{0, 255, 0, 255}).(color.Gray).Y
	if g.GrayAt(1, 1).Y != want {
		t.Fatalf("expected %d got %d", want, g.GrayAt(1, 1).Y)
	}
}

func TestToGray_NRGBAIgnoresAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	src.SetNRGBA(0, 0, color.NRGBA{200, 200, 200, 0})
	src.SetNRGBA(1, 0, color.NRGBA{200, 200, 200, 128})
	src.SetNRGBA(2, 0, color.NRGBA{200, 200, 200, 255})
	g := ToGray(src)
	for x := 0; x < 3; x++ {
		if got := g.GrayAt(x, 0).Y; got != 200 {
			t.Fatalf("pixel %d: transparency changed luma to %d", x, got)
		}
	}
}

func TestScreenSource_WrapsFailures(t *testing.T) {
	s := NewScreenSource(nil)
	s.grab = func(image.Rectangle) (image.Image, error) { return nil, errors.New("boom") }
	if _, err := s.Capture(image.Rect(0, 0, 10, 10)); !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("expected ErrCaptureFailed, got %v", err)
	}
	s.grab = func(image.Rectangle) (image.Image, error) { return image.NewRGBA(image.Rectangle{}), nil }
	if _, err := s.Capture(image.Rect(0, 0, 10, 10)); !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("expected ErrCaptureFailed for empty image, got %v", err)
	}
	if _, err := s.Capture(image.Rectangle{}); !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("expected ErrCaptureFailed for empty rect, got %v", err)
	}
	if st := s.Stats(); st.Failures != 3 || st.Captures != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestScreenSource_CaptureConvertsAndCounts(t *testing.T) {
	s := NewScreenSource(nil)
	var asked image.Rectangle
	s.grab = func(r image.Rectangle) (image.Image, error) {
		asked = r
		return image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy())), nil
	}
	r := image.Rect(100, 50, 130, 70)
	g, err := s.Capture(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asked != r {
		t.Fatalf("backend asked for %v, want %v", asked, r)
	}
	if g.Bounds() != image.Rect(0, 0, 30, 20) {
		t.Fatalf("unexpected bounds %v", g.Bounds())
	}
	st := s.Stats()
	if st.Captures != 1 || st.LastCapture.IsZero() {
		t.Fatalf("unexpected stats %+v", st)
	}
}
