package match

import (
	"fmt"
	"image"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// parallelWorkThreshold is the number of multiply-adds (alignments x template
// area) below which NCC scans on the calling goroutine.
const parallelWorkThreshold = 1 << 20

// grayPrecomp stores a search buffer as float64 luma plus its summed-area
// tables (integral images). The integrals give O(1) window sum and variance.
type grayPrecomp struct {
	gray       []float64
	integral   []float64
	integralSq []float64
	W, H       int
}

// templatePrecomp caches template pixels and the statistics the coefficient
// needs. norm is sqrt(sum((T-mean)^2)).
type templatePrecomp struct {
	gray  []float64
	W, H  int
	meanT float64
	norm  float64
}

// NCCMatcher computes the maximum normalized cross-correlation coefficient
// (OpenCV TM_CCOEFF_NORMED) of a template over every alignment inside a
// search buffer. The zero value is ready to use.
type NCCMatcher struct {
	// Parallelism caps the goroutines used for large buffers. Zero means
	// GOMAXPROCS.
	Parallelism int
}

// NCC is a convenience wrapper around the zero NCCMatcher.
func NCC(search, tmpl *image.Gray) (float64, error) {
	return NCCMatcher{}.Match(search, tmpl)
}

// Match implements Matcher. It fails with ErrTemplateTooLarge when the
// template exceeds the search buffer on either axis and with ErrMatch on
// nil or empty input. Scores lie in [-1, 1].
func (m NCCMatcher) Match(search, tmpl *image.Gray) (float64, error) {
	if search == nil || tmpl == nil {
		return 0, fmt.Errorf("%w: nil buffer", ErrMatch)
	}
	sb, tb := search.Bounds(), tmpl.Bounds()
	if tb.Empty() || sb.Empty() {
		return 0, fmt.Errorf("%w: empty buffer search=%v template=%v", ErrMatch, sb.Size(), tb.Size())
	}
	if tb.Dx() > sb.Dx() || tb.Dy() > sb.Dy() {
		return 0, fmt.Errorf("%w: template %dx%d search %dx%d", ErrTemplateTooLarge, tb.Dx(), tb.Dy(), sb.Dx(), sb.Dy())
	}
	pc := buildTemplatePrecomp(tmpl)
	// A constant template has no defined coefficient; OpenCV reports 1 for
	// every alignment and so do we.
	if pc.norm < 1e-12 {
		return 1, nil
	}
	pre := buildGrayPrecomp(search)
	rows := pre.H - pc.H + 1
	cols := pre.W - pc.W + 1

	workers := m.Parallelism
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers == 1 || rows*cols*pc.W*pc.H < parallelWorkThreshold || rows < 2 {
		return scanRows(pre, pc, 0, rows), nil
	}
	if workers > rows {
		workers = rows
	}
	band := (rows + workers - 1) / workers
	best := make([]float64, workers)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < workers; i++ {
		y0 := i * band
		y1 := min(rows, y0+band)
		if y0 >= y1 {
			best[i] = -1
			continue
		}
		g.Go(func() error {
			best[i] = scanRows(pre, pc, y0, y1)
			return nil
		})
	}
	_ = g.Wait()
	score := -1.0
	for _, s := range best {
		if s > score {
			score = s
		}
	}
	return score, nil
}

// Detected reports whether score meets threshold. Equality counts.
func Detected(score, threshold float64) bool { return score >= threshold }

// scanRows returns the best coefficient for alignments whose top edge lies in
// [y0, y1).
func scanRows(pre *grayPrecomp, pc *templatePrecomp, y0, y1 int) float64 {
	w, h := pc.W, pc.H
	n := float64(w * h)
	W := pre.W
	best := -1.0
	for y := y0; y < y1; y++ {
		for x := 0; x <= W-w; x++ {
			sumF := integralSum(pre.integral, W, x, y, x+w-1, y+h-1)
			sumF2 := integralSum(pre.integralSq, W, x, y, x+w-1, y+h-1)
			varF := sumF2 - sumF*sumF/n
			if varF < 0 {
				varF = 0
			}
			var sumFT float64
			for ty := 0; ty < h; ty++ {
				row := pre.gray[(y+ty)*W+x : (y+ty)*W+x+w]
				trow := pc.gray[ty*w : ty*w+w]
				for tx, tv := range trow {
					sumFT += row[tx] * tv
				}
			}
			numer := sumFT - sumF*pc.meanT
			score := coefficient(numer, math.Sqrt(varF)*pc.norm)
			if score > best {
				best = score
			}
		}
	}
	return best
}

// coefficient divides numer by denom the way OpenCV normalises
// TM_CCOEFF_NORMED, which keeps rounding noise inside [-1, 1] and maps flat
// windows to 0.
func coefficient(numer, denom float64) float64 {
	switch a := math.Abs(numer); {
	case a < denom:
		return numer / denom
	case a < denom*1.125:
		if numer > 0 {
			return 1
		}
		return -1
	default:
		return 0
	}
}

func buildTemplatePrecomp(tmpl *image.Gray) *templatePrecomp {
	b := tmpl.Bounds()
	w, h := b.Dx(), b.Dy()
	gray := make([]float64, w*h)
	var sumT, sumT2 float64
	for y := 0; y < h; y++ {
		off := tmpl.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w; x++ {
			v := float64(tmpl.Pix[off+x])
			gray[y*w+x] = v
			sumT += v
			sumT2 += v * v
		}
	}
	n := float64(w * h)
	meanT := sumT / n
	varT := sumT2 - sumT*sumT/n
	norm := 0.0
	if varT > 0 {
		norm = math.Sqrt(varT)
	}
	return &templatePrecomp{gray: gray, W: w, H: h, meanT: meanT, norm: norm}
}

// buildGrayPrecomp computes float luma and summed-area tables for a search
// buffer.
func buildGrayPrecomp(img *image.Gray) *grayPrecomp {
	b := img.Bounds()
	W, H := b.Dx(), b.Dy()
	need := W * H
	p := &grayPrecomp{
		gray:       make([]float64, need),
		integral:   make([]float64, need),
		integralSq: make([]float64, need),
		W:          W,
		H:          H,
	}
	for y := 0; y < H; y++ {
		var rowSum, rowSum2 float64
		src := img.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < W; x++ {
			v := float64(img.Pix[src+x])
			off := y*W + x
			p.gray[off] = v
			rowSum += v
			rowSum2 += v * v
			if y == 0 {
				p.integral[off] = rowSum
				p.integralSq[off] = rowSum2
			} else {
				p.integral[off] = p.integral[(y-1)*W+x] + rowSum
				p.integralSq[off] = p.integralSq[(y-1)*W+x] + rowSum2
			}
		}
	}
	return p
}

// integralSum returns the inclusive sum over [x0..x1] x [y0..y1] from an
// integral image stored row-major with width W.
func integralSum(I []float64, W int, x0, y0, x1, y1 int) float64 {
	if x0 > x1 || y0 > y1 {
		return 0
	}
	A := func(x, y int) float64 {
		if x < 0 || y < 0 {
			return 0
		}
		return I[y*W+x]
	}
	return A(x1, y1) - A(x0-1, y1) - A(x1, y0-1) + A(x0-1, y0-1)
}
