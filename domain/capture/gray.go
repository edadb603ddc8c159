package capture

import (
	"image"

	"golang.org/x/image/draw"
)

// ToGray converts img to an 8-bit grayscale image anchored at (0,0) using
// the ITU-R 601 luma weights (0.299, 0.587, 0.114). A *image.Gray already
// anchored at the origin is returned unchanged.
func ToGray(img image.Image) *image.Gray {
	if img == nil {
		return nil
	}
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	switch src := img.(type) {
	case *image.RGBA:
		packedToGray(dst, src.Pix, src.Stride, src.PixOffset(b.Min.X, b.Min.Y))
		return dst
	case *image.NRGBA:
		// Straight alpha: colour channels are kept as stored, so fully
		// transparent template pixels keep their RGB instead of turning black.
		packedToGray(dst, src.Pix, src.Stride, src.PixOffset(b.Min.X, b.Min.Y))
		return dst
	}
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// packedToGray converts 4-byte RGB(A) rows starting at off. Alpha is ignored.
func packedToGray(dst *image.Gray, pix []uint8, stride, off int) {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	for y := 0; y < h; y++ {
		si := off + y*stride
		di := y * dst.Stride
		for x := 0; x < w; x++ {
			r := uint32(pix[si])
			g := uint32(pix[si+1])
			bb := uint32(pix[si+2])
			// Same fixed-point weights as color.GrayModel.
			dst.Pix[di+x] = uint8((19595*r + 38470*g + 7471*bb + 1<<15) >> 16)
			si += 4
		}
	}
}
