// shadow.go — Drop shadow for overlay text.
package editor

import (
	"image"
	"image/color"
	"image/draw"
)

// Shadow is the fixed drop shadow applied under overlay text.
type Shadow struct {
	Offset image.Point
	Radius int
	Color  color.NRGBA
}

// textShadow is a fixed visual policy, not a user setting.
var textShadow = Shadow{
	Offset: image.Pt(2, 2),
	Radius: 2,
	Color:  color.NRGBA{A: 0x99},
}

// apply paints the shadow of mask onto dst.
func (sh Shadow) apply(dst draw.Image, mask *image.Alpha) {
	soft := blurAlpha(mask, sh.Radius)
	b := dst.Bounds()
	draw.DrawMask(dst, b, image.NewUniform(sh.Color), image.Point{}, soft, b.Min.Sub(sh.Offset), draw.Over)
}

// blurAlpha returns a box-blurred copy of src. The blur is separable:
// a horizontal pass then a vertical pass, each clamping samples to the edge.
func blurAlpha(src *image.Alpha, radius int) *image.Alpha {
	b := src.Bounds()
	out := image.NewAlpha(b)
	if radius <= 0 || b.Empty() {
		copy(out.Pix, src.Pix)
		return out
	}

	w, h := b.Dx(), b.Dy()
	tmp := make([]uint16, w*h)
	n := 2*radius + 1

	// Horizontal pass with a running sum.
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		sum := 0
		for k := -radius; k <= radius; k++ {
			sum += int(row[clampIndex(k, w)])
		}
		for x := 0; x < w; x++ {
			tmp[y*w+x] = uint16(sum / n)
			sum += int(row[clampIndex(x+radius+1, w)]) - int(row[clampIndex(x-radius, w)])
		}
	}

	// Vertical pass.
	for x := 0; x < w; x++ {
		sum := 0
		for k := -radius; k <= radius; k++ {
			sum += int(tmp[clampIndex(k, h)*w+x])
		}
		for y := 0; y < h; y++ {
			out.Pix[y*out.Stride+x] = uint8(sum / n)
			sum += int(tmp[clampIndex(y+radius+1, h)*w+x]) - int(tmp[clampIndex(y-radius, h)*w+x])
		}
	}
	return out
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
