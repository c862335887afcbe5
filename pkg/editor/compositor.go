// compositor.go - Canvas compositing of background and overlay text.
// Uses a layered approach: background (or placeholder) -> text shadow -> text.
// Render is a pure function of its inputs; it never performs I/O.
package editor

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/xob0t/irysup-creator/pkg/generator"
)

const (
	// PlaceholderColor fills the canvas while the background is loading.
	PlaceholderColor = "#1a1a2e"

	loadingLabel     = "Loading..."
	loadingFontLabel = "Loading font..."
)

var indicatorColor = color.RGBA{0xcc, 0xcc, 0xcc, 0xff}

// Compositor draws a State onto a raster surface.
type Compositor struct {
	fonts     *FontManager
	placement *Placement
	shadow    Shadow
}

// NewCompositor creates a compositor that draws text with faces from fm.
func NewCompositor(fm *FontManager) *Compositor {
	return &Compositor{
		fonts:     fm,
		placement: NewPlacement(fm),
		shadow:    textShadow,
	}
}

// Render produces the canvas for s. A nil background means it has not
// loaded yet: the surface is filled with the placeholder and a loading
// indicator. A custom font that is requested but not registered yet is shown
// as a loading indicator instead of text drawn in a fallback face.
func (c *Compositor) Render(s *State, background image.Image) *image.RGBA {
	w, h := s.CanvasSize.Width, s.CanvasSize.Height
	if background != nil && s.CanvasSize.Empty() {
		w, h = background.Bounds().Dx(), background.Bounds().Dy()
	}
	dst := image.NewRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))

	if background == nil {
		c.drawPlaceholder(dst)
		return dst
	}
	drawBackground(dst, background)

	if s.CustomFont != nil && !c.fonts.Has(s.CustomFont.Name) {
		drawIndicator(dst, loadingFontLabel)
		return dst
	}

	c.drawText(dst, s)
	return dst
}

// drawPlaceholder fills the surface with the neutral loading color.
func (c *Compositor) drawPlaceholder(dst *image.RGBA) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(generator.ParseHexRGBA(PlaceholderColor)), image.Point{}, draw.Src)
	drawIndicator(dst, loadingLabel)
}

// drawBackground copies bg onto dst, scaling when the sizes differ.
func drawBackground(dst *image.RGBA, bg image.Image) {
	sb := bg.Bounds()
	if sb.Dx() == dst.Bounds().Dx() && sb.Dy() == dst.Bounds().Dy() {
		draw.Draw(dst, dst.Bounds(), bg, sb.Min, draw.Src)
		return
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), bg, sb, xdraw.Src, nil)
}

// drawText renders the overlay left-aligned with a top baseline.
func (c *Compositor) drawText(dst *image.RGBA, s *State) {
	if s.Text == "" {
		return
	}
	name := ""
	if s.CustomFont != nil {
		name = s.CustomFont.Name
	}
	face, err := c.fonts.Face(name, s.FontSize)
	if err != nil {
		return
	}

	pos := c.placement.Resolved(s)

	// Glyph coverage is drawn once into a mask, then used for both shadow and fill.
	mask := image.NewAlpha(dst.Bounds())
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot: fixed.Point26_6{
			X: floatToFixed(pos.X),
			Y: floatToFixed(pos.Y) + face.Metrics().Ascent,
		},
	}
	d.DrawString(s.Text)

	c.shadow.apply(dst, mask)
	fill := image.NewUniform(generator.ParseHexRGBA(s.FontColor))
	draw.DrawMask(dst, dst.Bounds(), fill, image.Point{}, mask, dst.Bounds().Min, draw.Over)
}

// drawIndicator centers label on dst in the fixed bitmap face.
func drawIndicator(dst *image.RGBA, label string) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, label).Ceil()
	b := dst.Bounds()
	x := b.Min.X + (b.Dx()-width)/2
	y := b.Min.Y + (b.Dy()+face.Metrics().Ascent.Ceil())/2

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(indicatorColor),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(label)
}
