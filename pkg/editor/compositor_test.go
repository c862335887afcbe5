package editor

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/xob0t/irysup-creator/pkg/generator"
)

func newFonts(t *testing.T) *FontManager {
	t.Helper()
	fm, err := NewFontManager()
	require.NoError(t, err)
	t.Cleanup(fm.Close)
	return fm
}

func blackBackground(w, h int) image.Image {
	return generator.NewSolidImage(w, h, color.RGBA{A: 255})
}

// countRed counts pixels that are clearly the red text fill.
func countRed(img *image.RGBA) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.RGBAAt(x, y)
			if c.R > 200 && c.G < 60 && c.B < 60 {
				n++
			}
		}
	}
	return n
}

func redTextState(w, h int) State {
	s := NewState(Size{Width: w, Height: h}, "")
	s.Text = "Hello"
	s.FontColor = "#ff0000"
	return s
}

func TestRenderIsDeterministic(t *testing.T) {
	c := NewCompositor(newFonts(t))
	s := redTextState(320, 200)
	s.Position = &Point{X: 12.5, Y: 30}
	bg := blackBackground(320, 200)

	first := c.Render(&s, bg)
	second := c.Render(&s, bg)

	assert.Equal(t, first.Pix, second.Pix)
	assert.Positive(t, countRed(first))
}

func TestRenderPlaceholderWhileBackgroundLoads(t *testing.T) {
	c := NewCompositor(newFonts(t))
	s := redTextState(200, 100)

	img := c.Render(&s, nil)

	require.Equal(t, image.Rect(0, 0, 200, 100), img.Bounds())
	assert.Equal(t, generator.ParseHexRGBA(PlaceholderColor), img.RGBAAt(0, 0))
	assert.Zero(t, countRed(img), "text must not be drawn before the background loads")
}

func TestRenderPendingFontShowsIndicator(t *testing.T) {
	c := NewCompositor(newFonts(t))
	s := redTextState(320, 200)
	s.CustomFont = &FontRef{Name: "CustomFont-1", SourceURL: "https://cdn/fonts/a.ttf"}

	img := c.Render(&s, blackBackground(320, 200))

	assert.Zero(t, countRed(img))
	assert.NotEqual(t, blackBackground(320, 200).(*image.RGBA).Pix, img.Pix, "indicator drawn")
}

func TestRenderWithRegisteredCustomFont(t *testing.T) {
	fm := newFonts(t)
	require.NoError(t, fm.Register("CustomFont-1", goregular.TTF))
	c := NewCompositor(fm)
	s := redTextState(320, 200)
	s.CustomFont = &FontRef{Name: "CustomFont-1"}

	assert.Positive(t, countRed(c.Render(&s, blackBackground(320, 200))))
}

func TestRenderDrawsShadowOffset(t *testing.T) {
	c := NewCompositor(newFonts(t))
	s := redTextState(200, 120)
	s.FontColor = "#ffffff"
	s.Position = &Point{X: 10, Y: 10}
	bg := generator.NewSolidImage(200, 120, color.RGBA{R: 200, G: 200, B: 200, A: 255})

	img := c.Render(&s, bg)

	darker := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y).R < 150 {
				darker++
			}
		}
	}
	assert.Positive(t, darker, "shadow darkens pixels around the glyphs")
}

func TestRenderScalesMismatchedBackground(t *testing.T) {
	c := NewCompositor(newFonts(t))
	s := redTextState(100, 50)
	s.Text = ""
	bg := generator.NewSolidImage(400, 200, color.RGBA{G: 255, A: 255})

	img := c.Render(&s, bg)

	require.Equal(t, image.Rect(0, 0, 100, 50), img.Bounds())
	c25 := img.RGBAAt(50, 25)
	assert.GreaterOrEqual(t, c25.G, uint8(250))
	assert.LessOrEqual(t, c25.R, uint8(5))
}

func TestRenderEmptyCanvasUsesBackgroundSize(t *testing.T) {
	c := NewCompositor(newFonts(t))
	s := redTextState(0, 0)

	img := c.Render(&s, blackBackground(64, 32))

	assert.Equal(t, image.Rect(0, 0, 64, 32), img.Bounds())
}

func TestBlurAlphaSpreadsCoverage(t *testing.T) {
	src := image.NewAlpha(image.Rect(0, 0, 9, 9))
	src.SetAlpha(4, 4, color.Alpha{A: 255})

	out := blurAlpha(src, 1)

	assert.Equal(t, uint8(255/9), out.AlphaAt(4, 4).A)
	assert.Equal(t, uint8(255/9), out.AlphaAt(3, 5).A)
	assert.Zero(t, out.AlphaAt(0, 0).A)
	assert.Equal(t, uint8(255), src.AlphaAt(4, 4).A, "source untouched")
}

func TestBlurAlphaZeroRadiusCopies(t *testing.T) {
	src := image.NewAlpha(image.Rect(0, 0, 3, 3))
	src.SetAlpha(1, 1, color.Alpha{A: 200})

	out := blurAlpha(src, 0)

	assert.Equal(t, src.Pix, out.Pix)
}

func TestFontManagerMeasuresAndFallsBack(t *testing.T) {
	fm := newFonts(t)

	w := fm.TextWidth("Hi", nil, 48)
	assert.Positive(t, w)
	assert.Greater(t, fm.TextWidth("Hi", nil, 96), w)
	assert.Zero(t, fm.TextWidth("", nil, 48))

	// Unregistered custom fonts measure with the default face.
	assert.Equal(t, w, fm.TextWidth("Hi", &FontRef{Name: "missing"}, 48))
}

func TestFontManagerRegister(t *testing.T) {
	fm := newFonts(t)

	assert.ErrorIs(t, fm.Register("empty", nil), ErrEmptyFontData)
	assert.Error(t, fm.Register("garbage", []byte("wOF2 not really a font")))
	assert.False(t, fm.Has("garbage"))

	require.NoError(t, fm.Register("go", goregular.TTF))
	assert.True(t, fm.Has("go"))
	assert.Equal(t, "Go", fm.Family("go"))
	assert.Empty(t, fm.Family("missing"))
}
