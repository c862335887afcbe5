// Package editor implements the canvas text-compositing and drag-positioning
// engine behind the IrysUp creator screens.
package editor

import "golang.org/x/text/unicode/norm"

// ── Defaults ──

const (
	DefaultText     = "Write your text here"
	DefaultFontSize = 48
	DefaultColor    = "#ffffff"

	MinFontSize = 12
	MaxFontSize = 1000
)

// ── Geometry ──

// Point is a coordinate. Canvas pixel space unless stated otherwise.
type Point struct {
	X, Y float64
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Size is the intrinsic pixel size of the canvas.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether either dimension is non-positive.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Rect is the on-screen bounding rectangle of the displayed canvas,
// in display (CSS) pixels.
type Rect struct {
	Left, Top     float64
	Width, Height float64
}

// ── State ──

// FontRef identifies a custom font face registered with a FontManager.
type FontRef struct {
	Name      string `json:"name"`
	SourceURL string `json:"sourceUrl"`
}

// DragSession exists between pointer-down and pointer-up.
type DragSession struct {
	PointerOffset Point
}

// State is everything the compositor needs to draw a frame.
// A nil Position means "not yet established"; it resolves to the centered default.
type State struct {
	Text          string
	FontSize      int
	FontColor     string
	CustomFont    *FontRef
	Position      *Point
	CanvasSize    Size
	BackgroundURL string
	Drag          *DragSession
}

// NewState returns a state with the editor defaults.
func NewState(canvas Size, backgroundURL string) State {
	return State{
		Text:          DefaultText,
		FontSize:      DefaultFontSize,
		FontColor:     DefaultColor,
		CanvasSize:    canvas,
		BackgroundURL: backgroundURL,
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	c := s
	if s.CustomFont != nil {
		f := *s.CustomFont
		c.CustomFont = &f
	}
	if s.Position != nil {
		p := *s.Position
		c.Position = &p
	}
	if s.Drag != nil {
		d := *s.Drag
		c.Drag = &d
	}
	return c
}

// ClampFontSize limits n to [MinFontSize, MaxFontSize].
func ClampFontSize(n int) int {
	return min(max(n, MinFontSize), MaxFontSize)
}

// NormalizeText returns the NFC form of text so composed and decomposed
// input measure and render identically.
func NormalizeText(text string) string {
	return norm.NFC.String(text)
}
