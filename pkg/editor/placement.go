// placement.go — Text position, drag sessions and bounds clamping.
package editor

// Measurer reports the drawn width of text in canvas pixels.
// *FontManager is the production implementation.
type Measurer interface {
	TextWidth(text string, ref *FontRef, size int) float64
}

// ToCanvas converts a pointer position in display pixels to canvas pixel
// space. The canvas may be displayed at a different size than its backing
// buffer, so the offset from the rectangle's top-left is scaled per axis.
func ToCanvas(client Point, rect Rect, canvas Size) Point {
	scaleX, scaleY := 1.0, 1.0
	if rect.Width > 0 {
		scaleX = float64(canvas.Width) / rect.Width
	}
	if rect.Height > 0 {
		scaleY = float64(canvas.Height) / rect.Height
	}
	return Point{
		X: (client.X - rect.Left) * scaleX,
		Y: (client.Y - rect.Top) * scaleY,
	}
}

// Placement maintains State.Position and State.Drag.
type Placement struct {
	measure Measurer
}

// NewPlacement creates a controller that measures text with m.
func NewPlacement(m Measurer) *Placement {
	return &Placement{measure: m}
}

// Default returns the centered position for the current text and font.
// Both coordinates are floored at zero when the text is larger than the canvas.
func (p *Placement) Default(s *State) Point {
	tw := p.measure.TextWidth(s.Text, s.CustomFont, s.FontSize)
	return Point{
		X: max(0, (float64(s.CanvasSize.Width)-tw)/2),
		Y: max(0, (float64(s.CanvasSize.Height)-float64(s.FontSize))/2),
	}
}

// Bounds returns the largest allowed top-left coordinate for the text.
func (p *Placement) Bounds(s *State) (maxX, maxY float64) {
	tw := p.measure.TextWidth(s.Text, s.CustomFont, s.FontSize)
	maxX = max(0, float64(s.CanvasSize.Width)-tw)
	maxY = max(0, float64(s.CanvasSize.Height)-float64(s.FontSize))
	return maxX, maxY
}

// Resolved returns the stored position, or the centered default when none
// has been established yet.
func (p *Placement) Resolved(s *State) Point {
	if s.Position != nil {
		return *s.Position
	}
	return p.Default(s)
}

// Reset overwrites the position with the centered default.
func (p *Placement) Reset(s *State) {
	d := p.Default(s)
	s.Position = &d
}

// BeginDrag starts a drag session at pointer (canvas space). It reports
// whether the position changed, which happens when none was established.
func (p *Placement) BeginDrag(s *State, pointer Point) bool {
	changed := false
	if s.Position == nil {
		p.Reset(s)
		changed = true
	}
	s.Drag = &DragSession{PointerOffset: pointer.Sub(*s.Position)}
	return changed
}

// MoveDrag moves the text so the grabbed point follows pointer, clamped so
// the text stays inside the canvas. It is a no-op without a drag session.
// It reports whether the position changed.
func (p *Placement) MoveDrag(s *State, pointer Point) bool {
	if s.Drag == nil {
		return false
	}
	candidate := pointer.Sub(s.Drag.PointerOffset)

	// Size may have changed since the drag began.
	maxX, maxY := p.Bounds(s)
	next := Point{
		X: clamp(candidate.X, 0, maxX),
		Y: clamp(candidate.Y, 0, maxY),
	}

	if s.Position != nil && *s.Position == next {
		return false
	}
	s.Position = &next
	return true
}

// EndDrag clears the drag session and leaves the position where it is.
func (p *Placement) EndDrag(s *State) {
	s.Drag = nil
}

// Overflow reports whether an established position lies outside the bounds
// for the current text, font and size. Size and text edits do not re-clamp;
// this surfaces the resulting overflow instead.
func (p *Placement) Overflow(s *State) bool {
	if s.Position == nil {
		return false
	}
	maxX, maxY := p.Bounds(s)
	pos := *s.Position
	return pos.X < 0 || pos.Y < 0 || pos.X > maxX || pos.Y > maxY
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
