// editor.go — Event dispatch: every accepted state transition that changes a
// visual input recomputes the canvas and hands it to the redraw hook.
package editor

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/xob0t/irysup-creator/pkg/generator"
)

var (
	// ErrClosed is returned by load callbacks that arrive after Close.
	ErrClosed = errors.New("editor: closed")

	// ErrBackgroundFixed is returned when a second background is loaded.
	// A new background needs a new Editor.
	ErrBackgroundFixed = errors.New("editor: background already loaded")
)

// Options configures an Editor.
type Options struct {
	// Logger receives load failures and diagnostics. Nil discards.
	Logger *slog.Logger

	// Redraw is called with each freshly rendered surface, outside the
	// editor lock. Calls are serialized and a surface superseded before its
	// turn is skipped. It must not retain the surface across calls if it
	// mutates it, and must not call back into the editor's mutating methods.
	Redraw func(*image.RGBA)

	// Fonts overrides the font manager, mainly for tests.
	Fonts *FontManager
}

// Editor owns one EditorState for the lifetime of an editing screen.
// Methods are safe to call from multiple goroutines; they serialize on a
// single lock so there is one logical writer at a time.
type Editor struct {
	mu         sync.Mutex
	emitMu     sync.Mutex
	state      State
	fonts      *FontManager
	placement  *Placement
	compositor *Compositor
	background image.Image
	closed     bool
	surface    *image.RGBA

	redraw func(*image.RGBA)
	log    *slog.Logger
}

// New creates an editor seeded with state. Out-of-range font sizes are
// clamped and the text is normalized.
func New(state State, opts Options) (*Editor, error) {
	fm := opts.Fonts
	if fm == nil {
		var err error
		fm, err = NewFontManager()
		if err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	st := state.Clone()
	st.Text = NormalizeText(st.Text)
	st.FontSize = ClampFontSize(st.FontSize)
	if c, err := generator.NormalizeHex(st.FontColor); err == nil {
		st.FontColor = c
	} else {
		st.FontColor = DefaultColor
	}
	st.Drag = nil

	e := &Editor{
		state:      st,
		fonts:      fm,
		placement:  NewPlacement(fm),
		compositor: NewCompositor(fm),
		redraw:     opts.Redraw,
		log:        logger,
	}
	e.mu.Lock()
	surf := e.renderLocked()
	e.mu.Unlock()
	e.emit(surf)
	return e, nil
}

// State returns a copy of the current state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Surface returns the most recently rendered canvas.
func (e *Editor) Surface() *image.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surface
}

// Snapshot renders a fresh canvas for saving. The result is owned by the caller.
func (e *Editor) Snapshot() *image.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.compositor.Render(&e.state, e.background)
}

// BackgroundLoaded completes the asynchronous background load. The canvas
// size becomes the image's natural size and is fixed from then on.
func (e *Editor) BackgroundLoaded(url string, img image.Image) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.background != nil {
		e.mu.Unlock()
		return ErrBackgroundFixed
	}
	e.background = img
	e.state.BackgroundURL = url
	e.state.CanvasSize = Size{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
	e.establishLocked()
	surf := e.renderLocked()
	e.mu.Unlock()

	e.emit(surf)
	return nil
}

// BackgroundFailed records a failed background load. The placeholder stays.
func (e *Editor) BackgroundFailed(url string, err error) {
	e.log.Error("background load failed", "url", url, "error", err)
}

// RequestFont selects a custom font whose bytes are still loading. Until
// FontLoaded or FontFailed, the canvas shows a loading indicator.
func (e *Editor) RequestFont(ref FontRef) {
	e.update(func(s *State) bool {
		f := ref
		s.CustomFont = &f
		return true
	})
}

// FontLoaded registers the font data for ref and renders with it. A font
// that cannot be parsed falls back to the default face; the parse error is
// logged and returned. Completions for a font that is no longer the
// requested one register their data but leave the selection alone.
func (e *Editor) FontLoaded(ref FontRef, data []byte) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}

	current := e.state.CustomFont != nil && e.state.CustomFont.Name == ref.Name
	var loadErr error
	if err := e.fonts.Register(ref.Name, data); err != nil {
		loadErr = fmt.Errorf("load font %q: %w", ref.Name, err)
		e.log.Warn("custom font failed to load, using default face", "font", ref.Name, "url", ref.SourceURL, "error", err)
		if current {
			e.state.CustomFont = nil
		}
	} else {
		e.log.Debug("custom font loaded", "font", ref.Name, "family", e.fonts.Family(ref.Name))
		if current {
			f := ref
			e.state.CustomFont = &f
		}
	}
	if !current {
		e.log.Debug("stale font completion ignored", "font", ref.Name)
		e.mu.Unlock()
		return loadErr
	}
	e.establishLocked()
	surf := e.renderLocked()
	e.mu.Unlock()

	e.emit(surf)
	return loadErr
}

// FontFailed clears the requested font so text renders in the default face.
func (e *Editor) FontFailed(ref FontRef, err error) {
	e.log.Warn("custom font failed to load, using default face", "font", ref.Name, "url", ref.SourceURL, "error", err)
	e.update(func(s *State) bool {
		if s.CustomFont == nil || s.CustomFont.Name != ref.Name {
			return false
		}
		s.CustomFont = nil
		return true
	})
}

// SetText replaces the overlay text.
func (e *Editor) SetText(text string) {
	text = NormalizeText(text)
	e.update(func(s *State) bool {
		if s.Text == text {
			return false
		}
		s.Text = text
		return true
	})
}

// SetFontSize sets the size in pixels, clamped to [MinFontSize, MaxFontSize].
// The stored position is not re-clamped; see Overflow.
func (e *Editor) SetFontSize(px int) {
	px = ClampFontSize(px)
	e.update(func(s *State) bool {
		if s.FontSize == px {
			return false
		}
		s.FontSize = px
		return true
	})
}

// SetFontColor sets the text color from a "#rrggbb" string.
func (e *Editor) SetFontColor(hex string) error {
	c, err := generator.NormalizeHex(hex)
	if err != nil {
		return err
	}
	e.update(func(s *State) bool {
		if s.FontColor == c {
			return false
		}
		s.FontColor = c
		return true
	})
	return nil
}

// PointerDown starts a drag. client is in display pixels and rect is the
// canvas element's on-screen bounds.
func (e *Editor) PointerDown(client Point, rect Rect) {
	e.update(func(s *State) bool {
		if s.CanvasSize.Empty() {
			return false
		}
		return e.placement.BeginDrag(s, ToCanvas(client, rect, s.CanvasSize))
	})
}

// PointerMove drags the text when a drag session is active.
func (e *Editor) PointerMove(client Point, rect Rect) {
	e.update(func(s *State) bool {
		if s.Drag == nil {
			return false
		}
		return e.placement.MoveDrag(s, ToCanvas(client, rect, s.CanvasSize))
	})
}

// PointerUp ends the drag session.
func (e *Editor) PointerUp() {
	e.update(func(s *State) bool {
		e.placement.EndDrag(s)
		return false
	})
}

// PointerLeave ends the drag session when the pointer leaves the canvas
// while pressed.
func (e *Editor) PointerLeave() {
	e.PointerUp()
}

// Dragging reports whether a drag session is active.
func (e *Editor) Dragging() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Drag != nil
}

// ResetPosition moves the text back to the centered default.
func (e *Editor) ResetPosition() {
	e.update(func(s *State) bool {
		if s.CanvasSize.Empty() {
			return false
		}
		before := s.Position
		e.placement.Reset(s)
		return before == nil || *before != *s.Position
	})
}

// Overflow reports whether the stored position no longer keeps the text
// inside the canvas, e.g. after the font size grew.
func (e *Editor) Overflow() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.placement.Overflow(&e.state)
}

// Close detaches the editor. Later load completions return ErrClosed and
// input events are ignored.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.state.Drag = nil
	e.fonts.Close()
}

// update applies fn under the lock and re-renders when fn reports a visual change.
func (e *Editor) update(fn func(s *State) bool) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if !fn(&e.state) {
		e.mu.Unlock()
		return
	}
	surf := e.renderLocked()
	e.mu.Unlock()

	e.emit(surf)
}

// establishLocked sets the initial position once the canvas size and the
// text metrics are both known.
func (e *Editor) establishLocked() {
	s := &e.state
	if s.Position != nil || s.CanvasSize.Empty() || e.background == nil {
		return
	}
	if s.CustomFont != nil && !e.fonts.Has(s.CustomFont.Name) {
		return
	}
	e.placement.Reset(s)
}

func (e *Editor) renderLocked() *image.RGBA {
	e.surface = e.compositor.Render(&e.state, e.background)
	return e.surface
}

// emit hands surf to the redraw hook unless a newer surface has been
// rendered since, so the hook never sees frames out of order.
func (e *Editor) emit(surf *image.RGBA) {
	if e.redraw == nil {
		return
	}
	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	e.mu.Lock()
	latest := e.surface == surf
	e.mu.Unlock()
	if !latest {
		return
	}
	e.redraw(surf)
}
