package editor

import (
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

type redrawCounter struct {
	mu sync.Mutex
	n  int
}

func (r *redrawCounter) redraw(*image.RGBA) {
	r.mu.Lock()
	r.n++
	r.mu.Unlock()
}

func (r *redrawCounter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

func newTestEditor(t *testing.T, state State) (*Editor, *redrawCounter) {
	t.Helper()
	rc := &redrawCounter{}
	e, err := New(state, Options{Redraw: rc.redraw, Fonts: newFonts(t)})
	require.NoError(t, err)
	return e, rc
}

func TestNewAppliesDefaultsAndClamps(t *testing.T) {
	st := NewState(Size{}, "")
	st.FontSize = 5000
	st.FontColor = "not a color"
	st.Drag = &DragSession{}

	e, rc := newTestEditor(t, st)

	got := e.State()
	assert.Equal(t, MaxFontSize, got.FontSize)
	assert.Equal(t, DefaultColor, got.FontColor)
	assert.Nil(t, got.Drag)
	assert.Equal(t, DefaultText, got.Text)
	assert.Equal(t, 1, rc.count(), "initial render")
}

func TestBackgroundLoadEstablishesPosition(t *testing.T) {
	e, rc := newTestEditor(t, NewState(Size{}, ""))
	assert.Nil(t, e.State().Position)

	require.NoError(t, e.BackgroundLoaded("https://api/images/bg.png", blackBackground(800, 600)))

	st := e.State()
	assert.Equal(t, Size{Width: 800, Height: 600}, st.CanvasSize)
	assert.Equal(t, "https://api/images/bg.png", st.BackgroundURL)
	require.NotNil(t, st.Position)
	assert.Equal(t, e.placement.Default(&st), *st.Position)
	assert.Equal(t, 2, rc.count())
	assert.Equal(t, image.Rect(0, 0, 800, 600), e.Surface().Bounds())
}

func TestSecondBackgroundIsRejected(t *testing.T) {
	e, _ := newTestEditor(t, NewState(Size{}, ""))
	require.NoError(t, e.BackgroundLoaded("a", blackBackground(10, 10)))

	err := e.BackgroundLoaded("b", blackBackground(20, 20))

	assert.ErrorIs(t, err, ErrBackgroundFixed)
	assert.Equal(t, Size{Width: 10, Height: 10}, e.State().CanvasSize)
}

func TestDragRendersOnlyOnPositionChange(t *testing.T) {
	e, rc := newTestEditor(t, NewState(Size{}, ""))
	require.NoError(t, e.BackgroundLoaded("bg", blackBackground(800, 600)))
	rect := Rect{Width: 400, Height: 300}
	start := *e.State().Position
	base := rc.count()

	// Position already established: pointer-down is bookkeeping only.
	e.PointerDown(Point{X: start.X / 2, Y: start.Y / 2}, rect)
	assert.True(t, e.Dragging())
	assert.Equal(t, base, rc.count())

	e.PointerMove(Point{X: start.X/2 + 10, Y: start.Y/2 + 5}, rect)
	assert.Equal(t, base+1, rc.count())
	assert.Equal(t, Point{X: start.X + 20, Y: start.Y + 10}, *e.State().Position)

	e.PointerUp()
	assert.False(t, e.Dragging())
	assert.Equal(t, base+1, rc.count())

	e.PointerMove(Point{X: 0, Y: 0}, rect)
	assert.Equal(t, Point{X: start.X + 20, Y: start.Y + 10}, *e.State().Position, "no drag without a session")
}

func TestPointerLeaveEndsDrag(t *testing.T) {
	e, _ := newTestEditor(t, NewState(Size{}, ""))
	require.NoError(t, e.BackgroundLoaded("bg", blackBackground(100, 100)))

	e.PointerDown(Point{X: 50, Y: 50}, Rect{Width: 100, Height: 100})
	require.True(t, e.Dragging())
	e.PointerLeave()

	assert.False(t, e.Dragging())
}

func TestPointerDownBeforeCanvasIsIgnored(t *testing.T) {
	e, rc := newTestEditor(t, NewState(Size{}, ""))

	e.PointerDown(Point{X: 5, Y: 5}, Rect{Width: 10, Height: 10})

	assert.False(t, e.Dragging())
	assert.Equal(t, 1, rc.count())
}

func TestSettersRenderOnlyOnChange(t *testing.T) {
	e, rc := newTestEditor(t, NewState(Size{}, ""))
	require.NoError(t, e.BackgroundLoaded("bg", blackBackground(200, 100)))
	base := rc.count()

	e.SetText(DefaultText)
	e.SetFontSize(DefaultFontSize)
	require.NoError(t, e.SetFontColor("#FFFFFF"))
	assert.Equal(t, base, rc.count())

	e.SetText("new")
	e.SetFontSize(2)
	require.NoError(t, e.SetFontColor("#00ff00"))
	assert.Equal(t, base+3, rc.count())

	st := e.State()
	assert.Equal(t, "new", st.Text)
	assert.Equal(t, MinFontSize, st.FontSize)
	assert.Equal(t, "#00ff00", st.FontColor)

	assert.Error(t, e.SetFontColor("blue"))
}

func TestSetTextNormalizes(t *testing.T) {
	e, _ := newTestEditor(t, NewState(Size{}, ""))

	e.SetText("cafe\u0301")

	assert.Equal(t, "caf\u00e9", e.State().Text)
}

func TestFontSizeGrowthFlagsOverflow(t *testing.T) {
	e, _ := newTestEditor(t, NewState(Size{}, ""))
	require.NoError(t, e.BackgroundLoaded("bg", blackBackground(800, 600)))
	e.SetText("Hi")
	e.PointerDown(Point{}, Rect{Width: 800, Height: 600})
	e.PointerMove(Point{X: 0, Y: 10000}, Rect{Width: 800, Height: 600})
	e.PointerUp()
	require.False(t, e.Overflow())
	before := *e.State().Position

	e.SetFontSize(200)

	assert.Equal(t, before, *e.State().Position, "size change does not re-clamp")
	assert.True(t, e.Overflow())

	e.ResetPosition()
	assert.False(t, e.Overflow())
}

func TestResetPositionIdempotent(t *testing.T) {
	e, rc := newTestEditor(t, NewState(Size{}, ""))
	require.NoError(t, e.BackgroundLoaded("bg", blackBackground(300, 300)))
	e.PointerDown(Point{X: 150, Y: 150}, Rect{Width: 300, Height: 300})
	e.PointerMove(Point{X: 10, Y: 10}, Rect{Width: 300, Height: 300})
	e.PointerUp()

	e.ResetPosition()
	first := *e.State().Position
	n := rc.count()
	e.ResetPosition()

	assert.Equal(t, first, *e.State().Position)
	assert.Equal(t, n, rc.count(), "second reset changes nothing")
}

func TestCustomFontLifecycle(t *testing.T) {
	e, _ := newTestEditor(t, NewState(Size{}, ""))
	require.NoError(t, e.BackgroundLoaded("bg", blackBackground(400, 200)))
	ref := FontRef{Name: "CustomFont-1", SourceURL: "https://api/fonts/a.ttf"}

	e.RequestFont(ref)
	assert.Equal(t, &ref, e.State().CustomFont)

	require.NoError(t, e.FontLoaded(ref, goregular.TTF))
	assert.Equal(t, &ref, e.State().CustomFont)
}

func TestBadFontFallsBackToDefault(t *testing.T) {
	e, _ := newTestEditor(t, NewState(Size{}, ""))
	require.NoError(t, e.BackgroundLoaded("bg", blackBackground(400, 200)))
	ref := FontRef{Name: "CustomFont-2", SourceURL: "https://api/fonts/b.woff2"}
	e.RequestFont(ref)

	err := e.FontLoaded(ref, []byte("wOF2...."))

	assert.Error(t, err)
	assert.Nil(t, e.State().CustomFont)
}

func TestFontFailedClearsOnlyMatchingRequest(t *testing.T) {
	e, _ := newTestEditor(t, NewState(Size{}, ""))
	ref := FontRef{Name: "CustomFont-3"}
	e.RequestFont(ref)

	e.FontFailed(FontRef{Name: "other"}, errors.New("boom"))
	assert.NotNil(t, e.State().CustomFont)

	e.FontFailed(ref, errors.New("boom"))
	assert.Nil(t, e.State().CustomFont)
}

func TestStaleFontCompletionKeepsLatestRequest(t *testing.T) {
	e, rc := newTestEditor(t, NewState(Size{}, ""))
	require.NoError(t, e.BackgroundLoaded("bg", blackBackground(400, 200)))
	a := FontRef{Name: "CustomFont-A", SourceURL: "https://api/fonts/a.ttf"}
	b := FontRef{Name: "CustomFont-B", SourceURL: "https://api/fonts/b.ttf"}

	e.RequestFont(a)
	e.RequestFont(b)
	require.NoError(t, e.FontLoaded(b, goregular.TTF))
	n := rc.count()

	require.NoError(t, e.FontLoaded(a, goregular.TTF))
	assert.Equal(t, &b, e.State().CustomFont)
	assert.Equal(t, n, rc.count(), "stale completion does not redraw")

	assert.Error(t, e.FontLoaded(a, []byte("garbage")))
	assert.Equal(t, &b, e.State().CustomFont, "stale failure keeps the loaded font")
}

func TestPositionWaitsForPendingFont(t *testing.T) {
	e, _ := newTestEditor(t, NewState(Size{}, ""))
	ref := FontRef{Name: "CustomFont-4"}
	e.RequestFont(ref)

	require.NoError(t, e.BackgroundLoaded("bg", blackBackground(400, 200)))
	assert.Nil(t, e.State().Position, "metrics unknown until the font loads")

	require.NoError(t, e.FontLoaded(ref, goregular.TTF))
	assert.NotNil(t, e.State().Position)
}

func TestClosedEditorDropsLateLoads(t *testing.T) {
	e, rc := newTestEditor(t, NewState(Size{}, ""))
	e.Close()
	n := rc.count()

	assert.ErrorIs(t, e.BackgroundLoaded("bg", blackBackground(10, 10)), ErrClosed)
	assert.ErrorIs(t, e.FontLoaded(FontRef{Name: "f"}, goregular.TTF), ErrClosed)
	e.SetText("ignored")

	assert.Equal(t, n, rc.count())
	assert.Equal(t, DefaultText, e.State().Text)
}

func TestSnapshotMatchesSurface(t *testing.T) {
	e, _ := newTestEditor(t, NewState(Size{}, ""))
	require.NoError(t, e.BackgroundLoaded("bg", blackBackground(120, 80)))

	assert.Equal(t, e.Surface().Pix, e.Snapshot().Pix)
}

func TestConcurrentEditsRedrawLatestLast(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []*image.RGBA
	)
	e, err := New(NewState(Size{}, ""), Options{Fonts: newFonts(t), Redraw: func(img *image.RGBA) {
		mu.Lock()
		seen = append(seen, img)
		mu.Unlock()
	}})
	require.NoError(t, err)
	require.NoError(t, e.BackgroundLoaded("bg", blackBackground(60, 40)))

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.SetText(string(rune('a' + i)))
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.Same(t, e.Surface(), seen[len(seen)-1])
	uniq := make(map[*image.RGBA]bool)
	for _, img := range seen {
		assert.False(t, uniq[img], "surface delivered twice")
		uniq[img] = true
	}
}
