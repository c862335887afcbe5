// merge.go — Convert between saved records and editor state.
package design

import (
	"time"

	"github.com/xob0t/irysup-creator/pkg/editor"
	"github.com/xob0t/irysup-creator/pkg/generator"
)

// Seed builds the initial editor state for rec. Fields that are missing or
// invalid keep the editor defaults. The custom font is not part of the seed:
// it becomes active once its bytes are loaded.
func Seed(rec *Record) editor.State {
	if rec == nil {
		return editor.NewState(editor.Size{}, "")
	}
	st := editor.NewState(editor.Size{Width: rec.CanvasWidth, Height: rec.CanvasHeight}, rec.BackgroundURL)

	if rec.Text != "" {
		st.Text = rec.Text
	}
	if rec.FontSize > 0 {
		st.FontSize = editor.ClampFontSize(rec.FontSize)
	}
	if c, err := generator.NormalizeHex(rec.FontColor); err == nil {
		st.FontColor = c
	}
	if rec.HasPosition() {
		st.Position = &editor.Point{X: *rec.TextPositionX, Y: *rec.TextPositionY}
	}
	return st
}

// Assets are the remote URLs a design references.
type Assets struct {
	Background string
	Font       string
	FontName   string
	Result     string
}

// FromState captures st as a record for publishing.
func FromState(st editor.State, assets Assets, now time.Time) Record {
	rec := Record{
		ImageURL:      assets.Result,
		FontURL:       assets.Font,
		BackgroundURL: assets.Background,
		Text:          st.Text,
		CanvasWidth:   st.CanvasSize.Width,
		CanvasHeight:  st.CanvasSize.Height,
		FontName:      assets.FontName,
		FontSize:      st.FontSize,
		FontColor:     st.FontColor,
		CreatedAt:     now.UTC(),
	}
	if rec.BackgroundURL == "" {
		rec.BackgroundURL = st.BackgroundURL
	}
	if st.Position != nil {
		x, y := st.Position.X, st.Position.Y
		rec.TextPositionX = &x
		rec.TextPositionY = &y
	}
	return rec
}
