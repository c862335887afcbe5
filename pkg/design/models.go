// Package design describes saved creator designs: the record published to a
// user's collection and used to reopen a design in the editor.
package design

import "time"

// Record is the saved form of a design. Field names follow the collection API.
type Record struct {
	ImageURL      string    `json:"imageUrl"`      // finalized result asset
	FontURL       string    `json:"fontUrl"`       // custom font asset, if any
	BackgroundURL string    `json:"backgroundUrl"` // background asset
	Text          string    `json:"text"`
	CanvasWidth   int       `json:"canvasWidth"`
	CanvasHeight  int       `json:"canvasHeight"`
	FontName      string    `json:"fontName,omitempty"` // uploaded font file name
	FontSize      int       `json:"fontSize"`
	FontColor     string    `json:"fontColor"`
	TextPositionX *float64  `json:"textPositionX,omitempty"` // nil = centered default
	TextPositionY *float64  `json:"textPositionY,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// HasPosition reports whether both coordinates are present.
func (r *Record) HasPosition() bool {
	return r.TextPositionX != nil && r.TextPositionY != nil
}
