// validator.go — Sanity checks on saved design records.
package design

import (
	"fmt"
	"net/url"

	"github.com/xob0t/irysup-creator/pkg/editor"
	"github.com/xob0t/irysup-creator/pkg/generator"
)

// Validate checks rec for values the editor will have to correct.
// Returns warnings (never fatal errors) for graceful degradation.
func Validate(rec *Record) []string {
	if rec == nil {
		return nil
	}

	var warnings []string
	if rec.BackgroundURL == "" {
		warnings = append(warnings, "design has no background — the canvas stays on the placeholder")
	} else if _, err := url.Parse(rec.BackgroundURL); err != nil {
		warnings = append(warnings, fmt.Sprintf("background URL %q is invalid: %v", rec.BackgroundURL, err))
	}

	if rec.FontSize != 0 && rec.FontSize != editor.ClampFontSize(rec.FontSize) {
		warnings = append(warnings, fmt.Sprintf("font size %d outside [%d, %d] — clamped",
			rec.FontSize, editor.MinFontSize, editor.MaxFontSize))
	}

	if rec.FontColor != "" {
		if _, _, _, err := generator.ParseColor(rec.FontColor); err != nil {
			warnings = append(warnings, fmt.Sprintf("font color %q is invalid — using %s", rec.FontColor, editor.DefaultColor))
		}
	}

	if (rec.TextPositionX == nil) != (rec.TextPositionY == nil) {
		warnings = append(warnings, "text position has only one coordinate — using the centered default")
	}
	if rec.HasPosition() && rec.CanvasWidth > 0 && rec.CanvasHeight > 0 {
		x, y := *rec.TextPositionX, *rec.TextPositionY
		if x < 0 || y < 0 || x > float64(rec.CanvasWidth) || y > float64(rec.CanvasHeight) {
			warnings = append(warnings, fmt.Sprintf("text position (%g, %g) lies outside the %dx%d canvas",
				x, y, rec.CanvasWidth, rec.CanvasHeight))
		}
	}

	return warnings
}
