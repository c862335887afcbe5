package creator

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/xob0t/irysup-creator/pkg/design"
	"github.com/xob0t/irysup-creator/pkg/editor"
)

// composeFontName is the face name used for a design's font in Compose.
const composeFontName = "design-font"

// Compose renders rec headlessly at its saved canvas size. The background
// is scaled to fit when its size differs. fontData may be nil; a font that
// cannot be parsed is logged and the default face is used.
func Compose(rec *design.Record, background image.Image, fontData []byte, logger *slog.Logger) (*image.RGBA, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	fm, err := editor.NewFontManager()
	if err != nil {
		return nil, err
	}
	defer fm.Close()

	st := design.Seed(rec)
	if len(fontData) > 0 {
		if err := fm.Register(composeFontName, fontData); err != nil {
			logger.Warn("design font failed to load, using default face", "error", err)
		} else {
			st.CustomFont = &editor.FontRef{Name: composeFontName}
			if rec != nil {
				st.CustomFont.SourceURL = rec.FontURL
			}
		}
	}
	if background == nil && st.CanvasSize.Empty() {
		return nil, fmt.Errorf("design has neither a background nor a canvas size")
	}
	return editor.NewCompositor(fm).Render(&st, background), nil
}

// DecodeImage decodes PNG, JPEG, GIF, WebP or BMP data.
func DecodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}
