// fonts.go - Font management with custom face registration and an embedded fallback.
// Uses golang.org/x/image/font for OpenType rendering. The Go Regular font is
// used when no custom font is requested or when a custom font fails to parse.
package editor

import (
	"errors"
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// ErrEmptyFontData is returned when Register is given no bytes.
var ErrEmptyFontData = errors.New("editor: empty font data")

// Canvas pixels are CSS pixels: 72 DPI makes point size equal pixel size.
const fontDPI = 72

type faceKey struct {
	name string
	size int
}

// FontManager holds the default face and any registered custom faces.
// It is not safe for concurrent use; the Editor serializes access.
type FontManager struct {
	fallback *opentype.Font
	custom   map[string]*opentype.Font
	faces    map[faceKey]font.Face
}

// NewFontManager creates a font manager backed by the embedded Go font.
func NewFontManager() (*FontManager, error) {
	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	return &FontManager{
		fallback: parsed,
		custom:   make(map[string]*opentype.Font),
		faces:    make(map[faceKey]font.Face),
	}, nil
}

// Register parses data and makes it available under name.
// TrueType and OpenType (CFF) outlines are supported; WOFF containers are not
// and fail here, which callers treat as a font-load failure.
func (fm *FontManager) Register(name string, data []byte) error {
	if name == "" {
		return errors.New("editor: font name is required")
	}
	if len(data) == 0 {
		return ErrEmptyFontData
	}

	parsed, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %q: %w", name, err)
	}

	fm.custom[name] = parsed
	for k, face := range fm.faces {
		if k.name == name {
			face.Close()
			delete(fm.faces, k)
		}
	}
	return nil
}

// Has reports whether a custom face called name is registered.
func (fm *FontManager) Has(name string) bool {
	_, ok := fm.custom[name]
	return ok
}

// Family returns the family name stored in the custom font's name table,
// or "" when name is not registered or carries no family record.
func (fm *FontManager) Family(name string) string {
	parsed, ok := fm.custom[name]
	if !ok {
		return ""
	}
	var buf sfnt.Buffer
	family, err := parsed.Name(&buf, sfnt.NameIDFamily)
	if err != nil {
		return ""
	}
	return family
}

// Face returns a face for name at size pixels. Unknown or empty names
// resolve to the default face.
func (fm *FontManager) Face(name string, size int) (font.Face, error) {
	if _, ok := fm.custom[name]; !ok {
		name = ""
	}
	key := faceKey{name: name, size: size}
	if face, ok := fm.faces[key]; ok {
		return face, nil
	}

	parsed := fm.fallback
	if name != "" {
		parsed = fm.custom[name]
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     fontDPI,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}

	fm.faces[key] = face
	return face, nil
}

// TextWidth measures text the way it will be drawn: with the custom face
// when it is registered, otherwise with the default face.
func (fm *FontManager) TextWidth(text string, ref *FontRef, size int) float64 {
	name := ""
	if ref != nil {
		name = ref.Name
	}
	face, err := fm.Face(name, size)
	if err != nil {
		return 0
	}
	return fixedToFloat(font.MeasureString(face, text))
}

// Close releases all cached faces.
func (fm *FontManager) Close() {
	for k, face := range fm.faces {
		face.Close()
		delete(fm.faces, k)
	}
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func floatToFixed(v float64) fixed.Int26_6 {
	if v >= 0 {
		return fixed.Int26_6(v*64 + 0.5)
	}
	return fixed.Int26_6(v*64 - 0.5)
}
