// validate.go — Local checks that run before any network call.
package assets

import (
	"fmt"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// MaxFontBytes is the largest font file accepted for upload.
const MaxFontBytes = 10 << 20

// FontExtensions are the accepted font file extensions.
var FontExtensions = []string{".ttf", ".otf", ".woff", ".woff2"}

// ValidateFont checks the extension and size of a font file.
func ValidateFont(f File) error {
	ext := strings.ToLower(filepath.Ext(f.Name))
	if !slices.Contains(FontExtensions, ext) {
		return &ValidationError{
			Field:  "font",
			Reason: fmt.Sprintf("unsupported file type %q, use: %s", ext, strings.Join(FontExtensions, ", ")),
		}
	}
	if f.Size > MaxFontBytes {
		return &ValidationError{
			Field:  "font",
			Reason: fmt.Sprintf("file too large (%d bytes), maximum %d", f.Size, MaxFontBytes),
		}
	}
	return nil
}

// ValidateImage checks that a background file looks like an image.
// Images have no size cap.
func ValidateImage(f File) error {
	if f.Name == "" {
		return &ValidationError{Field: "image", Reason: "file name is required"}
	}
	if t := ImageType(f.Name); !strings.HasPrefix(t, "image/") {
		return &ValidationError{Field: "image", Reason: fmt.Sprintf("%q is not an image file", f.Name)}
	}
	return nil
}

// ImageType returns the MIME type implied by name's extension.
func ImageType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	}
	return mime.TypeByExtension(ext)
}

// FilenameFromURL returns the last path segment of an asset URL, which is
// the filename the delete endpoints expect.
func FilenameFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse asset URL: %w", err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("asset URL %q has no filename", raw)
	}
	return name, nil
}
