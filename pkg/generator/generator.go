// Package generator encodes composited designs.
//
// All output follows a unified pipeline: create an image.Image first,
// then write it as a PNG/JPEG file, a stream, or a base64 data URL.
package generator

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
)

// Fill dimensions used when Config leaves Width or Height unset.
const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// Config holds parameters for output generation.
type Config struct {
	Width  int         // Pixel width when Image is nil (default: 1280)
	Height int         // Pixel height when Image is nil (default: 720)
	Color  string      // Hex "#rrggbb" fill when Image is nil
	Image  image.Image // Pre-rendered image; overrides Width/Height/Color
}

// ErrNotDataURL is returned when a string is not a base64 image data URL.
var ErrNotDataURL = errors.New("not a base64 image data URL")

// Generate creates an output file. The format is inferred from the file extension:
//   - ".png"          → PNG image
//   - ".jpg", ".jpeg" → JPEG image
//   - ".bmp"          → BMP image
func Generate(output string, cfg Config) error {
	img, err := resolveImage(cfg)
	if err != nil {
		return err
	}

	switch ext := strings.ToLower(filepath.Ext(output)); ext {
	case ".png":
		return writePNG(output, img)
	case ".jpg", ".jpeg":
		return writeJPEG(output, img)
	case ".bmp":
		return writeBMP(output, img)
	default:
		return fmt.Errorf("unsupported format %q: use .png, .jpg or .bmp", ext)
	}
}

// GenerateToWriter writes an image to an io.Writer. The format is specified by ext.
// The dev server's render endpoint streams through it.
func GenerateToWriter(w io.Writer, ext string, cfg Config) error {
	img, err := resolveImage(cfg)
	if err != nil {
		return err
	}

	switch strings.ToLower(ext) {
	case ".png":
		return png.Encode(w, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	case ".bmp":
		return bmp.Encode(w, img)
	default:
		return fmt.Errorf("unsupported format %q: use .png, .jpg or .bmp", ext)
	}
}

// EncodePNG returns the PNG encoding of img.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// PNGDataURL serializes img as "data:image/png;base64,...", the form the
// result upload endpoint accepts.
func PNGDataURL(img image.Image) (string, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// DecodeDataURL splits a base64 image data URL into its MIME type and payload.
func DecodeDataURL(s string) (mimeType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	mimeType, ok = strings.CutSuffix(header, ";base64")
	if !ok || !strings.HasPrefix(mimeType, "image/") {
		return "", nil, ErrNotDataURL
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URL: %w", err)
	}
	return mimeType, data, nil
}

// resolveImage returns the source image from config, creating a solid-color
// image if none is provided.
func resolveImage(cfg Config) (image.Image, error) {
	if cfg.Image != nil {
		return cfg.Image, nil
	}

	w, h := cfg.Width, cfg.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}

	r, g, b, err := ParseColor(cfg.Color)
	if err != nil {
		return nil, err
	}

	return NewSolidImage(w, h, toRGBA(r, g, b)), nil
}
