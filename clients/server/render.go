package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/xob0t/irysup-creator/pkg/creator"
	"github.com/xob0t/irysup-creator/pkg/design"
	"github.com/xob0t/irysup-creator/pkg/generator"
)

// handleRender composes a design record from stored assets and returns the
// image, PNG unless another format is asked for.
// Validation warnings are logged.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var rec design.Record
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&rec); err != nil {
		http.Error(w, "decode design: "+err.Error(), http.StatusBadRequest)
		return
	}
	for _, warn := range design.Validate(&rec) {
		s.log.Warn("render", "warning", warn)
	}

	bgAsset, err := s.lookup(rec.BackgroundURL)
	if err != nil {
		http.Error(w, "background: "+err.Error(), http.StatusBadRequest)
		return
	}
	bg, _, err := creator.DecodeImage(bgAsset.Data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	var fontData []byte
	if rec.FontURL != "" {
		fontAsset, err := s.lookup(rec.FontURL)
		if err != nil {
			http.Error(w, "font: "+err.Error(), http.StatusBadRequest)
			return
		}
		fontData = fontAsset.Data
	}

	img, err := creator.Compose(&rec, bg, fontData, s.log)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ext, mimeType := renderFormat(r)
	var buf bytes.Buffer
	if err := generator.GenerateToWriter(&buf, ext, generator.Config{Image: img}); err != nil {
		http.Error(w, "encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", mimeType)
	w.Write(buf.Bytes())
}

// renderFormat picks the output encoding from ?format= or the Accept header.
// PNG is the default.
func renderFormat(r *http.Request) (ext, mimeType string) {
	f := strings.ToLower(r.URL.Query().Get("format"))
	if f == "" {
		accept := r.Header.Get("Accept")
		switch {
		case strings.Contains(accept, "image/jpeg"):
			f = "jpg"
		case strings.Contains(accept, "image/bmp"):
			f = "bmp"
		}
	}
	switch f {
	case "jpg", "jpeg":
		return ".jpg", "image/jpeg"
	case "bmp":
		return ".bmp", "image/bmp"
	default:
		return ".png", "image/png"
	}
}
