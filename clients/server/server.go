// Package server is a development backend for the creator API. It keeps
// uploaded assets and published designs in memory and serves them back.
package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xob0t/irysup-creator/pkg/assets"
	"github.com/xob0t/irysup-creator/pkg/design"
	"github.com/xob0t/irysup-creator/pkg/generator"
)

// maxUploadBytes bounds multipart bodies. Fonts are checked against
// assets.MaxFontBytes separately.
const maxUploadBytes = 50 << 20

// ── Asset Manager ──

type asset struct {
	Name     string
	Data     []byte
	Mime     string
	Uploaded time.Time
}

// assetManager stores assets per kind directory ("images", "fonts", "result").
type assetManager struct {
	mu     sync.RWMutex
	assets map[string]*asset // key: kind + "/" + filename
}

func newAssetManager() *assetManager {
	return &assetManager{assets: make(map[string]*asset)}
}

func (am *assetManager) put(kind, filename string, a *asset) {
	am.mu.Lock()
	am.assets[kind+"/"+filename] = a
	am.mu.Unlock()
}

func (am *assetManager) get(kind, filename string) (*asset, bool) {
	am.mu.RLock()
	a, ok := am.assets[kind+"/"+filename]
	am.mu.RUnlock()
	return a, ok
}

func (am *assetManager) remove(kind, filename string) bool {
	am.mu.Lock()
	defer am.mu.Unlock()
	key := kind + "/" + filename
	if _, ok := am.assets[key]; !ok {
		return false
	}
	delete(am.assets, key)
	return true
}

func (am *assetManager) count() int {
	am.mu.RLock()
	defer am.mu.RUnlock()
	return len(am.assets)
}

func randomID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// ── Server ──

// Options configures a Server.
type Options struct {
	Logger *slog.Logger

	// Token, when set, is required as a Bearer token on /creator routes.
	Token string
}

// Published is a design saved through /creator/upload.
type Published struct {
	ID            string        `json:"id"`
	ImageName     string        `json:"imageName"`
	CreatorName   string        `json:"creator_name"`
	CreatorIrysID string        `json:"creator_irysId"`
	ImageData     design.Record `json:"imageData"`
}

// Server implements the creator REST contract in memory.
type Server struct {
	assets *assetManager
	log    *slog.Logger
	token  string

	mu      sync.RWMutex
	designs []Published
}

// New creates an empty server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{assets: newAssetManager(), log: logger, token: opts.Token}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /creator/images", s.auth(s.handleUploadImage))
	mux.Handle("POST /creator/fonts", s.auth(s.handleUploadFont))
	mux.Handle("POST /creator/result", s.auth(s.handleUploadResult))
	mux.Handle("POST /creator/upload", s.auth(s.handlePublish))
	mux.Handle("GET /creator/designs", s.auth(s.handleListDesigns))
	mux.Handle("DELETE /creator/{kind}/{filename}", s.auth(s.handleDelete))

	mux.HandleFunc("GET /uploads/{kind}/{filename}", s.handleGetAsset)
	mux.HandleFunc("POST /render", s.handleRender)

	return s.logRequests(mux)
}

// Designs returns the published designs, oldest first.
func (s *Server) Designs() []Published {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Published(nil), s.designs...)
}

// AssetCount returns the number of stored assets.
func (s *Server) AssetCount() int { return s.assets.count() }

// RunServe starts the development backend.
func RunServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.String("port", "8080", "Listen port")
	token := fs.String("token", "", "Require this Bearer token on /creator routes")
	verbose := fs.Bool("v", false, "Log every request")
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	s := New(Options{Logger: logger, Token: *token})
	addr := ":" + *port
	logger.Info("creator API listening", "url", "http://localhost"+addr)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// ── Upload ──

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no image file")
		return
	}
	defer file.Close()

	f := assets.File{Name: header.Filename, Size: header.Size}
	if err := assets.ValidateImage(f); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var meta assets.ImageMeta
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			writeError(w, http.StatusBadRequest, "invalid metadata: "+err.Error())
			return
		}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}
	filename := randomID() + sanitizeFilename(strings.ToLower(path.Ext(header.Filename)))
	s.assets.put("images", filename, &asset{
		Name: header.Filename, Data: data, Mime: assets.ImageType(header.Filename), Uploaded: time.Now(),
	})
	s.log.Info("image stored", "filename", filename, "name", header.Filename, "width", meta.Width, "height", meta.Height)

	writeJSON(w, http.StatusOK, map[string]string{
		"imageUrl": assetURL(r, "images", filename),
		"filename": filename,
	})
}

func (s *Server) handleUploadFont(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("font")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no font file")
		return
	}
	defer file.Close()

	if err := assets.ValidateFont(assets.File{Name: header.Filename, Size: header.Size}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	filename := randomID() + "-" + sanitizeFilename(header.Filename)
	s.assets.put("fonts", filename, &asset{
		Name: header.Filename, Data: data, Mime: fontMime(header.Filename), Uploaded: time.Now(),
	})
	s.log.Info("font stored", "filename", filename, "creator", r.FormValue("creator_name"))

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    map[string]string{"fontUrl": assetURL(r, "fonts", filename)},
	})
}

func (s *Server) handleUploadResult(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DesignID   string `json:"designId"`
		FinalImage string `json:"finalImage"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.DesignID == "" || strings.ContainsAny(req.DesignID, "/\\") {
		writeError(w, http.StatusBadRequest, "designId is required")
		return
	}
	mimeType, data, err := generator.DecodeDataURL(req.FinalImage)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if mimeType != "image/png" {
		writeError(w, http.StatusBadRequest, "finalImage must be a PNG")
		return
	}

	filename := sanitizeFilename(req.DesignID) + ".png"
	s.assets.put("result", filename, &asset{Name: filename, Data: data, Mime: mimeType, Uploaded: time.Now()})
	s.log.Info("result stored", "filename", filename, "bytes", len(data))

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    map[string]string{"resultUrl": assetURL(r, "result", filename)},
	})
}

// ── Collection ──

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req assets.PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.ImageName) == "" {
		writeError(w, http.StatusBadRequest, "imageName is required")
		return
	}
	if req.ImageData.ImageURL == "" {
		writeError(w, http.StatusBadRequest, "imageData.imageUrl is required")
		return
	}

	p := Published{
		ID:            randomID(),
		ImageName:     req.ImageName,
		CreatorName:   req.CreatorName,
		CreatorIrysID: req.CreatorIrysID,
		ImageData:     req.ImageData,
	}
	s.mu.Lock()
	s.designs = append(s.designs, p)
	s.mu.Unlock()
	s.log.Info("design published", "id", p.ID, "name", p.ImageName, "creator", p.CreatorName)

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]string{"id": p.ID}})
}

func (s *Server) handleListDesigns(w http.ResponseWriter, r *http.Request) {
	designs := s.Designs()
	if creator := r.URL.Query().Get("creator"); creator != "" {
		filtered := designs[:0]
		for _, d := range designs {
			if d.CreatorName == creator {
				filtered = append(filtered, d)
			}
		}
		designs = filtered
	}
	sort.SliceStable(designs, func(i, j int) bool {
		return designs[i].ImageData.CreatedAt.After(designs[j].ImageData.CreatedAt)
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": designs})
}

// ── Asset serving ──

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	kind, filename := r.PathValue("kind"), r.PathValue("filename")
	switch kind {
	case "images", "fonts", "result":
	default:
		writeError(w, http.StatusNotFound, "unknown asset kind "+kind)
		return
	}
	if !s.assets.remove(kind, filename) {
		writeError(w, http.StatusNotFound, "asset not found")
		return
	}
	s.log.Info("asset deleted", "kind", kind, "filename", filename)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	a, ok := s.assets.get(r.PathValue("kind"), r.PathValue("filename"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	if a.Mime != "" {
		w.Header().Set("Content-Type", a.Mime)
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Write(a.Data)
}

// ── Helpers ──

func (s *Server) auth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			writeError(w, http.StatusUnauthorized, "missing or invalid token")
			return
		}
		next(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

// lookup returns the stored asset an absolute or relative /uploads URL points at.
func (s *Server) lookup(rawURL string) (*asset, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%q is not an uploaded asset: %w", rawURL, err)
	}
	p := u.Path
	if i := strings.Index(p, "/uploads/"); i >= 0 {
		p = p[i+len("/uploads/"):]
	} else {
		return nil, fmt.Errorf("%q is not an uploaded asset", rawURL)
	}
	kind, filename, ok := strings.Cut(p, "/")
	if !ok {
		return nil, fmt.Errorf("%q is not an uploaded asset", rawURL)
	}
	a, found := s.assets.get(kind, filename)
	if !found {
		return nil, errors.New("asset not found: " + rawURL)
	}
	return a, nil
}

func assetURL(r *http.Request, kind, filename string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/uploads/" + kind + "/" + url.PathEscape(filename)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// sanitizeFilename keeps [A-Za-z0-9._-] and maps everything else to '_',
// so stored names survive a round trip through a URL path unchanged.
func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, name)
}

func fontMime(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".otf":
		return "font/otf"
	case ".woff":
		return "font/woff"
	case ".woff2":
		return "font/woff2"
	default:
		return "font/ttf"
	}
}
