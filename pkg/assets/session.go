// session.go — Per-session ownership of uploaded assets.
package assets

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/xob0t/irysup-creator/pkg/generator"
)

// State is a step of the session lifecycle:
//
//	Empty → BackgroundUploading → BackgroundReady → [FontUploading → FontReady]* → Finalizing → Finalized
//
// Discard returns any non-Empty state to Empty.
type State int

const (
	StateEmpty State = iota
	StateBackgroundUploading
	StateBackgroundReady
	StateFontUploading
	StateFontReady
	StateFinalizing
	StateFinalized
)

var stateNames = [...]string{
	StateEmpty:               "empty",
	StateBackgroundUploading: "background-uploading",
	StateBackgroundReady:     "background-ready",
	StateFontUploading:       "font-uploading",
	StateFontReady:           "font-ready",
	StateFinalizing:          "finalizing",
	StateFinalized:           "finalized",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Uploaded identifies an asset the session now owns.
type Uploaded struct {
	URL string
}

// Owned lists the remote URLs a session is responsible for.
type Owned struct {
	Background string
	Font       string
	FontName   string // original file name of the font
	Result     string
}

// Profile identifies the creator for design IDs and publishing.
type Profile struct {
	Name   string `json:"name"`
	IrysID string `json:"irysId"`
}

// DesignID returns "<name>-<irysId>-<unix millis>".
func DesignID(p Profile, now time.Time) string {
	return fmt.Sprintf("%s-%s-%d", p.Name, p.IrysID, now.UnixMilli())
}

// Session owns the remote assets of one editing session until Publish
// transfers them or Discard deletes them. It is safe for concurrent use;
// the lock is never held across network calls.
type Session struct {
	mu    sync.Mutex
	store Store
	log   *slog.Logger
	state State
	gen   uint64 // bumped by Discard to orphan in-flight uploads
	owned Owned
}

// NewSession creates an empty session backed by store.
func NewSession(store Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{store: store, log: logger}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Owned returns the URLs the session currently owns.
func (s *Session) Owned() Owned {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owned
}

// Resume adopts assets uploaded earlier in the same session, e.g. when the
// editor screen is reopened from a draft. The session must be empty.
func (s *Session) Resume(o Owned) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEmpty || o.Background == "" {
		return ErrInvalidState
	}
	s.owned = o
	switch {
	case o.Result != "":
		s.state = StateFinalized
	case o.Font != "":
		s.state = StateFontReady
	default:
		s.state = StateBackgroundReady
	}
	return nil
}

// UploadBackground uploads the background image.
func (s *Session) UploadBackground(ctx context.Context, f File, meta ImageMeta) (Uploaded, error) {
	if err := ValidateImage(f); err != nil {
		return Uploaded{}, err
	}
	prev, gen, err := s.begin(StateBackgroundUploading, StateEmpty)
	if err != nil {
		return Uploaded{}, err
	}

	res, err := s.store.UploadImage(ctx, f, meta)
	if err != nil {
		s.abort(gen, prev)
		return Uploaded{}, &UploadError{Kind: KindImage, Err: err}
	}

	if !s.commit(gen, StateBackgroundReady, func(o *Owned) { o.Background = res.ImageURL }) {
		s.deleteOrphan(context.WithoutCancel(ctx), KindImage, res.ImageURL)
		return Uploaded{}, ErrDiscarded
	}
	s.log.Info("background uploaded", "url", res.ImageURL, "filename", res.Filename)
	return Uploaded{URL: res.ImageURL}, nil
}

// UploadFont validates and uploads a custom font. Invalid files fail with
// *ValidationError before any network call. A replaced font is deleted.
func (s *Session) UploadFont(ctx context.Context, f File) (Uploaded, error) {
	if err := ValidateFont(f); err != nil {
		return Uploaded{}, err
	}
	prev, gen, err := s.begin(StateFontUploading, StateBackgroundReady, StateFontReady)
	if err != nil {
		return Uploaded{}, err
	}

	res, err := s.store.UploadFont(ctx, f)
	if err != nil {
		s.abort(gen, prev)
		return Uploaded{}, &UploadError{Kind: KindFont, Err: err}
	}

	var replaced string
	ok := s.commit(gen, StateFontReady, func(o *Owned) {
		replaced = o.Font
		o.Font = res.FontURL
		o.FontName = f.Name
	})
	if !ok {
		s.deleteOrphan(context.WithoutCancel(ctx), KindFont, res.FontURL)
		return Uploaded{}, ErrDiscarded
	}
	if replaced != "" && replaced != res.FontURL {
		s.deleteOrphan(context.WithoutCancel(ctx), KindFont, replaced)
	}
	s.log.Info("font uploaded", "url", res.FontURL, "name", f.Name)
	return Uploaded{URL: res.FontURL}, nil
}

// Finalize encodes the composited surface and uploads it as the design's
// result image. Finalizing again replaces the previous result, which is deleted.
func (s *Session) Finalize(ctx context.Context, img image.Image, designID string) (Uploaded, error) {
	dataURL, err := generator.PNGDataURL(img)
	if err != nil {
		return Uploaded{}, fmt.Errorf("serialize design: %w", err)
	}
	prev, gen, err := s.begin(StateFinalizing, StateBackgroundReady, StateFontReady, StateFinalized)
	if err != nil {
		return Uploaded{}, err
	}

	res, err := s.store.UploadResultImage(ctx, designID, dataURL)
	if err != nil {
		s.abort(gen, prev)
		return Uploaded{}, &UploadError{Kind: KindResult, Err: err}
	}

	var replaced string
	ok := s.commit(gen, StateFinalized, func(o *Owned) {
		replaced = o.Result
		o.Result = res.ResultURL
	})
	if !ok {
		s.deleteOrphan(context.WithoutCancel(ctx), KindResult, res.ResultURL)
		return Uploaded{}, ErrDiscarded
	}
	if replaced != "" && replaced != res.ResultURL {
		s.deleteOrphan(context.WithoutCancel(ctx), KindResult, replaced)
	}
	s.log.Info("design finalized", "design", designID, "url", res.ResultURL)
	return Uploaded{URL: res.ResultURL}, nil
}

// Publish saves the finalized design to the creator's collection. On
// success the collection owns the assets and the session is empty again.
func (s *Session) Publish(ctx context.Context, req PublishRequest) error {
	s.mu.Lock()
	if s.state != StateFinalized {
		s.mu.Unlock()
		return ErrInvalidState
	}
	gen := s.gen
	s.mu.Unlock()

	if err := s.store.PublishDesign(ctx, req); err != nil {
		return &UploadError{Kind: KindDesign, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.gen++
		s.state = StateEmpty
		s.owned = Owned{}
	}
	s.log.Info("design published", "name", req.ImageName)
	return nil
}

// Discard deletes every owned asset and resets the session. Deletes are
// independent and best-effort: failures are logged, never returned, because
// the local state is discarded regardless.
func (s *Session) Discard(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateEmpty {
		s.mu.Unlock()
		return
	}
	owned := s.owned
	s.owned = Owned{}
	s.state = StateEmpty
	s.gen++
	s.mu.Unlock()

	s.deleteOrphan(ctx, KindFont, owned.Font)
	s.deleteOrphan(ctx, KindImage, owned.Background)
	s.deleteOrphan(ctx, KindResult, owned.Result)
}

// begin moves to the in-flight state when the current state is one of from.
func (s *Session) begin(next State, from ...State) (prev State, gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(from, s.state) {
		return s.state, 0, fmt.Errorf("%w: %s while %s", ErrInvalidState, next, s.state)
	}
	prev = s.state
	s.state = next
	return prev, s.gen, nil
}

// abort restores prev after a failed call, unless the session was discarded meanwhile.
func (s *Session) abort(gen uint64, prev State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.state = prev
	}
}

// commit records a successful call. It reports false when the session was
// discarded while the call was in flight.
func (s *Session) commit(gen uint64, next State, apply func(*Owned)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	apply(&s.owned)
	s.state = next
	return true
}

// deleteOrphan removes one remote asset, logging any failure. Callers on
// the discarded-during-upload path pass a context detached from the upload's
// cancellation, since the discard that orphaned the asset usually cancels it.
func (s *Session) deleteOrphan(ctx context.Context, kind Kind, rawURL string) {
	if rawURL == "" {
		return
	}
	filename, err := FilenameFromURL(rawURL)
	if err != nil {
		s.log.Warn("cannot delete asset", "kind", kind, "url", rawURL, "error", err)
		return
	}

	var del func(context.Context, string) error
	switch kind {
	case KindImage:
		del = s.store.DeleteImage
	case KindFont:
		del = s.store.DeleteFont
	case KindResult:
		del = s.store.DeleteResult
	default:
		return
	}

	if err := del(ctx, filename); err != nil {
		s.log.Warn("asset delete failed", "error", &DeleteError{Kind: kind, Filename: filename, Err: err})
		return
	}
	s.log.Info("asset deleted", "kind", kind, "filename", filename)
}
