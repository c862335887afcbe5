// workspace.go — One editing screen: an Editor plus the Session that owns
// its uploaded assets.
package creator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/xob0t/irysup-creator/pkg/assets"
	"github.com/xob0t/irysup-creator/pkg/design"
	"github.com/xob0t/irysup-creator/pkg/editor"
)

// Status messages shown while the workspace works.
const (
	StatusIdle             = ""
	StatusUploadingImage   = "Uploading image..."
	StatusImageReady       = "Image uploaded"
	StatusUploadingFont    = "Uploading font..."
	StatusFontReady        = "Font applied"
	StatusFontFallback     = "Font could not be loaded, using the default font"
	StatusSaving           = "Saving design..."
	StatusSaved            = "Design saved"
	StatusPublishing       = "Publishing design..."
	StatusPublished        = "Design published"
	StatusFailed           = "Something went wrong, please try again"
	StatusLoadingDesign    = "Loading design..."
	StatusBackgroundFailed = "Background could not be loaded"
)

// WorkspaceOptions configures a Workspace.
type WorkspaceOptions struct {
	// Redraw receives every rendered canvas.
	Redraw func(*image.RGBA)
}

// Workspace is one editing session. Close cancels in-flight loads.
type Workspace struct {
	app     *App
	log     *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	editor  *editor.Editor
	session *assets.Session

	mu     sync.Mutex
	status string
}

// Open starts an empty workspace showing the placeholder canvas.
func (a *App) Open(opts WorkspaceOptions) (*Workspace, error) {
	return a.openState(editor.NewState(editor.Size{}, ""), opts)
}

func (a *App) openState(st editor.State, opts WorkspaceOptions) (*Workspace, error) {
	log := a.log.With("component", "workspace")
	ed, err := editor.New(st, editor.Options{Logger: log, Redraw: opts.Redraw})
	if err != nil {
		return nil, fmt.Errorf("create editor: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Workspace{
		app:     a,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		editor:  ed,
		session: assets.NewSession(a.store, log),
	}
	if err := a.track(w); err != nil {
		cancel()
		ed.Close()
		return nil, err
	}
	return w, nil
}

// OpenDesign reopens a draft design whose assets this creator uploaded and
// has not published yet. The session adopts the draft's background, font
// and result before they are fetched, so Clear deletes them even when a
// fetch fails.
func (a *App) OpenDesign(ctx context.Context, rec *design.Record, opts WorkspaceOptions) (*Workspace, []string, error) {
	warnings := design.Validate(rec)
	w, err := a.openState(design.Seed(rec), opts)
	if err != nil {
		return nil, warnings, err
	}
	if rec == nil || rec.BackgroundURL == "" {
		return w, warnings, nil
	}
	w.setStatus(StatusLoadingDesign)

	// Adopt before fetching so Clear removes the draft's assets even when
	// they fail to load here.
	owned := assets.Owned{Background: rec.BackgroundURL, Font: rec.FontURL, FontName: rec.FontName, Result: rec.ImageURL}
	if err := w.session.Resume(owned); err != nil {
		return w, warnings, err
	}

	ctx, done := w.scope(ctx)
	defer done()

	if rec.FontURL != "" {
		ref := editor.FontRef{Name: a.fontName(), SourceURL: rec.FontURL}
		w.editor.RequestFont(ref)
		data, err := a.store.Fetch(ctx, rec.FontURL)
		if err != nil {
			w.editor.FontFailed(ref, err)
			warnings = append(warnings, fmt.Sprintf("font %s not loaded: %v", rec.FontURL, err))
		} else if err := w.editor.FontLoaded(ref, data); err != nil {
			warnings = append(warnings, err.Error())
		}
	}

	data, err := a.store.Fetch(ctx, rec.BackgroundURL)
	if err == nil {
		var img image.Image
		if img, _, err = DecodeImage(data); err == nil {
			err = w.editor.BackgroundLoaded(rec.BackgroundURL, img)
		}
	}
	if err != nil {
		w.editor.BackgroundFailed(rec.BackgroundURL, err)
		w.setStatus(StatusBackgroundFailed)
		return w, append(warnings, fmt.Sprintf("background %s not loaded: %v", rec.BackgroundURL, err)), nil
	}

	w.setStatus(StatusIdle)
	return w, warnings, nil
}

// Editor returns the workspace's editor for input events.
func (w *Workspace) Editor() *editor.Editor { return w.editor }

// Session returns the asset session.
func (w *Workspace) Session() *assets.Session { return w.session }

// Status returns the latest user-facing status message.
func (w *Workspace) Status() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// UploadBackground decodes f locally, uploads it and shows it on the canvas.
// The canvas takes the image's natural size.
func (w *Workspace) UploadBackground(ctx context.Context, f assets.File) error {
	data, err := io.ReadAll(f.Content)
	if err != nil {
		return fmt.Errorf("read %s: %w", f.Name, err)
	}
	if err := assets.ValidateImage(f); err != nil {
		return err
	}
	img, format, err := DecodeImage(data)
	if err != nil {
		return &assets.ValidationError{Field: "image", Reason: fmt.Sprintf("cannot decode %s: %v", f.Name, err)}
	}

	meta := assets.ImageMeta{
		Name:   f.Name,
		Size:   int64(len(data)),
		Type:   assets.ImageType(f.Name),
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}
	if meta.Type == "" {
		meta.Type = "image/" + format
	}

	ctx, done := w.scope(ctx)
	defer done()

	w.setStatus(StatusUploadingImage)
	up, err := w.session.UploadBackground(ctx, assets.File{Name: f.Name, Size: meta.Size, Content: bytes.NewReader(data)}, meta)
	if err != nil {
		w.setStatus(StatusFailed)
		return err
	}
	if err := w.editor.BackgroundLoaded(up.URL, img); err != nil {
		return err
	}
	w.setStatus(StatusImageReady)
	return nil
}

// UploadFont uploads a custom font and applies it. A font the renderer cannot
// parse still counts as uploaded; the text falls back to the default face.
func (w *Workspace) UploadFont(ctx context.Context, f assets.File) error {
	if err := assets.ValidateFont(f); err != nil {
		return err
	}
	data, err := io.ReadAll(f.Content)
	if err != nil {
		return fmt.Errorf("read %s: %w", f.Name, err)
	}

	ctx, done := w.scope(ctx)
	defer done()

	w.setStatus(StatusUploadingFont)
	up, err := w.session.UploadFont(ctx, assets.File{Name: f.Name, Size: int64(len(data)), Content: bytes.NewReader(data)})
	if err != nil {
		w.setStatus(StatusFailed)
		return err
	}

	ref := editor.FontRef{Name: w.app.fontName(), SourceURL: up.URL}
	w.editor.RequestFont(ref)
	if err := w.editor.FontLoaded(ref, data); err != nil {
		if errors.Is(err, editor.ErrClosed) {
			return err
		}
		w.setStatus(StatusFontFallback)
		return nil
	}
	w.setStatus(StatusFontReady)
	return nil
}

// Save renders the design and uploads it as the result image. It returns
// the design ID used for the upload.
func (w *Workspace) Save(ctx context.Context) (string, error) {
	ctx, done := w.scope(ctx)
	defer done()

	id := assets.DesignID(w.app.cfg.Profile, w.app.now())
	w.setStatus(StatusSaving)
	if _, err := w.session.Finalize(ctx, w.editor.Snapshot(), id); err != nil {
		w.setStatus(StatusFailed)
		return "", err
	}
	w.setStatus(StatusSaved)
	return id, nil
}

// Publish adds the saved design to the creator's collection under name.
func (w *Workspace) Publish(ctx context.Context, name string) (design.Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return design.Record{}, &assets.ValidationError{Field: "name", Reason: "a design name is required"}
	}

	ctx, done := w.scope(ctx)
	defer done()

	owned := w.session.Owned()
	rec := design.FromState(w.editor.State(), design.Assets{
		Background: owned.Background,
		Font:       owned.Font,
		FontName:   owned.FontName,
		Result:     owned.Result,
	}, w.app.now())

	profile := w.app.cfg.Profile
	w.setStatus(StatusPublishing)
	err := w.session.Publish(ctx, assets.PublishRequest{
		ImageName:     name,
		CreatorName:   profile.Name,
		CreatorIrysID: profile.IrysID,
		ImageData:     rec,
	})
	if err != nil {
		w.setStatus(StatusFailed)
		return design.Record{}, err
	}
	w.setStatus(StatusPublished)
	return rec, nil
}

// Clear deletes every asset the session still owns and closes the workspace.
func (w *Workspace) Clear(ctx context.Context) {
	w.session.Discard(ctx)
	w.Close()
}

// Close cancels in-flight work and detaches the editor. Owned assets stay.
func (w *Workspace) Close() {
	w.cancel()
	w.editor.Close()
	w.app.untrack(w)
}

// scope derives a context that also ends when the workspace closes.
func (w *Workspace) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(w.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (w *Workspace) setStatus(s string) {
	w.mu.Lock()
	w.status = s
	w.mu.Unlock()
	if s != StatusIdle {
		w.log.Debug("status", "message", s)
	}
}

// fontName returns a unique face name for a newly loaded custom font.
func (a *App) fontName() string {
	return fmt.Sprintf("CustomFont-%d", a.now().UnixMilli())
}
