// Package creator ties the editor and the asset session into the creator
// workflow: upload a background, place text, save and publish.
package creator

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xob0t/irysup-creator/pkg/assets"
)

// ErrAppClosed is returned when opening a workspace on a closed App.
var ErrAppClosed = errors.New("creator: app closed")

// Options configures an App.
type Options struct {
	Logger *slog.Logger

	// Store overrides the HTTP client built from Config.
	Store assets.Store

	// Now overrides the clock used for design IDs and font names.
	Now func() time.Time
}

// App is the application context shared by every editing workspace.
type App struct {
	cfg   Config
	log   *slog.Logger
	store assets.Store
	now   func() time.Time

	mu     sync.Mutex
	open   map[*Workspace]struct{}
	closed bool
}

// New creates an App from cfg.
func New(cfg Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store := opts.Store
	if store == nil {
		client, err := assets.NewClient(assets.ClientConfig{
			BaseURL:       cfg.APIBaseURL,
			Token:         cfg.Token,
			CreatorName:   cfg.Profile.Name,
			CreatorIrysID: cfg.Profile.IrysID,
			Timeout:       time.Duration(cfg.Timeout),
			Logger:        logger.With("component", "api"),
		})
		if err != nil {
			return nil, fmt.Errorf("create API client: %w", err)
		}
		store = client
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &App{
		cfg:   cfg,
		log:   logger,
		store: store,
		now:   now,
		open:  make(map[*Workspace]struct{}),
	}, nil
}

// Config returns the validated configuration.
func (a *App) Config() Config { return a.cfg }

// Store returns the asset backend.
func (a *App) Store() assets.Store { return a.store }

// Close closes every open workspace. Owned assets are left in place; call
// Workspace.Clear first to delete them.
func (a *App) Close() {
	a.mu.Lock()
	a.closed = true
	open := make([]*Workspace, 0, len(a.open))
	for w := range a.open {
		open = append(open, w)
	}
	a.mu.Unlock()

	for _, w := range open {
		w.Close()
	}
}

func (a *App) track(w *Workspace) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrAppClosed
	}
	a.open[w] = struct{}{}
	return nil
}

func (a *App) untrack(w *Workspace) {
	a.mu.Lock()
	delete(a.open, w)
	a.mu.Unlock()
}
