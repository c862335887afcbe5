// Package assets owns the remote resources of an editing session: the
// uploaded background and custom font, and the finalized result image.
package assets

import (
	"context"
	"io"

	"github.com/xob0t/irysup-creator/pkg/design"
)

// Kind names a remote asset class.
type Kind string

const (
	KindImage  Kind = "image"
	KindFont   Kind = "font"
	KindResult Kind = "result"
	KindDesign Kind = "design"
)

// File is a local file selected for upload.
type File struct {
	Name    string
	Size    int64
	Content io.Reader
}

// ImageMeta accompanies an image upload.
type ImageMeta struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	Type   string `json:"type"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ── Response schemas ──

// ImageUpload is the parsed answer to an image upload.
type ImageUpload struct {
	ImageURL string `json:"imageUrl"`
	Filename string `json:"filename"`
}

// FontUpload is the parsed answer to a font upload.
type FontUpload struct {
	FontURL string
}

// ResultUpload is the parsed answer to a result image upload.
type ResultUpload struct {
	ResultURL string
}

// PublishRequest saves a finalized design to the creator's collection.
type PublishRequest struct {
	ImageName     string        `json:"imageName"`
	CreatorName   string        `json:"creator_name"`
	CreatorIrysID string        `json:"creator_irysId"`
	ImageData     design.Record `json:"imageData"`
}

// Store is the remote asset backend. Implementations validate response
// shapes and report failures as *APIError or transport errors.
type Store interface {
	UploadImage(ctx context.Context, f File, meta ImageMeta) (ImageUpload, error)
	UploadFont(ctx context.Context, f File) (FontUpload, error)
	UploadResultImage(ctx context.Context, designID, dataURL string) (ResultUpload, error)
	PublishDesign(ctx context.Context, req PublishRequest) error

	DeleteImage(ctx context.Context, filename string) error
	DeleteFont(ctx context.Context, filename string) error
	DeleteResult(ctx context.Context, filename string) error

	// Fetch downloads an asset by URL.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// envelope is the {success, message, error, data} wrapper most endpoints use.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    T      `json:"data"`
}

func (e *envelope[T]) failure() string {
	if e.Error != "" {
		return e.Error
	}
	if e.Message != "" {
		return e.Message
	}
	return "no detail"
}

type fontData struct {
	FontURL string `json:"fontUrl"`
}

type resultData struct {
	ResultURL string `json:"resultUrl"`
}

// resultEnvelope also accepts resultUrl at the top level.
type resultEnvelope struct {
	envelope[resultData]
	ResultURL string `json:"resultUrl,omitempty"`
}
