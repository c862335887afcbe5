package assets

import (
	"errors"
	"fmt"
)

// Sentinel errors for the asset lifecycle.
var (
	// ErrInvalidState is returned for an operation the session's current
	// state does not allow, e.g. finalizing before a background exists.
	ErrInvalidState = errors.New("assets: operation not allowed in current state")

	// ErrDiscarded is returned by an upload that completed after the session
	// was discarded. The orphaned remote asset has already been deleted.
	ErrDiscarded = errors.New("assets: session discarded during upload")
)

// ValidationError reports bad local input. It never reaches the network.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UploadError reports a failed or rejected upload.
type UploadError struct {
	Kind Kind
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Kind, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// DeleteError reports a failed or rejected delete.
type DeleteError struct {
	Kind     Kind
	Filename string
	Err      error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete %s %q: %v", e.Kind, e.Filename, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// APIError is a non-success answer from the backend.
type APIError struct {
	Status  int // HTTP status, 0 when the body reported failure on a 2xx
	Message string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return "server reported failure: " + e.Message
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}
