// Package storage provides object storage backends for uploaded images.
// Both backends implement ObjectStore, so handlers and tests are
// backend-agnostic; the concrete type is chosen once at startup.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ObjectStore is the interface for uploading images and deriving display URLs.
type ObjectStore interface {
	// Upload sends a single image to the backend and returns its durable URL.
	// It performs exactly one write; there is no retry.
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
	// URLFor constructs the display URL for a stored asset. It is pure and
	// never fails; unsupported options degrade to a plainer URL.
	URLFor(assetID string, opts TransformOptions) string
}

// UploadRequest describes one image to upload. Bytes already in memory go in
// Data with their ContentType; otherwise Source references them as a data:
// URI, an http(s) URL, or a local file path. Data wins when both are set.
type UploadRequest struct {
	Source      string
	Data        []byte
	ContentType string
	FileName    string
	// Progress, when set, receives percentages in [0,100] as bytes transfer.
	// Only the bucket backend reports progress; Cloudinary uploads complete
	// in a single request and never invoke it.
	Progress func(pct float64)
}

// UploadResult is the backend's answer to a successful upload.
type UploadResult struct {
	SecureURL string    `json:"secureUrl"`
	AssetID   string    `json:"assetId"`
	Format    string    `json:"format,omitempty"`
	Bytes     int64     `json:"bytes,omitempty"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TransformOptions are the knobs for on-the-fly delivery transformations.
// Zero values mean "not requested"; Quality and Format default to "auto".
type TransformOptions struct {
	Width   int
	Height  int
	Quality string
	Format  string
	Crop    string
}

// Kind classifies upload failures into a closed set so callers can switch on
// the kind instead of parsing error text.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNetwork covers transport failures and failures to read the source.
	KindNetwork
	// KindResponse covers non-success HTTP statuses from the backend.
	KindResponse
	// KindParse covers malformed backend responses and undecodable sources.
	KindParse
)

// String returns the kind's name for logging.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindResponse:
		return "response"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by ObjectStore implementations.
type Error struct {
	Kind   Kind
	Status int // HTTP status for KindResponse, zero otherwise
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
