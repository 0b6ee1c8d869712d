// Package image maintains the gallery of uploaded images: an ordered,
// most-recent-first list of records with pluggable persistence.
package image

import (
	"context"
	"errors"
	"time"
)

// Record is one gallery entry. Records are created on successful upload,
// removed on explicit deletion, and never mutated in between.
type Record struct {
	ID  string `json:"id"`
	URL string `json:"url"`
	// AssetID is the backend's identifier for the stored object (a Cloudinary
	// public ID or a bucket object key). Delivery URLs are rebuilt from it.
	AssetID    string    `json:"assetId"`
	FileName   string    `json:"fileName"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("image not found")

// Repository mirrors the gallery list to durable storage. The in-memory list
// held by Service stays authoritative; implementations are written to on a
// best-effort basis and their errors are logged, never surfaced.
type Repository interface {
	// Insert stores a newly added record.
	Insert(ctx context.Context, rec Record) error
	// Delete removes a record by ID. Returns ErrNotFound when absent.
	Delete(ctx context.Context, id string) error
	// List returns all persisted records, most-recent first.
	List(ctx context.Context) ([]Record, error)
}
