package image

import "context"

// NopRepository is the no-persistence backend: the gallery lives only in the
// Service's memory and starts empty on every boot.
type NopRepository struct{}

// NewNopRepository returns a repository that persists nothing.
func NewNopRepository() *NopRepository {
	return &NopRepository{}
}

// Insert discards the record.
func (*NopRepository) Insert(context.Context, Record) error { return nil }

// Delete reports the record gone without looking.
func (*NopRepository) Delete(context.Context, string) error { return nil }

// List always returns an empty gallery.
func (*NopRepository) List(context.Context) ([]Record, error) { return nil, nil }
