package image

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileRepository persists the gallery as a single JSON document on disk —
// the whole list is rewritten on every mutation. Suited for single-instance
// deployments without a database.
type FileRepository struct {
	mu   sync.Mutex
	path string
}

// NewFileRepository creates a FileRepository writing to path. The parent
// directory is created if missing.
func NewFileRepository(path string) (*FileRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create registry directory: %w", err)
	}
	return &FileRepository{path: path}, nil
}

// Insert prepends the record and rewrites the document.
func (r *FileRepository) Insert(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return err
	}
	records = append([]Record{rec}, records...)
	return r.save(records)
}

// Delete filters the record out by ID and rewrites the document.
func (r *FileRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return err
	}

	kept := records[:0]
	found := false
	for _, rec := range records {
		if rec.ID == id {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	if !found {
		return ErrNotFound
	}
	return r.save(kept)
}

// List returns the persisted records in stored order.
func (r *FileRepository) List(_ context.Context) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *FileRepository) load() ([]Record, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse registry file: %w", err)
	}
	return records, nil
}

// save writes via a temp file and rename so a crash mid-write cannot leave a
// truncated document behind.
func (r *FileRepository) save(records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write registry temp file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace registry file: %w", err)
	}
	return nil
}
