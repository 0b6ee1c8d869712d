package image

import (
	"context"
	"sync"
	"time"

	"github.com/rs/xid"
	"go.uber.org/zap"
)

// Service owns the authoritative in-memory gallery list, most-recent first.
// All mutations are serialized through one lock so concurrent add/remove
// calls cannot drop each other's changes, and each mutation is mirrored to
// the repository best-effort: persistence errors are logged, never returned.
type Service struct {
	mu      sync.Mutex
	records []Record
	repo    Repository
	log     *zap.Logger
}

// NewService loads the persisted gallery and returns the service. A failed
// load starts the gallery empty; it is logged and never raised.
func NewService(ctx context.Context, repo Repository, log *zap.Logger) *Service {
	s := &Service{repo: repo, log: log}

	records, err := repo.List(ctx)
	if err != nil {
		log.Warn("gallery load failed, starting empty", zap.Error(err))
		records = nil
	}
	s.records = records
	return s
}

// Add synthesizes a record for an uploaded image and prepends it.
func (s *Service) Add(ctx context.Context, url, assetID, fileName string, uploadedAt time.Time) Record {
	rec := Record{
		ID:         xid.New().String(),
		URL:        url,
		AssetID:    assetID,
		FileName:   fileName,
		UploadedAt: uploadedAt,
	}

	s.mu.Lock()
	s.records = append([]Record{rec}, s.records...)
	s.mu.Unlock()

	if err := s.repo.Insert(ctx, rec); err != nil {
		s.log.Warn("gallery persist failed on add", zap.String("id", rec.ID), zap.Error(err))
	}
	return rec
}

// Remove deletes a record by ID. Returns ErrNotFound when no such record
// exists; persistence failures are swallowed as on Add.
func (s *Service) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	kept := make([]Record, 0, len(s.records))
	found := false
	for _, rec := range s.records {
		if rec.ID == id {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	if found {
		s.records = kept
	}
	s.mu.Unlock()

	if !found {
		return ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.log.Warn("gallery persist failed on remove", zap.String("id", id), zap.Error(err))
	}
	return nil
}

// Get returns the record with the given ID.
func (s *Service) Get(id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return Record{}, ErrNotFound
}

// List returns a copy of the gallery, most-recent first.
func (s *Service) List() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}
