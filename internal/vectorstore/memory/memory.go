package memory

import (
	"context"
	"sync"

	"filesearch/internal/domain"
	"filesearch/internal/vectorstore"
)

// Storage is an in-process vector store using brute-force cosine distance.
type Storage struct {
	mu      sync.RWMutex
	records map[string]domain.Record
}

func NewStorage() *Storage {
	return &Storage{records: make(map[string]domain.Record)}
}

func (s *Storage) Upsert(_ context.Context, records []domain.Record) error {
	if err := vectorstore.ValidateRecords(records); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		r.Embedding = append([]float32(nil), r.Embedding...)
		s.records[r.Path] = r
	}
	return nil
}

func (s *Storage) Query(_ context.Context, vector []float32, k int) ([]domain.Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cands := make([]vectorstore.Candidate, 0, len(s.records))
	for _, r := range s.records {
		cands = append(cands, vectorstore.Candidate{Meta: r.Metadata, Vector: r.Embedding})
	}
	return vectorstore.Rank(vector, cands, k), nil
}

func (s *Storage) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.records, id)
	}
	return nil
}

func (s *Storage) All(_ context.Context) ([]domain.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Metadata, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Metadata)
	}
	return out, nil
}

func (s *Storage) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *Storage) Close() error { return nil }
