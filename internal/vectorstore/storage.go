package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"

	"filesearch/internal/domain"
)

// Storage persists file embeddings and supports nearest-neighbor lookup.
// Every call is atomic on its own.
type Storage interface {
	// Upsert writes records keyed by path; existing ids are overwritten.
	Upsert(ctx context.Context, records []domain.Record) error
	// Query returns up to k neighbors ordered by ascending cosine distance.
	Query(ctx context.Context, vector []float32, k int) ([]domain.Neighbor, error)
	// Delete removes the given ids; unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error
	// All returns the metadata of every stored record.
	All(ctx context.Context) ([]domain.Metadata, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// ValidateRecords checks every record before a store writes any of them.
func ValidateRecords(records []domain.Record) error {
	dim := 0
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if dim == 0 {
			dim = len(r.Embedding)
		} else if len(r.Embedding) != dim {
			return fmt.Errorf("record %d: vector dimension mismatch (%d != %d)", i, len(r.Embedding), dim)
		}
	}
	return nil
}

// Candidate is a stored vector considered by Rank.
type Candidate struct {
	Meta   domain.Metadata
	Vector []float32
}

// Rank computes cosine distances against query and keeps the k closest.
// Candidates whose dimension differs from the query are skipped.
func Rank(query []float32, cands []Candidate, k int) []domain.Neighbor {
	if k <= 0 || len(cands) == 0 {
		return nil
	}
	qn := norm(query)
	out := make([]domain.Neighbor, 0, len(cands))
	for _, c := range cands {
		if len(c.Vector) != len(query) {
			continue
		}
		out = append(out, domain.Neighbor{Metadata: c.Meta, Distance: CosineDistance(query, c.Vector, qn)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Path < out[j].Path
	})
	if k < len(out) {
		out = out[:k]
	}
	return out
}

// CosineDistance returns 1 - cos(a, b), in [0, 2]. qn is the precomputed norm of a,
// or zero to compute it here.
func CosineDistance(a, b []float32, qn float64) float64 {
	if qn == 0 {
		qn = norm(a)
	}
	bn := norm(b)
	if qn == 0 || bn == 0 {
		return 1
	}
	d := 1 - dot(a, b)/(qn*bn)
	return math.Max(0, math.Min(2, d))
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
