package service

import (
	"context"
	"math"
	"sort"
	"strings"

	"filesearch/internal/domain"
)

// Search returns up to limit files ranked by similarity to query.
// It never fails: any fault is logged and yields an empty list.
func (s *Service) Search(ctx context.Context, query string, limit int) []domain.SearchResult {
	results := []domain.SearchResult{}
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return results
	}

	count, err := s.store.Count(ctx)
	if err != nil {
		s.logQueryError(query, err)
		return results
	}
	if count == 0 {
		return results
	}
	k := min(limit, count)

	vec, err := s.extractor.Query(ctx, query)
	if err != nil {
		s.logQueryError(query, err)
		return results
	}
	neighbors, err := s.store.Query(ctx, vec, k)
	if err != nil {
		s.logQueryError(query, err)
		return results
	}

	best := make(map[string]int, len(neighbors))
	for _, n := range neighbors {
		r := domain.SearchResult{
			Path:       n.Path,
			Name:       n.Name,
			Category:   n.Category,
			Similarity: round4(1 - n.Distance),
		}
		if i, ok := best[r.Path]; ok {
			if r.Similarity > results[i].Similarity {
				results[i] = r
			}
			continue
		}
		best[r.Path] = len(results)
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	return results
}

func (s *Service) logQueryError(query string, err error) {
	s.log.Error("Search failed", "error", &domain.QueryError{Query: query, Err: err})
}

func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
