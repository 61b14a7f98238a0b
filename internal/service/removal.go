package service

import (
	"context"
	"fmt"
	"strings"
)

// Remove deletes every indexed item whose path starts with prefix and
// returns how many were removed. Matching is a raw string prefix, so
// "/data/a" also matches "/data/ab/x.png". An empty prefix removes nothing.
func (s *Service) Remove(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("list index: %w", err)
	}
	var ids []string
	for _, m := range all {
		if strings.HasPrefix(m.Path, prefix) {
			ids = append(ids, m.Path)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.store.Delete(ctx, ids); err != nil {
		return 0, fmt.Errorf("delete %d items: %w", len(ids), err)
	}
	s.state.Remove(ids...)
	s.log.Info("Removed items", "prefix", prefix, "count", len(ids))
	return len(ids), nil
}
