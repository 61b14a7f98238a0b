package service

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"filesearch/internal/domain"
)

// Directories returns the sorted, distinct parent directories of indexed files.
func (s *Service) Directories(ctx context.Context) ([]string, error) {
	all, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	out := []string{}
	for _, m := range all {
		dir := filepath.Dir(m.Path)
		if !seen[dir] {
			seen[dir] = true
			out = append(out, dir)
		}
	}
	sort.Strings(out)
	return out, nil
}

// FileEntry is an indexed file listed under a directory.
type FileEntry struct {
	domain.Metadata
	RelativePath string `json:"relativePath"`
}

// Files returns indexed files whose path starts with dir, sorted by path.
// RelativePath is relative to dir.
func (s *Service) Files(ctx context.Context, dir string) ([]FileEntry, error) {
	all, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	out := []FileEntry{}
	for _, m := range all {
		if !strings.HasPrefix(m.Path, dir) {
			continue
		}
		rel, err := filepath.Rel(dir, m.Path)
		if err != nil {
			rel = m.Path
		}
		out = append(out, FileEntry{Metadata: m, RelativePath: rel})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
