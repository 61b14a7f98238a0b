package service

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"filesearch/internal/classify"
	"filesearch/internal/domain"
)

type candidate struct {
	path     string
	category domain.Category
	modTime  time.Time
}

// Index walks directories and commits every supported file that is not yet indexed.
// exts restricts discovery to the given extensions; nil means all known ones.
//
// Per-file extraction failures and per-batch commit failures are logged and
// counted in the report; they never abort the run. A failed batch is not
// recorded as indexed, so the next run retries it. The returned error is
// non-nil only when ctx is cancelled, in which case batches already
// committed stay committed.
func (s *Service) Index(ctx context.Context, directories []string, exts []string) (domain.IngestReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report domain.IngestReport
	files := s.discover(directories, exts)
	report.Discovered = len(files)
	if len(files) == 0 {
		s.log.Info("No new files to index", "directories", directories)
		return report, nil
	}
	s.log.Info("Indexing files", "count", len(files), "batch_size", s.batchSize, "workers", s.workers)

	batchNo := 0
	for start := 0; start < len(files); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			s.log.Warn("Indexing cancelled", "committed", report.Committed, "remaining", len(files)-start)
			return report, err
		}
		end := min(start+s.batchSize, len(files))
		batch := files[start:end]
		batchNo++

		records := s.extractBatch(ctx, batch)
		report.Failed += len(batch) - len(records)

		if len(records) > 0 {
			if err := s.store.Upsert(ctx, records); err != nil {
				cerr := &domain.CommitError{Batch: batchNo, Size: len(records), Err: err}
				s.log.Error("Failed to commit batch", "batch", batchNo, "size", len(records), "error", cerr)
				report.Failed += len(records)
				report.FailedBatches++
			} else {
				ids := make([]string, len(records))
				for i, r := range records {
					ids[i] = r.Path
				}
				s.state.Add(ids...)
				report.Committed += len(records)
			}
		}

		if s.progress != nil {
			s.progress(end, len(files))
		}
	}

	s.log.Info("Indexing finished", "committed", report.Committed, "failed", report.Failed, "failed_batches", report.FailedBatches)
	return report, nil
}

// extractBatch embeds batch on the worker pool. Results keep enumeration order;
// failed items are dropped.
func (s *Service) extractBatch(ctx context.Context, batch []candidate) []domain.Record {
	results := make([]*domain.Record, len(batch))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, c := range batch {
		g.Go(func() error {
			vec, err := s.extractor.Embed(ctx, c.path, c.category)
			if err != nil {
				s.log.Error("Failed to index file", "path", c.path, "error", err)
				return nil
			}
			results[i] = &domain.Record{
				Metadata: domain.Metadata{
					Path:       c.path,
					Name:       filepath.Base(c.path),
					Category:   c.category,
					ModifiedAt: c.modTime,
				},
				Embedding: vec,
			}
			return nil
		})
	}
	_ = g.Wait()

	records := make([]domain.Record, 0, len(batch))
	for _, r := range results {
		if r != nil {
			records = append(records, *r)
		}
	}
	return records
}

// discover lists new candidate files once, in walk order.
func (s *Service) discover(directories []string, exts []string) []candidate {
	allowed := make(map[string]bool)
	if exts == nil {
		exts = s.classifier.All()
	}
	for _, e := range classify.NormalizeExtensions(exts) {
		allowed[e] = true
	}

	seen := make(map[string]bool)
	var out []candidate
	for _, dir := range directories {
		root, err := ResolveDir(dir)
		if err != nil {
			s.log.Warn("Skipping directory", "path", dir, "error", err)
			continue
		}
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			s.log.Warn("Skipping directory", "path", dir, "reason", "not a directory")
			continue
		}
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				s.log.Warn("Walk error", "path", path, "error", err)
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if !allowed[lowerExt(path)] || seen[path] {
				return nil
			}
			cat := s.classifier.Classify(path)
			if cat == domain.CategoryUnsupported || s.state.Has(path) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				s.log.Warn("Stat failed", "path", path, "error", err)
				return nil
			}
			seen[path] = true
			out = append(out, candidate{path: path, category: cat, modTime: info.ModTime().UTC()})
			return nil
		})
	}
	return out
}

func lowerExt(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
