package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"filesearch/internal/classify"
	"filesearch/internal/domain"
	"filesearch/internal/indexstate"
	"filesearch/internal/vectorstore"
)

// Extractor produces normalized embeddings for files and queries.
type Extractor interface {
	Embed(ctx context.Context, path string, cat domain.Category) ([]float32, error)
	Query(ctx context.Context, text string) ([]float32, error)
}

// ProgressFunc is called after each batch with the number of files handled so far.
type ProgressFunc func(done, total int)

// Options tunes the service. Zero values pick defaults.
type Options struct {
	BatchSize    int
	Workers      int
	Logger       *slog.Logger
	Progress     ProgressFunc
	EmbedderName string
	StoreName    string
}

// Service owns the collaborators of the ingestion and retrieval pipeline.
// Index and Remove are serialised; Search and the listing calls are not.
type Service struct {
	classifier *classify.Classifier
	extractor  Extractor
	store      vectorstore.Storage
	state      *indexstate.State
	log        *slog.Logger

	batchSize    int
	workers      int
	progress     ProgressFunc
	embedderName string
	storeName    string

	mu sync.Mutex
}

// Status is a snapshot for status endpoints.
type Status struct {
	IndexCount int    `json:"indexCount"`
	Embedder   string `json:"embedder"`
	Store      string `json:"store"`
}

// New builds a service and loads the index state from store.
func New(ctx context.Context, classifier *classify.Classifier, extractor Extractor, store vectorstore.Storage, opts Options) (*Service, error) {
	state, err := indexstate.Load(ctx, store)
	if err != nil {
		return nil, err
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 128
	}
	if opts.Workers <= 0 {
		opts.Workers = max(1, runtime.NumCPU()-1)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	opts.Logger.Debug("Loaded index state", "count", state.Len())
	return &Service{
		classifier:   classifier,
		extractor:    extractor,
		store:        store,
		state:        state,
		log:          opts.Logger,
		batchSize:    opts.BatchSize,
		workers:      opts.Workers,
		progress:     opts.Progress,
		embedderName: opts.EmbedderName,
		storeName:    opts.StoreName,
	}, nil
}

// Classifier exposes the extension table used for discovery.
func (s *Service) Classifier() *classify.Classifier { return s.classifier }

// IsIndexed reports whether path is committed. Unknown paths are simply false.
func (s *Service) IsIndexed(path string) bool {
	return s.state.Has(path)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

func (s *Service) Status(ctx context.Context) (Status, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{IndexCount: n, Embedder: s.embedderName, Store: s.storeName}, nil
}

// ResolveDir expands a leading ~, makes path absolute and evaluates symlinks.
func ResolveDir(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// ResolvePrefix resolves a removal prefix like ResolveDir, but tolerates
// paths that no longer exist on disk.
func ResolvePrefix(path string) string {
	if resolved, err := ResolveDir(path); err == nil {
		return resolved
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
