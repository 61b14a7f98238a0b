package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"filesearch/internal/classify"
	"filesearch/internal/config"
	"filesearch/internal/document/fitz"
	"filesearch/internal/domain"
	"filesearch/internal/embedding/clip"
	"filesearch/internal/embedding/local"
	"filesearch/internal/embedding/openai"
	"filesearch/internal/extract"
	"filesearch/internal/service"
	"filesearch/internal/vectorstore"
	"filesearch/internal/vectorstore/bolt"
	"filesearch/internal/vectorstore/memory"
	"filesearch/internal/vectorstore/qdrant"
	"filesearch/internal/vectorstore/sqlite"
)

// app bundles what every subcommand needs.
type app struct {
	cfg   *config.AppConfig
	log   *slog.Logger
	store vectorstore.Storage
	svc   *service.Service
}

func (a *app) Close() error { return a.store.Close() }

func loadConfig(path, embedder, store string) (*config.AppConfig, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if path == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Override(embedder, store)
	return cfg, nil
}

// newApp assembles the service from cfg. Log output goes to logw.
func newApp(ctx context.Context, cfg *config.AppConfig, logw io.Writer, progress service.ProgressFunc) (*app, error) {
	logger := cfg.Log.NewLogger(logw)

	emb, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	st, err := newStore(cfg.VectorStore)
	if err != nil {
		return nil, err
	}

	cls := classify.New(cfg.Indexer.ImageExtensions, cfg.Indexer.TextExtensions, cfg.Indexer.PDFExtensions)
	ext := extract.New(emb, fitz.NewReader(), cfg.Indexer.TextMaxChars)
	svc, err := service.New(ctx, cls, ext, st, service.Options{
		BatchSize:    cfg.Indexer.BatchSize,
		Workers:      cfg.Indexer.Workers,
		Logger:       logger,
		Progress:     progress,
		EmbedderName: emb.Name(),
		StoreName:    cfg.VectorStore.Type,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to load index state: %w", err)
	}
	return &app{cfg: cfg, log: logger, store: st, svc: svc}, nil
}

func newEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "clip":
		if cfg.Clip == nil {
			return nil, fmt.Errorf("clip embedder config missing")
		}
		c, err := clip.NewClient(clip.Config{
			BaseURL:      cfg.Clip.BaseURL,
			APIKeyEnv:    cfg.Clip.APIKeyEnv,
			Model:        cfg.Clip.Model,
			Timeout:      time.Duration(cfg.Clip.TimeoutSecs) * time.Second,
			ImageMaxSide: cfg.Clip.ImageMaxSide,
		})
		if err != nil {
			return nil, fmt.Errorf("clip embedder init failed: %w", err)
		}
		return c, nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		c, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return c, nil
	case "local":
		dim := 0
		if cfg.Local != nil {
			dim = cfg.Local.Dimension
		}
		return local.NewEmbedder(dim), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

func newStore(cfg config.VectorStoreConfig) (vectorstore.Storage, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewStorage(), nil
	case "bolt":
		if cfg.Bolt == nil {
			return nil, fmt.Errorf("bolt config missing")
		}
		st, err := bolt.Open(cfg.Bolt.Path)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "sqlite":
		if cfg.SQLite == nil {
			return nil, fmt.Errorf("sqlite config missing")
		}
		st, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

// categoryExtensions maps --category values to the extensions to scan.
// No categories means every supported extension.
func categoryExtensions(cls *classify.Classifier, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	cats := make([]domain.Category, 0, len(names))
	for _, n := range names {
		c, err := domain.ParseCategory(n)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cls.Extensions(cats...), nil
}

func progressPrinter(w io.Writer) service.ProgressFunc {
	return func(done, total int) {
		fmt.Fprintf(w, "\rIndexed %d/%d files", done, total)
		if done == total {
			fmt.Fprintln(w)
		}
	}
}

type fileOpener interface {
	Open(path string) error
}

// openPath resolves arg like other path arguments and opens it.
func openPath(o fileOpener, arg string) error {
	path := service.ResolvePrefix(arg)
	if err := o.Open(path); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%s no longer exists; run `filesearch remove` to drop it from the index", path)
		}
		return err
	}
	return nil
}
