// Package server exposes search and index management over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"filesearch/internal/classify"
	"filesearch/internal/domain"
	"filesearch/internal/service"
)

// Backend is the part of the service the HTTP API drives.
type Backend interface {
	Search(ctx context.Context, query string, limit int) []domain.SearchResult
	Index(ctx context.Context, directories []string, exts []string) (domain.IngestReport, error)
	Remove(ctx context.Context, prefix string) (int, error)
	Status(ctx context.Context) (service.Status, error)
	Directories(ctx context.Context) ([]string, error)
	Files(ctx context.Context, dir string) ([]service.FileEntry, error)
	Classifier() *classify.Classifier
}

// NewHandler builds the API mux.
func NewHandler(backend Backend, defaultLimit int, log *slog.Logger) http.Handler {
	h := NewHandlers(backend, defaultLimit, log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/search", h.HandleSearch)
	mux.HandleFunc("POST /api/index", h.HandleIndex)
	mux.HandleFunc("DELETE /api/index", h.HandleRemove)
	mux.HandleFunc("GET /api/status", h.HandleStatus)
	mux.HandleFunc("GET /api/directories", h.HandleDirectories)
	mux.HandleFunc("GET /api/files", h.HandleFiles)
	return mux
}

// New returns an http.Server for addr; the caller runs and shuts it down.
func New(addr string, backend Backend, defaultLimit int, log *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewHandler(backend, defaultLimit, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
