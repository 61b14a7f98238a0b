package domain

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"
)

// Category is the content type of an indexed file.
type Category string

const (
	CategoryUnsupported Category = ""
	CategoryImage       Category = "image"
	CategoryText        Category = "text"
	CategoryPDF         Category = "pdf"
)

// Valid reports whether c is one of the indexable categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryImage, CategoryText, CategoryPDF:
		return true
	}
	return false
}

// ParseCategory converts a user supplied name into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return CategoryUnsupported, fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Metadata describes an indexed file. The path doubles as the record id.
type Metadata struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	Category   Category  `json:"type"`
	ModifiedAt time.Time `json:"timestamp"`
}

// Record is a single indexed file: its metadata and its normalized embedding.
type Record struct {
	Metadata
	Embedding []float32
}

// ID returns the primary key of the record.
func (r Record) ID() string { return r.Path }

// Validate checks the fields every store relies on.
func (r Record) Validate() error {
	if r.Path == "" {
		return errors.New("record has empty id")
	}
	if !r.Category.Valid() {
		return fmt.Errorf("record %s has invalid category %q", r.Path, r.Category)
	}
	if len(r.Embedding) == 0 {
		return fmt.Errorf("record %s has empty embedding", r.Path)
	}
	return nil
}

// Neighbor is a store hit: the matched item and its cosine distance to the query.
type Neighbor struct {
	Metadata
	Distance float64
}

// SearchResult is a ranked item returned to callers.
type SearchResult struct {
	Path       string   `json:"path"`
	Name       string   `json:"name"`
	Category   Category `json:"type"`
	Similarity float64  `json:"similarity"`
}

// IngestReport summarises one ingestion run.
type IngestReport struct {
	Discovered    int `json:"discovered"`
	Committed     int `json:"committed"`
	Failed        int `json:"failed"`
	FailedBatches int `json:"failedBatches"`
}

// Embedder maps text and images into a shared vector space.
type Embedder interface {
	Name() string
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedImage(ctx context.Context, img image.Image) ([]float32, error)
}

// DocumentReader reads paged documents.
type DocumentReader interface {
	// ExtractText returns the concatenated text of all pages.
	ExtractText(path string) (string, error)
	// RenderFirstPage rasterizes page zero.
	RenderFirstPage(path string) (image.Image, error)
}
