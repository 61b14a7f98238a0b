package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a path is missing from disk or from the index.
	ErrNotFound = errors.New("not found")
	// ErrNoPages marks a document with zero pages.
	ErrNoPages = errors.New("document has no pages")
)

// ExtractionError is a per-item failure while producing an embedding.
type ExtractionError struct {
	Path     string
	Category Category
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s (%s): %v", e.Path, e.Category, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// CommitError is a failed bulk write of one batch.
type CommitError struct {
	Batch int
	Size  int
	Err   error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit batch %d (%d items): %v", e.Batch, e.Size, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// QueryError wraps a failure while answering a search.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %q: %v", e.Query, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
