package domain

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordValidate(t *testing.T) {
	ok := Record{Metadata: Metadata{Path: "/a.txt", Category: CategoryText}, Embedding: []float32{1}}
	require.NoError(t, ok.Validate())

	noID := ok
	noID.Path = ""
	assert.Error(t, noID.Validate())

	badCat := ok
	badCat.Category = "video"
	assert.Error(t, badCat.Validate())

	noVec := ok
	noVec.Embedding = nil
	assert.Error(t, noVec.Validate())
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("pdf")
	require.NoError(t, err)
	assert.Equal(t, CategoryPDF, c)

	_, err = ParseCategory("")
	assert.Error(t, err)
}

func TestErrorsUnwrap(t *testing.T) {
	var err error = &ExtractionError{Path: "/x.pdf", Category: CategoryPDF, Err: ErrNoPages}
	assert.True(t, errors.Is(err, ErrNoPages))
	assert.Contains(t, err.Error(), "/x.pdf")

	err = &CommitError{Batch: 2, Size: 128, Err: io.ErrUnexpectedEOF}
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	var qe *QueryError
	err = error(&QueryError{Query: "cats", Err: io.EOF})
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "cats", qe.Query)
}
