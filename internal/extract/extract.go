// Package extract turns a file into one normalized embedding, dispatching on its category.
package extract

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"filesearch/internal/domain"
	"filesearch/internal/textprep"
)

// ErrZeroNorm is returned for a vector that cannot be normalized.
var ErrZeroNorm = errors.New("embedding has zero norm")

// Dispatcher routes images, text and PDFs to the right embedding path.
type Dispatcher struct {
	embedder     domain.Embedder
	docs         domain.DocumentReader
	textMaxChars int
}

// New returns a dispatcher. docs may be nil when PDFs are not indexed.
func New(embedder domain.Embedder, docs domain.DocumentReader, textMaxChars int) *Dispatcher {
	return &Dispatcher{embedder: embedder, docs: docs, textMaxChars: textMaxChars}
}

// Embed returns the L2-normalized embedding of the file at path.
// Every failure is an *domain.ExtractionError.
func (d *Dispatcher) Embed(ctx context.Context, path string, cat domain.Category) ([]float32, error) {
	var (
		raw []float32
		err error
	)
	switch cat {
	case domain.CategoryImage:
		raw, err = d.embedImageFile(ctx, path)
	case domain.CategoryText:
		raw, err = d.embedTextFile(ctx, path)
	case domain.CategoryPDF:
		raw, err = d.embedPDF(ctx, path)
	default:
		err = fmt.Errorf("unsupported category %q", cat)
	}
	if err == nil {
		raw, err = Normalize(raw)
	}
	if err != nil {
		return nil, &domain.ExtractionError{Path: path, Category: cat, Err: err}
	}
	return raw, nil
}

// Query embeds free text for retrieval and normalizes the result.
func (d *Dispatcher) Query(ctx context.Context, text string) ([]float32, error) {
	v, err := d.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	return Normalize(v)
}

func (d *Dispatcher) embedImageFile(ctx context.Context, path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return d.embedder.EmbedImage(ctx, img)
}

func (d *Dispatcher) embedTextFile(ctx context.Context, path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, errors.New("file is not valid UTF-8")
	}
	return d.embedder.EmbedText(ctx, textprep.Excerpt(string(data), d.textMaxChars))
}

func (d *Dispatcher) embedPDF(ctx context.Context, path string) ([]float32, error) {
	if d.docs == nil {
		return nil, errors.New("no document reader configured")
	}
	text, err := d.docs.ExtractText(path)
	if err != nil {
		return nil, err
	}
	if text = strings.TrimSpace(text); text != "" {
		return d.embedder.EmbedText(ctx, textprep.Excerpt(text, d.textMaxChars))
	}
	// No text layer, e.g. a scanned page: embed the first page as an image.
	img, err := d.docs.RenderFirstPage(path)
	if err != nil {
		return nil, err
	}
	return d.embedder.EmbedImage(ctx, img)
}

// Normalize returns a unit-length copy of v.
func Normalize(v []float32) ([]float32, error) {
	if len(v) == 0 {
		return nil, errors.New("empty embedding")
	}
	sum := 0.0
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	n := math.Sqrt(sum)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, ErrZeroNorm
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out, nil
}
