// Package fitz reads PDFs with MuPDF through go-fitz.
package fitz

import (
	"fmt"
	"image"
	"strings"

	gofitz "github.com/gen2brain/go-fitz"

	"filesearch/internal/domain"
)

// Reader implements domain.DocumentReader.
type Reader struct{}

func NewReader() *Reader { return &Reader{} }

// ExtractText concatenates the text of every page, separated by newlines.
func (r *Reader) ExtractText(path string) (string, error) {
	doc, err := gofitz.New(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n == 0 {
		return "", domain.ErrNoPages
	}
	var sb strings.Builder
	for i := 0; i < n; i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		sb.WriteString(text)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// RenderFirstPage rasterizes page zero at the library's default resolution.
func (r *Reader) RenderFirstPage(path string) (image.Image, error) {
	doc, err := gofitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, domain.ErrNoPages
	}
	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("render page 0: %w", err)
	}
	return img, nil
}
