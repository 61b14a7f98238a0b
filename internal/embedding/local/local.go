// Package local is an offline embedder. Text tokens and quantized image
// colors are hashed into a fixed number of dimensions, so no model or
// corpus preparation is needed. Similarity is lexical for text and
// palette-based for images; the two spaces are not aligned.
package local

import (
	"context"
	"hash/fnv"
	"image"
	"math"
	"strconv"

	"filesearch/internal/textprep"
)

// Embedder implements domain.Embedder with the hashing trick.
type Embedder struct {
	dimension int
}

// NewEmbedder returns an embedder producing vectors of the given dimension.
func NewEmbedder(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = 512
	}
	return &Embedder{dimension: dimension}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "local" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// EmbedText hashes stopword-filtered tokens with sublinear term frequency.
// Text without tokens yields a zero vector.
func (e *Embedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	tf := make(map[string]int)
	for _, tok := range textprep.Tokens(text) {
		tf[tok]++
	}
	vec := make([]float32, e.dimension)
	for tok, count := range tf {
		idx, sign := e.bucket("t:" + tok)
		vec[idx] += sign * float32(1+math.Log(float64(count)))
	}
	return vec, nil
}

// EmbedImage hashes a 4x4x4 color histogram, sampling at most ~64k pixels.
func (e *Embedder) EmbedImage(_ context.Context, img image.Image) ([]float32, error) {
	b := img.Bounds()
	step := 1
	for (b.Dx()/step)*(b.Dy()/step) > 1<<16 {
		step++
	}
	var hist [64]int
	total := 0
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r, g, bl, a := img.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			bin := (r>>14)<<4 | (g>>14)<<2 | bl>>14
			hist[bin]++
			total++
		}
	}
	vec := make([]float32, e.dimension)
	if total == 0 {
		return vec, nil
	}
	for bin, n := range hist {
		if n == 0 {
			continue
		}
		idx, sign := e.bucket("c:" + strconv.Itoa(bin))
		vec[idx] += sign * float32(n) / float32(total)
	}
	return vec, nil
}

func (e *Embedder) bucket(key string) (int, float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	sum := h.Sum64()
	sign := float32(1)
	if sum>>63 == 1 {
		sign = -1
	}
	return int(sum % uint64(e.dimension)), sign
}
