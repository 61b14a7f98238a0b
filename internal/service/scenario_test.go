package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filesearch/internal/document/fitz"
	"filesearch/internal/embedding/local"
	"filesearch/internal/extract"
	"filesearch/internal/vectorstore/memory"
)

// textPDF returns a single-page PDF that draws text.
func textPDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 18 Tf 20 100 Td (%s) Tj ET", text)
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 300 200] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func orangeJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: 240, G: 140, B: 20, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestMixedTreeIndexReindexRemove(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "cat.jpg"), orangeJPEG(t), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("Grocery list: milk, eggs and coffee beans."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "report.pdf"), textPDF("Quarterly revenue report"), 0o644))

	ctx := context.Background()
	st := memory.NewStorage()
	dispatcher := extract.New(local.NewEmbedder(1024), fitz.NewReader(), 2000)
	svc, err := New(ctx, testClassifier(), dispatcher, st, Options{BatchSize: 2, Logger: quietLogger()})
	require.NoError(t, err)

	report, err := svc.Index(ctx, []string{root}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Committed)
	assert.Zero(t, report.Failed)
	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	results := svc.Search(ctx, "quarterly revenue", 3)
	require.NotEmpty(t, results)
	assert.Equal(t, "report.pdf", results[0].Name)

	again, err := svc.Index(ctx, []string{root}, nil)
	require.NoError(t, err)
	assert.Zero(t, again.Discovered)
	assert.Zero(t, again.Committed)

	removed, err := svc.Remove(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	n, err = svc.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, svc.Search(ctx, "quarterly revenue", 3))
}
