// Package storetest holds behavior checks shared by every vectorstore.Storage.
package storetest

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filesearch/internal/domain"
	"filesearch/internal/vectorstore"
)

// Record builds a test record with the given embedding.
func Record(path string, cat domain.Category, vec ...float32) domain.Record {
	return domain.Record{
		Metadata: domain.Metadata{
			Path:       path,
			Name:       path[len(path)-1:],
			Category:   cat,
			ModifiedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		Embedding: vec,
	}
}

// Run exercises a fresh, empty store returned by open.
func Run(t *testing.T, open func(t *testing.T) vectorstore.Storage) {
	t.Run("empty", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()
		n, err := st.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		all, err := st.All(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
		hits, err := st.Query(ctx, []float32{1, 0, 0}, 3)
		require.NoError(t, err)
		assert.Empty(t, hits)
		require.NoError(t, st.Delete(ctx, []string{"/missing"}))
	})

	t.Run("upsert query delete", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()
		require.NoError(t, st.Upsert(ctx, []domain.Record{
			Record("/d/a", domain.CategoryText, 1, 0, 0),
			Record("/d/b", domain.CategoryImage, 0, 1, 0),
			Record("/d/c", domain.CategoryPDF, 0.6, 0.8, 0),
		}))

		n, err := st.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		hits, err := st.Query(ctx, []float32{0, 1, 0}, 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "/d/b", hits[0].Path)
		assert.Equal(t, domain.CategoryImage, hits[0].Category)
		assert.InDelta(t, 0, hits[0].Distance, 1e-4)
		assert.Equal(t, "/d/c", hits[1].Path)
		assert.InDelta(t, 0.2, hits[1].Distance, 1e-4)

		all, err := st.All(ctx)
		require.NoError(t, err)
		paths := make([]string, 0, len(all))
		for _, m := range all {
			paths = append(paths, m.Path)
			assert.True(t, m.ModifiedAt.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)), m.Path)
		}
		sort.Strings(paths)
		assert.Equal(t, []string{"/d/a", "/d/b", "/d/c"}, paths)

		require.NoError(t, st.Delete(ctx, []string{"/d/a", "/d/c", "/nope"}))
		n, err = st.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("upsert overwrites same id", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()
		require.NoError(t, st.Upsert(ctx, []domain.Record{Record("/x", domain.CategoryText, 1, 0)}))
		require.NoError(t, st.Upsert(ctx, []domain.Record{Record("/x", domain.CategoryText, 0, 1)}))
		n, err := st.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		hits, err := st.Query(ctx, []float32{0, 1}, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.InDelta(t, 0, hits[0].Distance, 1e-4)
	})

	t.Run("rejects invalid batch atomically", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()
		bad := Record("/bad", domain.CategoryUnsupported, 1, 0)
		err := st.Upsert(ctx, []domain.Record{Record("/ok", domain.CategoryText, 1, 0), bad})
		require.Error(t, err)
		n, err := st.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
