package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filesearch/internal/domain"
	"filesearch/internal/vectorstore"
	"filesearch/internal/vectorstore/storetest"
)

func openTemp(t *testing.T) *Storage {
	st, err := Open(filepath.Join(t.TempDir(), "index.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStorage(t *testing.T) {
	storetest.Run(t, func(t *testing.T) vectorstore.Storage { return openTemp(t) })
}

func TestDeleteManyIDs(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()

	var recs []domain.Record
	var ids []string
	for i := 0; i < 1200; i++ {
		p := fmt.Sprintf("/bulk/%04d.txt", i)
		recs = append(recs, storetest.Record(p, domain.CategoryText, 1, float32(i)))
		ids = append(ids, p)
	}
	require.NoError(t, st.Upsert(ctx, recs))
	require.NoError(t, st.Delete(ctx, ids[:1100]))

	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
}
