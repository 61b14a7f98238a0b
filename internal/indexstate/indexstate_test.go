package indexstate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filesearch/internal/domain"
)

type listerFunc func(ctx context.Context) ([]domain.Metadata, error)

func (f listerFunc) All(ctx context.Context) ([]domain.Metadata, error) { return f(ctx) }

func TestLoadFromStore(t *testing.T) {
	st, err := Load(context.Background(), listerFunc(func(context.Context) ([]domain.Metadata, error) {
		return []domain.Metadata{{Path: "/a"}, {Path: "/b"}, {Path: "/a"}}, nil
	}))
	require.NoError(t, err)
	assert.Equal(t, 2, st.Len())
	assert.True(t, st.Has("/a"))
	assert.False(t, st.Has("/c"))
}

func TestLoadError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Load(context.Background(), listerFunc(func(context.Context) ([]domain.Metadata, error) {
		return nil, boom
	}))
	assert.ErrorIs(t, err, boom)
}

func TestAddRemove(t *testing.T) {
	st := New()
	st.Add("/x", "/y")
	st.Remove("/x", "/missing")
	assert.False(t, st.Has("/x"))
	assert.True(t, st.Has("/y"))
	assert.Equal(t, 1, st.Len())
}
