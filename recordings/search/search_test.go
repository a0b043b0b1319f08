package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Search {
	t.Helper()

	idx, err := New()
	require.NoError(t, err)

	docs := []Document{
		{ID: "rec1", Title: "Morning Show", Channel: "Channel 7"},
		{ID: "rec2", Title: "Morning Market Report", Channel: "Channel 2"},
		{ID: "rec3", Title: "Late Movie", Subtitle: "A Space Odyssey", Channel: "Channel 7"},
	}
	require.NoError(t, idx.Index(context.Background(), docs))
	return idx
}

func TestSearch(t *testing.T) {
	idx := newTestIndex(t)

	t.Run("exact title ranks first", func(t *testing.T) {
		ids, err := idx.Search(context.Background(), "Morning Show", 10)
		require.NoError(t, err)
		require.NotEmpty(t, ids)
		assert.Equal(t, "rec1", ids[0])
	})

	t.Run("subtitle matches", func(t *testing.T) {
		ids, err := idx.Search(context.Background(), "odyssey", 10)
		require.NoError(t, err)
		assert.Contains(t, ids, "rec3")
	})

	t.Run("no match", func(t *testing.T) {
		ids, err := idx.Search(context.Background(), "zzzzzz", 10)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("empty query", func(t *testing.T) {
		ids, err := idx.Search(context.Background(), "   ", 10)
		require.NoError(t, err)
		assert.Nil(t, ids)
	})

	t.Run("delete removes document", func(t *testing.T) {
		require.NoError(t, idx.Delete(context.Background(), "rec1"))
		ids, err := idx.Search(context.Background(), "Morning Show", 10)
		require.NoError(t, err)
		assert.NotContains(t, ids, "rec1")
	})
}
