package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFavoritesRepository(t *testing.T) {
	t.Run("missing file loads as an empty set", func(t *testing.T) {
		repo := NewFavoritesRepository(filepath.Join(t.TempDir(), "favorites.json"), zap.NewNop())
		assert.Empty(t, repo.Load())
	})

	t.Run("save and load round-trip", func(t *testing.T) {
		repo := NewFavoritesRepository(filepath.Join(t.TempDir(), "favorites.json"), zap.NewNop())
		require.NoError(t, repo.Save(map[int64]bool{3: true, 1: true, 2: false}))

		loaded := repo.Load()
		assert.Equal(t, map[int64]bool{1: true, 3: true}, loaded)
	})

	t.Run("corrupt file degrades to an empty set", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "favorites.json")
		require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
		repo := NewFavoritesRepository(path, zap.NewNop())
		assert.Empty(t, repo.Load())
	})

	t.Run("clear removes the file and tolerates a missing one", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "favorites.json")
		repo := NewFavoritesRepository(path, zap.NewNop())
		require.NoError(t, repo.Save(map[int64]bool{1: true}))
		require.NoError(t, repo.Clear())
		assert.Empty(t, repo.Load())
		require.NoError(t, repo.Clear())
	})
}
