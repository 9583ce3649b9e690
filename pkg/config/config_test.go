package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []string{"http://localhost:9200"}, cfg.ElasticsearchAddresses)
	assert.Equal(t, "noclense_log_index", cfg.LogIndexName)
	assert.Equal(t, 50000, cfg.PagedModeThreshold)
	assert.Equal(t, 10000, cfg.PageSize)
	assert.Equal(t, 300*time.Millisecond, cfg.DebounceInterval)
	assert.Equal(t, 2000, cfg.TimelineMaxEvents)
	assert.Equal(t, int64(2000), cfg.LaneBufferMs)
	assert.Equal(t, "noclense_favorites.json", cfg.FavoritesPath)
	assert.Empty(t, cfg.ComponentAliases)
}

func TestLoad(t *testing.T) {
	t.Run("missing config file falls back to defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, Default().PagedModeThreshold, cfg.PagedModeThreshold)
	})

	t.Run("environment variables override defaults", func(t *testing.T) {
		t.Setenv("NOCLENSE_PAGE_SIZE", "250")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 250, cfg.PageSize)
	})
}
