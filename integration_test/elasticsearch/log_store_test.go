package elasticsearch

import (
	"context"
	"testing"

	"github.com/dgraph-io/ristretto"
	"github.com/noclense/noclense/pkg/elasticsearch/bootstrapper"
	esclient "github.com/noclense/noclense/pkg/elasticsearch/client"
	"github.com/noclense/noclense/pkg/logs/model"
	"github.com/noclense/noclense/pkg/logs/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.ElasticsearchStore {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 14,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	require.NoError(t, err)
	client := esclient.NewStoreClientImpl(es, esclient.Immediate)
	return store.NewElasticsearchStore(client, cache, bootstrapper.DefaultLogIndexName, logger)
}

func testEntries() []model.LogEntry {
	entries := []model.LogEntry{
		{
			ID:        1,
			Timestamp: 1000,
			Level:     model.InfoLevel,
			Component: "SIP-Stack",
			Message:   "Sending INVITE to peer",
			CallID:    "call-a",
			IsSip:     true,
			FileName:  "node1.log",
		},
		{
			ID:        2,
			Timestamp: 2000,
			Level:     model.ErrorLevel,
			Component: "SIP-Stack",
			Message:   "Failed to route INVITE",
			CallID:    "call-a",
			IsSip:     true,
			FileName:  "node1.log",
		},
		{
			ID:        3,
			Timestamp: 3000,
			Level:     model.DebugLevel,
			Component: "MediaEngine",
			Message:   "Opening RTP port",
			CallID:    "call-b",
			FileName:  "node2.log",
		},
	}
	for i := range entries {
		entries[i].PrecomputeSearchFields()
	}
	return entries
}

func TestElasticsearchStore(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a batch and reports the canonical count", func(t *testing.T) {
		require.NoError(t, deleteAllDocuments(es))
		s := newTestStore(t)
		require.NoError(t, s.Add(ctx, testEntries()))

		count, err := s.TotalCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("returns all entries in timestamp order", func(t *testing.T) {
		require.NoError(t, deleteAllDocuments(es))
		s := newTestStore(t)
		require.NoError(t, s.Add(ctx, testEntries()))

		all, err := s.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, int64(1000), all[0].Timestamp)
		assert.Equal(t, int64(3000), all[2].Timestamp)
	})

	t.Run("filters by component and level", func(t *testing.T) {
		require.NoError(t, deleteAllDocuments(es))
		s := newTestStore(t)
		require.NoError(t, s.Add(ctx, testEntries()))

		byComponent, err := s.Query(ctx, store.Filter{Component: "SIP-Stack"}, 100)
		require.NoError(t, err)
		assert.Len(t, byComponent, 2)

		byLevel, err := s.Query(ctx, store.Filter{Levels: []model.Level{model.ErrorLevel}}, 100)
		require.NoError(t, err)
		require.Len(t, byLevel, 1)
		assert.Equal(t, "Failed to route INVITE", byLevel[0].Message)
	})

	t.Run("matches free text against the message", func(t *testing.T) {
		require.NoError(t, deleteAllDocuments(es))
		s := newTestStore(t)
		require.NoError(t, s.Add(ctx, testEntries()))

		matched, err := s.Query(ctx, store.Filter{FreeText: "rtp port"}, 100)
		require.NoError(t, err)
		require.Len(t, matched, 1)
		assert.Equal(t, "MediaEngine", matched[0].Component)
	})

	t.Run("rehydrated entries carry derived search fields", func(t *testing.T) {
		require.NoError(t, deleteAllDocuments(es))
		s := newTestStore(t)
		require.NoError(t, s.Add(ctx, testEntries()))

		all, err := s.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.True(t, all[1].MatchesFreeText("failed to route"))
	})

	t.Run("enumerates distinct correlation values", func(t *testing.T) {
		require.NoError(t, deleteAllDocuments(es))
		s := newTestStore(t)
		require.NoError(t, s.Add(ctx, testEntries()))

		callIDs, err := s.DistinctValues(ctx, model.DimensionCallID)
		require.NoError(t, err)
		assert.Equal(t, []string{"call-a", "call-b"}, callIDs)

		counts, err := s.Counts(ctx, model.DimensionCallID)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"call-a": 2, "call-b": 1}, counts)
	})

	t.Run("reports the timestamp range", func(t *testing.T) {
		require.NoError(t, deleteAllDocuments(es))
		s := newTestStore(t)
		require.NoError(t, s.Add(ctx, testEntries()))

		r, err := s.Range(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), r.MinMs)
		assert.Equal(t, int64(3000), r.MaxMs)
	})

	t.Run("clear drops the index", func(t *testing.T) {
		require.NoError(t, deleteAllDocuments(es))
		s := newTestStore(t)
		require.NoError(t, s.Add(ctx, testEntries()))
		require.NoError(t, s.Clear(ctx))

		bs := bootstrapper.NewBootstrapper(es, logger)
		exists, err := bs.IndexExists(bootstrapper.DefaultLogIndexName)
		require.NoError(t, err)
		assert.False(t, exists)

		// Recreate the index for the remaining tests.
		require.NoError(t, bs.BootstrapElasticsearch(bootstrapper.DefaultLogIndexName))
	})
}
