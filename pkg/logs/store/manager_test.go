package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/noclense/noclense/pkg/config"
	"github.com/noclense/noclense/pkg/logs/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBackend serves a memory store as the "persistent" paged store so the
// manager's mode policy can run without a live cluster.
type fakeBackend struct {
	store     EntryStore
	openErr   error
	detected  bool
	detectErr error
	opens     int
}

func (b *fakeBackend) Detect(_ context.Context) (bool, error) {
	return b.detected, b.detectErr
}

func (b *fakeBackend) Open(_ context.Context) (EntryStore, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.opens++
	return b.store, nil
}

func managerConfig() *config.Config {
	return &config.Config{
		PagedModeThreshold: 5,
		PageSize:           2,
		DebounceInterval:   10 * time.Millisecond,
	}
}

func batch(n int, startID int64) []model.LogEntry {
	entries := make([]model.LogEntry, n)
	for i := range entries {
		id := startID + int64(i)
		entries[i] = storeEntry(id, id*1000, nil)
	}
	return entries
}

func TestStoreManager(t *testing.T) {
	ctx := context.Background()

	t.Run("stays in direct mode below the threshold", func(t *testing.T) {
		backend := &fakeBackend{store: NewMemoryStore(zap.NewNop())}
		m := NewStoreManager(managerConfig(), backend, zap.NewNop())
		require.NoError(t, m.Add(ctx, batch(3, 1)))

		assert.Equal(t, DirectMode, m.Mode())
		assert.Zero(t, backend.opens)
		resident, err := m.Resident(ctx)
		require.NoError(t, err)
		assert.Len(t, resident, 3)
	})

	t.Run("crossing the threshold switches to paged mode one-way", func(t *testing.T) {
		backend := &fakeBackend{store: NewMemoryStore(zap.NewNop())}
		m := NewStoreManager(managerConfig(), backend, zap.NewNop())
		require.NoError(t, m.Add(ctx, batch(5, 1)))

		assert.Equal(t, PagedMode, m.Mode())
		assert.Equal(t, 1, backend.opens)

		// The resident set shrinks to one page, the count stays canonical.
		resident, err := m.Resident(ctx)
		require.NoError(t, err)
		assert.Len(t, resident, 2)
		total, err := m.TotalCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
	})

	t.Run("adds in paged mode keep the canonical count exact", func(t *testing.T) {
		backend := &fakeBackend{store: NewMemoryStore(zap.NewNop())}
		m := NewStoreManager(managerConfig(), backend, zap.NewNop())
		require.NoError(t, m.Add(ctx, batch(5, 1)))
		require.NoError(t, m.Add(ctx, batch(3, 6)))

		total, err := m.TotalCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(8), total)
		resident, err := m.Resident(ctx)
		require.NoError(t, err)
		assert.Len(t, resident, 2)
	})

	t.Run("adds in paged mode refresh the resident page", func(t *testing.T) {
		backend := &fakeBackend{store: NewMemoryStore(zap.NewNop())}
		m := NewStoreManager(managerConfig(), backend, zap.NewNop())
		require.NoError(t, m.Add(ctx, batch(5, 1)))
		require.Equal(t, PagedMode, m.Mode())

		loaded := make(chan []model.LogEntry, 1)
		m.OnPageLoaded(func(page []model.LogEntry) { loaded <- page })

		// An entry older than everything resident must surface in the page.
		require.NoError(t, m.Add(ctx, []model.LogEntry{storeEntry(6, 500, nil)}))

		select {
		case page := <-loaded:
			require.Len(t, page, 2)
			assert.Equal(t, int64(6), page[0].ID)
		case <-time.After(time.Second):
			t.Fatal("no page refresh after paged add")
		}

		resident, err := m.Resident(ctx)
		require.NoError(t, err)
		require.Len(t, resident, 2)
		assert.Equal(t, int64(6), resident[0].ID)
	})

	t.Run("degrades gracefully when the backend cannot open", func(t *testing.T) {
		backend := &fakeBackend{openErr: errors.New("cluster unreachable")}
		m := NewStoreManager(managerConfig(), backend, zap.NewNop())
		require.NoError(t, m.Add(ctx, batch(6, 1)))

		assert.Equal(t, DirectMode, m.Mode())
		resident, err := m.Resident(ctx)
		require.NoError(t, err)
		assert.Len(t, resident, 6)
	})

	t.Run("resumes a persisted session at startup", func(t *testing.T) {
		persisted := NewMemoryStore(zap.NewNop())
		require.NoError(t, persisted.Add(ctx, batch(4, 1)))
		backend := &fakeBackend{store: persisted, detected: true}
		m := NewStoreManager(managerConfig(), backend, zap.NewNop())

		assert.True(t, m.DetectPersisted(ctx))
		assert.Equal(t, PagedMode, m.Mode())
		total, err := m.TotalCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
	})

	t.Run("detection failures keep the session in direct mode", func(t *testing.T) {
		backend := &fakeBackend{detectErr: errors.New("no cluster")}
		m := NewStoreManager(managerConfig(), backend, zap.NewNop())
		assert.False(t, m.DetectPersisted(ctx))
		assert.Equal(t, DirectMode, m.Mode())
	})

	t.Run("debounces filter bursts into one re-query", func(t *testing.T) {
		backend := &fakeBackend{store: NewMemoryStore(zap.NewNop())}
		m := NewStoreManager(managerConfig(), backend, zap.NewNop())
		require.NoError(t, m.Add(ctx, []model.LogEntry{
			storeEntry(1, 1000, func(e *model.LogEntry) { e.Component = "A" }),
			storeEntry(2, 2000, func(e *model.LogEntry) { e.Component = "B" }),
			storeEntry(3, 3000, func(e *model.LogEntry) { e.Component = "B" }),
			storeEntry(4, 4000, nil),
			storeEntry(5, 5000, nil),
		}))
		require.Equal(t, PagedMode, m.Mode())

		var mu sync.Mutex
		var pages [][]model.LogEntry
		m.OnPageLoaded(func(page []model.LogEntry) {
			mu.Lock()
			pages = append(pages, page)
			mu.Unlock()
		})

		m.FilterChanged(ctx, Filter{Component: "A"})
		m.FilterChanged(ctx, Filter{Component: "B"})
		time.Sleep(100 * time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, pages, 1)
		require.Len(t, pages[0], 2)
		assert.Equal(t, "B", pages[0][0].Component)
	})

	t.Run("filter changes in direct mode are a no-op", func(t *testing.T) {
		backend := &fakeBackend{store: NewMemoryStore(zap.NewNop())}
		m := NewStoreManager(managerConfig(), backend, zap.NewNop())
		require.NoError(t, m.Add(ctx, batch(2, 1)))

		fired := false
		m.OnPageLoaded(func([]model.LogEntry) { fired = true })
		m.FilterChanged(ctx, Filter{Component: "A"})
		time.Sleep(50 * time.Millisecond)
		assert.False(t, fired)
	})

	t.Run("clear tears down paged mode and returns to direct", func(t *testing.T) {
		backend := &fakeBackend{store: NewMemoryStore(zap.NewNop())}
		m := NewStoreManager(managerConfig(), backend, zap.NewNop())
		require.NoError(t, m.Add(ctx, batch(5, 1)))
		require.Equal(t, PagedMode, m.Mode())

		require.NoError(t, m.Clear(ctx))
		assert.Equal(t, DirectMode, m.Mode())
		total, err := m.TotalCount(ctx)
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}
