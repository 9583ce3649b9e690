package store

import (
	"context"
	"sync"
	"time"

	"github.com/noclense/noclense/pkg/config"
	"github.com/noclense/noclense/pkg/event_bus"
	"github.com/noclense/noclense/pkg/logs/model"
	"go.uber.org/zap"
)

// PagedBackend abstracts the persistent store's lifecycle so the manager's
// policy can be exercised without a live cluster.
type PagedBackend interface {
	// Detect reports whether persisted data from a prior session exists.
	Detect(ctx context.Context) (bool, error)
	// Open bootstraps the backend and returns the paged store.
	Open(ctx context.Context) (EntryStore, error)
}

// StoreManager owns the mode-switch policy between the direct in-memory store
// and the paged persistent store. Switching to paged mode is one-way for the
// session; Clear tears the persistent store down and returns to direct mode.
type StoreManager struct {
	cfg     *config.Config
	logger  *zap.Logger
	backend PagedBackend

	mu         sync.Mutex
	mode       Mode
	direct     *MemoryStore
	paged      EntryStore
	totalCount int64
	resident   []model.LogEntry
	filter     Filter
	generation int64
	debounce   *time.Timer

	// onPageLoaded fires with the fresh resident page after a debounced
	// paged-mode re-query completes and has not been superseded.
	onPageLoaded func([]model.LogEntry)
}

func NewStoreManager(
	cfg *config.Config,
	backend PagedBackend,
	logger *zap.Logger,
) *StoreManager {
	return &StoreManager{
		cfg:     cfg,
		logger:  logger,
		backend: backend,
		mode:    DirectMode,
		direct:  NewMemoryStore(logger),
	}
}

// OnPageLoaded registers the callback invoked with each freshly loaded page.
func (m *StoreManager) OnPageLoaded(fn func([]model.LogEntry)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onPageLoaded = fn
}

// SubscribeFilterChanges wires the manager to the session's filter-change
// topic; in paged mode each change triggers a debounced re-query.
func (m *StoreManager) SubscribeFilterChanges(
	bus event_bus.SessionEventBus[Filter, Filter],
) error {
	return bus.Subscribe(event_bus.FilterChangedTopic, func(f Filter) error {
		m.FilterChanged(context.Background(), f)
		return nil
	}, false)
}

func (m *StoreManager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Active returns the store currently holding the canonical set.
func (m *StoreManager) Active() EntryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == PagedMode {
		return m.paged
	}
	return m.direct
}

// Add accepts a parsed batch. Crossing the configured threshold in direct mode
// triggers the one-way transition to paged mode; a failed transition degrades
// gracefully and the batch stays resident.
func (m *StoreManager) Add(ctx context.Context, entries []model.LogEntry) error {
	m.mu.Lock()
	mode := m.mode
	m.mu.Unlock()

	if mode == PagedMode {
		m.mu.Lock()
		paged := m.paged
		m.mu.Unlock()
		if err := paged.Add(ctx, entries); err != nil {
			return err
		}
		total, err := paged.TotalCount(ctx)
		if err != nil {
			m.logger.Warn("Failed to recompute total count after add", zap.Error(err))
			return nil
		}
		m.mu.Lock()
		m.totalCount = total
		// The resident page is stale now; refresh it under the current filter.
		m.scheduleRequeryLocked(ctx)
		m.mu.Unlock()
		return nil
	}

	if err := m.direct.Add(ctx, entries); err != nil {
		return err
	}
	count, _ := m.direct.TotalCount(ctx)
	if int(count) >= m.cfg.PagedModeThreshold {
		if err := m.EnablePagedMode(ctx); err != nil {
			m.logger.Warn("Large dataset detected but paged mode unavailable, staying in direct mode",
				zap.Int64("entry_count", count),
				zap.Error(err),
			)
		}
	}
	return nil
}

// EnablePagedMode performs the one-way transition: bootstrap the persistent
// store, migrate resident entries, recompute the total count and load an
// initial bounded page. On any failure the system remains in direct mode.
func (m *StoreManager) EnablePagedMode(ctx context.Context) error {
	m.mu.Lock()
	if m.mode == PagedMode {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	paged, err := m.backend.Open(ctx)
	if err != nil {
		return err
	}

	residentEntries, err := m.direct.All(ctx)
	if err != nil {
		return err
	}
	if len(residentEntries) > 0 {
		if err := paged.Add(ctx, residentEntries); err != nil {
			return err
		}
	}

	total, err := paged.TotalCount(ctx)
	if err != nil {
		return err
	}
	page, err := paged.Query(ctx, Filter{}, m.cfg.PageSize)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.mode = PagedMode
	m.paged = paged
	m.totalCount = total
	m.resident = page
	m.mu.Unlock()
	_ = m.direct.Clear(ctx)

	m.logger.Info("Switched to paged storage mode",
		zap.Int64("total_count", total),
		zap.Int("resident_page", len(page)),
	)
	return nil
}

// DetectPersisted enables paged mode when a prior session's persisted data is
// found at startup. Detection failures are logged and the system stays direct.
func (m *StoreManager) DetectPersisted(ctx context.Context) bool {
	found, err := m.backend.Detect(ctx)
	if err != nil {
		m.logger.Warn("Persistent store detection failed, staying in direct mode", zap.Error(err))
		return false
	}
	if !found {
		return false
	}
	if err := m.EnablePagedMode(ctx); err != nil {
		m.logger.Warn("Failed to resume persisted session, staying in direct mode", zap.Error(err))
		return false
	}
	return true
}

// Resident returns the entries currently held in memory: the full set in
// direct mode, the loaded page in paged mode.
func (m *StoreManager) Resident(ctx context.Context) ([]model.LogEntry, error) {
	m.mu.Lock()
	mode := m.mode
	m.mu.Unlock()
	if mode == DirectMode {
		return m.direct.All(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make([]model.LogEntry, len(m.resident))
	copy(snapshot, m.resident)
	return snapshot, nil
}

// TotalCount is the canonical set size: exact in both modes, independent of
// how many entries are resident.
func (m *StoreManager) TotalCount(ctx context.Context) (int64, error) {
	m.mu.Lock()
	mode := m.mode
	total := m.totalCount
	m.mu.Unlock()
	if mode == PagedMode {
		return total, nil
	}
	return m.direct.TotalCount(ctx)
}

// FilterChanged coalesces bursts of predicate edits into a single paged
// re-query. A superseded in-flight query's result is discarded: only the
// newest generation may install its page.
func (m *StoreManager) FilterChanged(ctx context.Context, f Filter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode != PagedMode {
		return
	}
	m.filter = f
	m.scheduleRequeryLocked(ctx)
}

// scheduleRequeryLocked starts (or restarts) the debounce timer for a paged
// re-query under the current filter. Callers hold m.mu.
func (m *StoreManager) scheduleRequeryLocked(ctx context.Context) {
	m.generation++
	gen := m.generation

	if m.debounce != nil {
		m.debounce.Stop()
	}
	m.debounce = time.AfterFunc(m.cfg.DebounceInterval, func() {
		m.runQuery(ctx, gen)
	})
}

func (m *StoreManager) runQuery(ctx context.Context, gen int64) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	paged := m.paged
	f := m.filter
	pageSize := m.cfg.PageSize
	m.mu.Unlock()

	page, err := paged.Query(ctx, f, pageSize)
	if err != nil {
		m.logger.Error("Paged re-query failed", zap.Error(err))
		return
	}

	m.mu.Lock()
	if gen != m.generation {
		// Superseded while in flight; last write on predicate state wins.
		m.mu.Unlock()
		return
	}
	m.resident = page
	loaded := m.onPageLoaded
	m.mu.Unlock()

	if loaded != nil {
		loaded(page)
	}
}

// Clear drops all data. In paged mode the persistent index is torn down and
// the manager returns to direct mode.
func (m *StoreManager) Clear(ctx context.Context) error {
	m.mu.Lock()
	mode := m.mode
	paged := m.paged
	m.mu.Unlock()

	if mode == PagedMode && paged != nil {
		if err := paged.Clear(ctx); err != nil {
			m.logger.Error("Failed to tear down persistent store", zap.Error(err))
			return err
		}
	}

	m.mu.Lock()
	m.mode = DirectMode
	m.paged = nil
	m.totalCount = 0
	m.resident = nil
	m.filter = Filter{}
	m.mu.Unlock()
	return m.direct.Clear(ctx)
}
