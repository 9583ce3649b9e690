// Package session ties the engine together behind one explicit, injectable
// state container: active filters, selection, favorites, storage mode and the
// background parse worker. The container is created at startup and torn down
// on full data clear; nothing here is an ambient singleton.
package session

import (
	"context"
	"sort"
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/noclense/noclense/pkg/config"
	"github.com/noclense/noclense/pkg/event_bus"
	"github.com/noclense/noclense/pkg/logs/collapse"
	"github.com/noclense/noclense/pkg/logs/filter"
	"github.com/noclense/noclense/pkg/logs/index"
	"github.com/noclense/noclense/pkg/logs/model"
	"github.com/noclense/noclense/pkg/logs/parser"
	"github.com/noclense/noclense/pkg/logs/store"
	"github.com/noclense/noclense/pkg/logs/timeline"
	"go.uber.org/zap"
)

// AddedBatch summarizes an accepted parse batch for bus subscribers.
type AddedBatch struct {
	FileName string `json:"fileName"`
	Count    int    `json:"count"`
	Total    int64  `json:"total"`
}

type Session struct {
	cfg    *config.Config
	logger *zap.Logger

	worker  *parser.Worker
	manager *store.StoreManager

	filterBus event_bus.SessionEventBus[store.Filter, store.Filter]
	addedBus  event_bus.SessionEventBus[AddedBatch, AddedBatch]

	mu              sync.Mutex
	filterConfig    filter.Config
	favorites       map[int64]bool
	favoritesRepo   *FavoritesRepository
	collapseEnabled bool
	toggles         timeline.Toggles

	cancel context.CancelFunc
}

func NewSession(cfg *config.Config, backend store.PagedBackend, logger *zap.Logger) (*Session, error) {
	bus := EventBus.New()
	filterBus := event_bus.NewSessionEventBus[store.Filter, store.Filter](bus, logger)
	addedBus := event_bus.NewSessionEventBus[AddedBatch, AddedBatch](bus, logger)

	manager := store.NewStoreManager(cfg, backend, logger)
	if err := manager.SubscribeFilterChanges(filterBus); err != nil {
		return nil, err
	}

	p := parser.NewParser(cfg.ComponentAliases, logger)
	favoritesRepo := NewFavoritesRepository(cfg.FavoritesPath, logger)

	s := &Session{
		cfg:           cfg,
		logger:        logger,
		worker:        parser.NewWorker(p, logger),
		manager:       manager,
		filterBus:     filterBus,
		addedBus:      addedBus,
		favorites:     favoritesRepo.Load(),
		favoritesRepo: favoritesRepo,
		toggles:       timeline.AllToggles(),
		filterConfig: filter.Config{
			SortField:     filter.SortByTimestamp,
			SortAscending: true,
		},
	}
	return s, nil
}

// Start launches the parse worker and the ingestion loop, and resumes a
// persisted paged-mode session when one is detected.
func (s *Session) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.worker.Start(workerCtx)
	go s.ingestLoop(workerCtx)

	s.manager.DetectPersisted(ctx)
}

func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// LoadFile hands a log file to the background parse worker.
func (s *Session) LoadFile(path string) {
	s.worker.SubmitFile(path)
}

// LoadText hands already-read content to the background parse worker.
func (s *Session) LoadText(text, fileName string) {
	s.worker.Submit(parser.ParseRequest{Text: text, FileName: fileName})
}

func (s *Session) ingestLoop(ctx context.Context) {
	for result := range s.worker.Results() {
		accepted := 0
		if result.Err != nil {
			s.logger.Error("Failed to parse log file",
				zap.String("file_name", result.FileName),
				zap.Error(result.Err),
			)
		} else if err := s.manager.Add(ctx, result.Entries); err != nil {
			s.logger.Error("Failed to store parsed entries",
				zap.String("file_name", result.FileName),
				zap.Error(err),
			)
		} else {
			accepted = len(result.Entries)
		}
		// A batch notification goes out even on failure, with Count zero, so
		// subscribers can account for every submitted file.
		total, _ := s.manager.TotalCount(ctx)
		if err := s.addedBus.Publish(event_bus.EntriesAddedTopic, AddedBatch{
			FileName: result.FileName,
			Count:    accepted,
			Total:    total,
		}); err != nil {
			s.logger.Warn("Failed to publish batch notification", zap.Error(err))
		}
	}
}

// SubscribeAdded registers a handler for accepted batches.
func (s *Session) SubscribeAdded(handler func(AddedBatch) error) error {
	return s.addedBus.Subscribe(event_bus.EntriesAddedTopic, handler, false)
}

// Filter returns a copy of the active predicate configuration.
func (s *Session) Filter() filter.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterConfig
}

// UpdateFilter applies a mutation to the predicate configuration and notifies
// the store layer; in paged mode that kicks off the debounced re-query.
func (s *Session) UpdateFilter(mutate func(*filter.Config)) {
	s.mu.Lock()
	mutate(&s.filterConfig)
	storeFilter := s.storeFilterLocked()
	s.mu.Unlock()

	if err := s.filterBus.Publish(event_bus.FilterChangedTopic, storeFilter); err != nil {
		s.logger.Warn("Failed to publish filter change", zap.Error(err))
	}
}

// ToggleFacet adds the facet to the active correlation set, or removes it if
// an identical (dimension, value) pair is already active.
func (s *Session) ToggleFacet(item model.CorrelationItem) {
	s.UpdateFilter(func(cfg *filter.Config) {
		for i, f := range cfg.Facets {
			if f.Type == item.Type && f.Value == item.Value {
				cfg.Facets = append(cfg.Facets[:i], cfg.Facets[i+1:]...)
				return
			}
		}
		cfg.Facets = append(cfg.Facets, item)
	})
}

// Select pins an entry: it stays visible regardless of active predicates.
// Passing 0 clears the selection.
func (s *Session) Select(id int64) {
	s.mu.Lock()
	s.filterConfig.AlwaysIncludeID = id
	s.mu.Unlock()
}

// SelectedID returns the pinned entry id, 0 when nothing is selected.
func (s *Session) SelectedID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterConfig.AlwaysIncludeID
}

// ToggleFavorite flips an entry's favorite flag and rewrites the persisted set.
func (s *Session) ToggleFavorite(id int64) {
	s.mu.Lock()
	if s.favorites[id] {
		delete(s.favorites, id)
	} else {
		s.favorites[id] = true
	}
	snapshot := s.favoritesSnapshotLocked()
	s.mu.Unlock()

	if err := s.favoritesRepo.Save(snapshot); err != nil {
		s.logger.Warn("Failed to persist favorites", zap.Error(err))
	}
}

func (s *Session) IsFavorite(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favorites[id]
}

func (s *Session) Favorites() map[int64]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favoritesSnapshotLocked()
}

func (s *Session) favoritesSnapshotLocked() map[int64]bool {
	snapshot := make(map[int64]bool, len(s.favorites))
	for id, on := range s.favorites {
		snapshot[id] = on
	}
	return snapshot
}

// SetCollapseEnabled switches the similarity-collapse presentation toggle.
func (s *Session) SetCollapseEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collapseEnabled = enabled
}

// SetTimelineToggles replaces the enabled event-category set.
func (s *Session) SetTimelineToggles(t timeline.Toggles) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toggles = t
}

// FilteredView computes the filtered, sorted view over the resident entries.
func (s *Session) FilteredView(ctx context.Context) ([]model.LogEntry, error) {
	resident, err := s.manager.Resident(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	cfg := s.filterConfig
	favorites := s.favoritesSnapshotLocked()
	s.mu.Unlock()
	return filter.Apply(resident, cfg, favorites), nil
}

// CollapsedView returns the filtered view merged into consecutive similarity
// groups. With the toggle off, every entry is its own group.
func (s *Session) CollapsedView(ctx context.Context) ([]collapse.Group, error) {
	view, err := s.FilteredView(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	enabled := s.collapseEnabled
	s.mu.Unlock()
	if !enabled {
		groups := make([]collapse.Group, len(view))
		for i, e := range view {
			groups[i] = collapse.Group{Entry: e, Count: 1}
		}
		return groups, nil
	}
	return collapse.Consecutive(view), nil
}

// Correlations rebuilds the correlation index over the active scope.
func (s *Session) Correlations(ctx context.Context) (*index.CorrelationIndex, error) {
	s.mu.Lock()
	facets := append([]model.CorrelationItem(nil), s.filterConfig.Facets...)
	s.mu.Unlock()

	if s.manager.Mode() == store.PagedMode {
		page, err := s.manager.Resident(ctx)
		if err != nil {
			return nil, err
		}
		return index.BuildPaged(ctx, s.manager.Active(), page)
	}

	entries, err := s.manager.Resident(ctx)
	if err != nil {
		return nil, err
	}
	return index.Build(entries, facets), nil
}

// Timeline aggregates the scrubber model: the filtered scope when any filter
// is active, otherwise the full resident scope.
func (s *Session) Timeline(ctx context.Context) (*timeline.Timeline, error) {
	s.mu.Lock()
	cfg := s.filterConfig
	toggles := s.toggles
	s.mu.Unlock()

	var scope []model.LogEntry
	var err error
	if filter.AnyActive(cfg) {
		scope, err = s.FilteredView(ctx)
	} else {
		scope, err = s.manager.Resident(ctx)
	}
	if err != nil {
		return nil, err
	}
	return timeline.Build(scope, toggles, s.cfg.TimelineMaxEvents, s.cfg.LaneBufferMs), nil
}

// NormalizedEvents converts the current filtered view for the case/export
// boundary.
func (s *Session) NormalizedEvents(ctx context.Context) ([]model.NormalizedEvent, error) {
	view, err := s.FilteredView(ctx)
	if err != nil {
		return nil, err
	}
	events := make([]model.NormalizedEvent, len(view))
	for i := range view {
		events[i] = view[i].ToNormalizedEvent()
	}
	return events, nil
}

func (s *Session) TotalCount(ctx context.Context) (int64, error) {
	return s.manager.TotalCount(ctx)
}

func (s *Session) Mode() store.Mode {
	return s.manager.Mode()
}

// EnablePagedMode triggers the one-way transition to the persistent store.
func (s *Session) EnablePagedMode(ctx context.Context) error {
	return s.manager.EnablePagedMode(ctx)
}

// Clear drops all data, resets predicates and selection, and clears the
// persisted favorites, returning the session to its initial direct-mode state.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.manager.Clear(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.filterConfig = filter.Config{
		SortField:     filter.SortByTimestamp,
		SortAscending: true,
	}
	s.favorites = make(map[int64]bool)
	s.mu.Unlock()

	if err := s.favoritesRepo.Clear(); err != nil {
		s.logger.Warn("Failed to clear persisted favorites", zap.Error(err))
	}
	return nil
}

// storeFilterLocked projects the interactive predicate set onto the narrower
// store-level filter served directly by the persistent index.
func (s *Session) storeFilterLocked() store.Filter {
	cfg := s.filterConfig
	f := store.Filter{
		Component: cfg.Component,
		SipOnly:   cfg.SipOnly,
		FreeText:  cfg.FreeText,
	}
	if len(cfg.Levels) > 0 {
		levels := make([]model.Level, 0, len(cfg.Levels))
		for level, on := range cfg.Levels {
			if on {
				levels = append(levels, level)
			}
		}
		sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })
		f.Levels = levels
	}
	// Single-value facets push down to the index; multi-value OR facets stay
	// in the in-memory predicate chain over the returned page.
	var callIDs, fileNames []string
	for _, facet := range cfg.Facets {
		if facet.Excluded {
			continue
		}
		switch facet.Type {
		case model.DimensionCallID:
			callIDs = append(callIDs, facet.Value)
		case model.DimensionFileName:
			fileNames = append(fileNames, facet.Value)
		}
	}
	if len(callIDs) == 1 {
		f.CallID = callIDs[0]
	}
	if len(fileNames) == 1 {
		f.FileName = fileNames[0]
	}
	return f
}
