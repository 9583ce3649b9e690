package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/noclense/noclense/pkg/logs/model"
	"go.uber.org/zap"
)

// MemoryStore is the direct-mode backing: one ordered in-memory collection.
// Batches are merged and re-sorted on Add; readers get snapshot copies so the
// canonical slice is append-then-immutable from their perspective.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []model.LogEntry
	logger  *zap.Logger
}

func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		entries: []model.LogEntry{},
		logger:  logger,
	}
}

func (s *MemoryStore) Add(_ context.Context, entries []model.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	// Stable: entries with equal timestamps keep their parse order.
	sort.SliceStable(s.entries, func(i, j int) bool {
		return s.entries[i].Timestamp < s.entries[j].Timestamp
	})
	return nil
}

func (s *MemoryStore) All(_ context.Context) ([]model.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make([]model.LogEntry, len(s.entries))
	copy(snapshot, s.entries)
	return snapshot, nil
}

func (s *MemoryStore) Query(_ context.Context, f Filter, limit int) ([]model.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f.IsZero() {
		// Nothing to match; hand back an ordered prefix.
		n := len(s.entries)
		if limit > 0 && limit < n {
			n = limit
		}
		snapshot := make([]model.LogEntry, n)
		copy(snapshot, s.entries[:n])
		return snapshot, nil
	}
	var out []model.LogEntry
	loweredText := strings.ToLower(f.FreeText)
	for i := range s.entries {
		e := &s.entries[i]
		if !matchesStoreFilter(e, f, loweredText) {
			continue
		}
		out = append(out, *e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func matchesStoreFilter(e *model.LogEntry, f Filter, loweredText string) bool {
	if f.Component != "" && e.Component != f.Component {
		return false
	}
	if f.CallID != "" && e.CallID != f.CallID {
		return false
	}
	if len(f.Levels) > 0 && !levelIn(e.Level, f.Levels) {
		return false
	}
	if f.SipOnly && !e.IsSip {
		return false
	}
	if f.FileName != "" && e.FileName != f.FileName {
		return false
	}
	if f.StartMs != 0 && e.Timestamp < f.StartMs {
		return false
	}
	if f.EndMs != 0 && e.Timestamp > f.EndMs {
		return false
	}
	if loweredText != "" && !e.MatchesFreeText(loweredText) {
		return false
	}
	return true
}

func levelIn(l model.Level, levels []model.Level) bool {
	for _, candidate := range levels {
		if l == candidate {
			return true
		}
	}
	return false
}

func (s *MemoryStore) TotalCount(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.entries)), nil
}

func (s *MemoryStore) DistinctValues(_ context.Context, field model.Dimension) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for i := range s.entries {
		if v := field.ValueOf(&s.entries[i]); v != "" {
			seen[v] = struct{}{}
		}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values, nil
}

func (s *MemoryStore) Counts(_ context.Context, field model.Dimension) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for i := range s.entries {
		if v := field.ValueOf(&s.entries[i]); v != "" {
			counts[v]++
		}
	}
	return counts, nil
}

func (s *MemoryStore) Range(_ context.Context) (*TimestampRange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return nil, ErrEmptyStore
	}
	return &TimestampRange{
		MinMs: s.entries[0].Timestamp,
		MaxMs: s.entries[len(s.entries)-1].Timestamp,
	}, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = []model.LogEntry{}
	return nil
}
