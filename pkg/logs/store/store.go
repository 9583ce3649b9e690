package store

import (
	"context"
	"errors"

	"github.com/noclense/noclense/pkg/logs/model"
)

// Mode names the active storage strategy.
type Mode string

const (
	// DirectMode holds every entry in memory and filters by full scan.
	DirectMode Mode = "direct"
	// PagedMode keeps the canonical set in the persistent index and loads
	// bounded pages on demand.
	PagedMode Mode = "paged"
)

// Filter is the store-level query shape. It is intentionally narrower than the
// interactive predicate set: only the fields the persistent index can serve
// directly appear here; the full predicate chain runs in the filter engine
// against the returned page.
type Filter struct {
	Component string        `json:"component,omitempty"`
	CallID    string        `json:"callId,omitempty"`
	Levels    []model.Level `json:"levels,omitempty"`
	SipOnly   bool          `json:"sipOnly,omitempty"`
	FileName  string        `json:"fileName,omitempty"`
	StartMs   int64         `json:"startMs,omitempty"`
	EndMs     int64         `json:"endMs,omitempty"`
	FreeText  string        `json:"freeText,omitempty"`
}

// IsZero reports whether the filter constrains nothing.
func (f Filter) IsZero() bool {
	return f.Component == "" && f.CallID == "" && len(f.Levels) == 0 &&
		!f.SipOnly && f.FileName == "" && f.StartMs == 0 && f.EndMs == 0 &&
		f.FreeText == ""
}

// TimestampRange is the aggregate metadata of the stored set.
type TimestampRange struct {
	MinMs int64
	MaxMs int64
}

// EntryStore is the uniform read/write surface over both storage modes. The
// filter engine and indexer are written once against this interface.
type EntryStore interface {
	// Add accepts a batch of parsed entries. The canonical ordering by
	// timestamp is the store's responsibility.
	Add(ctx context.Context, entries []model.LogEntry) error
	// All returns a snapshot of every resident entry in timestamp order. In
	// paged mode this is the currently loaded page, not the full set.
	All(ctx context.Context) ([]model.LogEntry, error)
	// Query returns at most limit entries matching the filter, in timestamp order.
	Query(ctx context.Context, f Filter, limit int) ([]model.LogEntry, error)
	// TotalCount is the size of the canonical set regardless of residency.
	TotalCount(ctx context.Context) (int64, error)
	// DistinctValues enumerates the distinct values of a correlation field,
	// sorted lexicographically.
	DistinctValues(ctx context.Context, field model.Dimension) ([]string, error)
	// Counts returns occurrence counts grouped by the field's values.
	Counts(ctx context.Context, field model.Dimension) (map[string]int, error)
	// Range returns the min and max timestamp over the canonical set.
	Range(ctx context.Context) (*TimestampRange, error)
	// Clear drops all data.
	Clear(ctx context.Context) error
}

// ErrEmptyStore is returned by Range when no entries are stored.
var ErrEmptyStore = errors.New("no entries in store")
