// Package index derives the distinct values and occurrence counts backing the
// correlation facet sidebar. The index is rebuilt whenever the entry scope
// changes; it has no mutation API.
package index

import (
	"context"
	"fmt"
	"sort"

	"github.com/noclense/noclense/pkg/logs/model"
	"github.com/noclense/noclense/pkg/logs/store"
)

// CorrelationIndex holds, per dimension, the lexicographically sorted distinct
// values and a count map keyed "dimension:value".
type CorrelationIndex struct {
	Values map[model.Dimension][]string
	Counts map[string]int

	// Approximate is set in paged mode, where counts come from the resident
	// page rather than the full persisted set.
	Approximate bool
}

// CountKey builds the count-map key for a (dimension, value) pair.
func CountKey(dim model.Dimension, value string) string {
	return fmt.Sprintf("%s:%s", dim, value)
}

// Count returns the occurrence count for a facet value.
func (ci *CorrelationIndex) Count(dim model.Dimension, value string) int {
	return ci.Counts[CountKey(dim, value)]
}

// Build computes the index over the direct-mode entry set in a single pass.
// When fileName inclusion facets are active, every dimension is scoped to
// entries from those files — except the fileName enumeration itself, which is
// always computed over the unscoped full set so the file list never filters
// itself.
func Build(entries []model.LogEntry, activeFacets []model.CorrelationItem) *CorrelationIndex {
	ci := &CorrelationIndex{
		Values: make(map[model.Dimension][]string),
		Counts: make(map[string]int),
	}

	includedFiles := fileInclusions(activeFacets)
	valueSets := make(map[model.Dimension]map[string]struct{})
	for _, dim := range model.Dimensions {
		valueSets[dim] = make(map[string]struct{})
	}

	for i := range entries {
		e := &entries[i]
		inScope := len(includedFiles) == 0 || includedFiles[e.FileName]
		for _, dim := range model.Dimensions {
			if dim != model.DimensionFileName && !inScope {
				continue
			}
			v := dim.ValueOf(e)
			if v == "" {
				continue
			}
			valueSets[dim][v] = struct{}{}
			ci.Counts[CountKey(dim, v)]++
		}
	}

	for dim, set := range valueSets {
		values := make([]string, 0, len(set))
		for v := range set {
			values = append(values, v)
		}
		sort.Strings(values)
		ci.Values[dim] = values
	}
	return ci
}

// BuildPaged computes the index in paged mode: distinct values are delegated
// to the persistent store's own indexing, while occurrence counts are
// approximated from the currently loaded page.
func BuildPaged(
	ctx context.Context,
	entryStore store.EntryStore,
	page []model.LogEntry,
) (*CorrelationIndex, error) {
	ci := &CorrelationIndex{
		Values:      make(map[model.Dimension][]string),
		Counts:      make(map[string]int),
		Approximate: true,
	}

	for _, dim := range model.Dimensions {
		values, err := entryStore.DistinctValues(ctx, dim)
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate %s values: %w", dim, err)
		}
		ci.Values[dim] = values
	}

	for i := range page {
		e := &page[i]
		for _, dim := range model.Dimensions {
			if v := dim.ValueOf(e); v != "" {
				ci.Counts[CountKey(dim, v)]++
			}
		}
	}
	return ci, nil
}

func fileInclusions(facets []model.CorrelationItem) map[string]bool {
	var files map[string]bool
	for _, f := range facets {
		if f.Type == model.DimensionFileName && !f.Excluded {
			if files == nil {
				files = make(map[string]bool)
			}
			files[f.Value] = true
		}
	}
	return files
}
