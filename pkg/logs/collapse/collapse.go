// Package collapse merges runs of consecutive similar entries in a filtered
// view into single groups with a repeat count.
package collapse

import "github.com/noclense/noclense/pkg/logs/model"

// Group is one collapsed run: the first entry of the run represents it.
type Group struct {
	Entry model.LogEntry
	Count int
}

type key struct {
	component string
	message   string
}

// Consecutive collapses strictly consecutive entries sharing the same
// (display component, preferred display message) key. Non-consecutive
// duplicates are never merged, so [X, X, Y, X] yields [{X,2}, {Y,1}, {X,1}].
func Consecutive(entries []model.LogEntry) []Group {
	if len(entries) == 0 {
		return nil
	}
	groups := make([]Group, 0, len(entries))
	current := Group{Entry: entries[0], Count: 1}
	currentKey := keyOf(&entries[0])
	for i := 1; i < len(entries); i++ {
		k := keyOf(&entries[i])
		if k == currentKey {
			current.Count++
			continue
		}
		groups = append(groups, current)
		current = Group{Entry: entries[i], Count: 1}
		currentKey = k
	}
	groups = append(groups, current)
	return groups
}

func keyOf(e *model.LogEntry) key {
	return key{
		component: e.GroupComponent(),
		message:   e.PreferredDisplayMessage(),
	}
}
