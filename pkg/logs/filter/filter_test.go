package filter

import (
	"testing"

	"github.com/noclense/noclense/pkg/logs/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id int64, mutate func(*model.LogEntry)) model.LogEntry {
	e := model.LogEntry{
		ID:        id,
		Timestamp: id * 1000,
		Level:     model.InfoLevel,
		Component: "Core",
		Message:   "routine message",
		Type:      model.TypeLog,
	}
	if mutate != nil {
		mutate(&e)
	}
	e.PrecomputeSearchFields()
	return e
}

func ids(entries []model.LogEntry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestApply(t *testing.T) {
	t.Run("zero config passes everything through in timestamp order", func(t *testing.T) {
		entries := []model.LogEntry{entry(2, nil), entry(1, nil), entry(3, nil)}
		view := Apply(entries, Config{SortAscending: true}, nil)
		assert.Equal(t, []int64{1, 2, 3}, ids(view))
	})

	t.Run("pinned entry survives every predicate", func(t *testing.T) {
		entries := []model.LogEntry{
			entry(1, func(e *model.LogEntry) { e.Level = model.DebugLevel }),
			entry(2, nil),
		}
		cfg := Config{
			Levels:          map[model.Level]bool{model.ErrorLevel: true},
			AlwaysIncludeID: 1,
			SortAscending:   true,
		}
		view := Apply(entries, cfg, nil)
		assert.Equal(t, []int64{1}, ids(view))
	})

	t.Run("facets OR within a dimension and AND across dimensions", func(t *testing.T) {
		entries := []model.LogEntry{
			entry(1, func(e *model.LogEntry) { e.CallID = "a"; e.OperatorID = "op-1" }),
			entry(2, func(e *model.LogEntry) { e.CallID = "b"; e.OperatorID = "op-1" }),
			entry(3, func(e *model.LogEntry) { e.CallID = "a"; e.OperatorID = "op-2" }),
			entry(4, func(e *model.LogEntry) { e.CallID = "c"; e.OperatorID = "op-1" }),
		}
		cfg := Config{
			Facets: []model.CorrelationItem{
				{Type: model.DimensionCallID, Value: "a"},
				{Type: model.DimensionCallID, Value: "b"},
				{Type: model.DimensionOperatorID, Value: "op-1"},
			},
			SortAscending: true,
		}
		view := Apply(entries, cfg, nil)
		assert.Equal(t, []int64{1, 2}, ids(view))
	})

	t.Run("an exclusion facet drops matching entries", func(t *testing.T) {
		entries := []model.LogEntry{
			entry(1, func(e *model.LogEntry) { e.CallID = "a" }),
			entry(2, func(e *model.LogEntry) { e.CallID = "b" }),
		}
		cfg := Config{
			Facets: []model.CorrelationItem{
				{Type: model.DimensionCallID, Value: "a", Excluded: true},
			},
			SortAscending: true,
		}
		view := Apply(entries, cfg, nil)
		assert.Equal(t, []int64{2}, ids(view))
	})

	t.Run("message type exclusion runs before the only-selection", func(t *testing.T) {
		entries := []model.LogEntry{
			entry(1, func(e *model.LogEntry) { e.MessageType = "Heartbeat" }),
			entry(2, func(e *model.LogEntry) { e.MessageType = "ReportStatus" }),
			entry(3, func(e *model.LogEntry) { e.MessageType = "Alarm" }),
		}
		cfg := Config{
			MessageTypeExcluded: map[string]bool{"Heartbeat": true},
			MessageTypeOnly:     "ReportStatus",
			SortAscending:       true,
		}
		view := Apply(entries, cfg, nil)
		assert.Equal(t, []int64{2}, ids(view))
	})

	t.Run("smart filter drops debug noise and OPTIONS keep-alives", func(t *testing.T) {
		entries := []model.LogEntry{
			entry(1, func(e *model.LogEntry) { e.Level = model.DebugLevel }),
			entry(2, func(e *model.LogEntry) { e.Message = "OPTIONS sip:proxy@host" }),
			entry(3, func(e *model.LogEntry) { e.IsSip = true; e.SipMethod = "OPTIONS" }),
			entry(4, func(e *model.LogEntry) { e.Level = model.ErrorLevel }),
		}
		cfg := Config{SmartFilter: true, SortAscending: true}
		view := Apply(entries, cfg, nil)
		assert.Equal(t, []int64{4}, ids(view))
	})

	t.Run("sip method selection matches normalized response codes", func(t *testing.T) {
		entries := []model.LogEntry{
			entry(1, func(e *model.LogEntry) { e.IsSip = true; e.SipMethod = "200 OK" }),
			entry(2, func(e *model.LogEntry) { e.IsSip = true; e.SipMethod = "INVITE" }),
			entry(3, func(e *model.LogEntry) { e.IsSip = true }),
			entry(4, nil),
		}
		cfg := Config{
			SipOnly:       true,
			SipMethods:    map[string]bool{"200 OK - session established": true},
			SortAscending: true,
		}
		view := Apply(entries, cfg, nil)
		assert.Equal(t, []int64{1}, ids(view))
	})

	t.Run("free text searches message, payload, component and call id", func(t *testing.T) {
		entries := []model.LogEntry{
			entry(1, func(e *model.LogEntry) { e.CallID = "abc123" }),
			entry(2, func(e *model.LogEntry) { e.Payload = "Via: SIP/2.0/UDP abc999" }),
			entry(3, nil),
		}
		cfg := Config{FreeText: "ABC", SortAscending: true}
		view := Apply(entries, cfg, nil)
		assert.Equal(t, []int64{1, 2}, ids(view))
	})

	t.Run("favorites-only is a final pass that keeps the pinned entry", func(t *testing.T) {
		entries := []model.LogEntry{entry(1, nil), entry(2, nil), entry(3, nil)}
		cfg := Config{FavoritesOnly: true, AlwaysIncludeID: 3, SortAscending: true}
		favorites := map[int64]bool{2: true}
		view := Apply(entries, cfg, favorites)
		assert.Equal(t, []int64{2, 3}, ids(view))
	})

	t.Run("sorts by severity rank when requested", func(t *testing.T) {
		entries := []model.LogEntry{
			entry(1, func(e *model.LogEntry) { e.Level = model.InfoLevel }),
			entry(2, func(e *model.LogEntry) { e.Level = model.ErrorLevel }),
			entry(3, func(e *model.LogEntry) { e.Level = model.WarnLevel }),
		}
		cfg := Config{SortField: SortByLevel, SortAscending: false}
		view := Apply(entries, cfg, nil)
		assert.Equal(t, []int64{2, 3, 1}, ids(view))
	})

	t.Run("never mutates the input slice", func(t *testing.T) {
		entries := []model.LogEntry{entry(2, nil), entry(1, nil)}
		_ = Apply(entries, Config{SortAscending: true}, nil)
		require.Equal(t, int64(2), entries[0].ID)
	})
}

func TestAnyActive(t *testing.T) {
	assert.False(t, AnyActive(Config{SortField: SortByLevel, AlwaysIncludeID: 7}))
	assert.True(t, AnyActive(Config{SipOnly: true}))
	assert.True(t, AnyActive(Config{Facets: []model.CorrelationItem{{Type: model.DimensionCallID, Value: "a"}}}))
}
