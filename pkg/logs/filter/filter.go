package filter

import (
	"sort"
	"strings"

	"github.com/noclense/noclense/pkg/logs/model"
)

type SortField string

const (
	SortByTimestamp SortField = "timestamp"
	SortByLevel     SortField = "level"
)

// Config is the full interactive predicate set. The zero value filters
// nothing; every non-default field narrows the view except AlwaysIncludeID,
// which forces one entry in regardless of everything else.
type Config struct {
	FreeText            string                  `json:"freeText,omitempty"`
	Levels              map[model.Level]bool    `json:"levels,omitempty"`
	SipOnly             bool                    `json:"sipOnly,omitempty"`
	SipMethods          map[string]bool         `json:"sipMethods,omitempty"`
	Component           string                  `json:"component,omitempty"`
	MessageTypeExcluded map[string]bool         `json:"messageTypeExcluded,omitempty"`
	MessageTypeOnly     string                  `json:"messageTypeOnly,omitempty"`
	Facets              []model.CorrelationItem `json:"facets,omitempty"`
	FavoritesOnly       bool                    `json:"favoritesOnly,omitempty"`
	AlwaysIncludeID     int64                   `json:"alwaysIncludeId,omitempty"`
	SortField           SortField               `json:"sortField,omitempty"`
	SortAscending       bool                    `json:"sortAscending,omitempty"`
	SmartFilter         bool                    `json:"smartFilter,omitempty"`
}

// AnyActive reports whether any predicate is non-default. Consumers use it to
// decide between the full and the filtered scope. Sort order and the pinned
// selection are not predicates.
func AnyActive(cfg Config) bool {
	return cfg.FreeText != "" ||
		len(cfg.Levels) > 0 ||
		cfg.SipOnly ||
		len(cfg.SipMethods) > 0 ||
		cfg.Component != "" ||
		len(cfg.MessageTypeExcluded) > 0 ||
		cfg.MessageTypeOnly != "" ||
		len(cfg.Facets) > 0 ||
		cfg.FavoritesOnly ||
		cfg.SmartFilter
}

// Apply computes the filtered, sorted view. It never mutates entries and is
// recomputed in full on every predicate change; predicate interactions do not
// decompose into per-dimension caches.
func Apply(entries []model.LogEntry, cfg Config, favorites map[int64]bool) []model.LogEntry {
	inclusions, exclusions := partitionFacets(cfg.Facets)
	loweredText := strings.ToLower(cfg.FreeText)

	out := make([]model.LogEntry, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		if matches(e, &cfg, inclusions, exclusions, loweredText) {
			out = append(out, *e)
		}
	}

	// Favorites is a final pass, independent of which predicate let an entry
	// through — except the pinned selection, which survives even this.
	if cfg.FavoritesOnly {
		kept := out[:0]
		for _, e := range out {
			if favorites[e.ID] || e.ID == cfg.AlwaysIncludeID {
				kept = append(kept, e)
			}
		}
		out = kept
	}

	sortView(out, cfg)
	return out
}

func matches(
	e *model.LogEntry,
	cfg *Config,
	inclusions map[model.Dimension][]string,
	exclusions map[model.Dimension][]string,
	loweredText string,
) bool {
	// 1. Forced include short-circuits everything.
	if cfg.AlwaysIncludeID != 0 && e.ID == cfg.AlwaysIncludeID {
		return true
	}

	// 2. Correlation facets: AND across dimensions, OR within a dimension.
	for dim, values := range inclusions {
		if !valueIn(dim.ValueOf(e), values) {
			return false
		}
	}
	for dim, values := range exclusions {
		if valueIn(dim.ValueOf(e), values) {
			return false
		}
	}

	// 3. Component equality.
	if cfg.Component != "" && e.Component != cfg.Component {
		return false
	}

	// 4. Message type: exclusions first, then the "only" selection.
	if len(cfg.MessageTypeExcluded) > 0 && cfg.MessageTypeExcluded[e.MessageType] {
		return false
	}
	if cfg.MessageTypeOnly != "" && e.MessageType != cfg.MessageTypeOnly {
		return false
	}

	// 5. Level multi-select.
	if len(cfg.Levels) > 0 && !cfg.Levels[e.Level] {
		return false
	}

	// Smart filter: drop DEBUG noise and OPTIONS keep-alive chatter.
	if cfg.SmartFilter {
		if e.Level == model.DebugLevel {
			return false
		}
		if strings.Contains(e.Message, "OPTIONS sip:") {
			return false
		}
		if e.SipMethod == "OPTIONS" {
			return false
		}
	}

	// 6. SIP only.
	if cfg.SipOnly && !e.IsSip {
		return false
	}

	// 7. SIP method multi-select, only meaningful with SIP-only active.
	if cfg.SipOnly && len(cfg.SipMethods) > 0 {
		if e.SipMethod == "" {
			return false
		}
		if !methodSelected(e.SipMethod, cfg.SipMethods) {
			return false
		}
	}

	// 8. Free-text substring over the precomputed lowercase shadows.
	if loweredText != "" && !e.MatchesFreeText(loweredText) {
		return false
	}

	return true
}

// methodSelected compares methods after response-code normalization so that
// "200 OK" variants match regardless of trailing reason text.
func methodSelected(method string, selected map[string]bool) bool {
	normalized := model.NormalizeSipMethod(method)
	for m := range selected {
		if model.NormalizeSipMethod(m) == normalized {
			return true
		}
	}
	return false
}

func partitionFacets(
	facets []model.CorrelationItem,
) (map[model.Dimension][]string, map[model.Dimension][]string) {
	inclusions := make(map[model.Dimension][]string)
	exclusions := make(map[model.Dimension][]string)
	for _, f := range facets {
		if f.Excluded {
			exclusions[f.Type] = append(exclusions[f.Type], f.Value)
		} else {
			inclusions[f.Type] = append(inclusions[f.Type], f.Value)
		}
	}
	return inclusions, exclusions
}

func valueIn(v string, values []string) bool {
	for _, candidate := range values {
		if v == candidate {
			return true
		}
	}
	return false
}

func sortView(entries []model.LogEntry, cfg Config) {
	field := cfg.SortField
	if field == "" {
		field = SortByTimestamp
	}
	asc := cfg.SortAscending
	switch field {
	case SortByLevel:
		sort.SliceStable(entries, func(i, j int) bool {
			if asc {
				return entries[i].Level.Rank() < entries[j].Level.Rank()
			}
			return entries[i].Level.Rank() > entries[j].Level.Rank()
		})
	default:
		sort.SliceStable(entries, func(i, j int) bool {
			if asc {
				return entries[i].Timestamp < entries[j].Timestamp
			}
			return entries[i].Timestamp > entries[j].Timestamp
		})
	}
}
