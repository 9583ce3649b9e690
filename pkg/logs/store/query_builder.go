package store

import (
	"strings"

	"github.com/noclense/noclense/pkg/logs/model"
)

const distinctValuesAggregation = "distinct_values"
const valueCountsAggregation = "value_counts"
const timestampStatsAggregation = "timestamp_stats"

// maxDistinctValues bounds facet enumeration; correlation dimensions are
// identifier-like and stay far below this in practice.
const maxDistinctValues = 10000

func buildEntryQuery(f Filter) map[string]interface{} {
	var mustClauses []map[string]interface{}
	var filterClauses []map[string]interface{}

	if f.Component != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{
				"component": f.Component,
			},
		})
	}

	if f.CallID != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{
				"callId": f.CallID,
			},
		})
	}

	if len(f.Levels) > 0 {
		filterClauses = append(filterClauses, map[string]interface{}{
			"terms": map[string]interface{}{
				"level": f.Levels,
			},
		})
	}

	if f.SipOnly {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{
				"isSip": true,
			},
		})
	}

	if f.FileName != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{
				"fileName": f.FileName,
			},
		})
	}

	if f.StartMs != 0 || f.EndMs != 0 {
		timestampRange := map[string]interface{}{}
		if f.StartMs != 0 {
			timestampRange["gte"] = f.StartMs
		}
		if f.EndMs != 0 {
			timestampRange["lte"] = f.EndMs
		}
		mustClauses = append(mustClauses, map[string]interface{}{
			"range": map[string]interface{}{
				"timestamp": timestampRange,
			},
		})
	}

	if f.FreeText != "" {
		lowered := strings.ToLower(f.FreeText)
		// message and payload are analyzed text fields; a wildcard there runs
		// against individual terms and can never match across a token boundary,
		// so multi-word queries go through phrase matching instead. The keyword
		// fields keep substring wildcards.
		textClauses := []map[string]interface{}{
			{
				"match_phrase": map[string]interface{}{
					"message": lowered,
				},
			},
			{
				"match_phrase": map[string]interface{}{
					"payload": lowered,
				},
			},
		}
		for _, field := range []string{"component", "callId"} {
			textClauses = append(textClauses, map[string]interface{}{
				"wildcard": map[string]interface{}{
					field: map[string]interface{}{
						"value":            "*" + lowered + "*",
						"case_insensitive": true,
					},
				},
			})
		}
		mustClauses = append(mustClauses, map[string]interface{}{
			"bool": map[string]interface{}{
				"should":               textClauses,
				"minimum_should_match": 1,
			},
		})
	}

	var query map[string]interface{}
	if f.IsZero() {
		query = map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	} else {
		boolQuery := map[string]interface{}{}
		if len(mustClauses) > 0 {
			boolQuery["must"] = mustClauses
		}
		if len(filterClauses) > 0 {
			boolQuery["filter"] = filterClauses
		}
		query = map[string]interface{}{
			"bool": boolQuery,
		}
	}

	return map[string]interface{}{
		"query": query,
		"sort": []map[string]interface{}{
			{
				"timestamp": map[string]interface{}{
					"order": "asc",
				},
			},
			{
				"id": map[string]interface{}{
					"order": "asc",
				},
			},
		},
	}
}

func buildDistinctValuesQuery(field model.Dimension) map[string]interface{} {
	return map[string]interface{}{
		"aggs": map[string]interface{}{
			distinctValuesAggregation: map[string]interface{}{
				"terms": map[string]interface{}{
					"field": string(field),
					"size":  maxDistinctValues,
					"order": map[string]interface{}{
						"_key": "asc",
					},
				},
			},
		},
	}
}

func buildValueCountsQuery(field model.Dimension) map[string]interface{} {
	return map[string]interface{}{
		"aggs": map[string]interface{}{
			valueCountsAggregation: map[string]interface{}{
				"terms": map[string]interface{}{
					"field": string(field),
					"size":  maxDistinctValues,
				},
			},
		},
	}
}

func buildTimestampStatsQuery() map[string]interface{} {
	return map[string]interface{}{
		"aggs": map[string]interface{}{
			timestampStatsAggregation: map[string]interface{}{
				"stats": map[string]interface{}{
					"field": "timestamp",
				},
			},
		},
	}
}

func buildMatchAllQuery() map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"match_all": map[string]interface{}{},
		},
	}
}
