package store

import (
	"testing"

	"github.com/noclense/noclense/pkg/logs/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEntryQuery(t *testing.T) {
	t.Run("zero filter falls back to match_all", func(t *testing.T) {
		query := buildEntryQuery(Filter{})
		assert.Equal(t,
			map[string]interface{}{"match_all": map[string]interface{}{}},
			query["query"],
		)
	})

	t.Run("constrained query carries no empty clause lists", func(t *testing.T) {
		query := buildEntryQuery(Filter{Component: "SIP-Stack"})
		boolQuery := query["query"].(map[string]interface{})["bool"].(map[string]interface{})
		assert.Contains(t, boolQuery, "filter")
		assert.NotContains(t, boolQuery, "must")
	})

	t.Run("exact predicates become filter clauses", func(t *testing.T) {
		query := buildEntryQuery(Filter{
			Component: "SIP-Stack",
			CallID:    "call-a",
			Levels:    []model.Level{model.ErrorLevel, model.WarnLevel},
			SipOnly:   true,
			FileName:  "node1.log",
		})
		boolQuery := query["query"].(map[string]interface{})["bool"].(map[string]interface{})
		filters := boolQuery["filter"].([]map[string]interface{})
		require.Len(t, filters, 5)

		assert.Equal(t, "SIP-Stack", filters[0]["term"].(map[string]interface{})["component"])
		assert.Equal(t, "call-a", filters[1]["term"].(map[string]interface{})["callId"])
		assert.Equal(t,
			[]model.Level{model.ErrorLevel, model.WarnLevel},
			filters[2]["terms"].(map[string]interface{})["level"],
		)
		assert.Equal(t, true, filters[3]["term"].(map[string]interface{})["isSip"])
		assert.Equal(t, "node1.log", filters[4]["term"].(map[string]interface{})["fileName"])
	})

	t.Run("time bounds build a range clause", func(t *testing.T) {
		query := buildEntryQuery(Filter{StartMs: 1000, EndMs: 2000})
		boolQuery := query["query"].(map[string]interface{})["bool"].(map[string]interface{})
		must := boolQuery["must"].([]map[string]interface{})
		require.Len(t, must, 1)
		timestampRange := must[0]["range"].(map[string]interface{})["timestamp"].(map[string]interface{})
		assert.Equal(t, int64(1000), timestampRange["gte"])
		assert.Equal(t, int64(2000), timestampRange["lte"])
	})

	t.Run("free text phrase-matches the analyzed fields and wildcards the keywords", func(t *testing.T) {
		query := buildEntryQuery(Filter{FreeText: "RTP port"})
		boolQuery := query["query"].(map[string]interface{})["bool"].(map[string]interface{})
		must := boolQuery["must"].([]map[string]interface{})
		require.Len(t, must, 1)
		textBool := must[0]["bool"].(map[string]interface{})
		should := textBool["should"].([]map[string]interface{})
		require.Len(t, should, 4)
		assert.Equal(t, 1, textBool["minimum_should_match"])

		assert.Equal(t, "rtp port", should[0]["match_phrase"].(map[string]interface{})["message"])
		assert.Equal(t, "rtp port", should[1]["match_phrase"].(map[string]interface{})["payload"])

		componentClause := should[2]["wildcard"].(map[string]interface{})["component"].(map[string]interface{})
		assert.Equal(t, "*rtp port*", componentClause["value"])
		assert.Equal(t, true, componentClause["case_insensitive"])
		callIDClause := should[3]["wildcard"].(map[string]interface{})["callId"].(map[string]interface{})
		assert.Equal(t, "*rtp port*", callIDClause["value"])
	})

	t.Run("sorts by timestamp then id ascending", func(t *testing.T) {
		query := buildEntryQuery(Filter{})
		sortClauses := query["sort"].([]map[string]interface{})
		require.Len(t, sortClauses, 2)
		assert.Contains(t, sortClauses[0], "timestamp")
		assert.Contains(t, sortClauses[1], "id")
	})
}

func TestBuildAggregationQueries(t *testing.T) {
	t.Run("distinct values aggregate sorted by key", func(t *testing.T) {
		query := buildDistinctValuesQuery(model.DimensionCallID)
		agg := query["aggs"].(map[string]interface{})[distinctValuesAggregation].(map[string]interface{})
		terms := agg["terms"].(map[string]interface{})
		assert.Equal(t, "callId", terms["field"])
		assert.Equal(t, maxDistinctValues, terms["size"])
		assert.Equal(t, map[string]interface{}{"_key": "asc"}, terms["order"])
	})

	t.Run("value counts aggregate over the dimension field", func(t *testing.T) {
		query := buildValueCountsQuery(model.DimensionMessageType)
		agg := query["aggs"].(map[string]interface{})[valueCountsAggregation].(map[string]interface{})
		assert.Equal(t, "messageType", agg["terms"].(map[string]interface{})["field"])
	})

	t.Run("timestamp stats aggregate over the timestamp field", func(t *testing.T) {
		query := buildTimestampStatsQuery()
		agg := query["aggs"].(map[string]interface{})[timestampStatsAggregation].(map[string]interface{})
		assert.Equal(t, "timestamp", agg["stats"].(map[string]interface{})["field"])
	})
}
