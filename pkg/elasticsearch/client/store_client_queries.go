package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/noclense/noclense/pkg/elasticsearch/client/model"
)

// Bucket is one terms-aggregation bucket: a distinct value and its document count.
type Bucket struct {
	Key      string
	DocCount int
}

// StatsResult carries the min/max of a numeric field aggregation.
type StatsResult struct {
	Min float64
	Max float64
}

func (c *StoreClientImpl) Search(
	ctx context.Context,
	query string,
	indices []string,
	queryResultSize *int,
) ([]map[string]interface{}, error) {
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(indices...),
		c.es.Search.WithBody(strings.NewReader(query)),
		c.es.Search.WithSize(getQuerySize(queryResultSize)),
	)

	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("failed to execute query: %s", res.String())
	}

	var esResponse model.EsResponse
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	var results []map[string]interface{}
	for _, hit := range esResponse.Hits.HitArray {
		results = append(results, hit.Source)
		results[len(results)-1]["_id"] = hit.ID
	}

	return results, nil
}

func (c *StoreClientImpl) Count(
	ctx context.Context,
	query string,
	indices []string,
) (int64, error) {
	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(indices...),
		c.es.Count.WithBody(strings.NewReader(query)),
	)

	if err != nil {
		return 0, fmt.Errorf("failed to execute query: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("failed to execute query: %s", res.String())
	}

	var countResponse model.CountResponse
	if err := json.NewDecoder(res.Body).Decode(&countResponse); err != nil {
		return 0, fmt.Errorf("failed to decode response body: %w", err)
	}

	return int64(countResponse.Count), nil
}

func (c *StoreClientImpl) Aggregate(
	ctx context.Context,
	query string,
	indices []string,
	aggregationName string,
) ([]Bucket, error) {
	agg, err := c.aggregate(ctx, query, indices, aggregationName)
	if err != nil {
		return nil, err
	}

	buckets := make([]Bucket, 0, len(agg.Buckets))
	for _, b := range agg.Buckets {
		buckets = append(buckets, Bucket{
			Key:      fmt.Sprintf("%v", b.Key),
			DocCount: b.DocCount,
		})
	}
	return buckets, nil
}

func (c *StoreClientImpl) Stats(
	ctx context.Context,
	query string,
	indices []string,
	aggregationName string,
) (*StatsResult, error) {
	agg, err := c.aggregate(ctx, query, indices, aggregationName)
	if err != nil {
		return nil, err
	}
	if agg.Min == nil || agg.Max == nil {
		return nil, fmt.Errorf("stats aggregation %s returned no bounds", aggregationName)
	}
	return &StatsResult{Min: *agg.Min, Max: *agg.Max}, nil
}

func (c *StoreClientImpl) aggregate(
	ctx context.Context,
	query string,
	indices []string,
	aggregationName string,
) (*model.TermsAggregation, error) {
	zeroHits := 0
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(indices...),
		c.es.Search.WithBody(strings.NewReader(query)),
		c.es.Search.WithSize(zeroHits),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute aggregation query: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("failed to execute aggregation query: %s", res.String())
	}

	var aggResponse model.EsAggregationResponse
	if err := json.NewDecoder(res.Body).Decode(&aggResponse); err != nil {
		return nil, fmt.Errorf("failed to decode aggregation response body: %w", err)
	}

	agg, ok := aggResponse.Aggregations[aggregationName]
	if !ok {
		return nil, fmt.Errorf("aggregation %s missing from response", aggregationName)
	}
	return &agg, nil
}

func getQuerySize(querySize *int) int {
	if querySize == nil {
		return SearchResultSize
	} else {
		return *querySize
	}
}
