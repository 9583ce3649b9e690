package client

import (
	"context"

	"github.com/elastic/go-elasticsearch/v8"
)

const SearchResultSize = 10

type RefreshRate string

const (
	// Wait for the changes made by the request to be made visible by a refresh before replying.
	Wait RefreshRate = "wait_for"
	// Immediate Refresh the relevant primary and replica shards (not the whole index) immediately after the operation occurs.
	Immediate RefreshRate = "true"
	// Async Take no refresh related actions. The changes made by this request will be made visible at some point after the request returns.
	Async RefreshRate = "false"
)

type StoreClient interface {
	// BulkIndex indexes (inserts) multiple documents in the same index
	// https://www.elastic.co/guide/en/elasticsearch/reference/master/docs-bulk.html
	BulkIndex(ctx context.Context, metaInfo []MetaMap, documentInfo []DocumentMap, index string) error
	// Search searches for documents in the index
	// https://www.elastic.co/guide/en/elasticsearch/reference/master/search-search.html
	// queryResultSize is the number of results to return, nil for default
	Search(ctx context.Context, query string, indices []string, queryResultSize *int) ([]map[string]interface{}, error)
	// Count counts the number of documents in the index matching the query
	// https://www.elastic.co/guide/en/elasticsearch/reference/master/search-count.html
	Count(ctx context.Context, query string, indices []string) (int64, error)
	// Aggregate runs a zero-hit search and returns the named terms aggregation buckets
	// https://www.elastic.co/guide/en/elasticsearch/reference/master/search-aggregations.html
	Aggregate(ctx context.Context, query string, indices []string, aggregationName string) ([]Bucket, error)
	// Stats returns the min and max of a numeric field over the matching documents
	Stats(ctx context.Context, query string, indices []string, aggregationName string) (*StatsResult, error)
	// DeleteIndex removes the index and all its documents
	DeleteIndex(ctx context.Context, index string) error
}

type StoreClientImpl struct {
	es          *elasticsearch.Client
	refreshRate string
}

func NewStoreClientImpl(es *elasticsearch.Client, refreshRate RefreshRate) *StoreClientImpl {
	return &StoreClientImpl{es: es, refreshRate: string(refreshRate)}
}
