package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/noclense/noclense/pkg/cache"
	esclient "github.com/noclense/noclense/pkg/elasticsearch/client"
	"github.com/noclense/noclense/pkg/logs/model"
	"github.com/noclense/noclense/pkg/write_buffer"
	"go.uber.org/zap"
)

const queryTimeout = 10 * time.Second

// ElasticsearchStore is the paged-mode backing: the canonical set lives in the
// persistent index and only query results become resident. Distinct-value and
// count aggregations are cached read-through and invalidated on every write.
type ElasticsearchStore struct {
	client        esclient.StoreClient
	writeBuffer   write_buffer.EntryWriteBuffer[model.LogEntry]
	distinctCache cache.ReadThroughCache[[]string]
	countsCache   cache.ReadThroughCache[map[string]int]
	indexName     string
	logger        *zap.Logger
}

func NewElasticsearchStore(
	client esclient.StoreClient,
	aggCache *ristretto.Cache,
	indexName string,
	logger *zap.Logger,
) *ElasticsearchStore {
	return &ElasticsearchStore{
		client:        client,
		writeBuffer:   write_buffer.NewEntryWriteBufferImpl[model.LogEntry](client, indexName, logger),
		distinctCache: cache.NewReadThroughCacheImpl[[]string](aggCache),
		countsCache:   cache.NewReadThroughCacheImpl[map[string]int](aggCache),
		indexName:     indexName,
		logger:        logger,
	}
}

func (s *ElasticsearchStore) Add(ctx context.Context, entries []model.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	s.writeBuffer.WriteToBuffer(entries)
	if err := s.writeBuffer.Flush(ctx); err != nil {
		return fmt.Errorf("error flushing entries to index: %w", err)
	}
	// Both caches share one backing store, clearing either clears both.
	s.distinctCache.Clear()
	return nil
}

// All returns the initial bounded page: the oldest entries in timestamp order.
func (s *ElasticsearchStore) All(ctx context.Context) ([]model.LogEntry, error) {
	return s.Query(ctx, Filter{}, esclient.SearchResultSize)
}

func (s *ElasticsearchStore) Query(ctx context.Context, f Filter, limit int) ([]model.LogEntry, error) {
	query := buildEntryQuery(f)
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("error marshaling entry query: %w", err)
	}
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	querySize := limit
	docs, err := s.client.Search(queryCtx, string(queryJSON), []string{s.indexName}, &querySize)
	if err != nil {
		return nil, fmt.Errorf("error querying entries: %w", err)
	}
	return entriesFromDocuments(docs)
}

func (s *ElasticsearchStore) TotalCount(ctx context.Context) (int64, error) {
	queryJSON, err := json.Marshal(buildMatchAllQuery())
	if err != nil {
		return 0, fmt.Errorf("error marshaling count query: %w", err)
	}
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	count, err := s.client.Count(queryCtx, string(queryJSON), []string{s.indexName})
	if err != nil {
		return 0, fmt.Errorf("error counting entries: %w", err)
	}
	return count, nil
}

func (s *ElasticsearchStore) DistinctValues(ctx context.Context, field model.Dimension) ([]string, error) {
	cacheKey := "distinct:" + string(field)
	if cached, err := s.distinctCache.Get(cacheKey); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrKeyNotFound) {
		s.logger.Warn("Failed to read distinct values from cache", zap.Error(err))
	}

	queryJSON, err := json.Marshal(buildDistinctValuesQuery(field))
	if err != nil {
		return nil, fmt.Errorf("error marshaling distinct values query: %w", err)
	}
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	buckets, err := s.client.Aggregate(queryCtx, string(queryJSON), []string{s.indexName}, distinctValuesAggregation)
	if err != nil {
		return nil, fmt.Errorf("error aggregating distinct values for %s: %w", field, err)
	}

	values := make([]string, 0, len(buckets))
	for _, b := range buckets {
		values = append(values, b.Key)
	}
	if err := s.distinctCache.Put(cacheKey, values, int64(len(values))); err != nil {
		s.logger.Warn("Failed to cache distinct values", zap.Error(err))
	}
	return values, nil
}

func (s *ElasticsearchStore) Counts(ctx context.Context, field model.Dimension) (map[string]int, error) {
	cacheKey := "counts:" + string(field)
	if cached, err := s.countsCache.Get(cacheKey); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrKeyNotFound) {
		s.logger.Warn("Failed to read value counts from cache", zap.Error(err))
	}

	queryJSON, err := json.Marshal(buildValueCountsQuery(field))
	if err != nil {
		return nil, fmt.Errorf("error marshaling value counts query: %w", err)
	}
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	buckets, err := s.client.Aggregate(queryCtx, string(queryJSON), []string{s.indexName}, valueCountsAggregation)
	if err != nil {
		return nil, fmt.Errorf("error aggregating value counts for %s: %w", field, err)
	}

	counts := make(map[string]int, len(buckets))
	for _, b := range buckets {
		counts[b.Key] = b.DocCount
	}
	if err := s.countsCache.Put(cacheKey, counts, int64(len(counts))); err != nil {
		s.logger.Warn("Failed to cache value counts", zap.Error(err))
	}
	return counts, nil
}

func (s *ElasticsearchStore) Range(ctx context.Context) (*TimestampRange, error) {
	queryJSON, err := json.Marshal(buildTimestampStatsQuery())
	if err != nil {
		return nil, fmt.Errorf("error marshaling timestamp stats query: %w", err)
	}
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	stats, err := s.client.Stats(queryCtx, string(queryJSON), []string{s.indexName}, timestampStatsAggregation)
	if err != nil {
		return nil, ErrEmptyStore
	}
	return &TimestampRange{MinMs: int64(stats.Min), MaxMs: int64(stats.Max)}, nil
}

func (s *ElasticsearchStore) Clear(ctx context.Context) error {
	clearCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if err := s.client.DeleteIndex(clearCtx, s.indexName); err != nil {
		return fmt.Errorf("error deleting log index: %w", err)
	}
	s.distinctCache.Clear()
	return nil
}

func entriesFromDocuments(docs []map[string]interface{}) ([]model.LogEntry, error) {
	entries := make([]model.LogEntry, 0, len(docs))
	for _, doc := range docs {
		delete(doc, "_id")
		docJSON, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("error marshaling document: %w", err)
		}
		var entry model.LogEntry
		if err := json.Unmarshal(docJSON, &entry); err != nil {
			return nil, fmt.Errorf("error converting document to entry: %w", err)
		}
		// Shadows are not persisted; re-derive them on rehydration.
		entry.PrecomputeSearchFields()
		entries = append(entries, entry)
	}
	return entries, nil
}
