package store

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/noclense/noclense/pkg/config"
	"github.com/noclense/noclense/pkg/elasticsearch/bootstrapper"
	esclient "github.com/noclense/noclense/pkg/elasticsearch/client"
	"go.uber.org/zap"
)

// ElasticsearchBackend wires the real persistent store: client construction,
// index bootstrap and the aggregation cache.
type ElasticsearchBackend struct {
	cfg    *config.Config
	logger *zap.Logger
}

func NewElasticsearchBackend(cfg *config.Config, logger *zap.Logger) *ElasticsearchBackend {
	return &ElasticsearchBackend{cfg: cfg, logger: logger}
}

func (b *ElasticsearchBackend) newClient() (*elasticsearch.Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: b.cfg.ElasticsearchAddresses,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return es, nil
}

func (b *ElasticsearchBackend) Detect(_ context.Context) (bool, error) {
	es, err := b.newClient()
	if err != nil {
		return false, err
	}
	bs := bootstrapper.NewBootstrapper(es, b.logger)
	exists, err := bs.IndexExists(b.cfg.LogIndexName)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	// An empty leftover index does not count as a resumable session.
	client := esclient.NewStoreClientImpl(es, esclient.Wait)
	count, err := client.Count(context.Background(), `{"query":{"match_all":{}}}`, []string{b.cfg.LogIndexName})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (b *ElasticsearchBackend) Open(_ context.Context) (EntryStore, error) {
	es, err := b.newClient()
	if err != nil {
		return nil, err
	}

	bs := bootstrapper.NewBootstrapper(es, b.logger)
	if err := bs.BootstrapElasticsearch(b.cfg.LogIndexName); err != nil {
		return nil, fmt.Errorf("failed to bootstrap elasticsearch: %w", err)
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 14,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aggregation cache: %w", err)
	}

	client := esclient.NewStoreClientImpl(es, esclient.Wait)
	return NewElasticsearchStore(client, cache, b.cfg.LogIndexName, b.logger), nil
}
