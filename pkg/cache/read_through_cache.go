package cache

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// ReadThroughCache is a typed view over a shared ristretto cache, used to
// memoize aggregation results between writes. Eviction is based on LRU and
// LFU policies; callers invalidate the whole cache on every write.
type ReadThroughCache[ValueType any] interface {
	Get(key string) (ValueType, error)
	Put(key string, value ValueType, cost int64) error
	Clear()
}

type ReadThroughCacheImpl[ValueType any] struct {
	cache *ristretto.Cache
}

func NewReadThroughCacheImpl[ValueType any](
	cache *ristretto.Cache,
) *ReadThroughCacheImpl[ValueType] {
	return &ReadThroughCacheImpl[ValueType]{
		cache: cache,
	}
}

func (c *ReadThroughCacheImpl[ValueType]) Get(key string) (ValueType, error) {
	var zero ValueType
	value, found := c.cache.Get(key)
	if !found {
		return zero, ErrKeyNotFound
	}
	typedValue, ok := value.(ValueType)
	if !ok {
		return zero, fmt.Errorf("value not of expected type %T returned from cache when getting", value)
	}
	return typedValue, nil
}

func (c *ReadThroughCacheImpl[ValueType]) Put(key string, value ValueType, cost int64) error {
	set := c.cache.Set(key, value, cost)
	if !set {
		return ErrSetFailed
	}
	return nil
}

func (c *ReadThroughCacheImpl[ValueType]) Clear() {
	c.cache.Clear()
}

var (
	ErrKeyNotFound = errors.New("key not found within the cache")
	ErrSetFailed   = errors.New("failed to set value in cache")
)
