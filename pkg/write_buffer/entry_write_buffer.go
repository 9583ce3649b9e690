package write_buffer

import (
	"context"
	"fmt"
	"sync"
	"time"

	esclient "github.com/noclense/noclense/pkg/elasticsearch/client"
	"go.uber.org/zap"
)

const WriteChunkSize = 1000
const flushTimeOut = 10 * time.Second

// EntryWriteBuffer chunks bulk writes to the persistent index so that large
// migrations do not hit Elasticsearch with one oversized bulk request.
// Flush is synchronous: once it returns, every buffered value is indexed.
type EntryWriteBuffer[ValueType any] interface {
	WriteToBuffer(value []ValueType)
	Flush(ctx context.Context) error
}

type EntryWriteBufferImpl[ValueType any] struct {
	writeQueue  []ValueType
	sc          esclient.StoreClient
	esIndexName string
	logger      *zap.Logger
	mu          sync.Mutex
}

func NewEntryWriteBufferImpl[ValueType any](
	sc esclient.StoreClient,
	esIndexName string,
	logger *zap.Logger,
) *EntryWriteBufferImpl[ValueType] {
	return &EntryWriteBufferImpl[ValueType]{
		writeQueue:  []ValueType{},
		sc:          sc,
		esIndexName: esIndexName,
		logger:      logger,
	}
}

func (wb *EntryWriteBufferImpl[ValueType]) WriteToBuffer(
	value []ValueType,
) {
	wb.mu.Lock()
	defer wb.mu.Unlock()
	wb.writeQueue = append(wb.writeQueue, value...)
}

func (wb *EntryWriteBufferImpl[ValueType]) Flush(ctx context.Context) error {
	wb.mu.Lock()
	defer wb.mu.Unlock()
	for len(wb.writeQueue) > 0 {
		chunk := wb.writeQueue
		if len(chunk) > WriteChunkSize {
			chunk = chunk[:WriteChunkSize]
		}
		if err := wb.flushChunk(ctx, chunk); err != nil {
			return err
		}
		wb.writeQueue = wb.writeQueue[len(chunk):]
	}
	wb.writeQueue = []ValueType{}
	return nil
}

func (wb *EntryWriteBufferImpl[ValueType]) flushChunk(
	ctx context.Context,
	chunk []ValueType,
) error {
	bulkCtx, cancel := context.WithTimeout(ctx, flushTimeOut)
	defer cancel()
	metaMap, dataMap, err := esclient.ToMetaAndDataMap(chunk)
	if err != nil {
		return fmt.Errorf("error converting write queue to meta and data map: %w", err)
	}
	if len(metaMap) == 0 {
		return nil
	}
	err = wb.sc.BulkIndex(
		bulkCtx,
		metaMap,
		dataMap,
		wb.esIndexName,
	)
	if err != nil {
		return fmt.Errorf("error bulk indexing to Elasticsearch: %w", err)
	}
	return nil
}
