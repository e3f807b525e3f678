package graph

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/OfflineRAG/internal/config"
	"github.com/akolanti/OfflineRAG/internal/metrics"
	"github.com/akolanti/OfflineRAG/pkg/logger_i"
)

// Indexer runs knowledge graph extraction in the background so ingestion can
// return as soon as the vector index is persisted. A small fixed pool keeps
// the local model from being swamped while queries are being served.
type Indexer struct {
	builder *Builder
	store   *LocalGraphStore
	// guards extraction generations, graph mutation and persistence; shared
	// with the engine so neither interleaves with a search, a delete, or a
	// foreground generation
	mu     sync.Locker
	logger *logger_i.Logger

	queue  chan task
	wg     sync.WaitGroup
	closed atomic.Bool
}

type task struct {
	blockId string
	text    string
	batch   *batchState
}

// batchState tracks one document's blocks so the graph is persisted once per
// document, not once per block.
type batchState struct {
	remaining atomic.Int32
}

func NewIndexer(builder *Builder, store *LocalGraphStore, mu sync.Locker) *Indexer {
	idx := &Indexer{
		builder: builder,
		store:   store,
		mu:      mu,
		logger:  logger_i.NewLogger("Graph Indexer :"),
		queue:   make(chan task, config.GraphQueueLimit),
	}
	for i := 0; i < config.GraphWorkerCount; i++ {
		idx.wg.Add(1)
		go idx.work()
	}
	return idx
}

type Block struct {
	Id   string
	Text string
}

// EnqueueBlocks queues one document's blocks for extraction. Blocks the
// caller when the queue is full - ingestion backpressure is preferable to
// silently losing graph coverage.
func (idx *Indexer) EnqueueBlocks(blocks []Block) {
	if idx.closed.Load() || len(blocks) == 0 {
		if idx.closed.Load() {
			idx.logger.Warn("Enqueue after shutdown ignored", "blocks", len(blocks))
		}
		return
	}
	batch := &batchState{}
	batch.remaining.Store(int32(len(blocks)))
	for _, b := range blocks {
		idx.queue <- task{blockId: b.Id, text: b.Text, batch: batch}
	}
}

func (idx *Indexer) work() {
	defer idx.wg.Done()
	for t := range idx.queue {
		idx.processTask(t)
	}
}

func (idx *Indexer) processTask(t task) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	// Extraction holds the engine lock for the whole model round-trip. The
	// local server decodes one request at a time, so an unserialized call
	// would interleave with a foreground generation anyway - here it just
	// queues behind it, at the cost of extraction latency.
	start := time.Now()
	result := idx.builder.ProcessBlock(context.Background(), t.blockId, t.text)
	metrics.CaptureExecutionMetrics("graph_extraction", time.Since(start))

	if !result.Skipped {
		idx.store.AddBlock(t.blockId)
		for _, triple := range result.Triples {
			idx.store.AddEntity(triple.Head)
			idx.store.AddEntity(triple.Tail)
			idx.store.AddContains(t.blockId, triple.Head)
			idx.store.AddContains(t.blockId, triple.Tail)
			idx.store.AddRelationship(triple.Head, triple.Relation, triple.Tail)
		}
		metrics.CaptureGraphExtraction(len(result.Triples))
	}

	if t.batch.remaining.Add(-1) == 0 {
		if err := idx.store.Save(); err != nil {
			idx.logger.Error("Failed to persist knowledge graph", "error", err)
		}
	}
}

// Shutdown stops intake and waits for queued blocks to finish. Called during
// server drain so a restart never loses accepted extraction work.
func (idx *Indexer) Shutdown() {
	if idx.closed.Swap(true) {
		return
	}
	close(idx.queue)
	idx.wg.Wait()
	idx.logger.Info("Graph indexer drained")
}

func (idx *Indexer) QueueDepth() int { return len(idx.queue) }
