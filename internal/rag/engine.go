package rag

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/akolanti/OfflineRAG/internal/config"
	"github.com/akolanti/OfflineRAG/internal/domain/commonModels"
	"github.com/akolanti/OfflineRAG/internal/metrics"
	"github.com/akolanti/OfflineRAG/internal/rag/embedding"
	"github.com/akolanti/OfflineRAG/internal/rag/graph"
	"github.com/akolanti/OfflineRAG/internal/rag/index"
	"github.com/akolanti/OfflineRAG/internal/rag/llm"
	"github.com/akolanti/OfflineRAG/pkg/logger_i"
)

var (
	ErrEngineNotReady   = errors.New("engine is not ready")
	ErrDocumentNotFound = index.ErrDocumentNotFound
)

// Engine owns the index, the knowledge graph, and the generation path. One
// mutex serializes every mutation and every model call: the deployment target
// is a single box where the local model server can only usefully run one
// generation at a time anyway, so coarse locking buys correctness for free.
type Engine struct {
	mu       sync.Mutex
	store    *index.Store
	graph    *graph.LocalGraphStore
	indexer  *graph.Indexer
	embedder embedding.Embedder
	provider llm.Provider
	logger   *logger_i.Logger

	dataDir   string
	ready     bool
	docStatus map[string]docStatusEntry
}

type docStatusEntry struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

type EngineStatus struct {
	Ready      bool      `json:"ready"`
	Blocks     int       `json:"blocks"`
	Documents  int       `json:"documents"`
	GraphNodes int       `json:"graph_nodes"`
	GraphEdges int       `json:"graph_edges"`
	GraphQueue int       `json:"graph_queue"`
	UpdatedAt  time.Time `json:"updated_at"`
}

const (
	docStatusProcessing = "processing"
	docStatusCompleted  = "completed"
	docStatusError      = "error"
)

// NewEngine loads persisted state and refuses to start on corruption:
// serving answers from a half-loaded index misattributes citations, which is
// worse than being down.
func NewEngine(dataDir string, embedder embedding.Embedder, provider llm.Provider) (*Engine, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}

	e := &Engine{
		store:     index.NewStore(dataDir, embedder),
		graph:     graph.NewLocalGraphStore(dataDir),
		embedder:  embedder,
		provider:  provider,
		logger:    logger_i.NewLogger("RAG Engine :"),
		dataDir:   dataDir,
		docStatus: make(map[string]docStatusEntry),
	}

	if err := e.store.Load(); err != nil {
		return nil, err
	}
	if err := e.graph.Load(); err != nil {
		return nil, err
	}
	e.loadProcessingStatus()

	e.indexer = graph.NewIndexer(graph.NewBuilder(provider), e.graph, &e.mu)
	e.ready = true
	metrics.SetIndexedBlocks(e.store.BlockCount())
	e.writeEngineStatus()
	e.logger.Info("Engine ready", "blocks", e.store.BlockCount(), "documents", e.store.DocumentCount())
	return e, nil
}

func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

// AddDocument indexes the chunks and persists everything before graph
// extraction is even queued - a crash mid-extraction loses graph coverage,
// never the document.
func (e *Engine) AddDocument(ctx context.Context, docId, name string, chunks []commonModels.Chunk) error {
	e.mu.Lock()
	if !e.ready {
		e.mu.Unlock()
		return ErrEngineNotReady
	}
	e.setDocStatus(name, docStatusProcessing)

	contents, err := e.store.AddDocument(ctx, docId, name, chunks)
	if err != nil {
		e.setDocStatus(name, docStatusError)
		e.mu.Unlock()
		return err
	}

	e.setDocStatus(name, docStatusCompleted)
	metrics.SetIndexedBlocks(e.store.BlockCount())
	e.writeEngineStatus()
	e.mu.Unlock()

	blocks := make([]graph.Block, len(contents))
	for i, c := range contents {
		blocks[i] = graph.Block{Id: c.BlockId, Text: c.Text}
	}
	e.indexer.EnqueueBlocks(blocks)
	return nil
}

// DeleteDocument removes the document from the index and cascades into the
// graph. Returns ErrDocumentNotFound when no block belongs to docId.
func (e *Engine) DeleteDocument(ctx context.Context, docId string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return ErrEngineNotReady
	}

	removed, err := e.store.DeleteDocument(docId)
	if err != nil {
		return err
	}
	for _, blockId := range removed {
		e.graph.RemoveBlock(blockId)
	}
	if err := e.graph.Save(); err != nil {
		e.logger.Error("Failed to persist graph after delete", "error", err)
	}
	metrics.SetIndexedBlocks(e.store.BlockCount())
	e.writeEngineStatus()
	return nil
}

// Clear wipes index, graph, and status files. Idempotent.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return ErrEngineNotReady
	}

	if err := e.store.Clear(); err != nil {
		return err
	}
	if err := e.graph.Clear(); err != nil {
		return err
	}
	e.docStatus = make(map[string]docStatusEntry)
	e.writeProcessingStatus()
	metrics.SetIndexedBlocks(0)
	e.writeEngineStatus()
	e.logger.Info("Engine state cleared")
	return nil
}

func (e *Engine) ListDocuments() []commonModels.DocumentInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.ListDocuments()
}

func (e *Engine) Status() EngineStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked()
}

func (e *Engine) ProcessingStatus() map[string]docStatusEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]docStatusEntry, len(e.docStatus))
	for k, v := range e.docStatus {
		out[k] = v
	}
	return out
}

// Shutdown drains the graph indexer so accepted extraction work survives a
// restart.
func (e *Engine) Shutdown() {
	e.indexer.Shutdown()
	e.mu.Lock()
	e.ready = false
	e.writeEngineStatus()
	e.mu.Unlock()
}

func (e *Engine) statusLocked() EngineStatus {
	return EngineStatus{
		Ready:      e.ready,
		Blocks:     e.store.BlockCount(),
		Documents:  e.store.DocumentCount(),
		GraphNodes: e.graph.NodeCount(),
		GraphEdges: e.graph.EdgeCount(),
		GraphQueue: e.queueDepth(),
		UpdatedAt:  time.Now(),
	}
}

func (e *Engine) queueDepth() int {
	if e.indexer == nil {
		return 0
	}
	return e.indexer.QueueDepth()
}

func (e *Engine) setDocStatus(name, status string) {
	e.docStatus[name] = docStatusEntry{Status: status, UpdatedAt: time.Now()}
	e.writeProcessingStatus()
}

// Status files are best effort: they exist for operators peeking at the data
// dir, losing one never fails a request.
func (e *Engine) writeProcessingStatus() {
	raw, err := json.Marshal(e.docStatus)
	if err == nil {
		err = os.WriteFile(filepath.Join(e.dataDir, config.ProcessingStatusFile), raw, 0o644)
	}
	if err != nil {
		e.logger.Warn("Failed to write processing status", "error", err)
	}
}

func (e *Engine) loadProcessingStatus() {
	raw, err := os.ReadFile(filepath.Join(e.dataDir, config.ProcessingStatusFile))
	if err != nil {
		return
	}
	if err := json.Unmarshal(raw, &e.docStatus); err != nil {
		e.docStatus = make(map[string]docStatusEntry)
	}
}

func (e *Engine) writeEngineStatus() {
	raw, err := json.Marshal(e.statusLocked())
	if err == nil {
		err = os.WriteFile(filepath.Join(e.dataDir, config.EngineStatusFile), raw, 0o644)
	}
	if err != nil {
		e.logger.Warn("Failed to write engine status", "error", err)
	}
}
