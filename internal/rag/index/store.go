package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/akolanti/OfflineRAG/internal/config"
	"github.com/akolanti/OfflineRAG/internal/domain/commonModels"
	"github.com/akolanti/OfflineRAG/internal/rag/embedding"
	"github.com/akolanti/OfflineRAG/pkg/logger_i"
)

var ErrDocumentNotFound = errors.New("document not found in index")

// Store is the two-level document index. Level one is a single block index
// (one mean vector per ~20-page block of a document), level two is one chunk
// index per block. blockMeta is positionally parallel to the block index -
// that invariant is checked after every mutation, not assumed.
//
// Store is not safe for concurrent use. The engine serializes all access.
type Store struct {
	dataDir  string
	embedder embedding.Embedder
	logger   *logger_i.Logger

	blockIndex   *FlatIndex
	blockMeta    []commonModels.BlockMeta
	chunkIndexes map[string]*FlatIndex
	chunkMeta    map[string][]commonModels.Chunk
}

// BlockContent is handed to the graph indexer after ingestion: one entry per
// new block, text concatenated from the block's chunks.
type BlockContent struct {
	BlockId string
	Text    string
}

type BlockMatch struct {
	Meta  commonModels.BlockMeta
	Score float32
}

func NewStore(dataDir string, embedder embedding.Embedder) *Store {
	return &Store{
		dataDir:      dataDir,
		embedder:     embedder,
		logger:       logger_i.NewLogger("Index Store :"),
		blockIndex:   NewFlatIndex(int(config.EmbeddingOutputDimensionality)),
		chunkIndexes: make(map[string]*FlatIndex),
		chunkMeta:    make(map[string][]commonModels.Chunk),
	}
}

// AddDocument buckets chunks into page blocks, embeds them, and appends the
// block rows. The whole store is persisted before returning so a crash after
// ingestion never loses the document. Graph extraction happens later, off the
// returned block contents.
func (s *Store) AddDocument(ctx context.Context, docId, name string, chunks []commonModels.Chunk) ([]BlockContent, error) {
	if len(chunks) == 0 {
		return nil, errors.New("document produced no chunks")
	}

	sort.SliceStable(chunks, func(a, b int) bool { return chunks[a].Page < chunks[b].Page })

	blocks := bucketByPage(chunks)
	contents := make([]BlockContent, 0, len(blocks))

	for _, blockIdx := range sortedKeys(blocks) {
		blockChunks := blocks[blockIdx]
		blockId := commonModels.BlockId(docId, blockIdx)

		texts := make([]string, len(blockChunks))
		for i, c := range blockChunks {
			texts[i] = c.Text
		}

		vectors, err := s.embedder.BatchEmbedding(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed block %s: %w", blockId, err)
		}
		if len(vectors) != len(blockChunks) {
			return nil, fmt.Errorf("embed block %s: got %d vectors for %d chunks", blockId, len(vectors), len(blockChunks))
		}

		chunkIndex := NewFlatIndex(int(config.EmbeddingOutputDimensionality))
		for _, v := range vectors {
			if err := chunkIndex.Add(v); err != nil {
				return nil, err
			}
		}
		blockVector, err := chunkIndex.Mean()
		if err != nil {
			return nil, err
		}
		if err := s.blockIndex.Add(blockVector); err != nil {
			return nil, err
		}

		s.blockMeta = append(s.blockMeta, commonModels.BlockMeta{
			BlockId:    blockId,
			DocId:      docId,
			Name:       name,
			PageRange:  pageRange(blockChunks),
			ChunkCount: len(blockChunks),
			CreatedAt:  blockChunks[0].CreatedAt,
		})
		s.chunkIndexes[blockId] = chunkIndex
		s.chunkMeta[blockId] = blockChunks

		contents = append(contents, BlockContent{BlockId: blockId, Text: strings.Join(texts, "\n")})
	}

	if err := s.checkAligned(); err != nil {
		return nil, err
	}
	if err := s.Save(); err != nil {
		return nil, fmt.Errorf("persist after ingest: %w", err)
	}

	s.logger.Info("Document indexed", "docId", docId, "blocks", len(contents), "chunks", len(chunks))
	return contents, nil
}

// DeleteDocument removes every block of the document and rebuilds the block
// index from the surviving blocks' stored chunk vectors. Returns the removed
// block ids so the caller can cascade into the graph.
func (s *Store) DeleteDocument(docId string) ([]string, error) {
	var removed []string
	var kept []commonModels.BlockMeta
	for _, meta := range s.blockMeta {
		if meta.DocId == docId {
			removed = append(removed, meta.BlockId)
		} else {
			kept = append(kept, meta)
		}
	}
	if len(removed) == 0 {
		return nil, ErrDocumentNotFound
	}

	rebuilt := NewFlatIndex(int(config.EmbeddingOutputDimensionality))
	for _, meta := range kept {
		blockVector, err := s.chunkIndexes[meta.BlockId].Mean()
		if err != nil {
			return nil, fmt.Errorf("rebuild block %s: %w", meta.BlockId, err)
		}
		if err := rebuilt.Add(blockVector); err != nil {
			return nil, err
		}
	}

	s.blockIndex = rebuilt
	s.blockMeta = kept
	for _, blockId := range removed {
		delete(s.chunkIndexes, blockId)
		delete(s.chunkMeta, blockId)
		s.removeChunkFiles(blockId)
	}

	if err := s.checkAligned(); err != nil {
		return nil, err
	}
	if err := s.Save(); err != nil {
		return nil, fmt.Errorf("persist after delete: %w", err)
	}

	s.logger.Info("Document removed", "docId", docId, "blocks", len(removed))
	return removed, nil
}

// SearchBlocks is the level-one search over block mean vectors.
func (s *Store) SearchBlocks(query []float32, k int) ([]BlockMatch, error) {
	matches, err := s.blockIndex.Search(query, k)
	if err != nil {
		return nil, err
	}
	out := make([]BlockMatch, len(matches))
	for i, m := range matches {
		out[i] = BlockMatch{Meta: s.blockMeta[m.Position], Score: m.Score}
	}
	return out, nil
}

// SearchChunks is the level-two search: the top k chunks of EACH given block,
// merged and sorted by distance. Each block keeps its own quota so a lexical
// hit in a worse-scoring block is never shadowed by a pile of close chunks in
// a better one - the keyword and margin stages downstream see everything. No
// threshold here, relevance was already decided at the block level.
func (s *Store) SearchChunks(query []float32, blockIds []string, k int) ([]commonModels.Candidate, error) {
	var candidates []commonModels.Candidate
	for _, blockId := range blockIds {
		chunkIndex, ok := s.chunkIndexes[blockId]
		if !ok {
			continue
		}
		matches, err := chunkIndex.Search(query, k)
		if err != nil {
			return nil, fmt.Errorf("search block %s: %w", blockId, err)
		}
		chunks := s.chunkMeta[blockId]
		for _, m := range matches {
			c := chunks[m.Position]
			candidates = append(candidates, commonModels.Candidate{
				Text:         c.Text,
				Page:         c.Page,
				Score:        m.Score,
				DocumentName: c.Source,
				CreatedAt:    c.CreatedAt,
			})
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool { return candidates[a].Score < candidates[b].Score })
	return candidates, nil
}

// ScanBlocksByName scores every block of one named document against the
// query, skipping the ANN shortlist entirely. Used when the user names a file.
func (s *Store) ScanBlocksByName(query []float32, docName string) ([]BlockMatch, error) {
	var out []BlockMatch
	for pos, meta := range s.blockMeta {
		if !strings.EqualFold(meta.Name, docName) {
			continue
		}
		score, err := s.blockIndex.DistanceAt(pos, query)
		if err != nil {
			return nil, err
		}
		out = append(out, BlockMatch{Meta: meta, Score: score})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score < out[b].Score })
	return out, nil
}

func (s *Store) HasDocumentNamed(docName string) bool {
	for _, meta := range s.blockMeta {
		if strings.EqualFold(meta.Name, docName) {
			return true
		}
	}
	return false
}

func (s *Store) ListDocuments() []commonModels.DocumentInfo {
	byId := make(map[string]*commonModels.DocumentInfo)
	var order []string
	for _, meta := range s.blockMeta {
		info, ok := byId[meta.DocId]
		if !ok {
			info = &commonModels.DocumentInfo{Id: meta.DocId, Name: meta.Name, CreatedAt: meta.CreatedAt}
			byId[meta.DocId] = info
			order = append(order, meta.DocId)
		}
		info.Blocks++
	}
	out := make([]commonModels.DocumentInfo, 0, len(order))
	for _, id := range order {
		out = append(out, *byId[id])
	}
	return out
}

func (s *Store) BlockCount() int { return len(s.blockMeta) }

func (s *Store) DocumentCount() int { return len(s.ListDocuments()) }

// checkAligned verifies the positional invariant between the block index and
// its metadata. A mismatch means a bug corrupted the store mid-mutation.
func (s *Store) checkAligned() error {
	if s.blockIndex.Size() != len(s.blockMeta) {
		return fmt.Errorf("index corrupted: %d vectors vs %d metadata rows", s.blockIndex.Size(), len(s.blockMeta))
	}
	return nil
}

func bucketByPage(chunks []commonModels.Chunk) map[int][]commonModels.Chunk {
	blocks := make(map[int][]commonModels.Chunk)
	for _, c := range chunks {
		page := c.Page
		if page < 1 {
			page = 1
		}
		blockIdx := (page - 1) / config.BlockSizePages
		blocks[blockIdx] = append(blocks[blockIdx], c)
	}
	return blocks
}

func sortedKeys(blocks map[int][]commonModels.Chunk) []int {
	keys := make([]int, 0, len(blocks))
	for k := range blocks {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func pageRange(chunks []commonModels.Chunk) string {
	lo, hi := chunks[0].Page, chunks[0].Page
	for _, c := range chunks {
		if c.Page < lo {
			lo = c.Page
		}
		if c.Page > hi {
			hi = c.Page
		}
	}
	return fmt.Sprintf("%d-%d", lo, hi)
}

func (s *Store) indexesDir() string {
	return filepath.Join(s.dataDir, config.IndexesSubDir)
}

// Save writes the block index, its metadata, and every block's chunk index
// and chunk metadata under the data dir.
func (s *Store) Save() error {
	if err := os.MkdirAll(s.indexesDir(), 0o755); err != nil {
		return err
	}
	if err := s.blockIndex.SaveFile(filepath.Join(s.dataDir, config.BlockIndexFile)); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(s.dataDir, config.BlockMetadataFile), s.blockMeta); err != nil {
		return err
	}
	for blockId, chunkIndex := range s.chunkIndexes {
		if err := chunkIndex.SaveFile(s.chunkIndexPath(blockId)); err != nil {
			return err
		}
		if err := writeJSON(s.chunkMetaPath(blockId), s.chunkMeta[blockId]); err != nil {
			return err
		}
	}
	return nil
}

// Load restores a persisted store. A missing metadata file means a fresh
// deployment and is not an error; anything unreadable after that is fatal -
// serving queries off a half-loaded index would silently misattribute results.
func (s *Store) Load() error {
	metaPath := filepath.Join(s.dataDir, config.BlockMetadataFile)
	raw, err := os.ReadFile(metaPath)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Info("No persisted index found, starting empty", "path", metaPath)
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, &s.blockMeta); err != nil {
		return fmt.Errorf("parse block metadata: %w", err)
	}

	blockIndex, err := LoadFile(filepath.Join(s.dataDir, config.BlockIndexFile))
	if err != nil {
		return fmt.Errorf("load block index: %w", err)
	}
	s.blockIndex = blockIndex

	for _, meta := range s.blockMeta {
		chunkIndex, err := LoadFile(s.chunkIndexPath(meta.BlockId))
		if err != nil {
			return fmt.Errorf("load chunk index %s: %w", meta.BlockId, err)
		}
		var chunks []commonModels.Chunk
		if err := readJSON(s.chunkMetaPath(meta.BlockId), &chunks); err != nil {
			return fmt.Errorf("load chunk metadata %s: %w", meta.BlockId, err)
		}
		s.chunkIndexes[meta.BlockId] = chunkIndex
		s.chunkMeta[meta.BlockId] = chunks
	}

	if err := s.checkAligned(); err != nil {
		return err
	}
	s.logger.Info("Index loaded", "blocks", len(s.blockMeta), "documents", s.DocumentCount())
	return nil
}

// Clear wipes the store and its files. Safe to call on an already-empty store.
func (s *Store) Clear() error {
	s.blockIndex = NewFlatIndex(int(config.EmbeddingOutputDimensionality))
	s.blockMeta = nil
	s.chunkIndexes = make(map[string]*FlatIndex)
	s.chunkMeta = make(map[string][]commonModels.Chunk)

	if err := os.RemoveAll(s.indexesDir()); err != nil {
		return err
	}
	for _, name := range []string{config.BlockIndexFile, config.BlockMetadataFile} {
		if err := os.Remove(filepath.Join(s.dataDir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (s *Store) chunkIndexPath(blockId string) string {
	return filepath.Join(s.indexesDir(), blockId+".bin")
}

func (s *Store) chunkMetaPath(blockId string) string {
	return filepath.Join(s.indexesDir(), blockId+"_meta.json")
}

func (s *Store) removeChunkFiles(blockId string) {
	for _, path := range []string{s.chunkIndexPath(blockId), s.chunkMetaPath(blockId)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Failed to remove chunk file", "path", path, "error", err)
		}
	}
}

func writeJSON(path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
