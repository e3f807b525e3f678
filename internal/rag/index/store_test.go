package index

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/OfflineRAG/internal/config"
	"github.com/akolanti/OfflineRAG/internal/domain/commonModels"
)

// stubEmbedder maps text length onto the first vector element so distances
// are predictable without a model.
type stubEmbedder struct{}

func (s *stubEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	return testVector(int(config.EmbeddingOutputDimensionality), float32(len(query))), nil
}

func (s *stubEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	out := make([][]float32, len(chunks))
	for i, c := range chunks {
		out[i] = testVector(int(config.EmbeddingOutputDimensionality), float32(len(c)))
	}
	return out, nil
}

func pagedChunks(source string, pageCount int, createdAt time.Time) []commonModels.Chunk {
	chunks := make([]commonModels.Chunk, pageCount)
	for i := range chunks {
		chunks[i] = commonModels.Chunk{
			Text:      fmt.Sprintf("content of page %d", i+1),
			Page:      i + 1,
			Source:    source,
			Kind:      commonModels.ChunkText,
			CreatedAt: createdAt,
		}
	}
	return chunks
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), &stubEmbedder{})
}

func TestStore_AddDocumentBucketsPagesIntoBlocks(t *testing.T) {
	s := newTestStore(t)

	contents, err := s.AddDocument(context.Background(), "doc-1", "manual.pdf", pagedChunks("manual.pdf", 50, time.Now()))
	require.NoError(t, err)

	// 50 pages at 20 pages per block -> blocks 0, 1, 2
	require.Len(t, contents, 3)
	assert.Equal(t, "doc-1_block_0", contents[0].BlockId)
	assert.Equal(t, "doc-1_block_1", contents[1].BlockId)
	assert.Equal(t, "doc-1_block_2", contents[2].BlockId)
	assert.Equal(t, 3, s.BlockCount())

	docs := s.ListDocuments()
	require.Len(t, docs, 1)
	assert.Equal(t, "manual.pdf", docs[0].Name)
	assert.Equal(t, 3, docs[0].Blocks)
}

func TestStore_AddDocumentRejectsEmpty(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddDocument(context.Background(), "doc-1", "empty.pdf", nil)
	assert.Error(t, err)
}

func TestStore_SearchChunksKeepsPerBlockQuota(t *testing.T) {
	s := newTestStore(t)
	chunks := []commonModels.Chunk{
		{Text: "aa", Page: 1, Source: "a.pdf", CreatedAt: time.Now()},
		{Text: "aaaa", Page: 2, Source: "a.pdf", CreatedAt: time.Now()},
		{Text: "aaaaaaaa", Page: 3, Source: "a.pdf", CreatedAt: time.Now()},
		{Text: "bbb", Page: 21, Source: "a.pdf", CreatedAt: time.Now()},
	}
	_, err := s.AddDocument(context.Background(), "doc-1", "a.pdf", chunks)
	require.NoError(t, err)

	query := testVector(int(config.EmbeddingOutputDimensionality), 2) //closest to "aa"
	candidates, err := s.SearchChunks(query, []string{"doc-1_block_0", "doc-1_block_1"}, 2)
	require.NoError(t, err)

	// top 2 of the first block plus the second block's only chunk: each block
	// keeps its quota, a close cluster in one block cannot squeeze out another
	require.Len(t, candidates, 3)
	assert.Equal(t, "aa", candidates[0].Text)
	assert.Equal(t, "bbb", candidates[1].Text)
	assert.Equal(t, "aaaa", candidates[2].Text)
	assert.True(t, candidates[0].Score < candidates[1].Score)
}

func TestStore_DeleteDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddDocument(ctx, "doc-1", "first.pdf", pagedChunks("first.pdf", 25, time.Now()))
	require.NoError(t, err)
	_, err = s.AddDocument(ctx, "doc-2", "second.pdf", pagedChunks("second.pdf", 5, time.Now()))
	require.NoError(t, err)
	require.Equal(t, 3, s.BlockCount())

	removed, err := s.DeleteDocument("doc-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"doc-1_block_0", "doc-1_block_1"}, removed)
	assert.Equal(t, 1, s.BlockCount())

	// surviving document still searchable after the rebuild
	query := testVector(int(config.EmbeddingOutputDimensionality), 17)
	matches, err := s.SearchBlocks(query, 3)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "doc-2", matches[0].Meta.DocId)
}

func TestStore_DeleteDocumentNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddDocument(context.Background(), "doc-1", "a.pdf", pagedChunks("a.pdf", 2, time.Now()))
	require.NoError(t, err)

	_, err = s.DeleteDocument("ghost")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestStore_ScanBlocksByName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.AddDocument(ctx, "doc-1", "report.pdf", pagedChunks("report.pdf", 2, time.Now()))
	require.NoError(t, err)
	_, err = s.AddDocument(ctx, "doc-2", "notes.txt", pagedChunks("notes.txt", 2, time.Now()))
	require.NoError(t, err)

	assert.True(t, s.HasDocumentNamed("Report.PDF"))
	assert.False(t, s.HasDocumentNamed("missing.pdf"))

	query := testVector(int(config.EmbeddingOutputDimensionality), 0)
	matches, err := s.ScanBlocksByName(query, "report.pdf")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "doc-1", matches[0].Meta.DocId)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	embedder := &stubEmbedder{}
	s := NewStore(dir, embedder)

	created := time.Now().Truncate(time.Second)
	_, err := s.AddDocument(context.Background(), "doc-1", "persisted.pdf", pagedChunks("persisted.pdf", 25, created))
	require.NoError(t, err)

	reloaded := NewStore(dir, embedder)
	require.NoError(t, reloaded.Load())

	assert.Equal(t, 2, reloaded.BlockCount())
	assert.Equal(t, 1, reloaded.DocumentCount())

	query := testVector(int(config.EmbeddingOutputDimensionality), 17)
	candidates, err := reloaded.SearchChunks(query, []string{"doc-1_block_0"}, 3)
	require.NoError(t, err)
	assert.NotEmpty(t, candidates)
	assert.Equal(t, "persisted.pdf", candidates[0].DocumentName)
}

func TestStore_LoadMissingIsFreshStart(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Load())
	assert.Equal(t, 0, s.BlockCount())
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddDocument(context.Background(), "doc-1", "a.pdf", pagedChunks("a.pdf", 2, time.Now()))
	require.NoError(t, err)

	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.BlockCount())
	require.NoError(t, s.Clear())
}
