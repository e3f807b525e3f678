package rag_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/OfflineRAG/internal/config"
	"github.com/akolanti/OfflineRAG/internal/domain/commonModels"
	"github.com/akolanti/OfflineRAG/internal/rag"
)

func newTestEngine(t *testing.T, values map[string]float32, provider *MockLLM) *rag.Engine {
	t.Helper()
	engine, err := rag.NewEngine(t.TempDir(), &MockEmbedder{Values: values}, provider)
	require.NoError(t, err)
	t.Cleanup(engine.Shutdown)
	return engine
}

func textChunk(text string, page int, source string, createdAt time.Time) commonModels.Chunk {
	return commonModels.Chunk{
		Text:      text,
		Page:      page,
		Source:    source,
		Kind:      commonModels.ChunkText,
		CreatedAt: createdAt,
	}
}

func TestGenerateAnswer_RefusesOnEmptyIndex(t *testing.T) {
	engine := newTestEngine(t, nil, &MockLLM{})

	answer, citations, err := engine.GenerateAnswer(context.Background(), "anything at all", nil)
	require.NoError(t, err)
	assert.Equal(t, config.RefusalAnswer, answer)
	assert.Empty(t, citations)
}

func TestGenerateAnswer_ReturnsAnswerWithCitations(t *testing.T) {
	values := map[string]float32{
		"the motor torque limit is 45 Nm":       10,
		"maintenance interval is twelve months": 12,
		"what is the torque limit":              10,
	}
	var seenPrompt string
	provider := &MockLLM{OnGenerate: func(prompt string) (string, error) {
		seenPrompt = prompt
		return "The torque limit is 45 Nm.", nil
	}}
	engine := newTestEngine(t, values, provider)

	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	err := engine.AddDocument(context.Background(), "doc-1", "spec-sheet.pdf", []commonModels.Chunk{
		textChunk("the motor torque limit is 45 Nm", 1, "spec-sheet.pdf", created),
		textChunk("maintenance interval is twelve months", 2, "spec-sheet.pdf", created),
	})
	require.NoError(t, err)

	answer, citations, err := engine.GenerateAnswer(context.Background(), "what is the torque limit", nil)
	require.NoError(t, err)

	assert.Equal(t, "The torque limit is 45 Nm.", answer)
	require.Len(t, citations, 1)
	assert.Equal(t, "spec-sheet.pdf", citations[0].DocumentName)
	assert.Equal(t, 1, citations[0].PageNumber)
	assert.Equal(t, "2025-03-01", citations[0].UploadDate)
	assert.Contains(t, seenPrompt, "the motor torque limit is 45 Nm")
	assert.Contains(t, seenPrompt, "Question: what is the torque limit")
}

func TestGenerateAnswer_ModelRefusalDropsCitations(t *testing.T) {
	values := map[string]float32{
		"the motor torque limit is 45 Nm": 10,
		"what is the warranty period":     10,
	}
	provider := &MockLLM{OnGenerate: func(prompt string) (string, error) {
		return "Unfortunately the context does not contain that information.", nil
	}}
	engine := newTestEngine(t, values, provider)

	err := engine.AddDocument(context.Background(), "doc-1", "spec-sheet.pdf", []commonModels.Chunk{
		textChunk("the motor torque limit is 45 Nm", 1, "spec-sheet.pdf", time.Now()),
	})
	require.NoError(t, err)

	answer, citations, err := engine.GenerateAnswer(context.Background(), "what is the warranty period", nil)
	require.NoError(t, err)
	assert.Equal(t, config.RefusalAnswer, answer)
	assert.Empty(t, citations)
}

func TestGenerateAnswer_ModelDownServesContext(t *testing.T) {
	values := map[string]float32{
		"the motor torque limit is 45 Nm": 10,
		"what is the torque limit":        10,
	}
	provider := &MockLLM{OnGenerate: func(prompt string) (string, error) {
		return "", errors.New("connection refused")
	}}
	engine := newTestEngine(t, values, provider)

	err := engine.AddDocument(context.Background(), "doc-1", "spec-sheet.pdf", []commonModels.Chunk{
		textChunk("the motor torque limit is 45 Nm", 1, "spec-sheet.pdf", time.Now()),
	})
	require.NoError(t, err)

	answer, citations, err := engine.GenerateAnswer(context.Background(), "what is the torque limit", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(answer, config.ModelDownAnswer))
	assert.Contains(t, answer, "the motor torque limit is 45 Nm")
	assert.NotEmpty(t, citations)
}

func TestGenerateAnswer_HistoryReachesPrompt(t *testing.T) {
	values := map[string]float32{
		"the motor torque limit is 45 Nm": 10,
		"and in imperial units":           10,
	}
	var seenPrompt string
	provider := &MockLLM{OnGenerate: func(prompt string) (string, error) {
		seenPrompt = prompt
		return "About 33 lb-ft.", nil
	}}
	engine := newTestEngine(t, values, provider)

	err := engine.AddDocument(context.Background(), "doc-1", "spec-sheet.pdf", []commonModels.Chunk{
		textChunk("the motor torque limit is 45 Nm", 1, "spec-sheet.pdf", time.Now()),
	})
	require.NoError(t, err)

	history := []string{"Q: what is the torque limit", "A: 45 Nm"}
	_, _, err = engine.GenerateAnswer(context.Background(), "and in imperial units", history)
	require.NoError(t, err)

	assert.Contains(t, seenPrompt, "Previous conversation:")
	assert.Contains(t, seenPrompt, "A: 45 Nm")
}

func TestGenerateAnswer_StopSequenceReachesProvider(t *testing.T) {
	values := map[string]float32{
		"the motor torque limit is 45 Nm": 10,
		"what is the torque limit":        10,
	}
	provider := &MockLLM{StreamTokens: []string{"45 Nm."}}
	engine := newTestEngine(t, values, provider)

	err := engine.AddDocument(context.Background(), "doc-1", "spec-sheet.pdf", []commonModels.Chunk{
		textChunk("the motor torque limit is 45 Nm", 1, "spec-sheet.pdf", time.Now()),
	})
	require.NoError(t, err)

	_, _, err = engine.GenerateAnswer(context.Background(), "what is the torque limit", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{config.AnswerStopSequence}, provider.LastOpts.Stop)

	// the streaming path samples with the same options
	provider.LastOpts.Stop = nil
	require.NoError(t, engine.GenerateAnswerStream(context.Background(), "what is the torque limit", &RecordingEmitter{}))
	assert.Equal(t, []string{config.AnswerStopSequence}, provider.LastOpts.Stop)
}

func TestSearch_KeywordOverrideSurvivesMarginCut(t *testing.T) {
	values := map[string]float32{
		"general assembly overview":   10,
		"serial code XJ-900 registry": 13,
		"where is serial code XJ-900": 11,
	}
	engine := newTestEngine(t, values, &MockLLM{})

	now := time.Now()
	err := engine.AddDocument(context.Background(), "doc-1", "manual.pdf", []commonModels.Chunk{
		textChunk("general assembly overview", 1, "manual.pdf", now),
		textChunk("serial code XJ-900 registry", 2, "manual.pdf", now),
	})
	require.NoError(t, err)

	result, err := engine.Search(context.Background(), "where is serial code XJ-900")
	require.NoError(t, err)

	// the distant chunk would be cut by the score margin, lexical overlap keeps it
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, "general assembly overview", result.Candidates[0].Text)
	assert.Equal(t, "serial code XJ-900 registry", result.Candidates[1].Text)
	assert.True(t, result.Candidates[1].KeywordMatch)
}

func TestSearch_KeywordMatchSurvivesAcrossBlocks(t *testing.T) {
	values := map[string]float32{
		"assembly line overview":      10,
		"site safety rules":           10,
		"paint booth layout":          10,
		"shift roster details":        10,
		"serial code XJ-900 registry": 11.1,
		"where is serial code XJ-900": 10,
	}
	engine := newTestEngine(t, values, &MockLLM{})
	ctx := context.Background()

	// one block full of chunks the query sits right on top of
	now := time.Now()
	require.NoError(t, engine.AddDocument(ctx, "doc-1", "plant.pdf", []commonModels.Chunk{
		textChunk("assembly line overview", 1, "plant.pdf", now),
		textChunk("site safety rules", 2, "plant.pdf", now),
		textChunk("paint booth layout", 3, "plant.pdf", now),
		textChunk("shift roster details", 4, "plant.pdf", now),
	}))
	// and the lexically obvious answer in a worse-scoring block
	require.NoError(t, engine.AddDocument(ctx, "doc-2", "registry.pdf", []commonModels.Chunk{
		textChunk("serial code XJ-900 registry", 1, "registry.pdf", now),
	}))

	result, err := engine.Search(ctx, "where is serial code XJ-900")
	require.NoError(t, err)

	// the close cluster must not crowd the keyword chunk out of the candidates
	require.Len(t, result.Candidates, 5)
	texts := make([]string, len(result.Candidates))
	for i, c := range result.Candidates {
		texts[i] = c.Text
	}
	assert.Contains(t, texts, "serial code XJ-900 registry")
	assert.True(t, result.Candidates[4].KeywordMatch)
}

func TestSearch_MarginCutsUnrelatedTail(t *testing.T) {
	values := map[string]float32{
		"alpha overview": 10,
		"beta appendix":  13,
		"zzz":            11,
	}
	engine := newTestEngine(t, values, &MockLLM{})

	err := engine.AddDocument(context.Background(), "doc-1", "manual.pdf", []commonModels.Chunk{
		textChunk("alpha overview", 1, "manual.pdf", time.Now()),
		textChunk("beta appendix", 2, "manual.pdf", time.Now()),
	})
	require.NoError(t, err)

	result, err := engine.Search(context.Background(), "zzz")
	require.NoError(t, err)

	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "alpha overview", result.Candidates[0].Text)
}

func TestSearch_FreshnessPrefersNewerDocument(t *testing.T) {
	values := map[string]float32{
		"first revision of the procedure":  10,
		"second revision of the procedure": 10,
		"qqq":                              10,
	}
	engine := newTestEngine(t, values, &MockLLM{})
	ctx := context.Background()

	older := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, engine.AddDocument(ctx, "doc-1", "a.pdf", []commonModels.Chunk{
		textChunk("first revision of the procedure", 1, "a.pdf", older),
	}))
	require.NoError(t, engine.AddDocument(ctx, "doc-2", "b.pdf", []commonModels.Chunk{
		textChunk("second revision of the procedure", 1, "b.pdf", newer),
	}))

	result, err := engine.Search(ctx, "qqq")
	require.NoError(t, err)

	require.Len(t, result.Candidates, 2)
	assert.Equal(t, "b.pdf", result.Candidates[0].DocumentName)
	assert.Equal(t, "a.pdf", result.Candidates[1].DocumentName)
}

func TestSearch_TargetedFilenameOverridesSimilarity(t *testing.T) {
	values := map[string]float32{
		"budget figures":  50,
		"misc notes":      10,
		"what does it say about budget in report.pdf": 10,
	}
	engine := newTestEngine(t, values, &MockLLM{})
	ctx := context.Background()

	require.NoError(t, engine.AddDocument(ctx, "doc-1", "report.pdf", []commonModels.Chunk{
		textChunk("budget figures", 1, "report.pdf", time.Now()),
	}))
	require.NoError(t, engine.AddDocument(ctx, "doc-2", "notes.txt", []commonModels.Chunk{
		textChunk("misc notes", 1, "notes.txt", time.Now()),
	}))

	result, err := engine.Search(ctx, "what does it say about budget in report.pdf")
	require.NoError(t, err)

	assert.True(t, result.Targeted)
	assert.Equal(t, "report.pdf", result.TargetName)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "report.pdf", result.Candidates[0].DocumentName)
	assert.Empty(t, result.GraphContext)
}

func TestSearch_UnknownFilenameFallsBackToSimilarity(t *testing.T) {
	values := map[string]float32{
		"misc notes":             10,
		"what is in missing.pdf": 10,
	}
	engine := newTestEngine(t, values, &MockLLM{})

	err := engine.AddDocument(context.Background(), "doc-1", "notes.txt", []commonModels.Chunk{
		textChunk("misc notes", 1, "notes.txt", time.Now()),
	})
	require.NoError(t, err)

	result, err := engine.Search(context.Background(), "what is in missing.pdf")
	require.NoError(t, err)
	assert.False(t, result.Targeted)
	assert.NotEmpty(t, result.Candidates)
}

func TestSearch_BlockThresholdFallsBackToShortlist(t *testing.T) {
	values := map[string]float32{
		"far away content": 99,
		"hello":            0,
	}
	engine := newTestEngine(t, values, &MockLLM{})

	err := engine.AddDocument(context.Background(), "doc-1", "far.pdf", []commonModels.Chunk{
		textChunk("far away content", 1, "far.pdf", time.Now()),
	})
	require.NoError(t, err)

	// every block is beyond the distance ceiling, the shortlist still serves
	result, err := engine.Search(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
}

func TestDeleteDocument_NotFound(t *testing.T) {
	engine := newTestEngine(t, nil, &MockLLM{})
	err := engine.DeleteDocument(context.Background(), "ghost")
	assert.ErrorIs(t, err, rag.ErrDocumentNotFound)
}

func TestDeleteDocument_RemovesFromListing(t *testing.T) {
	engine := newTestEngine(t, nil, &MockLLM{})
	ctx := context.Background()

	require.NoError(t, engine.AddDocument(ctx, "doc-1", "a.pdf", []commonModels.Chunk{
		textChunk("some content", 1, "a.pdf", time.Now()),
	}))
	require.Len(t, engine.ListDocuments(), 1)

	require.NoError(t, engine.DeleteDocument(ctx, "doc-1"))
	assert.Empty(t, engine.ListDocuments())
	assert.Equal(t, 0, engine.Status().Blocks)
}

func TestGenerateAnswerStream_CitationsPrecedeTokens(t *testing.T) {
	values := map[string]float32{
		"the motor torque limit is 45 Nm": 10,
		"what is the torque limit":        10,
	}
	provider := &MockLLM{StreamTokens: []string{
		"The motor torque limit ",
		"is 45 Nm as printed on the nameplate, ",
		"see page one.",
	}}
	engine := newTestEngine(t, values, provider)

	err := engine.AddDocument(context.Background(), "doc-1", "spec-sheet.pdf", []commonModels.Chunk{
		textChunk("the motor torque limit is 45 Nm", 1, "spec-sheet.pdf", time.Now()),
	})
	require.NoError(t, err)

	em := &RecordingEmitter{}
	require.NoError(t, engine.GenerateAnswerStream(context.Background(), "what is the torque limit", em))

	require.NotEmpty(t, em.Order)
	assert.Equal(t, "citations", em.Order[0])
	require.Len(t, em.Citations, 1)
	assert.Equal(t, "spec-sheet.pdf", em.Citations[0][0].DocumentName)
	assert.Equal(t,
		"The motor torque limit is 45 Nm as printed on the nameplate, see page one.",
		em.Answer())
}

func TestGenerateAnswerStream_ShortAnswerStillFlushes(t *testing.T) {
	values := map[string]float32{
		"the motor torque limit is 45 Nm": 10,
		"is the limit 45 Nm":              10,
	}
	provider := &MockLLM{StreamTokens: []string{"Yes, 45 Nm."}}
	engine := newTestEngine(t, values, provider)

	err := engine.AddDocument(context.Background(), "doc-1", "spec-sheet.pdf", []commonModels.Chunk{
		textChunk("the motor torque limit is 45 Nm", 1, "spec-sheet.pdf", time.Now()),
	})
	require.NoError(t, err)

	em := &RecordingEmitter{}
	require.NoError(t, engine.GenerateAnswerStream(context.Background(), "is the limit 45 Nm", em))

	require.NotEmpty(t, em.Order)
	assert.Equal(t, "citations", em.Order[0])
	assert.Equal(t, "Yes, 45 Nm.", em.Answer())
}

func TestGenerateAnswerStream_RefusalEmitsEmptyCitations(t *testing.T) {
	values := map[string]float32{
		"the motor torque limit is 45 Nm": 10,
		"what is the warranty period":     10,
	}
	provider := &MockLLM{StreamTokens: []string{
		"The requested information is not available in the uploaded documents.",
	}}
	engine := newTestEngine(t, values, provider)

	err := engine.AddDocument(context.Background(), "doc-1", "spec-sheet.pdf", []commonModels.Chunk{
		textChunk("the motor torque limit is 45 Nm", 1, "spec-sheet.pdf", time.Now()),
	})
	require.NoError(t, err)

	em := &RecordingEmitter{}
	require.NoError(t, engine.GenerateAnswerStream(context.Background(), "what is the warranty period", em))

	// one citations event per answer, empty on a refusal, still before the token
	assert.Equal(t, []string{"citations", "token"}, em.Order)
	require.Len(t, em.Citations, 1)
	assert.Empty(t, em.Citations[0])
	assert.Equal(t, []string{config.RefusalAnswer}, em.Tokens)
}

func TestGenerateAnswerStream_ShortRefusalEmitsEmptyCitations(t *testing.T) {
	values := map[string]float32{
		"the motor torque limit is 45 Nm": 10,
		"what is the warranty period":     10,
	}
	// too short to ever fill the decision buffer
	provider := &MockLLM{StreamTokens: []string{"The context does not contain that."}}
	engine := newTestEngine(t, values, provider)

	err := engine.AddDocument(context.Background(), "doc-1", "spec-sheet.pdf", []commonModels.Chunk{
		textChunk("the motor torque limit is 45 Nm", 1, "spec-sheet.pdf", time.Now()),
	})
	require.NoError(t, err)

	em := &RecordingEmitter{}
	require.NoError(t, engine.GenerateAnswerStream(context.Background(), "what is the warranty period", em))

	assert.Equal(t, []string{"citations", "token"}, em.Order)
	require.Len(t, em.Citations, 1)
	assert.Empty(t, em.Citations[0])
	assert.Equal(t, []string{config.RefusalAnswer}, em.Tokens)
}

func TestGenerateAnswerStream_EmptyIndexRefuses(t *testing.T) {
	engine := newTestEngine(t, nil, &MockLLM{})

	em := &RecordingEmitter{}
	require.NoError(t, engine.GenerateAnswerStream(context.Background(), "anything", em))

	assert.Equal(t, []string{"citations", "token"}, em.Order)
	require.Len(t, em.Citations, 1)
	assert.Empty(t, em.Citations[0])
	assert.Equal(t, []string{config.RefusalAnswer}, em.Tokens)
}

func TestGenerateAnswerStream_ModelDownServesContext(t *testing.T) {
	values := map[string]float32{
		"the motor torque limit is 45 Nm": 10,
		"what is the torque limit":        10,
	}
	provider := &MockLLM{StreamErr: errors.New("connection refused")}
	engine := newTestEngine(t, values, provider)

	err := engine.AddDocument(context.Background(), "doc-1", "spec-sheet.pdf", []commonModels.Chunk{
		textChunk("the motor torque limit is 45 Nm", 1, "spec-sheet.pdf", time.Now()),
	})
	require.NoError(t, err)

	em := &RecordingEmitter{}
	require.NoError(t, engine.GenerateAnswerStream(context.Background(), "what is the torque limit", em))

	require.Len(t, em.Citations, 1)
	assert.True(t, strings.HasPrefix(em.Answer(), config.ModelDownAnswer))
	assert.Contains(t, em.Answer(), "the motor torque limit is 45 Nm")
}

func TestEngine_PersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	values := map[string]float32{
		"the motor torque limit is 45 Nm": 10,
		"what is the torque limit":        10,
	}
	embedder := &MockEmbedder{Values: values}
	provider := &MockLLM{OnGenerate: func(prompt string) (string, error) {
		return "45 Nm.", nil
	}}

	engine, err := rag.NewEngine(dir, embedder, provider)
	require.NoError(t, err)
	require.NoError(t, engine.AddDocument(context.Background(), "doc-1", "spec-sheet.pdf", []commonModels.Chunk{
		textChunk("the motor torque limit is 45 Nm", 1, "spec-sheet.pdf", time.Now()),
	}))
	engine.Shutdown()

	reloaded, err := rag.NewEngine(dir, embedder, provider)
	require.NoError(t, err)
	t.Cleanup(reloaded.Shutdown)

	docs := reloaded.ListDocuments()
	require.Len(t, docs, 1)
	assert.Equal(t, "spec-sheet.pdf", docs[0].Name)

	answer, citations, err := reloaded.GenerateAnswer(context.Background(), "what is the torque limit", nil)
	require.NoError(t, err)
	assert.Equal(t, "45 Nm.", answer)
	assert.NotEmpty(t, citations)
}

func TestEngine_NotReadyAfterShutdown(t *testing.T) {
	engine, err := rag.NewEngine(t.TempDir(), &MockEmbedder{}, &MockLLM{})
	require.NoError(t, err)
	engine.Shutdown()

	err = engine.AddDocument(context.Background(), "doc-1", "a.pdf", []commonModels.Chunk{
		textChunk("content", 1, "a.pdf", time.Now()),
	})
	assert.ErrorIs(t, err, rag.ErrEngineNotReady)
}
