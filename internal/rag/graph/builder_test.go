package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/OfflineRAG/internal/config"
	"github.com/akolanti/OfflineRAG/internal/rag/llm"
)

type mockProvider struct {
	OnGenerate func(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error)
}

func (m *mockProvider) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	return m.OnGenerate(ctx, prompt, opts)
}

func (m *mockProvider) GenerateStream(ctx context.Context, prompt string, opts llm.GenerateOptions, onToken func(string) error) error {
	out, err := m.OnGenerate(ctx, prompt, opts)
	if err != nil {
		return err
	}
	return onToken(out)
}

func TestBuilder_ParsesCleanJSON(t *testing.T) {
	b := NewBuilder(&mockProvider{
		OnGenerate: func(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
			return `[{"head": "ACME", "relation": "acquired", "tail": "Initech"}]`, nil
		},
	})

	result := b.ProcessBlock(context.Background(), "b1", "some text")
	require.False(t, result.Skipped)
	require.Len(t, result.Triples, 1)
	assert.Equal(t, "ACME", result.Triples[0].Head)
	assert.Equal(t, "acquired", result.Triples[0].Relation)
	assert.Equal(t, "Initech", result.Triples[0].Tail)
}

func TestBuilder_StripsCodeFencesAndProse(t *testing.T) {
	raw := "Sure, here are the relationships:\n```json\n[{\"head\":\"A\",\"relation\":\"r\",\"tail\":\"B\"}]\n```\nLet me know if you need more."
	b := NewBuilder(&mockProvider{
		OnGenerate: func(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
			return raw, nil
		},
	})

	result := b.ProcessBlock(context.Background(), "b1", "text")
	require.False(t, result.Skipped)
	require.Len(t, result.Triples, 1)
}

func TestBuilder_DropsIncompleteTriples(t *testing.T) {
	b := NewBuilder(&mockProvider{
		OnGenerate: func(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
			return `[{"head":"A","relation":"r","tail":"B"},{"head":"A","tail":"C"},{"relation":"r"}]`, nil
		},
	})

	result := b.ProcessBlock(context.Background(), "b1", "text")
	require.False(t, result.Skipped)
	assert.Len(t, result.Triples, 1)
}

func TestBuilder_SkipsOnGarbage(t *testing.T) {
	b := NewBuilder(&mockProvider{
		OnGenerate: func(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
			return "I could not find any structured data in this text.", nil
		},
	})

	result := b.ProcessBlock(context.Background(), "b1", "text")
	assert.True(t, result.Skipped)
	assert.Empty(t, result.Triples)
}

func TestBuilder_SkipsOnModelError(t *testing.T) {
	b := NewBuilder(&mockProvider{
		OnGenerate: func(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
			return "", errors.New("connection refused")
		},
	})

	result := b.ProcessBlock(context.Background(), "b1", "text")
	assert.True(t, result.Skipped)
	assert.Equal(t, "connection refused", result.Reason)
}

func TestBuilder_SkipsWithoutProvider(t *testing.T) {
	b := NewBuilder(nil)
	result := b.ProcessBlock(context.Background(), "b1", "text")
	assert.True(t, result.Skipped)
}

func TestBuilder_TruncatesLongBlocks(t *testing.T) {
	var seenPrompt string
	b := NewBuilder(&mockProvider{
		OnGenerate: func(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
			seenPrompt = prompt
			return "[]", nil
		},
	})

	longText := strings.Repeat("x", config.GraphExtractMaxText*2)
	result := b.ProcessBlock(context.Background(), "b1", longText)

	require.False(t, result.Skipped)
	assert.LessOrEqual(t, len(seenPrompt), len(extractionPrompt)+config.GraphExtractMaxText)
}

func TestBuilder_EmptyListIsNotASkip(t *testing.T) {
	b := NewBuilder(&mockProvider{
		OnGenerate: func(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
			return "[]", nil
		},
	})

	result := b.ProcessBlock(context.Background(), "b1", "text")
	assert.False(t, result.Skipped)
	assert.Empty(t, result.Triples)
}
