package rag_test

import (
	"context"
	"strings"

	"github.com/akolanti/OfflineRAG/internal/config"
	"github.com/akolanti/OfflineRAG/internal/domain/commonModels"
	"github.com/akolanti/OfflineRAG/internal/rag/llm"
)

// MockEmbedder places every text on a one-dimensional line inside the
// full-width vector: Values pins specific texts, everything else falls back
// to text length. Distances between texts are then exact and easy to predict.
type MockEmbedder struct {
	Values map[string]float32
}

func (m *MockEmbedder) vec(text string) []float32 {
	v := make([]float32, int(config.EmbeddingOutputDimensionality))
	if val, ok := m.Values[text]; ok {
		v[0] = val
	} else {
		v[0] = float32(len(text))
	}
	return v
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	return m.vec(query), nil
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	out := make([][]float32, len(chunks))
	for i, c := range chunks {
		out[i] = m.vec(c)
	}
	return out, nil
}

// MockLLM answers graph extraction prompts with an empty list so the
// background indexer stays quiet, and routes everything else through
// OnGenerate / StreamTokens. LastOpts holds the options of the last answer
// call (extraction calls do not touch it).
type MockLLM struct {
	OnGenerate   func(prompt string) (string, error)
	StreamTokens []string
	StreamErr    error
	LastOpts     llm.GenerateOptions
}

func (m *MockLLM) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	if strings.HasPrefix(prompt, "Extract") {
		return "[]", nil
	}
	m.LastOpts = opts
	if m.OnGenerate != nil {
		return m.OnGenerate(prompt)
	}
	return "mocked llm response", nil
}

func (m *MockLLM) GenerateStream(ctx context.Context, prompt string, opts llm.GenerateOptions, onToken func(string) error) error {
	if strings.HasPrefix(prompt, "Extract") {
		return onToken("[]")
	}
	m.LastOpts = opts
	if m.StreamErr != nil {
		return m.StreamErr
	}
	for _, token := range m.StreamTokens {
		if err := onToken(token); err != nil {
			return err
		}
	}
	return nil
}

// RecordingEmitter captures the stream protocol for assertions.
type RecordingEmitter struct {
	Citations [][]commonModels.Citation
	Tokens    []string
	Order     []string //"citations" / "token", in emission order
}

func (r *RecordingEmitter) EmitCitations(citations []commonModels.Citation) error {
	r.Citations = append(r.Citations, citations)
	r.Order = append(r.Order, "citations")
	return nil
}

func (r *RecordingEmitter) EmitToken(token string) error {
	r.Tokens = append(r.Tokens, token)
	r.Order = append(r.Order, "token")
	return nil
}

func (r *RecordingEmitter) Answer() string {
	return strings.Join(r.Tokens, "")
}
