package graph

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/akolanti/OfflineRAG/internal/config"
	"github.com/akolanti/OfflineRAG/internal/domain/commonModels"
	"github.com/akolanti/OfflineRAG/internal/rag/llm"
	"github.com/akolanti/OfflineRAG/pkg/logger_i"
)

const extractionPrompt = `Extract the key entities and their relationships from the following text.
Respond with ONLY a JSON list of objects, each with exactly these keys: "head", "relation", "tail".
Example: [{"head": "Company A", "relation": "acquired", "tail": "Company B"}]
If no clear relationships exist, respond with an empty list: []

Text:
`

// Builder asks the model for (head, relation, tail) facts about one block of
// text. Extraction is best effort: a model that rambles or returns malformed
// JSON yields a skip, never an error that blocks ingestion.
type Builder struct {
	provider llm.Provider
	logger   *logger_i.Logger
}

type ExtractResult struct {
	Triples []commonModels.Triple
	Skipped bool
	Reason  string
}

func NewBuilder(provider llm.Provider) *Builder {
	return &Builder{
		provider: provider,
		logger:   logger_i.NewLogger("Graph Builder :"),
	}
}

func (b *Builder) ProcessBlock(ctx context.Context, blockId, text string) ExtractResult {
	if b.provider == nil {
		return ExtractResult{Skipped: true, Reason: "no model available"}
	}

	truncated := text
	if len(truncated) > config.GraphExtractMaxText {
		truncated = truncated[:config.GraphExtractMaxText]
	}

	raw, err := b.provider.Generate(ctx, extractionPrompt+truncated, llm.GenerateOptions{
		MaxTokens:   config.GraphExtractMaxTokens,
		Temperature: config.GraphExtractTemperature,
	})
	if err != nil {
		b.logger.Warn("Extraction call failed, skipping block", "blockId", blockId, "error", err)
		return ExtractResult{Skipped: true, Reason: err.Error()}
	}

	triples, ok := parseTriples(raw)
	if !ok {
		b.logger.Warn("Extraction output unparseable, skipping block", "blockId", blockId)
		return ExtractResult{Skipped: true, Reason: "unparseable model output"}
	}
	return ExtractResult{Triples: triples}
}

// parseTriples is deliberately lenient: models wrap JSON in code fences and
// prose, so it strips fences and slices the outermost [...] before decoding.
// Objects missing any of the three keys are dropped, not fatal.
func parseTriples(raw string) ([]commonModels.Triple, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end < start {
		return nil, false
	}
	s = s[start : end+1]

	var decoded []commonModels.Triple
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return nil, false
	}

	triples := decoded[:0]
	for _, t := range decoded {
		if t.Head == "" || t.Relation == "" || t.Tail == "" {
			continue
		}
		triples = append(triples, t)
	}
	return triples, true
}
