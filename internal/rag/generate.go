package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/OfflineRAG/internal/config"
	"github.com/akolanti/OfflineRAG/internal/domain/commonModels"
	"github.com/akolanti/OfflineRAG/internal/metrics"
	"github.com/akolanti/OfflineRAG/internal/rag/llm"
)

const answerPromptHeader = `You are a document assistant. Answer the question using ONLY the context below.
If the context does not contain the answer, reply exactly: ` + config.RefusalAnswer + `

`

// Refusal markers the model tends to produce even when told to use the exact
// sentence. Matching loosely keeps hallucinated citations off refusals.
var refusalPhrases = []string{
	"information is not available",
	"context does not contain",
}

const citationSnippetLength = 150

// errStreamRefused aborts the model stream once the buffered prefix reads as
// a refusal; the canned refusal replaces whatever else the model had to say.
var errStreamRefused = errors.New("stream refused")

// StreamEmitter is the transport side of a streamed answer. Citations are
// emitted exactly once per answer, always before the first token; a refusal
// still gets its citations event, just an empty one.
type StreamEmitter interface {
	EmitCitations(citations []commonModels.Citation) error
	EmitToken(token string) error
}

func emitRefusal(em StreamEmitter) error {
	metrics.CaptureAnswerRefusal()
	if err := em.EmitCitations(nil); err != nil {
		return err
	}
	return em.EmitToken(config.RefusalAnswer)
}

// GenerateAnswer runs retrieval and a blocking generation. A refusal is a
// normal answer with no citations, not an error. A dead model degrades to the
// retrieved context behind a notice - the documents are local, the user can
// still read them.
func (e *Engine) GenerateAnswer(ctx context.Context, question string, history []string) (string, []commonModels.Citation, error) {
	result, err := e.Search(ctx, question)
	if err != nil {
		return "", nil, err
	}
	if len(result.Candidates) == 0 {
		metrics.CaptureAnswerRefusal()
		return config.RefusalAnswer, nil, nil
	}

	prompt := buildAnswerPrompt(result, question, history)
	citations := buildCitations(result.Candidates)

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return "", nil, ErrEngineNotReady
	}

	start := time.Now()
	answer, err := e.provider.Generate(ctx, prompt, answerOptions())
	metrics.CaptureExecutionMetrics("llm_generation", time.Since(start))
	if err != nil {
		e.logger.Warn("Generation failed, serving context only", "error", err)
		return config.ModelDownAnswer + "\n\n" + contextText(result), citations, nil
	}

	if isRefusal(answer) {
		metrics.CaptureAnswerRefusal()
		return config.RefusalAnswer, nil, nil
	}
	return answer, citations, nil
}

// GenerateAnswerStream buffers the first stretch of model output to decide
// refusal before anything reaches the client. Protocol per answer: citations
// once, then the buffered text word by word, then live tokens.
func (e *Engine) GenerateAnswerStream(ctx context.Context, question string, em StreamEmitter) error {
	result, err := e.Search(ctx, question)
	if err != nil {
		return err
	}
	if len(result.Candidates) == 0 {
		return emitRefusal(em)
	}

	prompt := buildAnswerPrompt(result, question, nil)
	citations := buildCitations(result.Candidates)

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return ErrEngineNotReady
	}

	var buffer strings.Builder
	decided := false

	flushBuffered := func() error {
		if err := em.EmitCitations(citations); err != nil {
			return err
		}
		for _, word := range strings.SplitAfter(buffer.String(), " ") {
			if word == "" {
				continue
			}
			if err := em.EmitToken(word); err != nil {
				return err
			}
		}
		return nil
	}

	start := time.Now()
	err = e.provider.GenerateStream(ctx, prompt, answerOptions(), func(token string) error {
		if !decided {
			buffer.WriteString(token)
			if buffer.Len() < config.StreamBufferSize {
				return nil
			}
			decided = true
			if isRefusal(buffer.String()) {
				return errStreamRefused
			}
			return flushBuffered()
		}
		return em.EmitToken(token)
	})
	metrics.CaptureExecutionMetrics("llm_generation", time.Since(start))

	switch {
	case errors.Is(err, errStreamRefused):
		return emitRefusal(em)

	case err != nil && !decided:
		// model never produced enough to judge; degrade like the blocking path
		e.logger.Warn("Stream generation failed, serving context only", "error", err)
		if emitErr := em.EmitCitations(citations); emitErr != nil {
			return emitErr
		}
		return em.EmitToken(config.ModelDownAnswer + "\n\n" + contextText(result))

	case err != nil:
		return err
	}

	// short answers can end before the buffer ever fills
	if !decided {
		if isRefusal(buffer.String()) {
			return emitRefusal(em)
		}
		return flushBuffered()
	}
	return nil
}

func answerOptions() llm.GenerateOptions {
	return llm.GenerateOptions{
		MaxTokens:     config.AnswerMaxTokens,
		Temperature:   config.AnswerTemperature,
		TopP:          config.AnswerTopP,
		RepeatPenalty: config.AnswerRepeatPenalty,
		// the prompt ends in "Answer:" - without a stop the model tends to
		// invent a follow-up "Question:" turn and answer that too
		Stop: []string{config.AnswerStopSequence},
	}
}

func isRefusal(answer string) bool {
	lowered := strings.ToLower(answer)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

func buildAnswerPrompt(result RetrievalResult, question string, history []string) string {
	var b strings.Builder
	b.WriteString(answerPromptHeader)
	b.WriteString("Context:\n")
	b.WriteString(contextText(result))
	if result.GraphContext != "" {
		b.WriteString("\n\n")
		b.WriteString(result.GraphContext)
	}
	// history informs phrasing only; retrieval always runs on the raw question
	if len(history) > 0 {
		b.WriteString("\n\nPrevious conversation:\n")
		b.WriteString(strings.Join(history, "\n"))
	}
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

func contextText(result RetrievalResult) string {
	parts := make([]string, len(result.Candidates))
	for i, c := range result.Candidates {
		parts[i] = fmt.Sprintf("[%s, page %d]\n%s", c.DocumentName, c.Page, c.Text)
	}
	return strings.Join(parts, "\n\n")
}

// buildCitations needs no cap of its own: the retrieval pipeline already
// truncates candidates to TopKChunks.
func buildCitations(candidates []commonModels.Candidate) []commonModels.Citation {
	citations := make([]commonModels.Citation, 0, len(candidates))
	for _, c := range candidates {
		snippet := c.Text
		if len(snippet) > citationSnippetLength {
			snippet = snippet[:citationSnippetLength]
		}
		citations = append(citations, commonModels.Citation{
			DocumentName: c.DocumentName,
			PageNumber:   c.Page,
			TextSnippet:  snippet,
			Score:        c.Score,
			UploadDate:   c.CreatedAt.Format("2006-01-02"),
		})
	}
	return citations
}
