package localserver

import (
	"context"
	"errors"
	"sync"

	"github.com/akolanti/OfflineRAG/internal/customHttpClient"
	"github.com/akolanti/OfflineRAG/internal/rag/llm"
	"github.com/akolanti/OfflineRAG/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Talks to any OpenAI-compatible completion server running on this machine
// (llama.cpp, ollama). The server owns the model; if it is down or still
// loading, calls fail fast and the caller decides how to degrade.

type llmClient struct {
	client openai.Client
	model  string
}

var logger *logger_i.Logger
var localClient *llmClient
var once sync.Once

func GetLocalClient(baseURL string, modelName string, apiKey string) llm.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_local")
		localClient = &llmClient{
			client: openai.NewClient(
				option.WithBaseURL(baseURL),
				option.WithAPIKey(apiKey),
				option.WithHTTPClient(customHttpClient.GetPooledClient()),
			),
			model: modelName,
		}
		logger.Info("Local LLM client created", "baseURL", baseURL, "model", modelName)
	})

	if localClient == nil {
		return nil
	}
	return localClient
}

func (c *llmClient) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	completion, err := c.client.Chat.Completions.New(ctx, c.buildParams(prompt, opts))
	if err != nil {
		logger.Error("Local LLM generation failed", "error", err)
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	return completion.Choices[0].Message.Content, nil
}

func (c *llmClient) GenerateStream(ctx context.Context, prompt string, opts llm.GenerateOptions, onToken func(token string) error) error {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.buildParams(prompt, opts))
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		token := chunk.Choices[0].Delta.Content
		if token == "" {
			continue
		}
		if err := onToken(token); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil {
		logger.Error("Local LLM stream failed", "error", err)
		return err
	}
	return nil
}

func (c *llmClient) buildParams(prompt string, opts llm.GenerateOptions) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(float64(opts.Temperature))
	}
	if opts.TopP > 0 {
		params.TopP = openai.Float(float64(opts.TopP))
	}
	if opts.RepeatPenalty > 0 {
		// repeat_penalty is not in the OpenAI schema, frequency_penalty is
		// the portable equivalent. 1.0 is neutral on the llama.cpp side.
		params.FrequencyPenalty = openai.Float(float64(opts.RepeatPenalty - 1.0))
	}
	if len(opts.Stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: opts.Stop}
	}
	return params
}
