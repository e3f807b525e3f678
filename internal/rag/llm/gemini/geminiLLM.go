package gemini

import (
	"context"
	"sync"

	"github.com/akolanti/OfflineRAG/internal/rag/llm"
	"github.com/akolanti/OfflineRAG/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client    *genai.Client
	modelName string
}

var logger *logger_i.Logger
var geminiClient *llmClient
var once sync.Once

func GetGeminiClient(ctx context.Context, modelName string, apikey string) llm.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_gemini")
		newGeminiClient(ctx, modelName, apikey)
	})

	if geminiClient == nil {
		return nil
	}
	return &llmClient{client: geminiClient.client, modelName: geminiClient.modelName}
}

func newGeminiClient(ctx context.Context, modelName string, apikey string) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey})
	if err != nil {
		logger.Error("Error creating Gemini client:", "error", err)
	}
	if c != nil {
		geminiClient = &llmClient{client: c, modelName: modelName}
		logger.Info("Gemini client created", "model", modelName)
		go closeClient(ctx, geminiClient)
	}
}

func (c *llmClient) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	result, err := c.client.Models.GenerateContent(
		ctx,
		c.modelName,
		genai.Text(prompt),
		contentConfig(opts),
	)
	if err != nil {
		logger.Error("Gemini generation failed", "error", err)
		return "", err
	}
	return result.Text(), nil
}

func (c *llmClient) GenerateStream(ctx context.Context, prompt string, opts llm.GenerateOptions, onToken func(token string) error) error {
	for result, err := range c.client.Models.GenerateContentStream(
		ctx,
		c.modelName,
		genai.Text(prompt),
		contentConfig(opts),
	) {
		if err != nil {
			logger.Error("Gemini stream failed", "error", err)
			return err
		}
		token := result.Text()
		if token == "" {
			continue
		}
		if err := onToken(token); err != nil {
			return err
		}
	}
	return nil
}

func contentConfig(opts llm.GenerateOptions) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.Temperature > 0 {
		cfg.Temperature = genai.Ptr(opts.Temperature)
	}
	if opts.TopP > 0 {
		cfg.TopP = genai.Ptr(opts.TopP)
	}
	if opts.RepeatPenalty > 0 {
		// Gemini has no repeat penalty knob, frequency penalty is the
		// closest equivalent. Shift so 1.0 maps to neutral.
		cfg.FrequencyPenalty = genai.Ptr(opts.RepeatPenalty - 1.0)
	}
	if len(opts.Stop) > 0 {
		cfg.StopSequences = opts.Stop
	}
	return cfg
}

func closeClient(ctx context.Context, llm *llmClient) {
	<-ctx.Done()
	logger.Info("Closing Gemini client")
	llm.client = nil
	llm.modelName = ""
}
