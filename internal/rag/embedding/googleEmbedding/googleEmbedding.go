package googleEmbedding

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/akolanti/OfflineRAG/internal/config"
	"github.com/akolanti/OfflineRAG/internal/rag/embedding"
	"github.com/akolanti/OfflineRAG/pkg/logger_i"
	"google.golang.org/genai"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client
var dimension int32 = config.EmbeddingOutputDimensionality

type client struct {
	genAi *genai.Client
	model string
}

func newGoogleEmbedder(ctx context.Context, modelName string, apikey string) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey})
	if err != nil {
		logger.Error("Error creating Google Embedding client:", "error", err)
	}
	if c != nil {
		embeddingClient = &client{
			genAi: c,
			model: modelName,
		}
		logger.Debug("Google Embedding model name: " + modelName)
		logger.Info("Google Embedding client created")
		go closeClient(ctx, embeddingClient)
	}
}

func closeClient(ctx context.Context, embeddingClient *client) {
	<-ctx.Done()
	logger.Info("Closing Google Embedding client")
	embeddingClient.genAi = nil
	embeddingClient.model = ""
}

func GetGoogleEmbeddingClient(ctx context.Context, modelName string, apikey string) embedding.Embedder {
	once.Do(func() {
		logger = logger_i.NewLogger("google_embedding")
		newGoogleEmbedder(ctx, modelName, apikey)
	})

	//if init still fails
	if embeddingClient == nil {
		return nil
	}
	return &client{genAi: embeddingClient.genAi, model: embeddingClient.model}
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	result, err := c.doCall(ctx, genai.Text(query))
	if err != nil {
		logger.Error("Error getting Embedding from Google", "error", err.Error())
		return nil, err
	}
	if len(result.Embeddings) == 0 {
		return nil, errors.New("empty embedding response")
	}
	return result.Embeddings[0].Values, nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	res, err := c.doCall(ctx, getContent(chunks))
	if err != nil || res == nil {
		if doRetry(err) {
			logger.Debug("Retrying in 5 seconds")
			time.Sleep(5 * time.Second)

			res, err = c.doCall(ctx, getContent(chunks))
		}
		if err != nil || res == nil {
			logger.Error("Error getting Embeddings from Google", "error", err)
			return nil, err
		}
	}

	var embeddingResults [][]float32
	for _, r := range res.Embeddings {
		embeddingResults = append(embeddingResults, r.Values)
	}
	return embeddingResults, nil
}

func (c *client) doCall(ctx context.Context, content []*genai.Content) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{OutputDimensionality: &dimension, TaskType: "RETRIEVAL_DOCUMENT"})
}

func getContent(chunks []string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(chunks))
	for _, chunk := range chunks {
		contents = append(contents, genai.Text(chunk)...)
	}
	return contents
}

// doRetry only retries rate-limit style failures, not auth or bad-request.
func doRetry(err error) bool {
	if err == nil {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	return false
}
