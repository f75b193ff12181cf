package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// EmbeddingsClient generates embeddings via an OpenAI-compatible API.
// It implements the Embedder interface.
type EmbeddingsClient struct {
	client       *openai.Client
	model        openai.EmbeddingModel
	expectedSize int // Expected vector size for validation
	limiter      *rate.Limiter
}

// NewEmbeddingsClient creates a new embeddings client.
// expectedSize is the vector size every returned embedding is validated
// against (must match the vector index configuration). rps bounds the
// request rate against the remote service; ingestion embeds many passages
// in a burst and the limiter keeps that within provider limits.
func NewEmbeddingsClient(apiKey, baseURL, model string, expectedSize int, rps float64) *EmbeddingsClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &EmbeddingsClient{
		client:       openai.NewClientWithConfig(cfg),
		model:        openai.EmbeddingModel(model),
		expectedSize: expectedSize,
		limiter:      rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Embed generates an embedding for the given text.
// Embedded newlines are collapsed to spaces before sending; embedding models
// are sensitive to raw formatting.
func (c *EmbeddingsClient) Embed(ctx context.Context, text string) ([]float32, error) {
	normalized := collapseNewlines(text)
	if normalized == "" {
		return nil, fmt.Errorf("empty input text")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:          []string{normalized},
		Model:          c.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}

	vec := resp.Data[0].Embedding
	if len(vec) != c.expectedSize {
		return nil, fmt.Errorf("embedding has size %d, expected %d", len(vec), c.expectedSize)
	}

	return vec, nil
}

// collapseNewlines replaces runs of line breaks with single spaces and trims
// the result.
func collapseNewlines(text string) string {
	replaced := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)
	return strings.TrimSpace(strings.Join(strings.Fields(replaced), " "))
}
