package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the generation backend, talking to an OpenAI-compatible chat API.
// It implements the Generator and WebSearcher interfaces.
type Client struct {
	client         *openai.Client
	chatModel      string
	webSearchModel string
}

// NewClient creates a new generation client. webSearchModel names a
// search-capable model used for the best-effort web grounding call.
func NewClient(apiKey, baseURL, chatModel, webSearchModel string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		client:         openai.NewClientWithConfig(cfg),
		chatModel:      chatModel,
		webSearchModel: webSearchModel,
	}
}

// Generate produces a completion for the composed prompt, single call, no retries.
// Retry policy belongs to callers that can degrade gracefully.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
