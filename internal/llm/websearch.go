package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const webSearchInstruction = "You are a research assistant with web search access. " +
	"Research the user's question and summarize the most relevant, current findings. " +
	"After the summary, list the pages you relied on, one per line, in the exact form:\n" +
	"SOURCE: <title> | <url>"

const sourceLinePrefix = "SOURCE:"

// SearchWeb runs a web-grounded research call for the query using the
// search-capable model and parses the cited pages out of the response.
// Callers treat any error as "no web findings".
func (c *Client) SearchWeb(ctx context.Context, query string) (WebFindings, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.webSearchModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: webSearchInstruction},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
	})
	if err != nil {
		return WebFindings{}, fmt.Errorf("web search call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return WebFindings{}, fmt.Errorf("no choices returned")
	}

	text, sources := parseWebFindings(resp.Choices[0].Message.Content)
	return WebFindings{Text: text, Sources: sources}, nil
}

// parseWebFindings splits the model output into the findings text and the
// SOURCE lines. Malformed source lines are dropped, not errors.
func parseWebFindings(raw string) (string, []WebSource) {
	var body []string
	var sources []WebSource

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, sourceLinePrefix) {
			body = append(body, line)
			continue
		}

		entry := strings.TrimSpace(strings.TrimPrefix(trimmed, sourceLinePrefix))
		title, url, found := strings.Cut(entry, "|")
		if !found {
			continue
		}
		title = strings.TrimSpace(title)
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		if title == "" {
			title = url
		}
		sources = append(sources, WebSource{Title: title, URL: url})
	}

	return strings.TrimSpace(strings.Join(body, "\n")), sources
}
