package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm.go -package=mocks archivist-ai/internal/llm Embedder,Generator,WebSearcher

import "context"

// Embedder converts text into a fixed-length vector.
// Implementations must treat the call as a blocking remote operation and
// honor context cancellation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces a free-text completion for a composed prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// WebSource is a citation returned by a web-grounded call.
type WebSource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// WebFindings is the result of a best-effort web research call.
type WebFindings struct {
	Text    string
	Sources []WebSource
}

// WebSearcher runs a web-grounded research call for a query.
// A failed or timed-out call degrades to empty findings at the caller.
type WebSearcher interface {
	SearchWeb(ctx context.Context, query string) (WebFindings, error)
}
