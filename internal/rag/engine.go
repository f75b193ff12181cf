package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks archivist-ai/internal/rag Engine

import (
	"context"
	"log/slog"
	"time"

	"archivist-ai/internal/contextutil"
	"archivist-ai/internal/llm"
	"archivist-ai/internal/storage"
	"archivist-ai/internal/vectorstore"
)

// apologyAnswer is shown when the generation backend fails. Raw remote errors
// stay in the logs, never in the chat.
const apologyAnswer = "Sorry, I couldn't generate an answer right now. Please try again in a moment."

const debugSnippetMaxRunes = 200

// Engine answers questions grounded in the ingested corpus.
type Engine interface {
	// Answer runs the full retrieval, ranking, and generation pipeline.
	// Every failure path still yields a well-formed response with a non-empty
	// answer; the error return is reserved for programmer mistakes.
	Answer(ctx context.Context, req AnswerRequest) (AnswerResponse, error)
}

// Options carries the engine's tunables and session defaults. It is built
// once at startup from config plus the persisted settings table; the engine
// holds no ambient mutable state.
type Options struct {
	VectorLimit      int
	KeywordLimit     int
	TopK             int
	WebSearchTimeout time.Duration
	// SystemInstruction is the default persona, overridable per request.
	SystemInstruction string
}

// hybridEngine implements Engine with the hybrid (vector + keyword) strategy.
type hybridEngine struct {
	embedder    llm.Embedder
	generator   llm.Generator
	webSearcher llm.WebSearcher
	vectorStore vectorstore.VectorStore
	collection  string
	passageRepo storage.PassageStore
	sourceRepo  storage.SourceStore
	opts        Options
	logger      *slog.Logger
}

// NewEngine creates the hybrid retrieval engine.
func NewEngine(
	embedder llm.Embedder,
	generator llm.Generator,
	webSearcher llm.WebSearcher,
	vectorStore vectorstore.VectorStore,
	collection string,
	passageRepo storage.PassageStore,
	sourceRepo storage.SourceStore,
	opts Options,
) Engine {
	if opts.VectorLimit <= 0 {
		opts.VectorLimit = 100
	}
	if opts.KeywordLimit <= 0 {
		opts.KeywordLimit = 50
	}
	if opts.TopK <= 0 {
		opts.TopK = 25
	}
	if opts.WebSearchTimeout <= 0 {
		opts.WebSearchTimeout = 15 * time.Second
	}
	return &hybridEngine{
		embedder:    embedder,
		generator:   generator,
		webSearcher: webSearcher,
		vectorStore: vectorStore,
		collection:  collection,
		passageRepo: passageRepo,
		sourceRepo:  sourceRepo,
		opts:        opts,
		logger:      slog.Default(),
	}
}

// Answer runs the linear pipeline: embed, retrieve, rank, assemble, generate.
// The optional web call runs concurrently with internal retrieval and never
// blocks it; retries belong to the remote-call adapters, not here.
func (e *hybridEngine) Answer(ctx context.Context, req AnswerRequest) (AnswerResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	logger.InfoContext(ctx, "answer pipeline started",
		"query_length", len(req.Query), "web_search", req.UseWebSearch)

	webCh := e.startWebSearch(ctx, req)

	// Best-effort query embedding: a failure degrades to keyword-only retrieval.
	queryVector, err := e.embedder.Embed(ctx, req.Query)
	if err != nil {
		logger.WarnContext(ctx, "failed to embed query, using keyword retrieval only", "error", err)
		queryVector = nil
	}

	candidates := e.retrieve(ctx, req.Query, queryVector)
	ranked := rank(candidates, req.Query, e.opts.TopK)
	contextBlock, cited := assembleContext(ranked)

	logger.InfoContext(ctx, "retrieval completed",
		"candidates", len(candidates), "ranked", len(ranked), "cited_sources", len(cited))

	var web llm.WebFindings
	if webCh != nil {
		web = <-webCh
	}

	systemInstruction := req.SystemInstruction
	if systemInstruction == "" {
		systemInstruction = e.opts.SystemInstruction
	}
	prompt := buildPrompt(systemInstruction, contextBlock, web.Text, req.Query)

	debug := debugSnippets(ranked)

	answer, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		logger.ErrorContext(ctx, "generation failed", "error", err)
		return AnswerResponse{
			Answer:     apologyAnswer,
			Sources:    []SourceRef{},
			WebSources: []llm.WebSource{},
			Debug:      debug,
		}, nil
	}

	logger.InfoContext(ctx, "answer pipeline completed",
		"answer_length", len(answer), "sources", len(cited), "web_sources", len(web.Sources))

	return AnswerResponse{
		Answer:     answer,
		Sources:    sourceRefs(cited),
		WebSources: webSources(web),
		Debug:      debug,
	}, nil
}

// startWebSearch launches the web grounding call under its own timeout and
// returns a channel delivering the findings, or nil when web search is off.
// A failed or timed-out call delivers empty findings.
func (e *hybridEngine) startWebSearch(ctx context.Context, req AnswerRequest) <-chan llm.WebFindings {
	if !req.UseWebSearch {
		return nil
	}

	ch := make(chan llm.WebFindings, 1)
	go func() {
		logger := contextutil.LoggerFromContext(ctx)
		webCtx, cancel := context.WithTimeout(ctx, e.opts.WebSearchTimeout)
		defer cancel()

		findings, err := e.webSearcher.SearchWeb(webCtx, req.Query)
		if err != nil {
			logger.WarnContext(ctx, "web search failed, continuing without web findings", "error", err)
			findings = llm.WebFindings{}
		}
		ch <- findings
	}()
	return ch
}

// sourceRefs converts cited source records into the response shape,
// preserving citation-index order.
func sourceRefs(cited []storage.SourceRecord) []SourceRef {
	refs := make([]SourceRef, 0, len(cited))
	for _, src := range cited {
		refs = append(refs, SourceRef{
			Title: src.Title,
			URL:   src.URL,
			Date:  src.Date,
			Type:  string(src.Type),
		})
	}
	return refs
}

func webSources(web llm.WebFindings) []llm.WebSource {
	if web.Sources == nil {
		return []llm.WebSource{}
	}
	return web.Sources
}

// debugSnippets exposes the ranked candidates for diagnostic display.
func debugSnippets(ranked []Candidate) []DebugSnippet {
	snippets := make([]DebugSnippet, 0, len(ranked))
	for _, c := range ranked {
		text := c.Text
		if runes := []rune(text); len(runes) > debugSnippetMaxRunes {
			text = string(runes[:debugSnippetMaxRunes]) + "..."
		}
		snippets = append(snippets, DebugSnippet{
			Score:       c.FusedScore,
			Text:        text,
			SourceTitle: c.Source.Title,
		})
	}
	return snippets
}
