package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"archivist-ai/internal/contextutil"
	"archivist-ai/internal/rag"
)

const maxQueryLength = 4000

// ChatHandler handles HTTP requests for grounded chat queries.
type ChatHandler struct {
	engine rag.Engine
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(engine rag.Engine) *ChatHandler {
	return &ChatHandler{engine: engine}
}

// ChatRequest represents the HTTP request payload for chat queries.
// This mirrors rag.AnswerRequest but is defined here for HTTP layer separation.
type ChatRequest struct {
	Query             string `json:"query"`
	SystemInstruction string `json:"systemInstruction,omitempty"`
	UseWebSearch      bool   `json:"useWebSearch,omitempty"`
}

// ChatResponse represents the HTTP response payload for chat queries.
type ChatResponse struct {
	Answer        string              `json:"answer"`
	Sources       []SourceResponse    `json:"sources"`
	WebSources    []WebSourceResponse `json:"webSources"`
	DebugSnippets []DebugSnippet      `json:"debugSnippets"`
}

// SourceResponse is one cited source, in citation-index order.
type SourceResponse struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Date  string `json:"date"`
	Type  string `json:"type"`
}

// WebSourceResponse is one page collected by the web grounding call.
type WebSourceResponse struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// DebugSnippet is one ranked candidate with its fused score.
type DebugSnippet struct {
	Score       float64 `json:"score"`
	Text        string  `json:"text"`
	SourceTitle string  `json:"sourceTitle"`
}

// ServeHTTP handles POST /api/chat.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		logger.WarnContext(ctx, "empty query in request")
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}
	if len(req.Query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "Query is too long")
		return
	}

	resp, err := h.engine.Answer(ctx, rag.AnswerRequest{
		Query:             req.Query,
		SystemInstruction: req.SystemInstruction,
		UseWebSearch:      req.UseWebSearch,
	})
	if err != nil {
		logger.ErrorContext(ctx, "answer pipeline error", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to answer query")
		return
	}

	out := ChatResponse{
		Answer:        resp.Answer,
		Sources:       make([]SourceResponse, 0, len(resp.Sources)),
		WebSources:    make([]WebSourceResponse, 0, len(resp.WebSources)),
		DebugSnippets: make([]DebugSnippet, 0, len(resp.Debug)),
	}
	for _, src := range resp.Sources {
		out.Sources = append(out.Sources, SourceResponse(src))
	}
	for _, src := range resp.WebSources {
		out.WebSources = append(out.WebSources, WebSourceResponse{Title: src.Title, URL: src.URL})
	}
	for _, snippet := range resp.Debug {
		out.DebugSnippets = append(out.DebugSnippets, DebugSnippet(snippet))
	}

	writeJSON(w, http.StatusOK, out)
}
