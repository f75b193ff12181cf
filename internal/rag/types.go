package rag

import (
	"archivist-ai/internal/llm"
	"archivist-ai/internal/storage"
)

// AnswerRequest represents a grounded chat query.
type AnswerRequest struct {
	// Query is the user's question.
	Query string `json:"query"`
	// SystemInstruction overrides the engine's default persona instruction.
	SystemInstruction string `json:"systemInstruction,omitempty"`
	// UseWebSearch enables the best-effort web grounding call.
	UseWebSearch bool `json:"useWebSearch,omitempty"`
}

// SourceRef is a user-facing citation entry. Its position in the slice is the
// citation index: Sources[0] is cited as [[1]] in the answer text.
type SourceRef struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Date  string `json:"date"`
	Type  string `json:"type"`
}

// DebugSnippet exposes one ranked candidate for diagnostic display.
type DebugSnippet struct {
	Score       float64 `json:"score"`
	Text        string  `json:"text"`
	SourceTitle string  `json:"sourceTitle"`
}

// AnswerResponse represents the structured answer.
type AnswerResponse struct {
	// Answer is the generated text. Never empty: failure paths substitute a
	// fallback message rather than erroring out.
	Answer string `json:"answer"`
	// Sources are the cited internal sources, in citation-index order.
	Sources []SourceRef `json:"sources"`
	// WebSources are pages collected by the optional web grounding call.
	WebSources []llm.WebSource `json:"webSources"`
	// Debug carries the ranked candidates with fused scores and truncated text.
	Debug []DebugSnippet `json:"debugSnippets"`
}

// Candidate is an ephemeral per-query retrieval result: one passage together
// with the scores contributed by each retrieval leg.
type Candidate struct {
	PassageID string
	Text      string
	StartTime *float64
	Source    storage.SourceRecord

	// VectorScore is cosine similarity from the vector leg; meaningful only
	// when HasVectorScore is set.
	VectorScore    float32
	HasVectorScore bool
	// KeywordHit marks candidates found by the keyword leg.
	KeywordHit bool
	// FusedScore is the final comparable ranking value, set by rank.
	FusedScore float64
}
