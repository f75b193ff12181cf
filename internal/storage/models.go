package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// SourceType enumerates the kinds of documents users can ingest.
type SourceType string

const (
	SourceTypeVideo   SourceType = "VIDEO"
	SourceTypeArticle SourceType = "ARTICLE"
)

// Valid reports whether t is a known source type.
func (t SourceType) Valid() bool {
	return t == SourceTypeVideo || t == SourceTypeArticle
}

// SourceRecord represents one ingested document in the database.
// This is the authoritative source table; passages reference it by SourceID.
type SourceRecord struct {
	ID         string     // UUID
	Type       SourceType // VIDEO or ARTICLE
	Title      string
	URL        string    // May be empty for sources without a canonical URL
	Date       string    // ISO date (YYYY-MM-DD), recency metadata
	ChunkCount int       // Number of passages created at ingestion
	CreatedAt  time.Time
}

// PassageRecord represents a chunk of source text, the unit of retrieval.
// Passages are immutable once written and deleted only via their source.
type PassageRecord struct {
	ID           string   // UUID (same as the vector point ID)
	SourceID     string   // Foreign key to sources.id
	Seq          int      // Position within the source (starts at 0)
	StartTime    *float64 // Seconds into time-coded media, nil for articles
	Text         string
	HasEmbedding bool // False when the embedding call failed at ingestion
}

// PassageHit is a keyword-search result carrying the passage and its source metadata.
type PassageHit struct {
	Passage PassageRecord
	Source  SourceRecord
}

// CorpusStats summarizes the ingested corpus.
type CorpusStats struct {
	Sources          int
	Passages         int
	EmbeddedPassages int
}
