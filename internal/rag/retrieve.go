package rag

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"archivist-ai/internal/contextutil"
	"archivist-ai/internal/storage"
	"archivist-ai/internal/vectorstore"
)

const maxQueryTokens = 5

// retrieve runs the vector and keyword legs concurrently and merges their
// results, vector candidates first. Duplicate passages survive the merge;
// rank deduplicates them. Either leg may fail or contribute nothing without
// failing the query; both legs empty yields an empty candidate set.
func (e *hybridEngine) retrieve(ctx context.Context, queryText string, queryVector []float32) []Candidate {
	logger := contextutil.LoggerFromContext(ctx)

	var (
		vecResults []vectorstore.SearchResult
		vecErr     error
		kwHits     []storage.PassageHit
		kwErr      error
	)

	var g errgroup.Group

	// Vector leg: skipped entirely when embedding the query failed.
	g.Go(func() error {
		if len(queryVector) == 0 {
			return nil
		}
		vecResults, vecErr = e.vectorStore.Search(ctx, e.collection, queryVector, e.opts.VectorLimit)
		return nil
	})

	// Keyword leg: skipped when the query has no usable tokens.
	g.Go(func() error {
		tokens := extractKeywords(queryText)
		if len(tokens) == 0 {
			return nil
		}
		kwHits, kwErr = e.passageRepo.KeywordSearch(ctx, tokens, e.opts.KeywordLimit)
		return nil
	})

	_ = g.Wait()

	if vecErr != nil {
		logger.WarnContext(ctx, "vector leg failed, continuing with keyword results", "error", vecErr)
	}
	if kwErr != nil {
		logger.WarnContext(ctx, "keyword leg failed, continuing with vector results", "error", kwErr)
	}

	candidates := e.vectorCandidates(ctx, vecResults)
	for _, hit := range kwHits {
		candidates = append(candidates, Candidate{
			PassageID:  hit.Passage.ID,
			Text:       hit.Passage.Text,
			StartTime:  hit.Passage.StartTime,
			Source:     hit.Source,
			KeywordHit: true,
		})
	}

	logger.DebugContext(ctx, "retrieval legs merged",
		"vector_results", len(vecResults), "keyword_hits", len(kwHits), "candidates", len(candidates))

	return candidates
}

// vectorCandidates resolves vector search results into candidates by joining
// passage text and source metadata from the document store. Points whose
// passage no longer exists (e.g. a source deleted mid-flight) are skipped.
func (e *hybridEngine) vectorCandidates(ctx context.Context, results []vectorstore.SearchResult) []Candidate {
	if len(results) == 0 {
		return nil
	}
	logger := contextutil.LoggerFromContext(ctx)

	sourceIDs := make([]string, 0, len(results))
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		id, _ := r.Meta["source_id"].(string)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			sourceIDs = append(sourceIDs, id)
		}
	}

	sources, err := e.sourceRepo.GetByIDs(ctx, sourceIDs)
	if err != nil {
		logger.WarnContext(ctx, "failed to resolve sources for vector results", "error", err)
		return nil
	}

	candidates := make([]Candidate, 0, len(results))
	for _, r := range results {
		sourceID, _ := r.Meta["source_id"].(string)
		src, ok := sources[sourceID]
		if !ok {
			continue
		}

		passage, err := e.passageRepo.GetByID(ctx, r.PointID)
		if err != nil {
			logger.WarnContext(ctx, "skipping unresolvable vector point", "point_id", r.PointID, "error", err)
			continue
		}

		candidates = append(candidates, Candidate{
			PassageID:      passage.ID,
			Text:           passage.Text,
			StartTime:      passage.StartTime,
			Source:         *src,
			VectorScore:    r.Score,
			HasVectorScore: true,
		})
	}

	return candidates
}

// extractKeywords pulls up to maxQueryTokens significant tokens from the
// query: punctuation stripped, lowercased, single-rune tokens dropped.
func extractKeywords(query string) []string {
	var builder strings.Builder
	builder.Grow(len(query))
	for _, r := range strings.ToLower(query) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}

	var tokens []string
	for _, token := range strings.Fields(builder.String()) {
		if len([]rune(token)) <= 1 {
			continue
		}
		tokens = append(tokens, token)
		if len(tokens) == maxQueryTokens {
			break
		}
	}
	return tokens
}
