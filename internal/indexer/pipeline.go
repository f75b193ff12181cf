package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"archivist-ai/internal/contextutil"
	"archivist-ai/internal/llm"
	"archivist-ai/internal/storage"
	"archivist-ai/internal/vectorstore"
)

// Pipeline turns submitted documents into persisted, embedded passages.
// One source row plus its passage rows go to SQLite; embedded passages also
// become points in the vector index. Embedding failures for individual
// passages never abort the batch.
type Pipeline struct {
	sourceRepo  storage.SourceStore
	passageRepo storage.PassageStore
	embedder    llm.Embedder
	vectorStore vectorstore.VectorStore
	collection  string
	chunker     *Chunker
	concurrency int
	logger      *slog.Logger
}

// NewPipeline creates a new ingestion pipeline. concurrency bounds how many
// passages are embedded in parallel for one source.
func NewPipeline(
	sourceRepo storage.SourceStore,
	passageRepo storage.PassageStore,
	embedder llm.Embedder,
	vectorStore vectorstore.VectorStore,
	collection string,
	chunker *Chunker,
	concurrency int,
) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{
		sourceRepo:  sourceRepo,
		passageRepo: passageRepo,
		embedder:    embedder,
		vectorStore: vectorStore,
		collection:  collection,
		chunker:     chunker,
		concurrency: concurrency,
		logger:      slog.Default(),
	}
}

// segmentMark maps a rune offset in the joined transcript text to the start
// time of the segment beginning there.
type segmentMark struct {
	offset int
	start  float64
}

// Ingest validates, chunks, embeds, and persists one document.
func (p *Pipeline) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	srcType := storage.SourceType(strings.ToUpper(strings.TrimSpace(req.Type)))
	if !srcType.Valid() {
		return nil, fmt.Errorf("invalid source type %q", req.Type)
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("title is required")
	}
	if req.Date != "" {
		if _, err := time.Parse("2006-01-02", req.Date); err != nil {
			return nil, fmt.Errorf("date must be an ISO date (YYYY-MM-DD): %w", err)
		}
	}
	if req.URL != "" {
		if _, err := url.ParseRequestURI(req.URL); err != nil {
			return nil, fmt.Errorf("invalid url: %w", err)
		}
	}

	text, marks := p.prepareText(req, srcType)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("document has no text content")
	}

	chunks := p.chunker.Chunk(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document produced no passages")
	}

	sourceID := uuid.New().String()
	src := &storage.SourceRecord{
		ID:         sourceID,
		Type:       srcType,
		Title:      strings.TrimSpace(req.Title),
		URL:        req.URL,
		Date:       req.Date,
		ChunkCount: len(chunks),
	}
	if err := p.sourceRepo.Insert(ctx, src); err != nil {
		return nil, fmt.Errorf("failed to insert source: %w", err)
	}

	// Embed passages with bounded parallelism. A failed embed leaves a nil
	// vector; the passage is still persisted for keyword retrieval.
	vectors := make([][]float32, len(chunks))
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			vec, err := p.embedder.Embed(ctx, chunk.Text)
			if err != nil {
				logger.WarnContext(ctx, "failed to embed passage", "source_id", sourceID, "seq", i, "error", err)
				return nil
			}
			vectors[i] = vec
			return nil
		})
	}
	_ = g.Wait()

	// Upsert the embedded passages into the vector index first. If that
	// fails, keep ingesting text-only so keyword retrieval still works.
	points := make([]vectorstore.Point, 0, len(chunks))
	for i, chunk := range chunks {
		if vectors[i] == nil {
			continue
		}
		meta := map[string]any{
			"source_id": sourceID,
			"seq":       i,
		}
		if start := startTimeFor(marks, chunk.Start); start != nil {
			meta["start_time"] = *start
		}
		points = append(points, vectorstore.Point{
			ID:   uuid.New().String(),
			Vec:  vectors[i],
			Meta: meta,
		})
	}

	embedded := len(points)
	if embedded > 0 {
		if err := p.vectorStore.Upsert(ctx, p.collection, points); err != nil {
			logger.ErrorContext(ctx, "failed to upsert vectors, persisting passages without embeddings",
				"source_id", sourceID, "count", embedded, "error", err)
			embedded = 0
		}
	}

	pointIdx := 0
	for i, chunk := range chunks {
		record := &storage.PassageRecord{
			SourceID:     sourceID,
			Seq:          i,
			StartTime:    startTimeFor(marks, chunk.Start),
			Text:         chunk.Text,
			HasEmbedding: false,
		}
		if vectors[i] != nil && embedded > 0 {
			// Reuse the vector point ID so both stores address the same passage.
			record.ID = points[pointIdx].ID
			record.HasEmbedding = true
			pointIdx++
		} else {
			record.ID = uuid.New().String()
			if vectors[i] != nil {
				pointIdx++
			}
		}
		if err := p.passageRepo.Insert(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to insert passage: %w", err)
		}
	}

	logger.InfoContext(ctx, "ingested source",
		"source_id", sourceID, "title", src.Title, "type", string(srcType),
		"passages", len(chunks), "embedded", embedded)

	return &IngestResult{
		SourceID: sourceID,
		Passages: len(chunks),
		Embedded: embedded,
	}, nil
}

// DeleteSource removes a source, its passages, and its vector points.
// A vector-store failure is logged and the database delete proceeds; the
// orphaned points reference passages that no longer resolve and are ignored
// at query time.
func (p *Pipeline) DeleteSource(ctx context.Context, sourceID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	ids, err := p.passageRepo.ListIDsBySource(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("failed to list passage IDs: %w", err)
	}

	if len(ids) > 0 {
		if err := p.vectorStore.Delete(ctx, p.collection, ids); err != nil {
			logger.WarnContext(ctx, "failed to delete vector points", "source_id", sourceID, "count", len(ids), "error", err)
		}
	}

	if err := p.sourceRepo.Delete(ctx, sourceID); err != nil {
		return err
	}

	logger.InfoContext(ctx, "deleted source", "source_id", sourceID, "passages", len(ids))
	return nil
}

// prepareText produces the chunker input and, for time-coded transcripts,
// the offset-to-start-time marks.
func (p *Pipeline) prepareText(req IngestRequest, srcType storage.SourceType) (string, []segmentMark) {
	if srcType == storage.SourceTypeVideo && len(req.Segments) > 0 {
		var builder strings.Builder
		marks := make([]segmentMark, 0, len(req.Segments))
		offset := 0
		for _, seg := range req.Segments {
			// Normalize per segment so offsets line up with the chunker's view
			// of the joined text; a raw CRLF would shift every later mark.
			text := normalizeText(seg.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteByte('\n')
				offset++
			}
			marks = append(marks, segmentMark{offset: offset, start: seg.Start})
			builder.WriteString(text)
			offset += len([]rune(text))
		}
		return builder.String(), marks
	}

	if srcType == storage.SourceTypeArticle {
		return PlainText([]byte(req.Text)), nil
	}
	return req.Text, nil
}

// startTimeFor returns the start time of the segment containing the given
// rune offset, or nil when the source is not time-coded.
func startTimeFor(marks []segmentMark, offset int) *float64 {
	if len(marks) == 0 {
		return nil
	}
	start := marks[0].start
	for _, m := range marks {
		if m.offset > offset {
			break
		}
		start = m.start
	}
	return &start
}
