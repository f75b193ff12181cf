package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_passage_store.go -package=mocks archivist-ai/internal/storage PassageStore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PassageStore defines the interface for passage storage operations.
type PassageStore interface {
	// Insert inserts a single passage into the database.
	// The passage.ID must be set (UUID) before calling this method.
	Insert(ctx context.Context, p *PassageRecord) error
	// GetByID gets a passage by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*PassageRecord, error)
	// ListIDsBySource returns all passage IDs for a source, ordered by seq.
	ListIDsBySource(ctx context.Context, sourceID string) ([]string, error)
	// KeywordSearch performs a case-insensitive substring match of the given
	// lowercased tokens against passage text and source title, OR-combined,
	// capped at limit rows.
	KeywordSearch(ctx context.Context, tokens []string, limit int) ([]PassageHit, error)
	// Stats returns corpus-wide counts for diagnostics.
	Stats(ctx context.Context) (CorpusStats, error)
}

// PassageRepo provides methods for passage operations.
// It implements the PassageStore interface.
type PassageRepo struct {
	db *sql.DB
}

// NewPassageRepo creates a new PassageRepo.
func NewPassageRepo(db *sql.DB) *PassageRepo {
	return &PassageRepo{db: db}
}

// Insert inserts a single passage into the database.
func (r *PassageRepo) Insert(ctx context.Context, p *PassageRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO passages (id, source_id, seq, start_time, text, has_embedding) VALUES (?, ?, ?, ?, ?, ?)",
		p.ID, p.SourceID, p.Seq, p.StartTime, p.Text, p.HasEmbedding,
	)
	if err != nil {
		return fmt.Errorf("failed to insert passage: %w", err)
	}
	return nil
}

// GetByID gets a passage by its ID. Returns ErrNotFound if not found.
func (r *PassageRepo) GetByID(ctx context.Context, id string) (*PassageRecord, error) {
	var p PassageRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT id, source_id, seq, start_time, text, has_embedding FROM passages WHERE id = ?",
		id,
	).Scan(&p.ID, &p.SourceID, &p.Seq, &p.StartTime, &p.Text, &p.HasEmbedding)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query passage: %w", err)
	}

	return &p, nil
}

// ListIDsBySource returns all passage IDs for a source, ordered by seq.
// Returns an empty slice if no passages exist (not an error).
// Used to get vector point IDs for deletion before removing a source.
func (r *PassageRepo) ListIDsBySource(ctx context.Context, sourceID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM passages WHERE source_id = ? ORDER BY seq",
		sourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query passage IDs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan passage ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}

// KeywordSearch performs a case-insensitive substring match of the given
// tokens against passage text and source title. Tokens must be lowercased by
// the caller; they are escaped before being placed in a LIKE pattern so user
// input cannot alter the query shape.
func (r *PassageRepo) KeywordSearch(ctx context.Context, tokens []string, limit int) ([]PassageHit, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}

	// SQLite's lower() only folds ASCII, so uppercase non-ASCII text (CAFÉ)
	// will not match its Unicode-lowercased token. Korean has no case and the
	// corpus is Korean/ASCII, so this stays a substring match rather than
	// pulling in an ICU build.
	conditions := make([]string, 0, len(tokens))
	args := make([]any, 0, len(tokens)*2+1)
	for _, token := range tokens {
		pattern := "%" + escapeLike(token) + "%"
		conditions = append(conditions, `(lower(p.text) LIKE ? ESCAPE '\' OR lower(s.title) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	args = append(args, limit)

	query := `SELECT p.id, p.source_id, p.seq, p.start_time, p.text, p.has_embedding,
		s.id, s.type, s.title, s.url, s.date, s.chunk_count, s.created_at
		FROM passages p JOIN sources s ON p.source_id = s.id
		WHERE ` + strings.Join(conditions, " OR ") + `
		ORDER BY s.date DESC, p.seq ASC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run keyword search: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var hits []PassageHit
	for rows.Next() {
		var hit PassageHit
		var typ string
		if err := rows.Scan(
			&hit.Passage.ID, &hit.Passage.SourceID, &hit.Passage.Seq, &hit.Passage.StartTime,
			&hit.Passage.Text, &hit.Passage.HasEmbedding,
			&hit.Source.ID, &typ, &hit.Source.Title, &hit.Source.URL, &hit.Source.Date,
			&hit.Source.ChunkCount, &hit.Source.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan keyword hit: %w", err)
		}
		hit.Source.Type = SourceType(typ)
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return hits, nil
}

// Stats returns corpus-wide counts for diagnostics.
func (r *PassageRepo) Stats(ctx context.Context) (CorpusStats, error) {
	var stats CorpusStats
	err := r.db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM sources),
			(SELECT COUNT(*) FROM passages),
			(SELECT COUNT(*) FROM passages WHERE has_embedding = 1)`,
	).Scan(&stats.Sources, &stats.Passages, &stats.EmbeddedPassages)
	if err != nil {
		return CorpusStats{}, fmt.Errorf("failed to query corpus stats: %w", err)
	}
	return stats, nil
}

// escapeLike escapes LIKE wildcards and the escape character itself so a
// token is always matched literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
