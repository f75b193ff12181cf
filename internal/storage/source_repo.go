package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_source_store.go -package=mocks archivist-ai/internal/storage SourceStore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SourceStore defines the interface for source storage operations.
type SourceStore interface {
	// Insert inserts a single source into the database.
	// The source.ID must be set (UUID) before calling this method.
	Insert(ctx context.Context, src *SourceRecord) error
	// GetByID gets a source by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*SourceRecord, error)
	// GetByIDs returns the sources for the given IDs, keyed by ID.
	// IDs without a matching row are simply absent from the result.
	GetByIDs(ctx context.Context, ids []string) (map[string]*SourceRecord, error)
	// ListAll returns all sources ordered by creation time, newest first.
	ListAll(ctx context.Context) ([]SourceRecord, error)
	// Delete removes a source row. Passages cascade via the foreign key.
	Delete(ctx context.Context, id string) error
}

// SourceRepo provides methods for source operations.
// It implements the SourceStore interface.
type SourceRepo struct {
	db *sql.DB
}

// NewSourceRepo creates a new SourceRepo.
func NewSourceRepo(db *sql.DB) *SourceRepo {
	return &SourceRepo{db: db}
}

// Insert inserts a single source into the database.
func (r *SourceRepo) Insert(ctx context.Context, src *SourceRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sources (id, type, title, url, date, chunk_count) VALUES (?, ?, ?, ?, ?, ?)",
		src.ID, string(src.Type), src.Title, src.URL, src.Date, src.ChunkCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert source: %w", err)
	}
	return nil
}

// GetByID gets a source by its ID. Returns ErrNotFound if not found.
func (r *SourceRepo) GetByID(ctx context.Context, id string) (*SourceRecord, error) {
	var src SourceRecord
	var typ string
	err := r.db.QueryRowContext(ctx,
		"SELECT id, type, title, url, date, chunk_count, created_at FROM sources WHERE id = ?",
		id,
	).Scan(&src.ID, &typ, &src.Title, &src.URL, &src.Date, &src.ChunkCount, &src.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query source: %w", err)
	}

	src.Type = SourceType(typ)
	return &src, nil
}

// GetByIDs returns the sources for the given IDs, keyed by ID.
func (r *SourceRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*SourceRecord, error) {
	result := make(map[string]*SourceRecord, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT id, type, title, url, date, chunk_count, created_at FROM sources WHERE id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var src SourceRecord
		var typ string
		if err := rows.Scan(&src.ID, &typ, &src.Title, &src.URL, &src.Date, &src.ChunkCount, &src.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		src.Type = SourceType(typ)
		result[src.ID] = &src
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return result, nil
}

// ListAll returns all sources ordered by creation time, newest first.
func (r *SourceRepo) ListAll(ctx context.Context) ([]SourceRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, type, title, url, date, chunk_count, created_at FROM sources ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var sources []SourceRecord
	for rows.Next() {
		var src SourceRecord
		var typ string
		if err := rows.Scan(&src.ID, &typ, &src.Title, &src.URL, &src.Date, &src.ChunkCount, &src.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		src.Type = SourceType(typ)
		sources = append(sources, src)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sources, nil
}

// Delete removes a source row. Passages cascade via the foreign key.
func (r *SourceRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sources WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
