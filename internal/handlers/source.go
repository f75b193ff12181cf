package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"archivist-ai/internal/contextutil"
	"archivist-ai/internal/indexer"
	"archivist-ai/internal/storage"
)

// SourceHandler handles HTTP requests for source ingestion and management.
type SourceHandler struct {
	pipeline   *indexer.Pipeline
	sourceRepo storage.SourceStore
}

// NewSourceHandler creates a new SourceHandler.
func NewSourceHandler(pipeline *indexer.Pipeline, sourceRepo storage.SourceStore) *SourceHandler {
	return &SourceHandler{
		pipeline:   pipeline,
		sourceRepo: sourceRepo,
	}
}

// SourceListItem is one ingested source in the list response.
type SourceListItem struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Date       string `json:"date"`
	ChunkCount int    `json:"chunkCount"`
}

// Ingest handles POST /api/sources.
func (h *SourceHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req indexer.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.pipeline.Ingest(ctx, req)
	if err != nil {
		logger.ErrorContext(ctx, "ingestion failed", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// List handles GET /api/sources.
func (h *SourceHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	sources, err := h.sourceRepo.ListAll(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list sources", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list sources")
		return
	}

	items := make([]SourceListItem, 0, len(sources))
	for _, src := range sources {
		items = append(items, SourceListItem{
			ID:         src.ID,
			Type:       string(src.Type),
			Title:      src.Title,
			URL:        src.URL,
			Date:       src.Date,
			ChunkCount: src.ChunkCount,
		})
	}

	writeJSON(w, http.StatusOK, items)
}

// Delete handles DELETE /api/sources/{id}. The source's passages and vector
// points are removed with it.
func (h *SourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Source ID is required")
		return
	}

	if err := h.pipeline.DeleteSource(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Source not found")
			return
		}
		logger.ErrorContext(ctx, "failed to delete source", "source_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete source")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
