package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"archivist-ai/internal/contextutil"
	"archivist-ai/internal/storage"
)

// writableSettings lists the keys the API may write. Anything else in the
// settings table is internal state.
var writableSettings = map[string]bool{
	"system_instruction": true,
}

// SettingsHandler handles HTTP requests for persisted settings.
type SettingsHandler struct {
	settingsRepo storage.SettingsStore
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settingsRepo storage.SettingsStore) *SettingsHandler {
	return &SettingsHandler{settingsRepo: settingsRepo}
}

// SettingRequest is the body of a settings update.
type SettingRequest struct {
	Value string `json:"value"`
}

// Put handles PUT /api/settings/{key}. Settings are read once at startup, so
// a new value takes effect on the next restart.
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	key := chi.URLParam(r, "key")
	if !writableSettings[key] {
		writeError(w, http.StatusNotFound, "Unknown setting")
		return
	}

	var req SettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.settingsRepo.Set(ctx, key, req.Value); err != nil {
		logger.ErrorContext(ctx, "failed to store setting", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to store setting")
		return
	}

	logger.InfoContext(ctx, "setting updated", "key", key)
	w.WriteHeader(http.StatusNoContent)
}
