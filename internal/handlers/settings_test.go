package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	storagemocks "archivist-ai/internal/storage/mocks"
)

// putRequest builds a settings update request carrying the chi URL parameter.
func putRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPut, "/api/settings/"+key, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("key", key)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestSettingsHandler_Put(t *testing.T) {
	t.Run("stores writable key", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		settingsRepo := storagemocks.NewMockSettingsStore(ctrl)
		handler := NewSettingsHandler(settingsRepo)

		settingsRepo.EXPECT().
			Set(gomock.Any(), "system_instruction", "Answer as a dive guide.").
			Return(nil)

		w := httptest.NewRecorder()
		handler.Put(w, putRequest("system_instruction", `{"value":"Answer as a dive guide."}`))

		if w.Code != http.StatusNoContent {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		settingsRepo := storagemocks.NewMockSettingsStore(ctrl)
		handler := NewSettingsHandler(settingsRepo)

		w := httptest.NewRecorder()
		handler.Put(w, putRequest("api_key", `{"value":"nope"}`))

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		settingsRepo := storagemocks.NewMockSettingsStore(ctrl)
		handler := NewSettingsHandler(settingsRepo)

		w := httptest.NewRecorder()
		handler.Put(w, putRequest("system_instruction", "not json"))

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		settingsRepo := storagemocks.NewMockSettingsStore(ctrl)
		handler := NewSettingsHandler(settingsRepo)

		settingsRepo.EXPECT().
			Set(gomock.Any(), "system_instruction", gomock.Any()).
			Return(errors.New("disk full"))

		w := httptest.NewRecorder()
		handler.Put(w, putRequest("system_instruction", `{"value":"x"}`))

		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})
}
