package contextutil

import (
	"context"
	"log/slog"
	"os"
	"testing"
)

func TestLoggerFromContext(t *testing.T) {
	t.Run("returns the stored logger", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		ctx := WithLogger(context.Background(), logger)

		if got := LoggerFromContext(ctx); got != logger {
			t.Error("LoggerFromContext() did not return the stored logger")
		}
	})

	t.Run("falls back to the default logger", func(t *testing.T) {
		if got := LoggerFromContext(context.Background()); got == nil {
			t.Error("LoggerFromContext() returned nil for a bare context")
		}
	})
}
