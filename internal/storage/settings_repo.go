package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_settings_store.go -package=mocks archivist-ai/internal/storage SettingsStore

import (
	"context"
	"database/sql"
	"fmt"
)

// SettingsStore persists durable key/value state (default system instruction,
// external store identifiers). It is read once at startup into an explicit
// options object; nothing in the process keeps ambient mutable settings.
type SettingsStore interface {
	// Get returns the value for key. Returns ErrNotFound if the key is absent.
	Get(ctx context.Context, key string) (string, error)
	// Set stores or replaces the value for key.
	Set(ctx context.Context, key, value string) error
}

// SettingsRepo provides methods for settings operations.
// It implements the SettingsStore interface.
type SettingsRepo struct {
	db *sql.DB
}

// NewSettingsRepo creates a new SettingsRepo.
func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get returns the value for key. Returns ErrNotFound if the key is absent.
func (r *SettingsRepo) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query setting: %w", err)
	}
	return value, nil
}

// Set stores or replaces the value for key.
func (r *SettingsRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}
