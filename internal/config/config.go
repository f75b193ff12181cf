package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AnswerMode selects the retrieval strategy used to ground answers.
// Only the hybrid (vector + keyword) strategy is implemented here; other
// modes are reserved for external integrations and rejected at startup.
type AnswerMode string

const (
	// ModeHybrid runs vector and keyword retrieval in parallel and fuses the results.
	ModeHybrid AnswerMode = "hybrid"
)

// Config holds all configuration for the application.
type Config struct {
	// OpenAI-compatible backend for embeddings and generation.
	APIKey         string
	APIBaseURL     string
	EmbeddingModel string
	ChatModel      string
	WebSearchModel string

	// Document store.
	DBPath string

	// Vector index.
	QdrantURL        string
	QdrantCollection string
	VectorSize       int

	// Chunking.
	ChunkSize    int
	ChunkOverlap int

	// Retrieval and ranking.
	VectorLimit  int
	KeywordLimit int
	TopK         int

	// Ingestion-time embedding.
	EmbedConcurrency int
	EmbedRPS         float64

	// Answer strategy.
	Mode AnswerMode

	// Server.
	APIPort string

	// Logging.
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or a parent directory, it is
// loaded automatically; variables already set take precedence over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up a few levels looking for a .env next to the project root.
	if wd, err := os.Getwd(); err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		APIKey:           os.Getenv("OPENAI_API_KEY"),
		APIBaseURL:       getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		ChatModel:        getEnv("CHAT_MODEL", "gpt-4o-mini"),
		WebSearchModel:   getEnv("WEB_SEARCH_MODEL", "gpt-4o-mini-search-preview"),
		DBPath:           getEnv("DB_PATH", "./data/archivist-ai.db"),
		QdrantURL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "passages"),
		APIPort:          getEnv("API_PORT", "9000"),
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	var err error
	if cfg.VectorSize, err = getEnvInt("VECTOR_SIZE", 1536); err != nil {
		return nil, err
	}
	if cfg.ChunkSize, err = getEnvInt("CHUNK_SIZE", 2000); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap, err = getEnvInt("CHUNK_OVERLAP", 200); err != nil {
		return nil, err
	}
	if cfg.VectorLimit, err = getEnvInt("RETRIEVE_VECTOR_LIMIT", 100); err != nil {
		return nil, err
	}
	if cfg.KeywordLimit, err = getEnvInt("RETRIEVE_KEYWORD_LIMIT", 50); err != nil {
		return nil, err
	}
	if cfg.TopK, err = getEnvInt("RANK_TOP_K", 25); err != nil {
		return nil, err
	}
	if cfg.EmbedConcurrency, err = getEnvInt("EMBED_CONCURRENCY", 4); err != nil {
		return nil, err
	}

	rpsStr := getEnv("EMBED_RPS", "5")
	cfg.EmbedRPS, err = strconv.ParseFloat(rpsStr, 64)
	if err != nil || cfg.EmbedRPS <= 0 {
		return nil, fmt.Errorf("EMBED_RPS must be a positive number, got %q", rpsStr)
	}

	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.ChunkSize)
	}

	mode := AnswerMode(getEnv("ANSWER_MODE", string(ModeHybrid)))
	if mode != ModeHybrid {
		return nil, fmt.Errorf("unsupported ANSWER_MODE %q (supported: %s)", mode, ModeHybrid)
	}
	cfg.Mode = mode

	cfg.LogLevel = parseLogLevel(getEnv("LOG_LEVEL", "info"))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "text"))

	// Create the data directory for the SQLite file if needed.
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt parses an integer environment variable, requiring a positive value.
func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return v, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
