package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"time"

	"archivist-ai/internal/config"
	"archivist-ai/internal/http"
	"archivist-ai/internal/indexer"
	"archivist-ai/internal/llm"
	"archivist-ai/internal/rag"
	"archivist-ai/internal/storage"
	"archivist-ai/internal/vectorstore"
)

const systemInstructionKey = "system_instruction"

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Create repository instances
	sourceRepo := storage.NewSourceRepo(db)
	passageRepo := storage.NewPassageRepo(db)
	settingsRepo := storage.NewSettingsRepo(db)

	ctx := context.Background()

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Ensure collection exists with correct vector size
	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.VectorSize); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.VectorSize)

	embedder := llm.NewEmbeddingsClient(cfg.APIKey, cfg.APIBaseURL, cfg.EmbeddingModel, cfg.VectorSize, cfg.EmbedRPS)

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.APIKey, cfg.APIBaseURL, cfg.ChatModel, cfg.WebSearchModel)

	// Create ingestion pipeline
	chunker := indexer.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	pipeline := indexer.NewPipeline(
		sourceRepo,
		passageRepo,
		embedder,
		vectorStore,
		cfg.QdrantCollection,
		chunker,
		cfg.EmbedConcurrency,
	)

	// The persisted system instruction, if any, overrides the built-in default.
	systemInstruction, err := settingsRepo.Get(ctx, systemInstructionKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Fatalf("Failed to read settings: %v", err)
	}

	// Create answer engine
	var engine rag.Engine
	switch cfg.Mode {
	case config.ModeHybrid:
		engine = rag.NewEngine(
			embedder,
			llmClient,
			llmClient,
			vectorStore,
			cfg.QdrantCollection,
			passageRepo,
			sourceRepo,
			rag.Options{
				VectorLimit:       cfg.VectorLimit,
				KeywordLimit:      cfg.KeywordLimit,
				TopK:              cfg.TopK,
				WebSearchTimeout:  15 * time.Second,
				SystemInstruction: systemInstruction,
			},
		)
	default:
		log.Fatalf("Unsupported answer mode: %s", cfg.Mode)
	}
	slog.Info("Answer engine initialized", "mode", cfg.Mode, "top_k", cfg.TopK)

	// Create router with dependencies
	deps := &http.Deps{
		Engine:         engine,
		Pipeline:       pipeline,
		SourceRepo:     sourceRepo,
		PassageRepo:    passageRepo,
		SettingsRepo:   settingsRepo,
		DB:             db,
		VectorChecker:  vectorStore,
		LLMChecker:     llmClient,
		CollectionName: cfg.QdrantCollection,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.APIBaseURL, "chat_model", cfg.ChatModel, "embedding_model", cfg.EmbeddingModel)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
