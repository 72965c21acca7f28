package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/recallstack/recall/internal/api"
	"github.com/recallstack/recall/internal/chat"
	"github.com/recallstack/recall/internal/config"
	"github.com/recallstack/recall/internal/embedding"
	"github.com/recallstack/recall/internal/llm"
	"github.com/recallstack/recall/internal/store"
	"github.com/recallstack/recall/internal/vectorstore"
	"github.com/recallstack/recall/internal/vectorsync"
)

func main() {
	// Logger
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// SQLite
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Stores
	messageStore := store.NewMessageStore(db)
	memoryStore := store.NewMemoryStore(db, logger)
	settingsStore := store.NewSettingsStore(db)
	syncStore := store.NewSyncStore(db)
	embCacheStore := store.NewEmbeddingCacheStore(db)

	// Embedding with cache
	openaiEmbedder := embedding.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
	embedder, err := embedding.NewCachedEmbedder(openaiEmbedder, embCacheStore, cfg.EmbeddingModel, cfg.EmbeddingDim, cfg.CacheMaxEntries)
	if err != nil {
		logger.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}

	// Completion provider, selected by the configured chat model
	var completer llm.Completer
	if strings.HasPrefix(cfg.ChatModel, "claude") {
		completer = llm.NewAnthropicCompleter(cfg.AnthropicAPIKey, cfg.ChatModel)
	} else {
		completer = llm.NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.ChatModel)
	}

	// Remote vector index
	pinecone := vectorstore.NewPineconeClient(cfg.PineconeControlURL, cfg.PineconeAPIKey)
	if err := pinecone.HealthCheck(); err != nil {
		logger.Warn("remote index not available at startup, sync will fail until it is", "error", err)
	}

	// Services
	chatSvc := chat.NewService(messageStore, memoryStore, settingsStore, embedder, completer, logger)
	engine := vectorsync.NewEngine(memoryStore, messageStore, syncStore, pinecone, logger)

	// Router
	router := api.NewRouter(db, chatSvc, memoryStore, settingsStore, syncStore, engine, openaiEmbedder, pinecone, cfg.APIKey, logger)

	// Server
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("recall server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
