// NewsLens query orchestration server. Exposes the command API,
// runs the hybrid retriever and agent pipeline, and enforces the
// memory retention policy.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/newslens/newslens/pkg/api"
	"github.com/newslens/newslens/pkg/cleanup"
	"github.com/newslens/newslens/pkg/config"
	"github.com/newslens/newslens/pkg/database"
	"github.com/newslens/newslens/pkg/embedding"
	"github.com/newslens/newslens/pkg/llm"
	"github.com/newslens/newslens/pkg/memory"
	"github.com/newslens/newslens/pkg/orchestrator"
	"github.com/newslens/newslens/pkg/retrieval"
	"github.com/newslens/newslens/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// buildEmbedder selects the embedding backend. Without an OpenAI key
// the engine falls back to deterministic hash embeddings, which keeps
// retrieval and memory usable in development and tests.
func buildEmbedder(cfg config.MemoryConfig) embedding.Embedder {
	if cfg.EmbeddingProvider == "openai" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			return embedding.NewOpenAIEmbedder(key, cfg.EmbeddingModel, cfg.EmbeddingDim)
		}
		slog.Warn("OPENAI_API_KEY not set, using deterministic embeddings")
	}
	return embedding.NewDeterministic(cfg.EmbeddingDim)
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	slog.Info("Starting NewsLens",
		"version", version.Full(),
		"http_port", httpPort,
		"config_dir", *configDir)

	ctx := context.Background()

	// 1. Configuration
	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	// 2. Database (migrations run inside NewClient)
	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		slog.Error("Failed to load database config", "error", err)
		os.Exit(1)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbClient.Close()
	slog.Info("Connected to PostgreSQL database")

	// 3. Redis (optional: cache and quotas degrade gracefully without it)
	var redisClient *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.Warn("Redis unreachable, continuing without cache and quotas", "addr", addr, "error", err)
			redisClient = nil
		} else {
			slog.Info("Connected to Redis", "addr", addr)
		}
	}

	// 4. Model providers and router
	providers, err := llm.BuildProviders(ctx, cfg)
	if err != nil {
		slog.Error("Failed to build model providers", "error", err)
		os.Exit(1)
	}
	router, err := llm.NewRouter(cfg, providers)
	if err != nil {
		slog.Error("Failed to build model router", "error", err)
		os.Exit(1)
	}
	slog.Info("Model router initialized", "providers", len(providers))

	// 5. Retrieval stack
	embedder := buildEmbedder(cfg.Memory)
	store := retrieval.NewStore(dbClient.Pool(), embedder)
	var cache *retrieval.Cache
	if redisClient != nil {
		cache = retrieval.NewCache(redisClient, cfg.Retrieval.CacheTTL())
	}
	retriever := retrieval.NewRetriever(store, store, retrieval.NewLLMReranker(router), cache)

	// 6. Memory store and retention loop
	memStore := memory.NewStore(dbClient.Pool(), embedder)
	cleanupSvc := cleanup.NewService(cfg.Cleanup, memStore)
	cleanupSvc.Start(ctx)
	defer cleanupSvc.Stop()

	// 7. Orchestrator
	agentSet := orchestrator.DefaultAgentSet(retriever, memStore)
	orch := orchestrator.New(cfg, retriever, router, agentSet, version.Full())

	// 8. HTTP server
	quota := api.NewQuota(redisClient, cfg.Budget)
	server := api.NewServer(orch, store, dbClient, quota, redisClient)
	httpServer := &http.Server{
		Addr:              ":" + httpPort,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("NewsLens started successfully")

	// 9. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 10. Graceful shutdown: stop accepting requests, let in-flight
	// commands finish up to the per-request budget.
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Budget.MaxDuration()+5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown incomplete", "error", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	slog.Info("NewsLens stopped")
}
