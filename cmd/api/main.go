package main

import (
	"context"
	"log"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/turtle-soup/internal/config"
	"github.com/jwebster45206/turtle-soup/internal/engine"
	"github.com/jwebster45206/turtle-soup/internal/handlers"
	"github.com/jwebster45206/turtle-soup/internal/logger"
	"github.com/jwebster45206/turtle-soup/internal/services"
	"github.com/jwebster45206/turtle-soup/internal/services/events"
	"github.com/jwebster45206/turtle-soup/internal/storage"
	"github.com/jwebster45206/turtle-soup/pkg/tags"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Turtle Soup API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_base_url", cfg.LLMBaseURL,
		"story_model", cfg.StoryModel,
		"fast_model", cfg.FastModel,
		"storage", cfg.Storage)

	catalog := tags.Default()
	if cfg.TagCatalog != "" {
		catalog, err = tags.LoadFile(cfg.TagCatalog)
		if err != nil {
			log.Error("Failed to load tag catalog", "path", cfg.TagCatalog, "error", err)
			os.Exit(1)
		}
	}
	log.Info("Tag catalog loaded", "tags", len(catalog))

	llmService := services.NewOpenAIService(cfg.LLMBaseURL, cfg.LLMAPIKey, log)

	store, broadcaster := openStorage(cfg, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	ping := store.Ping
	if rs, ok := store.(*storage.RedisStorage); ok {
		ping = rs.WaitForConnection
	}
	if err := ping(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := llmService.InitModel(ctx, cfg.StoryModel); err != nil {
		log.Error("Failed to initialize LLM model", "error", err, "model", cfg.StoryModel)
		os.Exit(1)
	}

	eng := engine.New(llmService, store, cfg.StoryModel, cfg.FastModel, log)
	routes := handlers.Routes{
		Health: handlers.NewHealthHandler(store, llmService, cfg.StoryModel, log),
		Tags:   handlers.NewTagsHandler(catalog, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), log),
		Models: handlers.NewModelsHandler(llmService, log),
		Games:  handlers.NewGamesHandler(eng, log),
	}
	if broadcaster != nil {
		eng.WithPublisher(broadcaster)
		routes.Events = handlers.NewEventsHandler(broadcaster, log)
	}

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handlers.NewRouter(routes, log),
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: generation and event streams stay open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}

// openStorage picks the history backend. Redis also provides the event
// broadcaster; SQLite runs without live events.
func openStorage(cfg *config.Config, log *slog.Logger) (storage.Storage, *events.Broadcaster) {
	switch cfg.Storage {
	case config.StorageRedis:
		rs := storage.NewRedisStorage(cfg.RedisURL, log)
		return rs, events.NewBroadcaster(rs.Client(), log)
	default:
		ss, err := storage.NewSQLiteStorage(cfg.SQLitePath, log)
		if err != nil {
			log.Error("Failed to open SQLite storage", "path", cfg.SQLitePath, "error", err)
			os.Exit(1)
		}
		return ss, nil
	}
}
