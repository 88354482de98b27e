package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/turtle-soup/internal/services"
	"github.com/jwebster45206/turtle-soup/internal/storage"
)

type HealthResponse struct {
	Status     string         `json:"status"`
	Timestamp  time.Time      `json:"timestamp"`
	Service    string         `json:"service"`
	Components map[string]any `json:"components"`
}

type HealthHandler struct {
	storage    storage.Storage
	llmService services.LLMService
	model      string
	logger     *slog.Logger
}

func NewHealthHandler(store storage.Storage, llmService services.LLMService, model string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		storage:    store,
		llmService: llmService,
		model:      model,
		logger:     logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]any)
	overallStatus := "healthy"

	if err := h.storage.Ping(ctx); err != nil {
		h.logger.Warn("Storage health check failed", "error", err)
		components["storage"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["storage"] = "healthy"
	}

	llm := map[string]any{"model": h.model, "status": "healthy"}
	if ready, err := h.llmService.IsModelReady(ctx, h.model); err != nil || !ready {
		h.logger.Warn("LLM health check failed", "model", h.model, "error", err)
		llm["status"] = "unhealthy"
		overallStatus = "degraded"
	}
	components["llm"] = llm

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, h.logger, statusCode, HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "turtle-soup",
		Components: components,
	})
}
