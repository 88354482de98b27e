package handlers

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jwebster45206/turtle-soup/internal/services"
	"github.com/jwebster45206/turtle-soup/pkg/tags"
)

// TagsHandler serves random samples of the tag catalog.
type TagsHandler struct {
	catalog []tags.Tag
	logger  *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewTagsHandler(catalog []tags.Tag, rng *rand.Rand, logger *slog.Logger) *TagsHandler {
	return &TagsHandler{catalog: catalog, rng: rng, logger: logger}
}

// ServeHTTP handles GET /v1/tags?n=25
func (h *TagsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := tags.DefaultSampleSize
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, h.logger, http.StatusBadRequest, "n must be a positive integer")
			return
		}
		n = v
	}

	h.mu.Lock()
	sample := tags.Sample(h.rng, h.catalog, n)
	h.mu.Unlock()
	writeJSON(w, h.logger, http.StatusOK, sample)
}

// Prober checks a model end to end. OpenAIService implements it.
type Prober interface {
	Probe(ctx context.Context, model string) error
	ProbeThinking(ctx context.Context, model string) (bool, error)
}

var _ Prober = (*services.OpenAIService)(nil)

// ProbeResponse reports a model connection test.
type ProbeResponse struct {
	Model    string `json:"model"`
	OK       bool   `json:"ok"`
	Thinking bool   `json:"thinking"`
	Error    string `json:"error,omitempty"`
}

// ModelsHandler lists and probes the models the LLM endpoint offers.
type ModelsHandler struct {
	llm    services.LLMService
	logger *slog.Logger
}

func NewModelsHandler(llm services.LLMService, logger *slog.Logger) *ModelsHandler {
	return &ModelsHandler{llm: llm, logger: logger}
}

func (h *ModelsHandler) Routes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/probe", h.handleProbe)
}

// handleList handles GET /v1/models?q=
func (h *ModelsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	models, err := h.llm.ListModels(ctx)
	if err != nil {
		h.logger.Warn("Failed to list models", "error", err)
		writeError(w, h.logger, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, h.logger, http.StatusOK, services.FilterModels(models, r.URL.Query().Get("q")))
}

// handleProbe handles POST /v1/models/probe?model=. Model names may contain
// slashes, so the name travels in the query. A failed probe is a normal 200
// answer with ok=false.
func (h *ModelsHandler) handleProbe(w http.ResponseWriter, r *http.Request) {
	prober, ok := h.llm.(Prober)
	if !ok {
		writeError(w, h.logger, http.StatusNotImplemented, "Model probing is not supported by this LLM service")
		return
	}
	model := r.URL.Query().Get("model")
	if model == "" {
		writeError(w, h.logger, http.StatusBadRequest, "model is required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	resp := ProbeResponse{Model: model}
	if err := prober.Probe(ctx, model); err != nil {
		resp.Error = err.Error()
		writeJSON(w, h.logger, http.StatusOK, resp)
		return
	}
	resp.OK = true
	thinking, err := prober.ProbeThinking(ctx, model)
	if err != nil {
		h.logger.Debug("Thinking probe failed", "model", model, "error", err)
	}
	resp.Thinking = thinking
	writeJSON(w, h.logger, http.StatusOK, resp)
}
