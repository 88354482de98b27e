package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jwebster45206/turtle-soup/internal/engine"
	"github.com/jwebster45206/turtle-soup/internal/storage"
	"github.com/jwebster45206/turtle-soup/pkg/chat"
	"github.com/jwebster45206/turtle-soup/pkg/puzzle"
	"github.com/jwebster45206/turtle-soup/pkg/state"
)

// CreateGameRequest is the body of POST /v1/games.
type CreateGameRequest struct {
	Tags       []string `json:"tags"`
	Difficulty string   `json:"difficulty,omitempty"`
}

// GameCreatedEvent opens a generation stream.
type GameCreatedEvent struct {
	GameID     uuid.UUID         `json:"game_id"`
	Tags       []string          `json:"tags"`
	Difficulty puzzle.Difficulty `json:"difficulty"`
	TurnsMax   int               `json:"turns_max"`
	HintsMax   int               `json:"hints_max"`
}

// GamesHandler serves the game lifecycle on top of an engine.
type GamesHandler struct {
	engine *engine.Engine
	events *EventsHandler
	logger *slog.Logger
}

func NewGamesHandler(e *engine.Engine, logger *slog.Logger) *GamesHandler {
	return &GamesHandler{engine: e, logger: logger}
}

// WithEvents adds the live event stream at /{id}/events.
func (h *GamesHandler) WithEvents(events *EventsHandler) *GamesHandler {
	h.events = events
	return h
}

// Routes mounts under /v1/games.
func (h *GamesHandler) Routes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/export.csv", h.handleExport)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleRead)
		r.Delete("/", h.handleDelete)
		r.Post("/ask", h.handleTurn(chat.ModeAsk))
		r.Post("/guess", h.handleTurn(chat.ModeGuess))
		r.Post("/hint", h.handleHint)
		r.Post("/settle", h.handleSettle)
		r.Post("/quit", h.handleQuit)
		r.Post("/retry", h.handleRetry)
		if h.events != nil {
			r.Method(http.MethodGet, "/events", h.events)
		}
	})
}

func gameID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid game ID format", errBadRequest)
	}
	return id, nil
}

// handleCreate validates the request, then streams the generation as SSE:
// created, chunk, phase, title, and finally done or error.
func (h *GamesHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid create request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	difficulty, err := puzzle.ParseDifficulty(req.Difficulty)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	gs, err := state.NewGameState(req.Tags, difficulty)
	if err != nil {
		fail(w, h.logger, err)
		return
	}

	sse := startSSE(w, h.logger)
	sse.send("created", GameCreatedEvent{
		GameID:     gs.ID,
		Tags:       gs.Tags,
		Difficulty: gs.Difficulty,
		TurnsMax:   gs.TurnsMax,
		HintsMax:   gs.HintsMax,
	})

	open := true
	err = h.engine.Generate(r.Context(), gs, func(ev engine.Event) {
		if open {
			open = sse.send(string(ev.Kind), ev)
		}
	})
	if err != nil {
		h.logger.Warn("Generation failed", "game_id", gs.ID, "error", err)
		sse.send("error", ErrorResponse{Error: err.Error()})
		return
	}
	sse.send("done", gs.View())
}

func (h *GamesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	games, err := h.engine.Games(r.Context())
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	summaries := make([]state.Summary, 0, len(games))
	for _, gs := range games {
		summaries = append(summaries, gs.Summarize())
	}
	writeJSON(w, h.logger, http.StatusOK, summaries)
}

func (h *GamesHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	games, err := h.engine.Games(r.Context())
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="turtle-soup-history.csv"`)
	if err := storage.ExportCSV(w, games); err != nil {
		h.logger.Error("Failed to export history", "error", err)
	}
}

func (h *GamesHandler) handleRead(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	gs, err := h.engine.Game(r.Context(), id)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, gs.View())
}

func (h *GamesHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	if err := h.engine.Delete(r.Context(), id); err != nil {
		fail(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GamesHandler) handleTurn(mode string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := gameID(r)
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		var req chat.TurnRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}

		var res *engine.TurnResult
		if mode == chat.ModeGuess {
			res, err = h.engine.Guess(r.Context(), id, req.Message)
		} else {
			res, err = h.engine.Ask(r.Context(), id, req.Message)
		}
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, res)
	}
}

func (h *GamesHandler) handleRetry(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	res, err := h.engine.Retry(r.Context(), id)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, res)
}

func (h *GamesHandler) handleHint(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	res, err := h.engine.Hint(r.Context(), id)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, res)
}

func (h *GamesHandler) handleSettle(w http.ResponseWriter, r *http.Request) {
	h.handleEnd(w, r, h.engine.Settle)
}

func (h *GamesHandler) handleQuit(w http.ResponseWriter, r *http.Request) {
	h.handleEnd(w, r, h.engine.Quit)
}

func (h *GamesHandler) handleEnd(w http.ResponseWriter, r *http.Request, end func(ctx context.Context, id uuid.UUID) (*state.GameState, error)) {
	id, err := gameID(r)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	gs, err := end(r.Context(), id)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, gs.View())
}
