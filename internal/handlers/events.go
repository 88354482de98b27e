package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/turtle-soup/internal/services/events"
)

// Subscriber streams the events of one game.
type Subscriber interface {
	Subscribe(ctx context.Context, gameID uuid.UUID) (<-chan events.Event, func() error, error)
}

var _ Subscriber = (*events.Broadcaster)(nil)

// EventsHandler handles Server-Sent Events (SSE) for real-time game updates
type EventsHandler struct {
	subscriber Subscriber
	logger     *slog.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(subscriber Subscriber, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		subscriber: subscriber,
		logger:     logger,
	}
}

// ServeHTTP handles SSE requests for game events
// GET /v1/games/{id}/events
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		fail(w, h.logger, err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	ch, closeSub, err := h.subscriber.Subscribe(ctx, id)
	if err != nil {
		h.logger.Error("Failed to subscribe to game events", "game_id", id, "error", err)
		writeError(w, h.logger, http.StatusServiceUnavailable, "Event stream unavailable")
		return
	}
	defer func() {
		if err := closeSub(); err != nil {
			h.logger.Error("Failed to close pubsub", "error", err)
		}
	}()

	h.logger.Info("SSE connection established",
		"game_id", id.String(),
		"remote_addr", r.RemoteAddr)

	sse := startSSE(w, h.logger)
	sse.send("connected", map[string]any{
		"game_id": id.String(),
		"message": "Connected to event stream",
	})

	keepaliveTicker := time.NewTicker(keepaliveInterval)
	defer keepaliveTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("SSE client disconnected", "game_id", id.String())
			return

		case event, ok := <-ch:
			if !ok {
				return
			}
			if !sse.send(string(event.Type), event.Data) {
				return
			}

		case <-keepaliveTicker.C:
			if !sse.keepalive() {
				return
			}
		}
	}
}
