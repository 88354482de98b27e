package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jwebster45206/turtle-soup/internal/middleware"
)

// Routes holds the handlers of the API. Events is optional: the live event
// stream needs a Redis broker.
type Routes struct {
	Health *HealthHandler
	Tags   *TagsHandler
	Models *ModelsHandler
	Games  *GamesHandler
	Events *EventsHandler
}

// NewRouter wires the API routes and middleware.
func NewRouter(rt Routes, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// set before mounting so subrouters inherit them
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, logger, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, logger, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Method(http.MethodGet, "/health", rt.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Method(http.MethodGet, "/tags", rt.Tags)
		r.Route("/models", rt.Models.Routes)
		r.Route("/games", rt.Games.WithEvents(rt.Events).Routes)
	})

	return r
}
