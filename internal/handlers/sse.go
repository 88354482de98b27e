package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// keepaliveInterval is how often an idle SSE stream sends a comment line.
const keepaliveInterval = 30 * time.Second

type sseWriter struct {
	w      http.ResponseWriter
	logger *slog.Logger
}

// startSSE sets the event-stream headers and flushes them.
func startSSE(w http.ResponseWriter, logger *slog.Logger) *sseWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	s := &sseWriter{w: w, logger: logger}
	s.flush()
	return s
}

// send writes one Server-Sent Event. It returns false once the client is gone.
func (s *sseWriter) send(eventType string, data any) bool {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("Failed to marshal SSE data", "error", err)
		return true
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, dataJSON); err != nil {
		s.logger.Debug("Failed to write SSE event", "error", err)
		return false
	}
	s.flush()
	return true
}

func (s *sseWriter) keepalive() bool {
	if _, err := fmt.Fprint(s.w, ": keepalive\n\n"); err != nil {
		s.logger.Debug("Failed to write keepalive", "error", err)
		return false
	}
	s.flush()
	return true
}

func (s *sseWriter) flush() {
	if flusher, ok := s.w.(http.Flusher); ok {
		flusher.Flush()
	}
}
