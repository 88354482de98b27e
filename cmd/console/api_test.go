package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(events chan SSEEvent) []SSEEvent {
	close(events)
	var out []SSEEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestReadSSE(t *testing.T) {
	stream := strings.Join([]string{
		"event: created",
		`data: {"game_id":"x"}`,
		"",
		": keepalive",
		"",
		"event: chunk",
		`data: {"kind":"chunk","text":"hi"}`,
		"",
		"event: done",
		"data: {}",
		// no closing blank line: the last event is incomplete
	}, "\n")

	events := make(chan SSEEvent, 10)
	require.NoError(t, readSSE(context.Background(), strings.NewReader(stream), events))
	got := collect(events)
	require.Len(t, got, 2)
	assert.Equal(t, "created", got[0].Type)
	assert.JSONEq(t, `{"game_id":"x"}`, string(got[0].Data))
	assert.Equal(t, "chunk", got[1].Type)
}

func TestReadSSE_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := readSSE(ctx, strings.NewReader("event: chunk\ndata: {}\n\n"), make(chan SSEEvent))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAPIClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/v1/tags":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		default:
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"no turns left"}`))
		}
	}))
	defer srv.Close()

	api := NewAPIClient(srv.URL+"/", srv.Client())
	assert.True(t, api.testConnection())

	_, err := api.turn(uuid.New(), "ask", "Was it night?")
	require.Error(t, err)
	assert.Equal(t, "no turns left", err.Error())

	_, err = api.sampleTags(5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestAPIClient_Turn(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/games/"+id.String()+"/guess", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "He was a diver", body["message"])
		_, _ = fmt.Fprintf(w, `{"mode":"guess","game":{"id":%q,"status":"active","turns_used":3}}`, id)
	}))
	defer srv.Close()

	res, err := NewAPIClient(srv.URL, srv.Client()).turn(id, "guess", "He was a diver")
	require.NoError(t, err)
	assert.Equal(t, "guess", res.Mode)
	assert.Equal(t, id, res.Game.ID)
	assert.Equal(t, 3, res.Game.TurnsUsed)
}

func TestAPIClient_CreateGame(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Tags       []string `json:"tags"`
			Difficulty string   `json:"difficulty"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Difficulty == "impossible" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"unknown difficulty"}`))
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprintf(w, "event: created\ndata: {\"tags\":%q}\n\n", body.Tags[0])
		_, _ = fmt.Fprint(w, "event: done\ndata: {}\n\n")
	}))
	defer srv.Close()
	api := NewAPIClient(srv.URL, srv.Client())

	events := make(chan SSEEvent, 10)
	require.NoError(t, api.createGame(context.Background(), []string{"lighthouse"}, "hard", events))
	got := collect(events)
	require.Len(t, got, 2)
	assert.JSONEq(t, `{"tags":"lighthouse"}`, string(got[0].Data))
	assert.Equal(t, "done", got[1].Type)

	err := api.createGame(context.Background(), []string{"x"}, "impossible", make(chan SSEEvent, 1))
	require.Error(t, err)
	assert.Equal(t, "unknown difficulty", err.Error())
}
