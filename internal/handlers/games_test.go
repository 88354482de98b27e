package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/turtle-soup/internal/engine"
	"github.com/jwebster45206/turtle-soup/internal/services"
	"github.com/jwebster45206/turtle-soup/internal/services/events"
	"github.com/jwebster45206/turtle-soup/internal/storage"
	"github.com/jwebster45206/turtle-soup/pkg/puzzle"
	"github.com/jwebster45206/turtle-soup/pkg/state"
	"github.com/jwebster45206/turtle-soup/pkg/tags"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const puzzleDoc = `{"emoji": "🌊", "title": "The Dark Tower", "puzzle": "A man turned off a switch.", "answer": "He kept a lighthouse.", "key_points": ["lighthouse", "ship"]}`

type testAPI struct {
	handler http.Handler
	llm     *services.MockLLMAPI
	store   *storage.MockStorage
}

func newTestAPI(t *testing.T, rt func(*Routes)) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	api := &testAPI{llm: services.NewMockLLMAPI(), store: storage.NewMockStorage()}
	eng := engine.New(api.llm, api.store, "story-model", "fast-model", logger)

	routes := Routes{
		Health: NewHealthHandler(api.store, api.llm, "story-model", logger),
		Tags:   NewTagsHandler(tags.Default(), rand.New(rand.NewPCG(1, 2)), logger),
		Models: NewModelsHandler(api.llm, logger),
		Games:  NewGamesHandler(eng, logger),
	}
	if rt != nil {
		rt(&routes)
	}
	api.handler = NewRouter(routes, logger)
	return api
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func (a *testAPI) activeGame(t *testing.T, d puzzle.Difficulty) uuid.UUID {
	t.Helper()
	gs, err := state.NewGameState([]string{"Sea"}, d)
	require.NoError(t, err)
	p, err := puzzle.Parse(puzzleDoc)
	require.NoError(t, err)
	gs.Activate(p)
	require.NoError(t, a.store.SaveGame(context.Background(), gs))
	return gs.ID
}

type sseEvent struct {
	name string
	data string
}

func readSSE(t *testing.T, r io.Reader, limit int) []sseEvent {
	t.Helper()
	var out []sseEvent
	var cur sseEvent
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		case line == "" && cur.name != "":
			out = append(out, cur)
			cur = sseEvent{}
			if limit > 0 && len(out) >= limit {
				return out
			}
		}
	}
	return out
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp.Error
}

func TestGamesHandler_CreateStreamsGeneration(t *testing.T) {
	api := newTestAPI(t, nil)
	api.llm.ScriptChunks(puzzleDoc[:40], puzzleDoc[40:])

	rr := api.do(t, http.MethodPost, "/v1/games", `{"tags": ["Sea", "Night"], "difficulty": "hard"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))

	evs := readSSE(t, rr.Body, 0)
	require.NotEmpty(t, evs)
	assert.Equal(t, "created", evs[0].name)
	assert.Equal(t, "done", evs[len(evs)-1].name)

	var created GameCreatedEvent
	require.NoError(t, json.Unmarshal([]byte(evs[0].data), &created))
	assert.Equal(t, puzzle.Hard, created.Difficulty)
	assert.Equal(t, 25, created.TurnsMax)

	counts := map[string]int{}
	for _, ev := range evs {
		counts[ev.name]++
	}
	assert.Equal(t, 2, counts["chunk"])
	assert.Equal(t, 4, counts["phase"])
	assert.Equal(t, 1, counts["title"])

	var done state.GameState
	require.NoError(t, json.Unmarshal([]byte(evs[len(evs)-1].data), &done))
	assert.Equal(t, created.GameID, done.ID)
	assert.Equal(t, state.StatusActive, done.Status)
	assert.Empty(t, done.Puzzle.Answer)

	saved, err := api.store.LoadGame(context.Background(), created.GameID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "He kept a lighthouse.", saved.Puzzle.Answer)
}

func TestGamesHandler_CreateFailures(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"invalid json", `{"tags": `, http.StatusBadRequest},
		{"no tags", `{"tags": []}`, http.StatusBadRequest},
		{"too many tags", `{"tags": ["a", "b", "c", "d", "e"]}`, http.StatusBadRequest},
		{"unknown difficulty", `{"tags": ["a"], "difficulty": "nightmare"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, nil)
			rr := api.do(t, http.MethodPost, "/v1/games", tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.NotEmpty(t, errorBody(t, rr))
			assert.Empty(t, api.llm.GetCalls())
		})
	}
}

func TestGamesHandler_CreateBadDocument(t *testing.T) {
	api := newTestAPI(t, nil)
	api.llm.Script(`{"title": "Half"}`)

	rr := api.do(t, http.MethodPost, "/v1/games", `{"tags": ["Sea"]}`)
	evs := readSSE(t, rr.Body, 0)
	require.NotEmpty(t, evs)
	last := evs[len(evs)-1]
	assert.Equal(t, "error", last.name)
	assert.Contains(t, last.data, "malformed")
	assert.Equal(t, 0, api.store.Saves())
}

func TestGamesHandler_Turns(t *testing.T) {
	api := newTestAPI(t, nil)
	id := api.activeGame(t, puzzle.Normal)
	base := "/v1/games/" + id.String()

	api.llm.Script(`{"res": "no"}`)
	rr := api.do(t, http.MethodPost, base+"/ask", `{"message": "Was he a sailor?"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var ask engine.TurnResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&ask))
	assert.Equal(t, puzzle.VerdictNo, ask.Verdict)
	assert.Equal(t, 1, ask.Game.TurnsUsed)

	api.llm.Script(`{"matched_segments": ["lighthouse"], "wrong_segments": [], "achieved_points": ["lighthouse", "ship"], "comment": "Solved!"}`)
	rr = api.do(t, http.MethodPost, base+"/guess", `{"message": "He ran a lighthouse and a ship sank."}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var guess engine.TurnResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&guess))
	require.NotNil(t, guess.Guess)
	assert.True(t, guess.Guess.Solved)
	assert.Equal(t, state.StatusCompleted, guess.Game.Status)
	assert.Equal(t, "He kept a lighthouse.", guess.Game.Puzzle.Answer)

	rr = api.do(t, http.MethodPost, base+"/ask", `{"message": "Again?"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "game is not active", errorBody(t, rr))
}

func TestGamesHandler_ErrorStatuses(t *testing.T) {
	api := newTestAPI(t, nil)
	id := api.activeGame(t, puzzle.Hard)
	base := "/v1/games/" + id.String()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		setup      func()
		wantStatus int
	}{
		{"invalid id", http.MethodGet, "/v1/games/not-a-uuid", "", nil, http.StatusBadRequest},
		{"unknown game", http.MethodGet, "/v1/games/" + uuid.NewString(), "", nil, http.StatusNotFound},
		{"empty message", http.MethodPost, base + "/ask", `{"message": "  "}`, nil, http.StatusBadRequest},
		{"bad json", http.MethodPost, base + "/guess", `nope`, nil, http.StatusBadRequest},
		{"no hints on hard", http.MethodPost, base + "/hint", "", nil, http.StatusConflict},
		{"cannot settle", http.MethodPost, base + "/settle", "", nil, http.StatusConflict},
		{"nothing to retry", http.MethodPost, base + "/retry", "", nil, http.StatusConflict},
		{"upstream failure", http.MethodPost, base + "/ask", `{"message": "Was it night?"}`, func() { api.llm.Script("no json here") }, http.StatusBadGateway},
		{"method not allowed", http.MethodPut, base, "", nil, http.StatusMethodNotAllowed},
		{"unknown route", http.MethodGet, "/v2/nothing", "", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			rr := api.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.NotEmpty(t, errorBody(t, rr))
		})
	}

	// the failed ask above can now be retried
	api.llm.Script(`{"res": "yes"}`)
	rr := api.do(t, http.MethodPost, base+"/retry", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGamesHandler_HintQuitDelete(t *testing.T) {
	api := newTestAPI(t, nil)
	id := api.activeGame(t, puzzle.Easy)
	base := "/v1/games/" + id.String()

	api.llm.Script("Think about the light.")
	rr := api.do(t, http.MethodPost, base+"/hint", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var hint engine.HintResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&hint))
	assert.Equal(t, "Think about the light.", hint.Hint)

	rr = api.do(t, http.MethodPost, base+"/quit", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var gs state.GameState
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&gs))
	assert.Equal(t, puzzle.RankFail, gs.Rank)

	rr = api.do(t, http.MethodGet, "/v1/games", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []state.Summary
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "The Dark Tower", list[0].Title)

	rr = api.do(t, http.MethodGet, "/v1/games/export.csv", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), id.String())

	rr = api.do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = api.do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTagsHandler(t *testing.T) {
	api := newTestAPI(t, nil)

	rr := api.do(t, http.MethodGet, "/v1/tags", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var sample []tags.Tag
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&sample))
	assert.Len(t, sample, min(tags.DefaultSampleSize, len(tags.Default())))

	rr = api.do(t, http.MethodGet, "/v1/tags?n=3", "")
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&sample))
	assert.Len(t, sample, 3)

	rr = api.do(t, http.MethodGet, "/v1/tags?n=zero", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestModelsHandler(t *testing.T) {
	api := newTestAPI(t, nil)
	api.llm.SetListModelsResponse([]string{"Qwen/Qwen3-8B", "gpt-4o-mini", "qwen2.5-72b"})

	rr := api.do(t, http.MethodGet, "/v1/models?q=QWEN", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var models []string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&models))
	assert.Equal(t, []string{"Qwen/Qwen3-8B", "qwen2.5-72b"}, models)

	// the mock cannot probe
	rr = api.do(t, http.MethodPost, "/v1/models/probe?model=x", "")
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}

func TestModelsHandler_Probe(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"reasoning_content\":\"two\",\"content\":\"2\"}}]}\n\ndata: [DONE]\n\n")
	}))
	defer upstream.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	openai := services.NewOpenAIService(upstream.URL, "key", logger)
	r := newTestAPI(t, func(rt *Routes) { rt.Models = NewModelsHandler(openai, logger) }).handler

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/models/probe?model=Qwen/Qwen3-8B", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var resp ProbeResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "Qwen/Qwen3-8B", resp.Model)
	assert.True(t, resp.OK)
	assert.True(t, resp.Thinking)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/models/probe", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEventsHandler(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	broadcaster := events.NewBroadcaster(client, logger)

	api := newTestAPI(t, func(rt *Routes) { rt.Events = NewEventsHandler(broadcaster, logger) })
	srv := httptest.NewServer(api.handler)
	defer srv.Close()

	id := uuid.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/games/"+id.String()+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reader := bufio.NewReader(resp.Body)
	first := readSSE(t, reader, 1)
	require.Len(t, first, 1)
	assert.Equal(t, "connected", first[0].name)

	require.NoError(t, broadcaster.Publish(ctx, id, events.GameHint(2, 3)))
	next := readSSE(t, reader, 1)
	require.Len(t, next, 1)
	assert.Equal(t, string(events.EventTypeGameHint), next[0].name)
	assert.JSONEq(t, `{"hints_used": 2, "hints_left": 3}`, next[0].data)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{state.ErrInvalidTags, http.StatusBadRequest},
		{state.ErrInvalidMode, http.StatusBadRequest},
		{engine.ErrEmptyInput, http.StatusBadRequest},
		{engine.ErrGameNotFound, http.StatusNotFound},
		{state.ErrNoTurnsLeft, http.StatusConflict},
		{state.ErrNoHintsLeft, http.StatusConflict},
		{state.ErrCannotSettle, http.StatusConflict},
		{state.ErrNotActive, http.StatusConflict},
		{state.ErrNothingToRetry, http.StatusConflict},
		{engine.ErrUpstream, http.StatusBadGateway},
		{engine.ErrBadPuzzle, http.StatusBadGateway},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
