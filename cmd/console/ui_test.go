package main

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/jwebster45206/turtle-soup/internal/engine"
	"github.com/jwebster45206/turtle-soup/pkg/phase"
	"github.com/jwebster45206/turtle-soup/pkg/puzzle"
	"github.com/jwebster45206/turtle-soup/pkg/state"
	"github.com/jwebster45206/turtle-soup/pkg/tags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUI(t *testing.T) ConsoleUI {
	t.Helper()
	m := NewConsoleUI(&ConsoleConfig{}, NewAPIClient("http://127.0.0.1:0", http.DefaultClient))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(ConsoleUI)
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestHome_Difficulty(t *testing.T) {
	m := newTestUI(t)
	assert.Equal(t, puzzle.Normal, m.difficulty)

	next, _ := m.Update(key("3"))
	assert.Equal(t, puzzle.Hard, next.(ConsoleUI).difficulty)
	next, _ = next.Update(key("1"))
	assert.Equal(t, puzzle.Easy, next.(ConsoleUI).difficulty)
}

func TestHome_EnterNeedsSelection(t *testing.T) {
	m := newTestUI(t)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	ui := next.(ConsoleUI)
	assert.Nil(t, cmd)
	assert.Equal(t, screenHome, ui.screen)
	assert.NotEmpty(t, ui.notice)
}

func TestHome_MouseHoverAndToggle(t *testing.T) {
	m := newTestUI(t)
	next, _ := m.Update(tagsLoadedMsg{tags: []tags.Tag{{Text: "lighthouse", Weight: 0.5}}})
	m = next.(ConsoleUI)

	b, ok := m.field.Body(0)
	require.True(t, ok)
	col := int(b.Pos.X / cellW)
	row := int(b.Pos.Y/cellH) + homeHeader

	next, _ = m.Update(tea.MouseMsg{X: col, Y: row, Action: tea.MouseActionMotion})
	m = next.(ConsoleUI)
	assert.Equal(t, 0, m.hovered)
	b, _ = m.field.Body(0)
	assert.True(t, b.Hovered)

	next, _ = m.Update(tea.MouseMsg{X: col, Y: row, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = next.(ConsoleUI)
	assert.Equal(t, []string{"lighthouse"}, m.field.Selection())

	// moving into the header releases the hover
	next, _ = m.Update(tea.MouseMsg{X: col, Y: 0, Action: tea.MouseActionMotion})
	m = next.(ConsoleUI)
	assert.Equal(t, -1, m.hovered)
	b, _ = m.field.Body(0)
	assert.False(t, b.Hovered)
}

// generatingUI puts the model on the generation screen with a manual clock
// and no network stream.
func generatingUI(t *testing.T) (ConsoleUI, *generation, *clockwork.FakeClock) {
	t.Helper()
	m := newTestUI(t)
	clock := clockwork.NewFakeClockAt(time.Unix(0, 0))
	m.seq = phase.NewSequencer(clock)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	g := &generation{ctx: ctx, cancel: cancel, msgs: make(chan tea.Msg, 64)}
	m.gen = g
	m.screen = screenGenerating
	m.seq.OnChange(func(s phase.State) { g.send(phaseMsg(s)) })
	return m, g, clock
}

func receive(t *testing.T, g *generation) tea.Msg {
	t.Helper()
	select {
	case msg := <-g.msgs:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message queued")
		return nil
	}
}

func TestGenerating_FinishesAfterPhases(t *testing.T) {
	m, g, clock := generatingUI(t)

	gs, err := state.NewGameState([]string{"lighthouse"}, puzzle.Normal)
	require.NoError(t, err)
	gs.Activate(&puzzle.Puzzle{Emoji: "🌊", Title: "The Keeper", Puzzle: "A light went out."})
	done, err := json.Marshal(gs.View())
	require.NoError(t, err)

	m.handleStreamEvent(SSEEvent{Type: "chunk", Data: json.RawMessage(`{"kind":"chunk","text":"thinking"}`)})
	m.handleStreamEvent(SSEEvent{Type: "phase", Data: json.RawMessage(`{"kind":"phase","phase":1}`)})
	clock.Advance(0)
	ph, ok := receive(t, g).(phaseMsg)
	require.True(t, ok)
	assert.Equal(t, 1, ph.Index)

	// the second phase is held for the dwell, so completion waits on it
	m.handleStreamEvent(SSEEvent{Type: "phase", Data: json.RawMessage(`{"kind":"phase","phase":2}`)})
	m.handleStreamEvent(SSEEvent{Type: "title", Data: json.RawMessage(`{"kind":"title","emoji":"🌊","title":"The Keeper"}`)})
	m.handleStreamEvent(SSEEvent{Type: "done", Data: done})

	assert.Equal(t, "🌊 The Keeper", m.genTitle)
	for m.tw.Tick() {
	}
	assert.Equal(t, "thinking", m.tw.Text())
	assert.Empty(t, g.msgs, "completion waits for the queued phase")

	clock.Advance(phase.Dwell)
	ph, ok = receive(t, g).(phaseMsg)
	require.True(t, ok)
	assert.Equal(t, 2, ph.Index)
	_, ok = receive(t, g).(generatedMsg)
	require.True(t, ok)

	next, _ := m.Update(ph)
	next, _ = next.Update(generatedMsg{})
	ui := next.(ConsoleUI)
	assert.Equal(t, screenPlay, ui.screen)
	assert.Equal(t, 2, ui.track.target)
	require.NotNil(t, ui.game)
	assert.Equal(t, "The Keeper", ui.game.Title())
	assert.Nil(t, ui.gen)
}

func TestGenerating_Error(t *testing.T) {
	m, _, _ := generatingUI(t)
	m.handleStreamEvent(SSEEvent{Type: "error", Data: json.RawMessage(`{"error":"upstream model failed"}`)})

	next, _ := m.Update(streamEndMsg{})
	ui := next.(ConsoleUI)
	require.Error(t, ui.err)
	assert.Equal(t, "upstream model failed", ui.err.Error())
	assert.Contains(t, ui.View(), "upstream model failed")

	next, _ = ui.Update(tea.KeyMsg{Type: tea.KeyEnter})
	ui = next.(ConsoleUI)
	assert.Equal(t, screenHome, ui.screen)
	assert.Nil(t, ui.gen)
	assert.NoError(t, ui.err)
}

func TestGenerating_StreamEndsEarly(t *testing.T) {
	m, _, _ := generatingUI(t)
	next, _ := m.Update(streamEndMsg{})
	assert.ErrorIs(t, next.(ConsoleUI).err, errStreamEnded)
}

func TestPlay_ToggleModeAndCommands(t *testing.T) {
	m := newTestUI(t)
	gs, err := state.NewGameState([]string{"lighthouse"}, puzzle.Normal)
	require.NoError(t, err)
	gs.Activate(&puzzle.Puzzle{Title: "The Keeper", Puzzle: "A light went out."})

	next, _ := m.startPlay(gs.View())
	m = next.(ConsoleUI)
	assert.Equal(t, "ask", m.mode)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(ConsoleUI)
	assert.Equal(t, "guess", m.mode)
	assert.Equal(t, PlaceHolderGuess, m.textarea.Placeholder)

	// the answer stays hidden while the game is running
	m.copyAnswer()
	assert.Contains(t, m.notice, "once the game is over")

	next, _ = m.handleCommand("/bogus")
	assert.Contains(t, next.(ConsoleUI).notice, "Unknown command")

	next, _ = m.handleCommand("/new")
	assert.Equal(t, screenHome, next.(ConsoleUI).screen)
}

func TestPlay_TurnResult(t *testing.T) {
	m := newTestUI(t)
	gs, err := state.NewGameState([]string{"lighthouse"}, puzzle.Hard)
	require.NoError(t, err)
	gs.Activate(&puzzle.Puzzle{Title: "The Keeper", Puzzle: "A light went out."})
	next, _ := m.startPlay(gs.View())
	m = next.(ConsoleUI)
	m.loading = true

	after := gs.View()
	after.TurnsUsed = 1
	after.CanSettle = true
	next, _ = m.Update(turnMsg{result: &engine.TurnResult{
		Mode:  "guess",
		Guess: &state.GuessOutcome{Score: 85, ShowSettlePrompt: true, Spans: []puzzle.Span{{Text: "a diver", Kind: puzzle.SpanMatched}}},
		Game:  after,
	}})
	m = next.(ConsoleUI)
	assert.False(t, m.loading)
	assert.Contains(t, m.notice, "/settle")
	assert.Equal(t, 1, m.game.TurnsUsed)
	assert.Contains(t, m.chatViewport.View(), "a diver")
}
