package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/jwebster45206/turtle-soup/internal/engine"
	"github.com/jwebster45206/turtle-soup/pkg/phase"
	"github.com/jwebster45206/turtle-soup/pkg/state"
)

var errStreamEnded = errors.New("generation stream ended before the puzzle was ready")

// generation is one running create-game stream. Everything it produces,
// stream events and sequencer callbacks alike, arrives through msgs.
type generation struct {
	ctx    context.Context
	cancel context.CancelFunc
	msgs   chan tea.Msg
	done   *state.GameState
	err    error
}

func (g *generation) send(msg tea.Msg) {
	select {
	case g.msgs <- msg:
	case <-g.ctx.Done():
	}
}

// next waits for the generation's next message.
func (g *generation) next() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-g.msgs:
			return msg
		case <-g.ctx.Done():
			return nil
		}
	}
}

type sseMsg SSEEvent

type streamEndMsg struct{ err error }

type phaseMsg phase.State

type generatedMsg struct{}

func (m ConsoleUI) startGeneration(selection []string) (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(context.Background())
	g := &generation{ctx: ctx, cancel: cancel, msgs: make(chan tea.Msg, 64)}

	m.gen = g
	m.screen = screenGenerating
	m.err = nil
	m.notice = ""
	m.genTitle = ""
	m.genGameID = ""
	m.tw.Reset()
	m.track.reset()
	m.seq.Reset()
	m.seq.OnChange(func(s phase.State) { g.send(phaseMsg(s)) })

	api, difficulty := m.api, string(m.difficulty)
	go func() {
		events := make(chan SSEEvent)
		errc := make(chan error, 1)
		go func() { errc <- api.createGame(ctx, selection, difficulty, events) }()
		for {
			select {
			case ev := <-events:
				g.send(sseMsg(ev))
			case err := <-errc:
				g.send(streamEndMsg{err})
				return
			}
		}
	}()

	return m, g.next()
}

// stopGeneration abandons a running stream.
func (m *ConsoleUI) stopGeneration() {
	if m.gen != nil {
		m.gen.cancel()
		m.gen = nil
	}
	m.seq.OnChange(nil)
	m.seq.Reset()
}

func (m ConsoleUI) updateGenerating(msg tea.Msg) (tea.Model, tea.Cmd) {
	g := m.gen
	switch msg := msg.(type) {
	case frameMsg:
		m.tw.Tick()
		m.track.step()
		return m, frameTick()

	case sseMsg:
		if g == nil {
			return m, nil
		}
		m.handleStreamEvent(SSEEvent(msg))
		return m, g.next()

	case phaseMsg:
		if g == nil {
			return m, nil
		}
		m.track.setTarget(msg.Index)
		return m, g.next()

	case streamEndMsg:
		if g == nil {
			return m, nil
		}
		if g.err == nil && g.done == nil {
			g.err = msg.err
			if g.err == nil {
				g.err = errStreamEnded
			}
		}
		if g.err != nil {
			m.err = g.err
			m.seq.Reset()
		}
		return m, g.next()

	case generatedMsg:
		if g == nil || g.done == nil {
			return m, nil
		}
		game := g.done
		m.stopGeneration()
		return m.startPlay(game)

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc || (m.err != nil && msg.Type == tea.KeyEnter) {
			m.stopGeneration()
			m.screen = screenHome
			m.err = nil
			return m, nil
		}
	}
	return m, nil
}

// handleStreamEvent applies one create-game event.
func (m *ConsoleUI) handleStreamEvent(ev SSEEvent) {
	g := m.gen
	switch ev.Type {
	case "created":
		var created struct {
			GameID uuid.UUID `json:"game_id"`
		}
		if json.Unmarshal(ev.Data, &created) == nil {
			m.genGameID = created.GameID.String()
		}
	case "chunk":
		var e engine.Event
		if json.Unmarshal(ev.Data, &e) == nil {
			m.tw.Push(e.Text)
		}
	case "phase":
		var e engine.Event
		if json.Unmarshal(ev.Data, &e) == nil {
			m.seq.Request(e.Phase)
		}
	case "title":
		var e engine.Event
		if json.Unmarshal(ev.Data, &e) == nil {
			m.genTitle = strings.TrimSpace(e.Emoji + " " + e.Title)
		}
	case "error":
		var resp ErrorResponse
		if json.Unmarshal(ev.Data, &resp) != nil || resp.Error == "" {
			resp.Error = "generation failed"
		}
		g.err = errors.New(resp.Error)
	case "done":
		var gs state.GameState
		if err := json.Unmarshal(ev.Data, &gs); err != nil {
			g.err = err
			return
		}
		g.done = &gs
		// the play screen opens once every reported phase has had its turn
		m.seq.WaitAndFinish(func() { g.send(generatedMsg{}) })
	}
}

func (m ConsoleUI) viewGenerating() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("BREWING A NEW SOUP"))
	content.WriteString("\n\n")
	content.WriteString(m.track.View())
	content.WriteString("\n\n")

	if m.genTitle != "" {
		content.WriteString(titleStyle.Render(m.genTitle))
		content.WriteString("\n\n")
	}
	if m.genGameID != "" {
		content.WriteString(promptStyle.Render("game " + m.genGameID))
		content.WriteString("\n")
	}

	lineWidth := max(10, min(m.width-8, 100))
	text := m.tw.Text()
	if w := textWidth(text); w > lineWidth {
		// keep the newest text in view
		runes := []rune(text)
		for textWidth(string(runes)) > lineWidth {
			runes = runes[1:]
		}
		text = string(runes)
	}
	content.WriteString(promptStyle.Render(text))
	content.WriteString("\n\n")

	if m.err != nil {
		content.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		content.WriteString("\n\n")
		content.WriteString(promptStyle.Render("Press Enter to return home"))
	} else {
		content.WriteString(promptStyle.Render("Esc: cancel"))
	}

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		modalStyle.Width(min(m.width-4, 110)).Render(content.String()))
}
