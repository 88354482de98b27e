package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/turtle-soup/internal/engine"
	"github.com/jwebster45206/turtle-soup/pkg/chat"
	"github.com/jwebster45206/turtle-soup/pkg/puzzle"
	"github.com/jwebster45206/turtle-soup/pkg/state"
	"github.com/muesli/reflow/wordwrap"
)

const helpText = `
Commands:
• Tab - Switch between asking and guessing
• /hint - Spend a hint
• /settle - End now with your best guess score
• /quit - Give up and reveal the answer
• /retry - Resend an unanswered turn
• /answer - Copy the answer (finished games)
• /history - Past games
• /new - Back to the topic field
`

type turnMsg struct {
	result *engine.TurnResult
	err    error
}

type hintMsg struct {
	result *engine.HintResult
	err    error
}

type endMsg struct {
	game *state.GameState
	err  error
}

func (m ConsoleUI) startPlay(gs *state.GameState) (tea.Model, tea.Cmd) {
	m.screen = screenPlay
	m.game = gs
	m.mode = chat.ModeAsk
	m.lastGuess = nil
	m.err = nil
	m.notice = ""
	m.loading = false
	m.textarea.Reset()
	m.textarea.Placeholder = PlaceHolderAsk
	m.textarea.Focus()
	m.resize()
	return m, textarea.Blink
}

func (m ConsoleUI) updatePlay(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case frameMsg:
		return m, frameTick()

	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		return m, vpCmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyTab:
			m.toggleMode()
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}
			if m.game.Status != state.StatusActive {
				m.notice = "This game is over. Type /new for another one."
				m.writeChatContent()
				return m, nil
			}

			m.textarea.Reset()
			m.startLoading()
			return m, tea.Batch(m.sendTurn(m.mode, input), progressTick())
		}

	case turnMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.notice = "Type /retry to resend once the referee is back."
		} else {
			m.setGame(msg.result.Game)
			m.lastGuess = msg.result.Guess
			m.turnNotice(msg.result)
		}
		m.writeChatContent()
		return m, nil

	case hintMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.setGame(msg.result.Game)
		}
		m.writeChatContent()
		return m, nil

	case endMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.setGame(msg.game)
			m.notice = "Type /answer to copy the answer, or /new for another puzzle."
		}
		m.writeChatContent()
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

func (m *ConsoleUI) toggleMode() {
	if m.mode == chat.ModeAsk {
		m.mode = chat.ModeGuess
		m.textarea.Placeholder = PlaceHolderGuess
	} else {
		m.mode = chat.ModeAsk
		m.textarea.Placeholder = PlaceHolderAsk
	}
	m.metaViewport.SetContent(writeMetadata(m.game, m.mode))
}

func (m *ConsoleUI) startLoading() {
	m.loading = true
	m.progressTick = 0
	m.err = nil
	m.notice = ""
	m.writeChatContent()
}

func (m *ConsoleUI) setGame(gs *state.GameState) {
	if gs == nil {
		return
	}
	m.game = gs
	m.err = nil
	m.metaViewport.SetContent(writeMetadata(m.game, m.mode))
}

func (m *ConsoleUI) turnNotice(r *engine.TurnResult) {
	m.notice = ""
	switch {
	case r.Game.Status == state.StatusCompleted && r.Game.Success:
		m.notice = fmt.Sprintf("Solved! Rank %s, score %d.", r.Game.Rank, r.Game.FinalScore)
	case r.Game.Status == state.StatusCompleted:
		m.notice = "Out of turns. The answer is revealed below."
	case r.Guess != nil && r.Guess.ShowSettlePrompt:
		m.notice = fmt.Sprintf("Score %d or better unlocks /settle: end now and keep a share of the points.", puzzle.SettleThreshold)
	case r.Game.LastFailed:
		m.notice = "The referee did not answer. Type /retry to resend without spending a turn."
	}
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd := strings.ToLower(strings.TrimSpace(input))
	m.textarea.Reset()
	m.err = nil
	m.notice = ""

	switch cmd {
	case "/help":
		m.notice = helpText
	case "/hint":
		m.startLoading()
		return m, tea.Batch(m.requestHint(), progressTick())
	case "/settle", "/quit":
		m.startLoading()
		return m, tea.Batch(m.endGame(strings.TrimPrefix(cmd, "/")), progressTick())
	case "/retry":
		m.startLoading()
		return m, tea.Batch(m.retryTurn(), progressTick())
	case "/answer":
		m.copyAnswer()
	case "/history":
		return m.openHistory()
	case "/new":
		m.game = nil
		m.screen = screenHome
		m.loadingTags = true
		m.textarea.Blur()
		return m, m.loadTags()
	default:
		m.notice = fmt.Sprintf("Unknown command %s. Type /help for the list.", cmd)
	}
	m.writeChatContent()
	return m, nil
}

// copyAnswer puts the revealed answer on the system clipboard.
func (m *ConsoleUI) copyAnswer() {
	if m.game.Status != state.StatusCompleted || m.game.Puzzle == nil || m.game.Puzzle.Answer == "" {
		m.notice = "The answer is revealed once the game is over."
		return
	}
	if err := clipboard.WriteAll(m.game.Puzzle.Answer); err != nil {
		m.err = fmt.Errorf("failed to copy answer: %w", err)
		return
	}
	m.notice = "Answer copied to the clipboard."
}

func (m ConsoleUI) sendTurn(mode, message string) tea.Cmd {
	id := m.game.ID
	return func() tea.Msg {
		res, err := m.api.turn(id, mode, message)
		return turnMsg{res, err}
	}
}

func (m ConsoleUI) retryTurn() tea.Cmd {
	id := m.game.ID
	return func() tea.Msg {
		res, err := m.api.retry(id)
		return turnMsg{res, err}
	}
}

func (m ConsoleUI) requestHint() tea.Cmd {
	id := m.game.ID
	return func() tea.Msg {
		res, err := m.api.hint(id)
		return hintMsg{res, err}
	}
}

func (m ConsoleUI) endGame(action string) tea.Cmd {
	id := m.game.ID
	return func() tea.Msg {
		gs, err := m.api.end(id, action)
		return endMsg{gs, err}
	}
}

// writeChatContent builds the transcript for the current viewport width.
func (m *ConsoleUI) writeChatContent() {
	if m.game == nil {
		return
	}
	chatWidth := max(10, m.chatViewport.Width-6)
	var content strings.Builder

	title := m.game.Title()
	if m.game.Puzzle != nil && m.game.Puzzle.Emoji != "" {
		title = m.game.Puzzle.Emoji + " " + title
	}
	content.WriteString(titleStyle.Render(title) + "\n\n")
	if m.game.Puzzle != nil {
		content.WriteString(wordwrap.String(m.game.Puzzle.Puzzle, chatWidth) + "\n\n")
	}
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth)) + "\n\n")

	for _, msg := range m.game.History {
		content.WriteString(formatMessage(msg, chatWidth) + "\n\n")
	}

	if m.lastGuess != nil && len(m.lastGuess.Spans) > 0 {
		content.WriteString(promptStyle.Render("Your last guess:") + "\n")
		content.WriteString(wordwrap.String(renderSpans(m.lastGuess.Spans), chatWidth) + "\n\n")
	}

	if m.game.Status == state.StatusCompleted {
		content.WriteString(writeReveal(m.game, chatWidth))
	}

	if m.loading {
		content.WriteString(m.renderProgressBar() + "\n")
	}
	if m.notice != "" {
		content.WriteString(loadingStyle.Render(wordwrap.String(m.notice, chatWidth)) + "\n")
	}
	if m.err != nil {
		content.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func formatMessage(msg chat.ChatMessage, width int) string {
	switch {
	case msg.Role == chat.ChatRoleUser && strings.HasPrefix(msg.Content, state.GuessPrefix):
		return userStyle.Render("You guess: ") + wordwrap.String(strings.TrimPrefix(msg.Content, state.GuessPrefix), width-11)
	case msg.Role == chat.ChatRoleUser:
		return userStyle.Render("You ask: ") + wordwrap.String(strings.TrimPrefix(msg.Content, state.AskPrefix), width-9)
	case strings.HasPrefix(msg.Content, state.HintPrefix):
		return hintStyle.Render(wordwrap.String(msg.Content, width))
	default:
		return refereeStyle.Render("Referee: ") + wordwrap.String(msg.Content, width-9)
	}
}

// renderSpans colours a judged guess: matched runs green, wrong runs struck
// through in red.
func renderSpans(spans []puzzle.Span) string {
	var b strings.Builder
	for _, s := range spans {
		switch s.Kind {
		case puzzle.SpanMatched:
			b.WriteString(matchedStyle.Render(s.Text))
		case puzzle.SpanWrong:
			b.WriteString(wrongStyle.Render(s.Text))
		default:
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

func writeReveal(gs *state.GameState, width int) string {
	var content strings.Builder
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")
	if gs.Success {
		content.WriteString(titleStyle.Render(fmt.Sprintf("RANK %s  •  %d points", gs.Rank, gs.FinalScore)) + "\n\n")
	} else {
		content.WriteString(errorStyle.Render(fmt.Sprintf("RANK %s", gs.Rank)) + "\n\n")
	}
	if gs.Puzzle == nil {
		return content.String()
	}
	content.WriteString(titleStyle.Render("The truth") + "\n")
	content.WriteString(wordwrap.String(gs.Puzzle.Answer, width) + "\n\n")
	if len(gs.Puzzle.KeyPoints) > 0 {
		content.WriteString(titleStyle.Render("Key points") + "\n")
		for _, kp := range gs.Puzzle.KeyPoints {
			mark := "○"
			if slices.Contains(gs.FoundPoints, kp) {
				mark = "●"
			}
			content.WriteString(wordwrap.String(mark+" "+kp, width) + "\n")
		}
		content.WriteString("\n")
	}
	return content.String()
}

func writeMetadata(gs *state.GameState, mode string) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("GAME") + "\n\n")

	content.WriteString("Game ID:\n")
	content.WriteString(gs.ID.String()[:8] + "...\n\n")

	content.WriteString("Topics:\n")
	content.WriteString(strings.Join(gs.Tags, "\n") + "\n\n")

	content.WriteString("Difficulty:\n")
	content.WriteString(string(gs.Difficulty) + "\n\n")

	content.WriteString("Turns:\n")
	if left := gs.TurnsLeft(); left < 0 {
		content.WriteString(fmt.Sprintf("%d used, unlimited\n\n", gs.TurnsUsed))
	} else {
		content.WriteString(fmt.Sprintf("%d left of %d\n\n", left, gs.TurnsMax))
	}

	content.WriteString("Hints:\n")
	if left := gs.HintsLeft(); left < 0 {
		content.WriteString("unlimited\n\n")
	} else {
		content.WriteString(fmt.Sprintf("%d left\n\n", left))
	}

	content.WriteString("Key points found:\n")
	content.WriteString(fmt.Sprintf("%d\n\n", len(gs.FoundPoints)))

	content.WriteString("Best guess:\n")
	content.WriteString(fmt.Sprintf("%d\n\n", gs.HighestScore))

	content.WriteString("Mode:\n")
	modeStyle := userStyle
	if mode == chat.ModeGuess {
		modeStyle = hintStyle
	}
	content.WriteString(modeStyle.Render(strings.ToUpper(mode)) + "\n\n")

	content.WriteString("Commands:\n")
	content.WriteString("• Tab: Ask/Guess\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• Esc: Quit\n")

	return content.String()
}

func (m ConsoleUI) viewPlay() string {
	chatWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(0, chatWidth-4))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(max(1, metaWidth)).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}
