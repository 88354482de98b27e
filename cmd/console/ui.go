package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"
	"github.com/jwebster45206/turtle-soup/pkg/bubble"
	"github.com/jwebster45206/turtle-soup/pkg/chat"
	"github.com/jwebster45206/turtle-soup/pkg/phase"
	"github.com/jwebster45206/turtle-soup/pkg/puzzle"
	"github.com/jwebster45206/turtle-soup/pkg/state"
	"github.com/jwebster45206/turtle-soup/pkg/typewriter"
)

const (
	PlaceHolderAsk   = "Ask a yes/no question..."
	PlaceHolderGuess = "Explain what really happened..."
)

type screen int

const (
	screenHome screen = iota
	screenGenerating
	screenPlay
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config *ConsoleConfig
	api    *APIClient
	screen screen
	width  int
	height int
	err    error
	notice string

	// Home
	field       *bubble.Field
	canvas      *canvas
	hovered     int
	difficulty  puzzle.Difficulty
	loadingTags bool

	// Generation
	gen       *generation
	seq       *phase.Sequencer
	track     phaseTrack
	tw        *typewriter.Buffer
	genTitle  string
	genGameID string

	// Play
	game         *state.GameState
	mode         string
	lastGuess    *state.GuessOutcome
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	loading      bool
	progressTick int

	showQuitModal    bool
	showHistoryModal bool
	history          []state.Summary
	historyErr       error
}

type frameMsg struct{}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	refereeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")) // gold

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	matchedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("78")) // green

	wrongStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("160")). // red
			Strikethrough(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, api *APIClient) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderAsk
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:       cfg,
		api:          api,
		screen:       screenHome,
		field:        bubble.NewField(nil),
		canvas:       newCanvas(0, 0),
		hovered:      -1,
		difficulty:   puzzle.Normal,
		loadingTags:  true,
		seq:          phase.NewSequencer(clockwork.NewRealClock()),
		track:        newPhaseTrack(),
		tw:           &typewriter.Buffer{},
		mode:         chat.ModeAsk,
		textarea:     ta,
		chatViewport: chatVp,
		metaViewport: metaVp,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(m.loadTags(), frameTick())
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = size.Width
		m.height = size.Height
		m.resize()
	}

	if loaded, ok := msg.(historyLoadedMsg); ok {
		m.history, m.historyErr = loaded.games, loaded.err
		return m, nil
	}

	// modals take the keyboard; everything else keeps flowing to the screen
	if key, ok := msg.(tea.KeyMsg); ok {
		switch {
		case m.showQuitModal:
			return m.updateQuitModal(key)
		case m.showHistoryModal:
			return m.updateHistoryModal(key)
		case key.Type == tea.KeyCtrlC:
			m.showQuitModal = true
			return m, nil
		}
	}
	if _, ok := msg.(tea.MouseMsg); ok && (m.showQuitModal || m.showHistoryModal) {
		return m, nil
	}

	switch m.screen {
	case screenGenerating:
		return m.updateGenerating(msg)
	case screenPlay:
		return m.updatePlay(msg)
	default:
		return m.updateHome(msg)
	}
}

// resize lays every screen out for the current window.
func (m *ConsoleUI) resize() {
	m.canvas = newCanvas(m.width, max(0, m.height-homeChrome))

	chatWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - chatWidth - 6
	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = max(1, m.height-9)
	m.metaViewport.Width = max(1, metaWidth-2)
	m.metaViewport.Height = max(1, m.height-4)
	m.textarea.SetWidth(max(10, chatWidth-4))

	if m.game != nil {
		m.writeChatContent()
		m.metaViewport.SetContent(writeMetadata(m.game, m.mode))
	}
}

func (m ConsoleUI) updateQuitModal(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEnter:
		m.stopGeneration()
		return m, tea.Quit
	case tea.KeyEsc:
		m.showQuitModal = false
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		m.stopGeneration()
		return m, tea.Quit
	case "n", "N":
		m.showQuitModal = false
		if m.screen == screenPlay {
			m.textarea.Focus()
			return m, textarea.Blink
		}
	}
	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Leave the console? Games in progress are saved on the server.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

type historyLoadedMsg struct {
	games []state.Summary
	err   error
}

func (m ConsoleUI) loadHistory() tea.Cmd {
	return func() tea.Msg {
		games, err := m.api.listGames()
		return historyLoadedMsg{games, err}
	}
}

func (m ConsoleUI) updateHistoryModal(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc, tea.KeyEnter:
		m.showHistoryModal = false
		if m.screen == screenPlay {
			m.textarea.Focus()
		}
	case tea.KeyCtrlC:
		m.showHistoryModal = false
		m.showQuitModal = true
	}
	return m, nil
}

// openHistory shows the past-games modal and fetches its rows.
func (m ConsoleUI) openHistory() (tea.Model, tea.Cmd) {
	m.showHistoryModal = true
	m.history, m.historyErr = nil, nil
	m.textarea.Blur()
	return m, m.loadHistory()
}

func (m ConsoleUI) renderHistoryModal() string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Past Games"))
	content.WriteString("\n\n")

	switch {
	case m.historyErr != nil:
		content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to load history: %v", m.historyErr)))
	case m.history == nil:
		content.WriteString(loadingStyle.Render("Loading..."))
	case len(m.history) == 0:
		content.WriteString("No games yet.")
	default:
		limit := max(1, m.height-12)
		for i, g := range m.history {
			if i >= limit {
				content.WriteString(promptStyle.Render(fmt.Sprintf("... and %d more", len(m.history)-limit)))
				break
			}
			content.WriteString(formatSummary(g))
			content.WriteString("\n")
		}
	}

	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Esc to close"))

	modal := modalStyle.Width(min(90, max(40, m.width-4))).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func formatSummary(g state.Summary) string {
	title := g.Title
	if g.Emoji != "" {
		title = g.Emoji + " " + title
	}
	result := string(g.Status)
	if g.Status == state.StatusCompleted {
		result = fmt.Sprintf("%s %d", g.Rank, g.FinalScore)
	}
	return fmt.Sprintf("%s  %-28s %-7s %-10s %s",
		g.UpdatedAt.Format("01-02 15:04"), truncate(title, 28), g.Difficulty, result, promptStyle.Render(g.Tags))
}

func (m ConsoleUI) View() string {
	if m.width == 0 || m.height == 0 {
		return "\n  Initializing..."
	}
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.showHistoryModal {
		return m.renderHistoryModal()
	}
	switch m.screen {
	case screenGenerating:
		return m.viewGenerating()
	case screenPlay:
		return m.viewPlay()
	default:
		return m.viewHome()
	}
}

// frameTick drives the field simulation, the phase track and the typewriter.
func frameTick() tea.Cmd {
	return tea.Tick(time.Second/trackFPS, func(time.Time) tea.Msg {
		return frameMsg{}
	})
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30 // fallback before sizing
	}

	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓") // Blinking effect at the progress point
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
