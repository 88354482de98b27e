package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/turtle-soup/pkg/bubble"
	"github.com/jwebster45206/turtle-soup/pkg/puzzle"
	"github.com/jwebster45206/turtle-soup/pkg/tags"
)

// homeChrome is the rows taken by the header and footer around the field.
const (
	homeHeader = 2
	homeChrome = homeHeader + 3
)

var (
	difficultyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("205")).
			Bold(true).
			Padding(0, 1)

	difficultyIdleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Padding(0, 1)
)

type tagsLoadedMsg struct {
	tags []tags.Tag
	err  error
}

func (m ConsoleUI) loadTags() tea.Cmd {
	return func() tea.Msg {
		sample, err := m.api.sampleTags(tags.DefaultSampleSize)
		return tagsLoadedMsg{sample, err}
	}
}

func (m ConsoleUI) updateHome(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		w, h := m.canvas.fieldSize()
		m.field.Step(w, h)
		return m, frameTick()

	case tagsLoadedMsg:
		m.loadingTags = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		// the server already sampled, so the field keeps every tag it got
		w, h := m.canvas.fieldSize()
		m.field.Populate(msg.tags, len(msg.tags), w, h)
		m.hovered = -1

	case tea.MouseMsg:
		id, hit := m.hitTest(msg.X, msg.Y)
		if id != m.hovered {
			m.field.ClearHover()
			m.hovered = -1
			if hit {
				m.field.SetHover(id, true)
				m.hovered = id
			}
		}
		if hit && msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			m.field.Toggle(id)
		}

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			selection := m.field.Selection()
			if len(selection) == 0 {
				m.notice = "Pick at least one topic first."
				return m, nil
			}
			return m.startGeneration(selection)
		}
		switch msg.String() {
		case "r":
			m.loadingTags = true
			m.notice = ""
			return m, m.loadTags()
		case "1":
			m.difficulty = puzzle.Easy
		case "2":
			m.difficulty = puzzle.Normal
		case "3":
			m.difficulty = puzzle.Hard
		case "h":
			return m.openHistory()
		case "q":
			m.showQuitModal = true
		}
	}
	return m, nil
}

// hitTest maps a mouse cell to the bubble under it.
func (m ConsoleUI) hitTest(col, row int) (int, bool) {
	row -= homeHeader
	if row < 0 || row >= m.canvas.rows {
		return -1, false
	}
	x, y := toField(col, row)
	return m.field.HitTest(x, y)
}

func (m ConsoleUI) viewHome() string {
	var header strings.Builder
	header.WriteString(titleStyle.Render("TURTLE SOUP"))
	header.WriteString("  ")
	for i, d := range puzzle.Difficulties() {
		label := fmt.Sprintf("%d %s", i+1, d)
		if d == m.difficulty {
			header.WriteString(difficultyStyle.Render(label))
		} else {
			header.WriteString(difficultyIdleStyle.Render(label))
		}
	}
	header.WriteString("\n")

	m.canvas = newCanvas(m.canvas.cols, m.canvas.rows)
	m.canvas.draw(m.field.Frames())

	var footer strings.Builder
	selection := m.field.Selection()
	if len(selection) == 0 {
		footer.WriteString(promptStyle.Render(fmt.Sprintf("Click up to %d topics for your puzzle.", bubble.MaxSelected)))
	} else {
		footer.WriteString("Topics: " + titleStyle.Render(strings.Join(selection, " / ")))
	}
	footer.WriteString("\n")
	switch {
	case m.err != nil:
		footer.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	case m.loadingTags:
		footer.WriteString(loadingStyle.Render("Shuffling topics..."))
	case m.notice != "":
		footer.WriteString(loadingStyle.Render(m.notice))
	}
	footer.WriteString("\n")
	footer.WriteString(promptStyle.Render("Enter: start • r: new topics • 1/2/3: difficulty • h: history • q: quit"))

	return header.String() + "\n" + m.canvas.String() + "\n" + footer.String()
}
