package main

import (
	"math"
	"strings"

	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/turtle-soup/pkg/puzzle"
)

const (
	trackFPS       = 60
	trackFrequency = 6.0
	trackDamping   = 0.8
	trackSlot      = 13 // cells per phase label
)

var (
	trackDoneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	trackCurrentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	trackTodoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// phaseTrack draws the phase labels with a cursor that springs toward the
// phase currently shown.
type phaseTrack struct {
	spring harmonica.Spring
	pos    float64
	vel    float64
	target int
}

func newPhaseTrack() phaseTrack {
	return phaseTrack{spring: harmonica.NewSpring(harmonica.FPS(trackFPS), trackFrequency, trackDamping)}
}

func (t *phaseTrack) setTarget(index int) {
	t.target = max(0, min(index, len(puzzle.PhaseLabels)-1))
}

// step advances the spring one frame and reports whether the cursor is still
// moving.
func (t *phaseTrack) step() bool {
	t.pos, t.vel = t.spring.Update(t.pos, t.vel, float64(t.target))
	if math.Abs(t.pos-float64(t.target)) < 0.01 && math.Abs(t.vel) < 0.01 {
		t.pos, t.vel = float64(t.target), 0
		return false
	}
	return true
}

func (t *phaseTrack) reset() {
	t.pos, t.vel, t.target = 0, 0, 0
}

// cursorColumn is where the cursor sits, centred under the label slot.
func (t *phaseTrack) cursorColumn() int {
	return int(math.Round(t.pos*trackSlot)) + trackSlot/2
}

func (t *phaseTrack) View() string {
	var labels strings.Builder
	for i, label := range puzzle.PhaseLabels {
		padded := label + strings.Repeat(" ", max(0, trackSlot-len(label)))
		switch {
		case i < t.target:
			labels.WriteString(trackDoneStyle.Render(padded))
		case i == t.target:
			labels.WriteString(trackCurrentStyle.Render(padded))
		default:
			labels.WriteString(trackTodoStyle.Render(padded))
		}
	}
	col := max(0, t.cursorColumn()-trackSlot/2)
	cursor := strings.Repeat(" ", col) + trackCurrentStyle.Render(strings.Repeat("━", trackSlot-2))
	return labels.String() + "\n" + cursor
}
