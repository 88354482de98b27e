package main

import (
	"testing"

	"github.com/jwebster45206/turtle-soup/pkg/bubble"
	"github.com/jwebster45206/turtle-soup/pkg/puzzle"
	"github.com/stretchr/testify/assert"
)

func TestTextWidth(t *testing.T) {
	assert.Equal(t, 1, runeWidth('a'))
	assert.Equal(t, 2, runeWidth('中'))
	assert.Equal(t, 2, runeWidth('Ａ')) // fullwidth
	assert.Equal(t, 4, textWidth("ab中"))
	assert.Equal(t, 0, textWidth(""))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exact", 5, "exact"},
		{"hello world", 6, "hello…"},
		{"中文标签", 5, "中文…"},
		{"中文标签", 4, "中…"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, truncate(tt.in, tt.n))
		})
	}
}

func TestToField(t *testing.T) {
	x, y := toField(0, 0)
	assert.Equal(t, cellW/2, x)
	assert.Equal(t, cellH/2, y)

	x, y = toField(3, 2)
	assert.Equal(t, 3.5*cellW, x)
	assert.Equal(t, 2.5*cellH, y)

	w, h := newCanvas(10, 4).fieldSize()
	assert.Equal(t, 10*cellW, w)
	assert.Equal(t, 4*cellH, h)
}

func TestCanvas_WideRunes(t *testing.T) {
	c := newCanvas(4, 1)
	c.text(0, 0, "中", styleLabel)
	assert.Equal(t, '中', c.cells[0][0].r)
	assert.Equal(t, rune(0), c.cells[0][1].r)

	// overwriting the right half clears the left half
	c.set(1, 0, 'x', styleRing)
	assert.Equal(t, ' ', c.cells[0][0].r)
	assert.Equal(t, 'x', c.cells[0][1].r)

	// overwriting the left half clears the right half
	c.text(2, 0, "文", styleLabel)
	c.set(2, 0, 'y', styleRing)
	assert.Equal(t, 'y', c.cells[0][2].r)
	assert.Equal(t, ' ', c.cells[0][3].r)
}

func TestCanvas_TextClipsAtEdges(t *testing.T) {
	c := newCanvas(3, 1)
	c.text(-1, 0, "abcd", styleLabel)
	assert.Equal(t, 'b', c.cells[0][0].r)
	assert.Equal(t, 'd', c.cells[0][2].r)

	// a wide rune that would straddle the edge is dropped
	c = newCanvas(3, 1)
	c.text(2, 0, "中", styleLabel)
	assert.Equal(t, ' ', c.cells[0][2].r)

	c.text(0, 5, "abc", styleLabel) // off-grid rows are ignored
}

func TestCanvas_DrawBubble(t *testing.T) {
	c := newCanvas(10, 5)
	c.drawBubble(bubble.Frame{ID: 0, Label: "tea", Left: 0, Top: 0, Radius: 32})

	// centre (32, 32) is cell (4, 2); the label is centred on it
	assert.Equal(t, 't', c.cells[2][3].r)
	assert.Equal(t, 'e', c.cells[2][4].r)
	assert.Equal(t, 'a', c.cells[2][5].r)
	assert.Equal(t, styleLabel, c.cells[2][4].style)

	// rightmost point of the ring
	assert.Equal(t, '·', c.cells[2][8].r)
	assert.Equal(t, styleRing, c.cells[2][8].style)
}

func TestCanvas_DrawSelected(t *testing.T) {
	c := newCanvas(10, 5)
	c.draw([]bubble.Frame{{Label: "tea", Radius: 32, Selected: true}})
	assert.Equal(t, styleLabelSelected, c.cells[2][4].style)
	assert.Equal(t, styleSelected, c.cells[2][8].style)
}

func TestCanvas_StringBlank(t *testing.T) {
	assert.Equal(t, "   \n   ", newCanvas(3, 2).String())
	assert.Equal(t, "", newCanvas(0, 0).String())
}

func TestPhaseTrack(t *testing.T) {
	tr := newPhaseTrack()
	tr.setTarget(3)
	for i := 0; i < 600 && tr.step(); i++ {
	}
	assert.Equal(t, 3.0, tr.pos)
	assert.False(t, tr.step())

	tr.setTarget(99)
	assert.Equal(t, len(puzzle.PhaseLabels)-1, tr.target)
	tr.setTarget(-1)
	assert.Equal(t, 0, tr.target)

	tr.reset()
	assert.Equal(t, 0.0, tr.pos)
	assert.Contains(t, tr.View(), "Key points")
}
