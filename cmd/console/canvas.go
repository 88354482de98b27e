package main

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/turtle-soup/pkg/bubble"
	"golang.org/x/text/width"
)

// A terminal cell stands for a cellW x cellH block of field pixels, which
// keeps bubbles round on a typical 1:2 character cell.
const (
	cellW = 8.0
	cellH = 16.0
)

type cellStyle int

const (
	styleBlank cellStyle = iota
	styleRing
	styleHover
	styleSelected
	styleLabel
	styleLabelSelected
)

var cellStyles = map[cellStyle]lipgloss.Style{
	styleRing:          lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	styleHover:         lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	styleSelected:      lipgloss.NewStyle().Foreground(lipgloss.Color("205")),
	styleLabel:         lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
	styleLabelSelected: lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
}

type cell struct {
	r     rune // 0 marks the second half of a wide rune
	style cellStyle
}

// canvas is a grid of terminal cells the bubble field is drawn into.
type canvas struct {
	cols, rows int
	cells      [][]cell
}

func newCanvas(cols, rows int) *canvas {
	c := &canvas{cols: max(cols, 0), rows: max(rows, 0)}
	c.cells = make([][]cell, c.rows)
	for y := range c.cells {
		c.cells[y] = make([]cell, c.cols)
		for x := range c.cells[y] {
			c.cells[y][x] = cell{r: ' '}
		}
	}
	return c
}

// fieldSize is the simulation area covered by the canvas.
func (c *canvas) fieldSize() (float64, float64) {
	return float64(c.cols) * cellW, float64(c.rows) * cellH
}

// toField maps a terminal cell to the field point at its centre.
func toField(col, row int) (float64, float64) {
	return (float64(col) + 0.5) * cellW, (float64(row) + 0.5) * cellH
}

// runeWidth is the number of cells r occupies.
func runeWidth(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}

// textWidth is the number of cells s occupies.
func textWidth(s string) int {
	n := 0
	for _, r := range s {
		n += runeWidth(r)
	}
	return n
}

func (c *canvas) set(x, y int, r rune, st cellStyle) {
	if y < 0 || y >= c.rows || x < 0 || x >= c.cols {
		return
	}
	// never leave half of a wide rune behind
	old := c.cells[y][x]
	if old.r == 0 && x > 0 {
		c.cells[y][x-1] = cell{r: ' '}
	}
	if old.r != 0 && runeWidth(old.r) == 2 && x+1 < c.cols {
		c.cells[y][x+1] = cell{r: ' '}
	}
	c.cells[y][x] = cell{r: r, style: st}
}

// text writes s starting at column x, keeping wide runes whole.
func (c *canvas) text(x, y int, s string, st cellStyle) {
	for _, r := range s {
		w := runeWidth(r)
		if x >= 0 && x+w <= c.cols {
			c.set(x, y, r, st)
			if w == 2 {
				c.set(x+1, y, 0, st)
			}
		}
		x += w
	}
}

// truncate shortens s to at most n cells.
func truncate(s string, n int) string {
	if textWidth(s) <= n {
		return s
	}
	var b strings.Builder
	used := 0
	for _, r := range s {
		w := runeWidth(r)
		if used+w > n-1 {
			break
		}
		b.WriteRune(r)
		used += w
	}
	return b.String() + "…"
}

// drawBubble draws one frame: a ring of dots at its radius and the label
// centred inside.
func (c *canvas) drawBubble(f bubble.Frame) {
	ring := styleRing
	label := styleLabel
	switch {
	case f.Selected:
		ring, label = styleSelected, styleLabelSelected
	case f.Hovered:
		ring = styleHover
	}

	cx, cy := f.Left+f.Radius, f.Top+f.Radius
	steps := max(12, int(2*math.Pi*f.Radius/cellW))
	for i := range steps {
		a := 2 * math.Pi * float64(i) / float64(steps)
		x := int(math.Floor((cx + f.Radius*math.Cos(a)) / cellW))
		y := int(math.Floor((cy + f.Radius*math.Sin(a)) / cellH))
		c.set(x, y, '·', ring)
	}

	maxWidth := max(1, int(2*f.Radius/cellW)-1)
	text := truncate(f.Label, maxWidth)
	col := int(math.Floor(cx/cellW)) - textWidth(text)/2
	row := int(math.Floor(cy / cellH))
	c.text(col, row, text, label)
}

func (c *canvas) draw(frames []bubble.Frame) {
	for _, f := range frames {
		c.drawBubble(f)
	}
}

// String renders the grid with styles, one line per row.
func (c *canvas) String() string {
	lines := make([]string, c.rows)
	for y, row := range c.cells {
		var b strings.Builder
		run := []rune{}
		cur := styleBlank
		flush := func() {
			if len(run) == 0 {
				return
			}
			if st, ok := cellStyles[cur]; ok {
				b.WriteString(st.Render(string(run)))
			} else {
				b.WriteString(string(run))
			}
			run = run[:0]
		}
		for _, cl := range row {
			if cl.r == 0 {
				continue
			}
			if cl.style != cur {
				flush()
				cur = cl.style
			}
			run = append(run, cl.r)
		}
		flush()
		lines[y] = b.String()
	}
	return strings.Join(lines, "\n")
}
