// Package typewriter reveals streamed text a few runes per frame. The more
// text is waiting, the faster it drains, so a bursty stream still reads as
// a steady scroll that never falls far behind.
package typewriter

import "strings"

const (
	// Window is how many runes of revealed text are kept.
	Window = 300
	// Divisor sets the drain rate: each tick consumes 1/Divisor of the backlog.
	Divisor = 5
)

var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ")

// Buffer is a typewriter line. It is not safe for concurrent use.
type Buffer struct {
	pending []rune
	visible []rune
}

// Push queues streamed text. Line breaks become spaces so the line stays a
// single row.
func (b *Buffer) Push(text string) {
	b.pending = append(b.pending, []rune(lineBreaks.Replace(text))...)
}

// Tick reveals the next slice of pending text and reports whether anything
// changed.
func (b *Buffer) Tick() bool {
	if len(b.pending) == 0 {
		return false
	}
	n := max(1, len(b.pending)/Divisor)
	b.visible = append(b.visible, b.pending[:n]...)
	b.pending = b.pending[n:]
	if over := len(b.visible) - Window; over > 0 {
		b.visible = b.visible[over:]
	}
	return true
}

// Text returns the revealed window.
func (b *Buffer) Text() string {
	return string(b.visible)
}

// Idle reports whether all pushed text has been revealed.
func (b *Buffer) Idle() bool {
	return len(b.pending) == 0
}

// Backlog is the number of runes waiting to be revealed.
func (b *Buffer) Backlog() int {
	return len(b.pending)
}

// Reset drops both pending and revealed text.
func (b *Buffer) Reset() {
	b.pending = nil
	b.visible = nil
}
