package puzzle

import (
	"regexp"
	"strings"
)

// Generation phases shown while a puzzle streams in. PhaseThinking covers the
// time before any field of the document has appeared.
const (
	PhaseThinking = iota
	PhaseTitle
	PhasePuzzle
	PhaseAnswer
	PhaseKeyPoints
)

// PhaseLabels names each phase for display.
var PhaseLabels = []string{"Thinking", "Title", "Puzzle", "Answer", "Key points"}

var phaseMarkers = []struct {
	phase  int
	marker string
}{
	{PhaseTitle, `"title":`},
	{PhasePuzzle, `"puzzle":`},
	{PhaseAnswer, `"answer":`},
	{PhaseKeyPoints, `"key_points":`},
}

// Markers returns, in order, every phase whose field marker appears in the
// text streamed so far.
func Markers(fullText string) []int {
	var found []int
	for _, m := range phaseMarkers {
		if strings.Contains(fullText, m.marker) {
			found = append(found, m.phase)
		}
	}
	return found
}

var (
	emojiField = regexp.MustCompile(`"emoji"\s*:\s*"(.+?)"`)
	titleField = regexp.MustCompile(`"title"\s*:\s*"(.*?)"`)
)

// ExtractTitle pulls the title, and the emoji if present, out of a partial
// generation so it can be shown before the document is complete. ok is false
// until a non-empty title string has been closed.
func ExtractTitle(fullText string) (emoji, title string, ok bool) {
	m := titleField.FindStringSubmatch(fullText)
	if m == nil || m[1] == "" {
		return "", "", false
	}
	emoji = DefaultEmoji
	if e := emojiField.FindStringSubmatch(fullText); e != nil {
		emoji = e[1]
	}
	return emoji, m[1], true
}
