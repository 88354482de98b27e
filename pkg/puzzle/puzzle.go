// Package puzzle holds the rules of a turtle-soup round that do not depend on
// any session: the generated puzzle document, difficulty presets, referee
// replies, scoring and guess highlighting.
package puzzle

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// DefaultEmoji is used when the generator leaves the emoji out.
const DefaultEmoji = "🎭"

// Puzzle is the document the story model produces.
type Puzzle struct {
	Emoji     string   `json:"emoji"`
	Title     string   `json:"title"`
	Puzzle    string   `json:"puzzle"`               // what the player sees
	Answer    string   `json:"answer"`               // the hidden truth
	KeyPoints []string `json:"key_points,omitempty"` // facts a guess is scored against
}

var (
	thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)
	codeFence  = regexp.MustCompile("```(?:json)?")
)

// Clean strips reasoning blocks and markdown code fences from model output.
func Clean(text string) string {
	text = codeFence.ReplaceAllString(text, "")
	text = thinkBlock.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// decodeJSON unmarshals cleaned model output into v. Models sometimes wrap the
// object in prose, so the outermost braces are tried as a fallback.
func decodeJSON(text string, v any) error {
	clean := Clean(text)
	err := json.Unmarshal([]byte(clean), v)
	if err == nil {
		return nil
	}
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start < 0 || end <= start {
		return err
	}
	if err2 := json.Unmarshal([]byte(clean[start:end+1]), v); err2 != nil {
		return err
	}
	return nil
}

// Parse decodes a finished generation into a Puzzle.
func Parse(text string) (*Puzzle, error) {
	var p Puzzle
	if err := decodeJSON(text, &p); err != nil {
		return nil, fmt.Errorf("failed to parse puzzle: %w", err)
	}
	if strings.TrimSpace(p.Emoji) == "" {
		p.Emoji = DefaultEmoji
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that every field a round depends on is present.
func (p *Puzzle) Validate() error {
	var missing []string
	if strings.TrimSpace(p.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(p.Puzzle) == "" {
		missing = append(missing, "puzzle")
	}
	if strings.TrimSpace(p.Answer) == "" {
		missing = append(missing, "answer")
	}
	if len(p.KeyPoints) == 0 {
		missing = append(missing, "key_points")
	}
	if len(missing) > 0 {
		return fmt.Errorf("puzzle is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// HasKeyPoint reports whether point is one of the puzzle's key points.
func (p *Puzzle) HasKeyPoint(point string) bool {
	return slices.Contains(p.KeyPoints, point)
}
