package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwebster45206/turtle-soup/pkg/chat"
	"github.com/jwebster45206/turtle-soup/pkg/puzzle"
	"github.com/jwebster45206/turtle-soup/pkg/state"
)

// Kind selects which prompt a Builder produces.
type Kind int

const (
	KindGenerate Kind = iota
	KindAsk
	KindGuess
	KindHint
)

// Builder constructs chat messages for LLM interaction using a fluent interface.
type Builder struct {
	gs    *state.GameState
	kind  Kind
	input string
}

// New creates a new prompt builder. It builds a generation prompt until told
// otherwise.
func New() *Builder {
	return &Builder{kind: KindGenerate}
}

// WithGameState sets the game the prompt is for.
func (b *Builder) WithGameState(gs *state.GameState) *Builder {
	b.gs = gs
	return b
}

// WithAsk builds a referee prompt for a yes/no question.
func (b *Builder) WithAsk(question string) *Builder {
	b.kind = KindAsk
	b.input = question
	return b
}

// WithGuess builds a referee prompt for a full guess.
func (b *Builder) WithGuess(guess string) *Builder {
	b.kind = KindGuess
	b.input = guess
	return b
}

// WithHint builds a hint prompt.
func (b *Builder) WithHint() *Builder {
	b.kind = KindHint
	b.input = ""
	return b
}

// Build returns the message array for LLM consumption.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	if b.gs == nil {
		return nil, fmt.Errorf("gamestate is required")
	}

	if b.kind == KindGenerate {
		return []chat.ChatMessage{{
			Role:    chat.ChatRoleUser,
			Content: generate(b.gs.Tags, b.gs.Difficulty),
		}}, nil
	}

	ps := state.ToPromptState(b.gs)
	if ps == nil {
		return nil, fmt.Errorf("puzzle is required")
	}

	var content string
	switch b.kind {
	case KindAsk:
		if strings.TrimSpace(b.input) == "" {
			return nil, fmt.Errorf("question is required")
		}
		content = fmt.Sprintf(AskPrompt, ps.Puzzle, ps.Answer, b.input)
	case KindGuess:
		if strings.TrimSpace(b.input) == "" {
			return nil, fmt.Errorf("guess is required")
		}
		kps, err := json.Marshal(ps.KeyPoints)
		if err != nil {
			return nil, fmt.Errorf("failed to encode key points: %w", err)
		}
		content = fmt.Sprintf(GuessPrompt, ps.Puzzle, ps.Answer, kps, b.input)
	case KindHint:
		content = fmt.Sprintf(HintPrompt,
			ps.Puzzle,
			ps.Answer,
			numbered(ps.FoundPoints, NoneYet),
			numbered(ps.UnfoundPoints, AllFound),
			numbered(ps.Asks, NoQuestion),
			lines(ps.Hints, NoneYet),
		)
	default:
		return nil, fmt.Errorf("unknown prompt kind %d", b.kind)
	}

	return []chat.ChatMessage{{Role: chat.ChatRoleSystem, Content: content}}, nil
}

func generate(tags []string, d puzzle.Difficulty) string {
	preset := d.Preset()
	return fmt.Sprintf(GeneratePrompt, strings.Join(tags, ","), d, preset.Brief, preset.KeyPoints)
}

func numbered(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%d. %s", i+1, item))
	}
	return sb.String()
}

func lines(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, "\n")
}
