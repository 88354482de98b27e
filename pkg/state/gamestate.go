package state

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/turtle-soup/pkg/chat"
	"github.com/jwebster45206/turtle-soup/pkg/puzzle"
)

// Status is the lifecycle stage of a game.
type Status string

const (
	StatusGenerating Status = "generating"
	StatusActive     Status = "active"
	StatusCompleted  Status = "completed"
)

// MaxTags is the most topics a game can be generated from.
const MaxTags = 4

// History prefixes mark how a player message was submitted.
const (
	AskPrefix   = "[Ask] "
	GuessPrefix = "[Guess] "
	HintPrefix  = "💡 Hint: "
)

var (
	ErrInvalidTags    = errors.New("invalid tags")
	ErrInvalidMode    = errors.New("invalid input mode")
	ErrNotActive      = errors.New("game is not active")
	ErrNoTurnsLeft    = errors.New("no turns left")
	ErrNoHintsLeft    = errors.New("no hints left")
	ErrCannotSettle   = errors.New("game cannot be settled yet")
	ErrNothingToRetry = errors.New("nothing to retry")
)

// GameState is one turtle-soup session, from generation to the final rank.
type GameState struct {
	ID         uuid.UUID          `json:"id"`
	Tags       []string           `json:"tags"`
	Difficulty puzzle.Difficulty  `json:"difficulty"`
	Puzzle     *puzzle.Puzzle     `json:"puzzle,omitempty"`
	History    []chat.ChatMessage `json:"history,omitempty"`

	FoundPoints []string `json:"found_points,omitempty"` // key points guessed so far, in discovery order
	TurnsMax    int      `json:"turns_max"`              // 0 means unlimited
	TurnsUsed   int      `json:"turns_used"`
	HintsMax    int      `json:"hints_max"`
	HintsUsed   int      `json:"hints_used"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Status    Status    `json:"status"`

	HighestScore      int  `json:"highest_score"`
	CanSettle         bool `json:"can_settle"`
	SettlePromptShown bool `json:"settle_prompt_shown"`

	// Last submitted input, kept so a failed referee call can be retried
	// without spending another turn.
	LastInput  string `json:"last_input,omitempty"`
	LastMode   string `json:"last_mode,omitempty"`
	LastFailed bool   `json:"last_failed,omitempty"`

	Success     bool        `json:"success,omitempty"`
	EarlySettle bool        `json:"early_settle,omitempty"`
	Rank        puzzle.Rank `json:"rank"`
	FinalScore  int         `json:"final_score"`
}

// GuessOutcome summarises what a judged guess did to the game.
type GuessOutcome struct {
	Score            int           `json:"score"`
	Matched          int           `json:"matched"`
	Total            int           `json:"total"`
	Wrong            int           `json:"wrong"`
	Solved           bool          `json:"solved"`
	SettleUnlocked   bool          `json:"settle_unlocked"`
	ShowSettlePrompt bool          `json:"show_settle_prompt"`
	Comment          string        `json:"comment"`
	Spans            []puzzle.Span `json:"spans,omitempty"`
}

// NewGameState starts a game for 1 to MaxTags topics.
func NewGameState(tags []string, difficulty puzzle.Difficulty) (*GameState, error) {
	clean := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(clean, t) {
			continue
		}
		clean = append(clean, t)
	}
	if len(clean) == 0 || len(clean) > MaxTags {
		return nil, fmt.Errorf("%w: need 1 to %d distinct tags, got %d", ErrInvalidTags, MaxTags, len(clean))
	}

	preset := difficulty.Preset()
	now := time.Now()
	return &GameState{
		ID:         uuid.New(),
		Tags:       clean,
		Difficulty: difficulty,
		History:    make([]chat.ChatMessage, 0),
		TurnsMax:   preset.TurnsMax,
		HintsMax:   preset.HintsMax,
		StartedAt:  now,
		UpdatedAt:  now,
		Status:     StatusGenerating,
		Rank:       puzzle.RankNone,
	}, nil
}

func (gs *GameState) touch() {
	gs.UpdatedAt = time.Now()
}

// Activate attaches the generated puzzle and opens the game for play.
func (gs *GameState) Activate(p *puzzle.Puzzle) {
	gs.Puzzle = p
	gs.Status = StatusActive
	gs.touch()
}

// Title is the puzzle title, or a placeholder while generating.
func (gs *GameState) Title() string {
	if gs.Puzzle == nil || gs.Puzzle.Title == "" {
		return "Untitled"
	}
	return gs.Puzzle.Title
}

// UnlimitedTurns reports whether the turn budget is unbounded.
func (gs *GameState) UnlimitedTurns() bool {
	return gs.TurnsMax == 0
}

// UnlimitedHints reports whether the hint budget is shown as unbounded.
func (gs *GameState) UnlimitedHints() bool {
	return gs.HintsMax > puzzle.HintDisplayLimit
}

// TurnsLeft is the remaining turn budget, or -1 when unlimited.
func (gs *GameState) TurnsLeft() int {
	if gs.UnlimitedTurns() {
		return -1
	}
	return max(0, gs.TurnsMax-gs.TurnsUsed)
}

// HintsLeft is the remaining hint budget, or -1 when unlimited.
func (gs *GameState) HintsLeft() int {
	if gs.UnlimitedHints() {
		return -1
	}
	return max(0, gs.HintsMax-gs.HintsUsed)
}

// OutOfTurns reports whether a limited turn budget has been spent.
func (gs *GameState) OutOfTurns() bool {
	return !gs.UnlimitedTurns() && gs.TurnsUsed >= gs.TurnsMax
}

// CanAct reports whether the player may submit another question or guess.
func (gs *GameState) CanAct() bool {
	return gs.Status == StatusActive && !gs.OutOfTurns()
}

// RecordQuestion spends a turn on an ask or guess and appends it to the
// history.
func (gs *GameState) RecordQuestion(mode, text string) error {
	if gs.Status != StatusActive {
		return ErrNotActive
	}
	if gs.OutOfTurns() {
		return ErrNoTurnsLeft
	}
	var prefix string
	switch mode {
	case chat.ModeAsk:
		prefix = AskPrefix
	case chat.ModeGuess:
		prefix = GuessPrefix
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	text = strings.TrimSpace(text)
	gs.History = append(gs.History, chat.ChatMessage{Role: chat.ChatRoleUser, Content: prefix + text})
	gs.TurnsUsed++
	gs.LastInput = text
	gs.LastMode = mode
	gs.LastFailed = false
	gs.touch()
	return nil
}

// MarkFailed flags the last submitted input as unanswered so it can be
// retried.
func (gs *GameState) MarkFailed() {
	gs.LastFailed = true
	gs.touch()
}

// CanRetry reports whether the last input is waiting for a retry.
func (gs *GameState) CanRetry() bool {
	return gs.Status == StatusActive && gs.LastFailed && gs.LastInput != ""
}

// RecordVerdict appends the referee's answer to a question.
func (gs *GameState) RecordVerdict(v puzzle.Verdict) {
	gs.addReply(string(v))
}

func (gs *GameState) addReply(content string) {
	gs.History = append(gs.History, chat.ChatMessage{Role: chat.ChatRoleAgent, Content: content})
	gs.LastFailed = false
	gs.touch()
}

// ApplyJudgement scores a judged guess against the key points and updates
// the cumulative progress. guess is the text the segments refer to.
func (gs *GameState) ApplyJudgement(guess string, j *puzzle.Judgement) GuessOutcome {
	total := 0
	if gs.Puzzle != nil {
		total = len(gs.Puzzle.KeyPoints)
	}

	// only points the puzzle actually has count, each once per guess
	var achieved []string
	for _, p := range j.AchievedPoints {
		if gs.Puzzle == nil || !gs.Puzzle.HasKeyPoint(p) || slices.Contains(achieved, p) {
			continue
		}
		achieved = append(achieved, p)
		if !slices.Contains(gs.FoundPoints, p) {
			gs.FoundPoints = append(gs.FoundPoints, p)
		}
	}

	out := GuessOutcome{
		Matched: len(achieved),
		Total:   total,
		Wrong:   len(j.WrongSegments),
		Comment: j.Comment,
		Spans:   puzzle.Highlight(guess, j.MatchedSegments, j.WrongSegments),
	}
	out.Score = puzzle.GuessScore(out.Matched, out.Total, out.Wrong)
	gs.HighestScore = max(gs.HighestScore, out.Score)

	gs.addReply(fmt.Sprintf("Score %d (%d/%d matched, %d wrong). %s", out.Score, out.Matched, out.Total, out.Wrong, out.Comment))

	if total > 0 && len(gs.FoundPoints) >= total && out.Score >= puzzle.PerfectScore {
		out.Solved = true
		return out
	}

	if out.Score >= puzzle.SettleThreshold && !gs.CanSettle {
		gs.CanSettle = true
		out.SettleUnlocked = true
		if !gs.SettlePromptShown {
			gs.SettlePromptShown = true
			out.ShowSettlePrompt = true
		}
	}
	return out
}

// UseHint spends one hint.
func (gs *GameState) UseHint() error {
	if gs.Status != StatusActive {
		return ErrNotActive
	}
	if gs.HintsLeft() == 0 {
		return ErrNoHintsLeft
	}
	gs.HintsUsed++
	gs.touch()
	return nil
}

// RefundHint returns a hint whose request produced nothing.
func (gs *GameState) RefundHint() {
	if gs.HintsUsed > 0 {
		gs.HintsUsed--
		gs.touch()
	}
}

// RecordHint appends a hint to the history.
func (gs *GameState) RecordHint(text string) {
	gs.addReply(HintPrefix + text)
}

// Finish ends the game and fixes the final score and rank. Failed games
// score 0.
func (gs *GameState) Finish(success, early bool) {
	gs.Success = success
	gs.EarlySettle = early && success
	gs.FinalScore = 0
	if success {
		gs.FinalScore = puzzle.FinalScore(gs.TurnsUsed, gs.HighestScore, early)
	}
	gs.Rank = puzzle.RankFor(gs.FinalScore, success)
	gs.Status = StatusCompleted
	gs.CanSettle = false
	gs.touch()
}

// Settle ends an unsolved game early as a success, scaled by the best guess.
func (gs *GameState) Settle() error {
	if gs.Status != StatusActive {
		return ErrNotActive
	}
	if !gs.CanSettle {
		return ErrCannotSettle
	}
	gs.Finish(true, true)
	return nil
}

// Quit gives up the game.
func (gs *GameState) Quit() error {
	if gs.Status != StatusActive {
		return ErrNotActive
	}
	gs.Finish(false, false)
	return nil
}

// AskHistory returns the last limit questions, without their prefix. A limit
// of 0 or less returns all of them.
func (gs *GameState) AskHistory(limit int) []string {
	var asks []string
	for _, m := range gs.History {
		if m.Role == chat.ChatRoleUser && strings.HasPrefix(m.Content, AskPrefix) {
			asks = append(asks, strings.TrimPrefix(m.Content, AskPrefix))
		}
	}
	if limit > 0 && len(asks) > limit {
		asks = asks[len(asks)-limit:]
	}
	return asks
}

// PastHints returns every hint given so far.
func (gs *GameState) PastHints() []string {
	var hints []string
	for _, m := range gs.History {
		if m.Role == chat.ChatRoleAgent && strings.HasPrefix(m.Content, HintPrefix) {
			hints = append(hints, m.Content)
		}
	}
	return hints
}

// UnfoundPoints returns the key points not guessed yet, in puzzle order.
func (gs *GameState) UnfoundPoints() []string {
	if gs.Puzzle == nil {
		return nil
	}
	var out []string
	for _, kp := range gs.Puzzle.KeyPoints {
		if !slices.Contains(gs.FoundPoints, kp) {
			out = append(out, kp)
		}
	}
	return out
}

// View returns a copy safe to show the player: the answer and the unfound
// key points stay hidden until the game is over.
func (gs *GameState) View() *GameState {
	v := *gs
	v.Tags = slices.Clone(gs.Tags)
	v.History = slices.Clone(gs.History)
	v.FoundPoints = slices.Clone(gs.FoundPoints)
	if gs.Puzzle != nil {
		p := *gs.Puzzle
		if gs.Status != StatusCompleted {
			p.Answer = ""
			p.KeyPoints = nil
		}
		v.Puzzle = &p
	}
	return &v
}

// Summary is the history-list row for a game.
type Summary struct {
	ID         uuid.UUID         `json:"id"`
	Title      string            `json:"title"`
	Emoji      string            `json:"emoji,omitempty"`
	Tags       string            `json:"tags"`
	Difficulty puzzle.Difficulty `json:"difficulty"`
	Status     Status            `json:"status"`
	Rank       puzzle.Rank       `json:"rank"`
	FinalScore int               `json:"final_score"`
	TurnsUsed  int               `json:"turns_used"`
	HintsUsed  int               `json:"hints_used"`
	Found      int               `json:"found"`
	StartedAt  time.Time         `json:"started_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Summarize builds the history-list row.
func (gs *GameState) Summarize() Summary {
	s := Summary{
		ID:         gs.ID,
		Title:      gs.Title(),
		Tags:       strings.Join(gs.Tags, " / "),
		Difficulty: gs.Difficulty,
		Status:     gs.Status,
		Rank:       gs.Rank,
		FinalScore: gs.FinalScore,
		TurnsUsed:  gs.TurnsUsed,
		HintsUsed:  gs.HintsUsed,
		Found:      len(gs.FoundPoints),
		StartedAt:  gs.StartedAt,
		UpdatedAt:  gs.UpdatedAt,
	}
	if gs.Puzzle != nil {
		s.Emoji = gs.Puzzle.Emoji
	}
	return s
}
