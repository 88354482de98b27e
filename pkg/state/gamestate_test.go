package state

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/jwebster45206/turtle-soup/pkg/chat"
	"github.com/jwebster45206/turtle-soup/pkg/puzzle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPuzzle() *puzzle.Puzzle {
	return &puzzle.Puzzle{
		Emoji:     "🌊",
		Title:     "The Lighthouse",
		Puzzle:    "The keeper turned off the light and hundreds died.",
		Answer:    "He was tired of the noise of ships.",
		KeyPoints: []string{"light off on purpose", "ships crashed", "keeper hated noise", "he was alone"},
	}
}

func activeGame(t *testing.T, d puzzle.Difficulty) *GameState {
	t.Helper()
	gs, err := NewGameState([]string{"Lighthouse", "Sea"}, d)
	require.NoError(t, err)
	gs.Activate(testPuzzle())
	return gs
}

func TestNewGameState(t *testing.T) {
	tests := []struct {
		name    string
		tags    []string
		want    []string
		wantErr bool
	}{
		{"one tag", []string{"Rain"}, []string{"Rain"}, false},
		{"four tags", []string{"a", "b", "c", "d"}, []string{"a", "b", "c", "d"}, false},
		{"trimmed and deduplicated", []string{" Rain ", "Rain", "", "Clock"}, []string{"Rain", "Clock"}, false},
		{"no tags", nil, nil, true},
		{"only blanks", []string{" ", ""}, nil, true},
		{"too many", []string{"a", "b", "c", "d", "e"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs, err := NewGameState(tt.tags, puzzle.Normal)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTags))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, gs.Tags)
			assert.Equal(t, StatusGenerating, gs.Status)
			assert.Equal(t, puzzle.RankNone, gs.Rank)
			assert.Equal(t, 40, gs.TurnsMax)
			assert.Equal(t, 5, gs.HintsMax)
			assert.False(t, gs.StartedAt.IsZero())
		})
	}
}

func TestGameState_Budgets(t *testing.T) {
	easy := activeGame(t, puzzle.Easy)
	assert.True(t, easy.UnlimitedTurns())
	assert.True(t, easy.UnlimitedHints())
	assert.Equal(t, -1, easy.TurnsLeft())
	assert.Equal(t, -1, easy.HintsLeft())
	assert.False(t, easy.OutOfTurns())

	hard := activeGame(t, puzzle.Hard)
	assert.Equal(t, 25, hard.TurnsLeft())
	assert.Equal(t, 0, hard.HintsLeft())
	assert.ErrorIs(t, hard.UseHint(), ErrNoHintsLeft)

	normal := activeGame(t, puzzle.Normal)
	for i := 0; i < 5; i++ {
		require.NoError(t, normal.UseHint())
	}
	assert.Equal(t, 0, normal.HintsLeft())
	assert.ErrorIs(t, normal.UseHint(), ErrNoHintsLeft)

	normal.RefundHint()
	assert.Equal(t, 1, normal.HintsLeft())

	fresh := activeGame(t, puzzle.Normal)
	fresh.RefundHint()
	assert.Equal(t, 0, fresh.HintsUsed)
}

func TestGameState_RecordQuestion(t *testing.T) {
	gs := activeGame(t, puzzle.Normal)

	require.NoError(t, gs.RecordQuestion(chat.ModeAsk, " Was he alone? "))
	require.NoError(t, gs.RecordQuestion(chat.ModeGuess, "He wanted quiet"))
	assert.Equal(t, 2, gs.TurnsUsed)
	assert.Equal(t, 38, gs.TurnsLeft())
	assert.Equal(t, []chat.ChatMessage{
		{Role: chat.ChatRoleUser, Content: "[Ask] Was he alone?"},
		{Role: chat.ChatRoleUser, Content: "[Guess] He wanted quiet"},
	}, gs.History)
	assert.Equal(t, "He wanted quiet", gs.LastInput)
	assert.Equal(t, chat.ModeGuess, gs.LastMode)

	assert.ErrorIs(t, gs.RecordQuestion("shout", "x"), ErrInvalidMode)
	assert.Equal(t, 2, gs.TurnsUsed)
}

func TestGameState_TurnLimit(t *testing.T) {
	gs := activeGame(t, puzzle.Hard)
	for i := 0; i < 25; i++ {
		require.NoError(t, gs.RecordQuestion(chat.ModeAsk, "q"))
	}
	assert.True(t, gs.OutOfTurns())
	assert.False(t, gs.CanAct())
	assert.ErrorIs(t, gs.RecordQuestion(chat.ModeAsk, "one more"), ErrNoTurnsLeft)
	assert.Equal(t, 25, gs.TurnsUsed)
}

func TestGameState_NotActive(t *testing.T) {
	gs, err := NewGameState([]string{"Rain"}, puzzle.Normal)
	require.NoError(t, err)

	assert.ErrorIs(t, gs.RecordQuestion(chat.ModeAsk, "q"), ErrNotActive)
	assert.ErrorIs(t, gs.UseHint(), ErrNotActive)
	assert.ErrorIs(t, gs.Settle(), ErrNotActive)
	assert.ErrorIs(t, gs.Quit(), ErrNotActive)
	assert.False(t, gs.CanAct())
}

func TestGameState_ApplyJudgement(t *testing.T) {
	gs := activeGame(t, puzzle.Normal)
	guess := "He switched the light off on purpose and the ships crashed"
	require.NoError(t, gs.RecordQuestion(chat.ModeGuess, guess))

	out := gs.ApplyJudgement(guess, &puzzle.Judgement{
		MatchedSegments: []string{"switched the light off on purpose"},
		WrongSegments:   []string{},
		AchievedPoints:  []string{"light off on purpose", "light off on purpose", "not a key point"},
		Comment:         "Clear thinking.",
	})
	assert.Equal(t, 25, out.Score)
	assert.Equal(t, 1, out.Matched)
	assert.Equal(t, 4, out.Total)
	assert.False(t, out.Solved)
	assert.False(t, out.SettleUnlocked)
	assert.Equal(t, []string{"light off on purpose"}, gs.FoundPoints)
	assert.Equal(t, 25, gs.HighestScore)
	assert.Equal(t, guess, puzzle.Plain(out.Spans))

	last := gs.History[len(gs.History)-1]
	assert.Equal(t, chat.ChatRoleAgent, last.Role)
	assert.Equal(t, "Score 25 (1/4 matched, 0 wrong). Clear thinking.", last.Content)

	// a weaker guess does not lower the best score
	out = gs.ApplyJudgement("nothing", &puzzle.Judgement{WrongSegments: []string{"nothing"}})
	assert.Equal(t, 0, out.Score)
	assert.Equal(t, 25, gs.HighestScore)
}

func TestGameState_SettleUnlock(t *testing.T) {
	gs := activeGame(t, puzzle.Normal)
	assert.ErrorIs(t, gs.Settle(), ErrCannotSettle)

	three := &puzzle.Judgement{AchievedPoints: []string{"light off on purpose", "ships crashed", "keeper hated noise"}}
	// 75 does not unlock
	out := gs.ApplyJudgement("g", three)
	assert.Equal(t, 75, out.Score)
	assert.False(t, gs.CanSettle)

	// all four points with one wrong segment scores 90
	gs.FoundPoints = nil
	out = gs.ApplyJudgement("g", &puzzle.Judgement{
		AchievedPoints: []string{"light off on purpose", "ships crashed", "keeper hated noise", "he was alone"},
		WrongSegments:  []string{"g"},
	})
	assert.Equal(t, 90, out.Score)
	assert.True(t, out.SettleUnlocked)
	assert.True(t, out.ShowSettlePrompt)
	assert.True(t, gs.CanSettle)

	// the prompt is offered only once
	out = gs.ApplyJudgement("g", &puzzle.Judgement{
		AchievedPoints: []string{"light off on purpose", "ships crashed", "keeper hated noise", "he was alone"},
		WrongSegments:  []string{"g"},
	})
	assert.False(t, out.SettleUnlocked)
	assert.False(t, out.ShowSettlePrompt)

	gs.TurnsUsed = 5
	require.NoError(t, gs.Settle())
	assert.Equal(t, StatusCompleted, gs.Status)
	assert.True(t, gs.Success)
	assert.True(t, gs.EarlySettle)
	assert.Equal(t, 81, gs.FinalScore) // 90 * 0.9
	assert.Equal(t, puzzle.RankA, gs.Rank)
}

func TestGameState_Solve(t *testing.T) {
	gs := activeGame(t, puzzle.Normal)
	all := testPuzzle().KeyPoints

	out := gs.ApplyJudgement("g", &puzzle.Judgement{AchievedPoints: all[:2]})
	assert.False(t, out.Solved)

	out = gs.ApplyJudgement("g", &puzzle.Judgement{AchievedPoints: all})
	assert.Equal(t, 100, out.Score)
	assert.True(t, out.Solved)
	assert.False(t, out.SettleUnlocked, "a win skips the settle offer")

	gs.TurnsUsed = 4
	gs.Finish(true, false)
	assert.Equal(t, 92, gs.FinalScore)
	assert.Equal(t, puzzle.RankS, gs.Rank)
}

func TestGameState_FullScoreNeedsAllPoints(t *testing.T) {
	gs := activeGame(t, puzzle.Normal)
	gs.Puzzle.KeyPoints = []string{"a", "b"}

	out := gs.ApplyJudgement("g", &puzzle.Judgement{AchievedPoints: []string{"a", "b"}})
	assert.True(t, out.Solved)

	// cumulative coverage alone is not enough without a perfect guess
	gs2 := activeGame(t, puzzle.Normal)
	gs2.Puzzle.KeyPoints = []string{"a", "b"}
	gs2.ApplyJudgement("g", &puzzle.Judgement{AchievedPoints: []string{"a"}})
	out = gs2.ApplyJudgement("g", &puzzle.Judgement{AchievedPoints: []string{"b"}})
	assert.Equal(t, 50, out.Score)
	assert.False(t, out.Solved)
	assert.Len(t, gs2.FoundPoints, 2)
}

func TestGameState_Quit(t *testing.T) {
	gs := activeGame(t, puzzle.Normal)
	gs.HighestScore = 90
	require.NoError(t, gs.Quit())
	assert.Equal(t, StatusCompleted, gs.Status)
	assert.Equal(t, puzzle.RankFail, gs.Rank)
	assert.Zero(t, gs.FinalScore)
	assert.ErrorIs(t, gs.Quit(), ErrNotActive)
}

func TestGameState_Retry(t *testing.T) {
	gs := activeGame(t, puzzle.Normal)
	assert.False(t, gs.CanRetry())

	require.NoError(t, gs.RecordQuestion(chat.ModeAsk, "Was it night?"))
	gs.MarkFailed()
	assert.True(t, gs.CanRetry())

	gs.RecordVerdict(puzzle.VerdictYes)
	assert.False(t, gs.CanRetry())
	assert.Equal(t, "yes", gs.History[len(gs.History)-1].Content)
}

func TestGameState_HintContext(t *testing.T) {
	gs := activeGame(t, puzzle.Easy)
	for i := 0; i < 12; i++ {
		require.NoError(t, gs.RecordQuestion(chat.ModeAsk, string(rune('a'+i))))
		gs.RecordVerdict(puzzle.VerdictNo)
	}
	require.NoError(t, gs.RecordQuestion(chat.ModeGuess, "a guess"))
	gs.RecordHint("Think about sound.")
	gs.FoundPoints = []string{"ships crashed"}

	asks := gs.AskHistory(HintAskLimit)
	assert.Len(t, asks, 10)
	assert.Equal(t, "c", asks[0])
	assert.Equal(t, "l", asks[9])
	assert.Len(t, gs.AskHistory(0), 12)

	assert.Equal(t, []string{HintPrefix + "Think about sound."}, gs.PastHints())
	assert.Equal(t, []string{"light off on purpose", "keeper hated noise", "he was alone"}, gs.UnfoundPoints())

	ps := ToPromptState(gs)
	require.NotNil(t, ps)
	assert.Equal(t, gs.Puzzle.Answer, ps.Answer)
	assert.Equal(t, asks, ps.Asks)
	assert.Equal(t, gs.PastHints(), ps.Hints)
	assert.Len(t, ps.UnfoundPoints, 3)

	assert.Nil(t, ToPromptState(nil))
}

func TestGameState_View(t *testing.T) {
	gs := activeGame(t, puzzle.Normal)

	v := gs.View()
	require.NotNil(t, v.Puzzle)
	assert.Empty(t, v.Puzzle.Answer)
	assert.Empty(t, v.Puzzle.KeyPoints)
	assert.Equal(t, gs.Puzzle.Title, v.Puzzle.Title)
	assert.NotEmpty(t, gs.Puzzle.Answer, "the original is untouched")

	require.NoError(t, gs.Quit())
	v = gs.View()
	assert.Equal(t, gs.Puzzle.Answer, v.Puzzle.Answer)
}

func TestGameState_JSONRoundTrip(t *testing.T) {
	gs := activeGame(t, puzzle.Hard)
	require.NoError(t, gs.RecordQuestion(chat.ModeAsk, "Was he alone?"))

	data, err := json.Marshal(gs)
	require.NoError(t, err)

	var back GameState
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, gs.ID, back.ID)
	assert.Equal(t, gs.History, back.History)
	assert.Equal(t, gs.Puzzle, back.Puzzle)
	assert.True(t, gs.StartedAt.Equal(back.StartedAt))
}

func TestGameState_Summarize(t *testing.T) {
	gs := activeGame(t, puzzle.Normal)
	s := gs.Summarize()
	assert.Equal(t, gs.ID, s.ID)
	assert.Equal(t, "The Lighthouse", s.Title)
	assert.Equal(t, "🌊", s.Emoji)
	assert.Equal(t, "Lighthouse / Sea", s.Tags)
	assert.Equal(t, StatusActive, s.Status)

	pending, err := NewGameState([]string{"Rain"}, puzzle.Easy)
	require.NoError(t, err)
	assert.Equal(t, "Untitled", pending.Summarize().Title)
}
