package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/turtle-soup/internal/services"
	"github.com/jwebster45206/turtle-soup/internal/services/events"
	"github.com/jwebster45206/turtle-soup/internal/storage"
	"github.com/jwebster45206/turtle-soup/pkg/chat"
	"github.com/jwebster45206/turtle-soup/pkg/prompts"
	"github.com/jwebster45206/turtle-soup/pkg/puzzle"
	"github.com/jwebster45206/turtle-soup/pkg/state"
	"github.com/moby/locker"
)

const (
	// RefereeTimeout bounds a single ask, guess or hint call.
	RefereeTimeout = 90 * time.Second
	// GenerateTimeout bounds a whole puzzle generation stream.
	GenerateTimeout = 5 * time.Minute
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrEmptyInput   = errors.New("message cannot be empty")
	// ErrUpstream wraps failed or unreadable LLM calls.
	ErrUpstream = errors.New("llm request failed")
)

// Engine runs games: it owns the LLM calls and persists every change.
type Engine struct {
	llm        services.LLMService
	storage    storage.Storage
	publisher  events.Publisher
	storyModel string
	fastModel  string
	logger     *slog.Logger

	locks *locker.Locker
}

// New creates an engine. The story model generates puzzles; the fast model
// referees questions and guesses and writes hints.
func New(llm services.LLMService, store storage.Storage, storyModel, fastModel string, logger *slog.Logger) *Engine {
	if fastModel == "" {
		fastModel = storyModel
	}
	return &Engine{
		llm:        llm,
		storage:    store,
		publisher:  events.Nop{},
		storyModel: storyModel,
		fastModel:  fastModel,
		logger:     logger,
		locks:      locker.New(),
	}
}

// WithPublisher sets where game events are broadcast.
func (e *Engine) WithPublisher(p events.Publisher) *Engine {
	if p != nil {
		e.publisher = p
	}
	return e
}

// TurnResult is the outcome of an ask, guess or retry.
type TurnResult struct {
	Mode    string              `json:"mode"`
	Verdict puzzle.Verdict      `json:"verdict,omitempty"`
	Guess   *state.GuessOutcome `json:"guess,omitempty"`
	Game    *state.GameState    `json:"game"`
}

// HintResult is a delivered hint.
type HintResult struct {
	Hint string           `json:"hint"`
	Game *state.GameState `json:"game"`
}

// lock serialises every change to one game. The per-game entry is dropped
// once nobody holds or waits on it.
func (e *Engine) lock(id uuid.UUID) func() {
	key := id.String()
	e.locks.Lock(key)
	return func() {
		_ = e.locks.Unlock(key)
	}
}

// Game loads a game, failing with ErrGameNotFound when it does not exist.
func (e *Engine) Game(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	gs, err := e.storage.LoadGame(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	if gs == nil {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	return gs, nil
}

// Games lists the history, most recently played first.
func (e *Engine) Games(ctx context.Context) ([]*state.GameState, error) {
	return e.storage.ListGames(ctx)
}

// Delete removes a game from the history.
func (e *Engine) Delete(ctx context.Context, id uuid.UUID) error {
	defer e.lock(id)()
	if _, err := e.Game(ctx, id); err != nil {
		return err
	}
	return e.storage.DeleteGame(ctx, id)
}

// Ask spends a turn on a yes/no question.
func (e *Engine) Ask(ctx context.Context, id uuid.UUID, question string) (*TurnResult, error) {
	return e.turn(ctx, id, chat.ModeAsk, question)
}

// Guess spends a turn on a full explanation.
func (e *Engine) Guess(ctx context.Context, id uuid.UUID, guess string) (*TurnResult, error) {
	return e.turn(ctx, id, chat.ModeGuess, guess)
}

func (e *Engine) turn(ctx context.Context, id uuid.UUID, mode, text string) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	defer e.lock(id)()
	gs, err := e.Game(ctx, id)
	if err != nil {
		return nil, err
	}

	// the turn is spent before the referee answers, success or not
	if err := gs.RecordQuestion(mode, text); err != nil {
		return nil, err
	}
	if err := e.save(ctx, gs); err != nil {
		return nil, err
	}
	e.publish(ctx, gs.ID, events.GameTurn(mode, gs.TurnsUsed, gs.TurnsLeft()))

	return e.referee(ctx, gs, mode, text)
}

// Retry re-sends the last question or guess after a failed referee call,
// without spending another turn.
func (e *Engine) Retry(ctx context.Context, id uuid.UUID) (*TurnResult, error) {
	defer e.lock(id)()
	gs, err := e.Game(ctx, id)
	if err != nil {
		return nil, err
	}
	if gs.Status != state.StatusActive {
		return nil, state.ErrNotActive
	}
	if !gs.CanRetry() {
		return nil, state.ErrNothingToRetry
	}
	e.logger.Debug("Retrying last input", "game_id", gs.ID, "mode", gs.LastMode)
	return e.referee(ctx, gs, gs.LastMode, gs.LastInput)
}

// referee asks the fast model to judge text and applies the answer. A failed
// call leaves the input marked for retry.
func (e *Engine) referee(ctx context.Context, gs *state.GameState, mode, text string) (*TurnResult, error) {
	b := prompts.New().WithGameState(gs)
	if mode == chat.ModeGuess {
		b.WithGuess(text)
	} else {
		b.WithAsk(text)
	}
	messages, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s prompt: %w", mode, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, RefereeTimeout)
	defer cancel()
	resp, err := e.llm.Chat(callCtx, e.fastModel, messages, services.ChatOptions{Thinking: true})

	result := &TurnResult{Mode: mode}
	if err == nil {
		switch mode {
		case chat.ModeGuess:
			var j *puzzle.Judgement
			if j, err = puzzle.ParseJudgement(resp.Message); err == nil {
				out := gs.ApplyJudgement(text, j)
				result.Guess = &out
			}
		default:
			var v puzzle.Verdict
			if v, err = puzzle.ParseVerdict(resp.Message); err == nil {
				gs.RecordVerdict(v)
				result.Verdict = v
			}
		}
	}
	if err != nil {
		return nil, e.fail(ctx, gs, mode, err)
	}

	switch {
	case result.Guess != nil && result.Guess.Solved:
		gs.Finish(true, false)
	case gs.OutOfTurns():
		gs.Finish(false, false)
	}

	if err := e.save(ctx, gs); err != nil {
		return nil, err
	}
	if gs.Status == state.StatusCompleted {
		e.publish(ctx, gs.ID, events.GameCompleted(gs.Success, string(gs.Rank), gs.FinalScore))
	}
	result.Game = gs.View()
	return result, nil
}

// fail records an unanswered input and returns the upstream error.
func (e *Engine) fail(ctx context.Context, gs *state.GameState, op string, cause error) error {
	e.logger.Warn("Referee call failed", "game_id", gs.ID, "operation", op, "error", cause)
	gs.MarkFailed()
	if err := e.save(ctx, gs); err != nil {
		e.logger.Error("Failed to save failed turn", "game_id", gs.ID, "error", err)
	}
	e.publish(ctx, gs.ID, events.RequestFailed(op, cause))
	return fmt.Errorf("%w: %v", ErrUpstream, cause)
}

// Hint spends a hint and asks the fast model for a nudge toward a missing key
// point. The hint is refunded when the call fails.
func (e *Engine) Hint(ctx context.Context, id uuid.UUID) (*HintResult, error) {
	defer e.lock(id)()
	gs, err := e.Game(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := gs.UseHint(); err != nil {
		return nil, err
	}

	messages, err := prompts.New().WithGameState(gs).WithHint().Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build hint prompt: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, RefereeTimeout)
	defer cancel()
	resp, err := e.llm.Chat(callCtx, e.fastModel, messages, services.ChatOptions{Thinking: true})
	if err == nil && puzzle.CleanHint(resp.Message) == "" {
		err = errors.New("empty hint")
	}
	if err != nil {
		gs.RefundHint()
		e.logger.Warn("Hint call failed", "game_id", gs.ID, "error", err)
		e.publish(ctx, gs.ID, events.RequestFailed("hint", err))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	hint := puzzle.CleanHint(resp.Message)
	gs.RecordHint(hint)
	if err := e.save(ctx, gs); err != nil {
		return nil, err
	}
	e.publish(ctx, gs.ID, events.GameHint(gs.HintsUsed, gs.HintsLeft()))
	return &HintResult{Hint: hint, Game: gs.View()}, nil
}

// Settle ends an unsolved game early once a guess scored high enough.
func (e *Engine) Settle(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	return e.end(ctx, id, (*state.GameState).Settle)
}

// Quit gives the game up.
func (e *Engine) Quit(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	return e.end(ctx, id, (*state.GameState).Quit)
}

func (e *Engine) end(ctx context.Context, id uuid.UUID, finish func(*state.GameState) error) (*state.GameState, error) {
	defer e.lock(id)()
	gs, err := e.Game(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := finish(gs); err != nil {
		return nil, err
	}
	if err := e.save(ctx, gs); err != nil {
		return nil, err
	}
	e.publish(ctx, gs.ID, events.GameCompleted(gs.Success, string(gs.Rank), gs.FinalScore))
	return gs, nil
}

// save persists even when the request context has been cancelled, so a
// spent turn is never lost.
func (e *Engine) save(ctx context.Context, gs *state.GameState) error {
	if err := e.storage.SaveGame(context.WithoutCancel(ctx), gs); err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, id uuid.UUID, ev events.Event) {
	if err := e.publisher.Publish(context.WithoutCancel(ctx), id, ev); err != nil {
		e.logger.Error("Failed to publish event", "game_id", id, "event_type", ev.Type, "error", err)
	}
}
