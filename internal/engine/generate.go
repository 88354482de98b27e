package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jwebster45206/turtle-soup/internal/logger"
	"github.com/jwebster45206/turtle-soup/internal/services"
	"github.com/jwebster45206/turtle-soup/internal/services/events"
	"github.com/jwebster45206/turtle-soup/pkg/prompts"
	"github.com/jwebster45206/turtle-soup/pkg/puzzle"
	"github.com/jwebster45206/turtle-soup/pkg/state"
)

// ErrBadPuzzle means the story model finished but its document did not parse.
var ErrBadPuzzle = errors.New("generated puzzle is malformed")

// EventKind tags a generation progress event.
type EventKind string

const (
	EventChunk EventKind = "chunk" // streamed text, reasoning included
	EventPhase EventKind = "phase" // a document field started
	EventTitle EventKind = "title" // emoji and title known early
)

// Event reports generation progress to the caller.
type Event struct {
	Kind  EventKind `json:"kind"`
	Text  string    `json:"text,omitempty"`
	Phase int       `json:"phase,omitempty"`
	Label string    `json:"label,omitempty"`
	Emoji string    `json:"emoji,omitempty"`
	Title string    `json:"title,omitempty"`
}

// Generate streams a new puzzle for gs from the story model. Progress is
// reported through onEvent, which runs on the calling goroutine. On success
// the game is active and saved; on failure nothing is saved.
func (e *Engine) Generate(ctx context.Context, gs *state.GameState, onEvent func(Event)) error {
	if onEvent == nil {
		onEvent = func(Event) {}
	}
	e.publish(ctx, gs.ID, events.GameCreated(gs.Tags, string(gs.Difficulty)))

	messages, err := prompts.New().WithGameState(gs).Build()
	if err != nil {
		return fmt.Errorf("failed to build generate prompt: %w", err)
	}

	streamCtx, cancel := context.WithTimeout(ctx, GenerateTimeout)
	defer cancel()

	log := logger.WithGame(e.logger, gs.ID)
	log.Info("Generating puzzle", "tags", gs.Tags, "difficulty", gs.Difficulty, "model", e.storyModel)
	stream, err := e.llm.ChatStream(streamCtx, e.storyModel, messages, services.ChatOptions{Thinking: true})
	if err != nil {
		e.publish(ctx, gs.ID, events.RequestFailed("generate", err))
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	var full strings.Builder
	shown := puzzle.PhaseThinking
	titleSent := false

	showPhase := func(p int) {
		if p <= shown {
			return
		}
		shown = p
		onEvent(Event{Kind: EventPhase, Phase: p, Label: puzzle.PhaseLabels[p]})
	}

	for chunk := range stream {
		if chunk.Error != nil {
			e.publish(ctx, gs.ID, events.RequestFailed("generate", chunk.Error))
			return fmt.Errorf("%w: %v", ErrUpstream, chunk.Error)
		}
		if text := chunk.Reasoning + chunk.Content; text != "" {
			onEvent(Event{Kind: EventChunk, Text: text})
		}
		if chunk.Content != "" {
			full.WriteString(chunk.Content)
			text := full.String()
			for _, p := range puzzle.Markers(text) {
				showPhase(p)
			}
			if !titleSent {
				if emoji, title, ok := puzzle.ExtractTitle(text); ok {
					titleSent = true
					onEvent(Event{Kind: EventTitle, Emoji: emoji, Title: title})
				}
			}
		}
		if chunk.Done {
			break
		}
	}
	if err := streamCtx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	// the last two phases always show, even if their markers never streamed
	showPhase(puzzle.PhaseAnswer)
	showPhase(puzzle.PhaseKeyPoints)

	p, err := puzzle.Parse(full.String())
	if err != nil {
		log.Warn("Generated puzzle did not parse", "error", err, "length", full.Len())
		e.publish(ctx, gs.ID, events.RequestFailed("generate", err))
		return fmt.Errorf("%w: %v", ErrBadPuzzle, err)
	}

	gs.Activate(p)
	if err := e.save(ctx, gs); err != nil {
		return err
	}
	e.publish(ctx, gs.ID, events.GameReady(p.Emoji, p.Title))
	log.Info("Puzzle ready", "title", p.Title, "key_points", len(p.KeyPoints))
	return nil
}
