package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeGameCreated   EventType = "game.created"
	EventTypeGameReady     EventType = "game.ready"
	EventTypeGameTurn      EventType = "game.turn"
	EventTypeGameHint      EventType = "game.hint"
	EventTypeGameCompleted EventType = "game.completed"
	EventTypeRequestFailed EventType = "request.failed"
)

// Event represents a generic event structure
type Event struct {
	Type   EventType      `json:"type"`
	GameID string         `json:"game_id,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// Publisher delivers game events to whoever watches a game.
type Publisher interface {
	Publish(ctx context.Context, gameID uuid.UUID, event Event) error
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, uuid.UUID, Event) error { return nil }

// Channel is the pub/sub channel for a game.
func Channel(gameID uuid.UUID) string {
	return "game-events:" + gameID.String()
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

var _ Publisher = (*Broadcaster)(nil)

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Publish sends event on the game's channel.
func (b *Broadcaster) Publish(ctx context.Context, gameID uuid.UUID, event Event) error {
	event.GameID = gameID.String()
	channel := Channel(gameID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published", "channel", channel, "event_type", event.Type)
	return nil
}

// Subscribe streams the events of one game until ctx ends or close is
// called. Undecodable payloads are dropped.
func (b *Broadcaster) Subscribe(ctx context.Context, gameID uuid.UUID) (<-chan Event, func() error, error) {
	pubsub := b.redisClient.Subscribe(ctx, Channel(gameID))
	// wait for the subscription so no event published after return is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Error("Failed to unmarshal event", "error", err, "payload", msg.Payload)
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, pubsub.Close, nil
}

// Game lifecycle helpers

func GameCreated(tags []string, difficulty string) Event {
	return Event{Type: EventTypeGameCreated, Data: map[string]any{"tags": tags, "difficulty": difficulty}}
}

func GameReady(emoji, title string) Event {
	return Event{Type: EventTypeGameReady, Data: map[string]any{"emoji": emoji, "title": title}}
}

func GameTurn(mode string, turnsUsed, turnsLeft int) Event {
	return Event{Type: EventTypeGameTurn, Data: map[string]any{"mode": mode, "turns_used": turnsUsed, "turns_left": turnsLeft}}
}

func GameHint(hintsUsed, hintsLeft int) Event {
	return Event{Type: EventTypeGameHint, Data: map[string]any{"hints_used": hintsUsed, "hints_left": hintsLeft}}
}

func GameCompleted(success bool, rank string, score int) Event {
	return Event{Type: EventTypeGameCompleted, Data: map[string]any{"success": success, "rank": rank, "final_score": score}}
}

func RequestFailed(operation string, err error) Event {
	return Event{Type: EventTypeRequestFailed, Data: map[string]any{"operation": operation, "error": err.Error()}}
}
