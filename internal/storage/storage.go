package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jwebster45206/turtle-soup/pkg/state"
)

// Storage persists game history.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// SaveGame inserts or replaces a game and stamps its UpdatedAt.
	SaveGame(ctx context.Context, gs *state.GameState) error
	// LoadGame returns nil, nil for an unknown id.
	LoadGame(ctx context.Context, id uuid.UUID) (*state.GameState, error)
	// ListGames returns every game, most recently saved first.
	ListGames(ctx context.Context) ([]*state.GameState, error)
	DeleteGame(ctx context.Context, id uuid.UUID) error
}
