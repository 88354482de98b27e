package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/turtle-soup/pkg/state"
	"github.com/redis/go-redis/v9"
)

const (
	gameKeyPrefix = "game:"
	gamesIndexKey = "games" // sorted set of ids scored by last save time
)

// RedisStorage implements Storage with one JSON value per game plus a sorted
// index.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage connects to a redis:// URL, falling back to treating it as
// a plain host:port address.
func NewRedisStorage(redisURL string, logger *slog.Logger) *RedisStorage {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{Addr: redisURL}
	}
	return NewRedisStorageWithClient(redis.NewClient(opts), logger)
}

// NewRedisStorageWithClient wraps an existing client.
func NewRedisStorageWithClient(client *redis.Client, logger *slog.Logger) *RedisStorage {
	return &RedisStorage{client: client, logger: logger}
}

// Client exposes the underlying connection for pub/sub.
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Game operations

func (r *RedisStorage) SaveGame(ctx context.Context, gs *state.GameState) error {
	if gs == nil {
		return errors.New("gamestate cannot be nil")
	}
	gs.UpdatedAt = time.Now()

	data, err := json.Marshal(gs)
	if err != nil {
		r.logger.Error("Failed to marshal gamestate", "uuid", gs.ID, "error", err)
		return fmt.Errorf("failed to marshal gamestate: %w", err)
	}

	id := gs.ID.String()
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, gameKeyPrefix+id, data, 0)
		pipe.ZAdd(ctx, gamesIndexKey, redis.Z{Score: float64(gs.UpdatedAt.UnixNano()), Member: id})
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save gamestate", "uuid", id, "error", err)
		return fmt.Errorf("failed to save gamestate: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadGame(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	data, err := r.client.Get(ctx, gameKeyPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("Gamestate not found", "uuid", id)
			return nil, nil
		}
		r.logger.Error("Failed to load gamestate", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load gamestate: %w", err)
	}

	var gs state.GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		r.logger.Error("Failed to unmarshal gamestate", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal gamestate: %w", err)
	}
	return &gs, nil
}

func (r *RedisStorage) ListGames(ctx context.Context) ([]*state.GameState, error) {
	ids, err := r.client.ZRevRange(ctx, gamesIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	if len(ids) == 0 {
		return []*state.GameState{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = gameKeyPrefix + id
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load games: %w", err)
	}

	games := make([]*state.GameState, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// index entry without a value; drop it
			r.logger.Warn("Game index points at a missing game", "uuid", ids[i])
			continue
		}
		var gs state.GameState
		if err := json.Unmarshal([]byte(s), &gs); err != nil {
			r.logger.Warn("Skipping unreadable game", "uuid", ids[i], "error", err)
			continue
		}
		games = append(games, &gs)
	}
	return games, nil
}

func (r *RedisStorage) DeleteGame(ctx context.Context, id uuid.UUID) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, gameKeyPrefix+id.String())
		pipe.ZRem(ctx, gamesIndexKey, id.String())
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to delete gamestate", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete gamestate: %w", err)
	}
	return nil
}
