package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/turtle-soup/pkg/state"
	_ "modernc.org/sqlite"
)

// SQLiteStorage implements Storage with a single games table holding the
// JSON payload next to a few indexed columns.
type SQLiteStorage struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens (or creates) the database at path and migrates it.
func NewSQLiteStorage(path string, logger *slog.Logger) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer keeps the pure-Go driver free of SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteStorage{db: db, logger: logger}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the schema if needed.
func (s *SQLiteStorage) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS games (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			payload TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_games_updated_at ON games(updated_at DESC)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) SaveGame(ctx context.Context, gs *state.GameState) error {
	if gs == nil {
		return errors.New("gamestate cannot be nil")
	}
	gs.UpdatedAt = time.Now()

	data, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("failed to marshal gamestate: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO games (id, status, started_at, updated_at, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at,
			payload = excluded.payload`,
		gs.ID.String(), string(gs.Status), gs.StartedAt.UnixNano(), gs.UpdatedAt.UnixNano(), string(data))
	if err != nil {
		s.logger.Error("Failed to save gamestate", "uuid", gs.ID, "error", err)
		return fmt.Errorf("failed to save gamestate: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) LoadGame(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM games WHERE id = ?`, id.String()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load gamestate: %w", err)
	}

	var gs state.GameState
	if err := json.Unmarshal([]byte(payload), &gs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gamestate: %w", err)
	}
	return &gs, nil
}

func (s *SQLiteStorage) ListGames(ctx context.Context) ([]*state.GameState, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, payload FROM games ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	games := []*state.GameState{}
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		var gs state.GameState
		if err := json.Unmarshal([]byte(payload), &gs); err != nil {
			s.logger.Warn("Skipping unreadable game", "uuid", id, "error", err)
			continue
		}
		games = append(games, &gs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

func (s *SQLiteStorage) DeleteGame(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete gamestate: %w", err)
	}
	return nil
}
