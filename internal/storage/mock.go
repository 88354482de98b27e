package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/turtle-soup/pkg/state"
)

// MockStorage is an in-memory Storage for testing. It stores JSON copies so
// callers never share pointers with what was saved.
type MockStorage struct {
	mu        sync.RWMutex
	games     map[uuid.UUID][]byte
	saved     map[uuid.UUID]time.Time
	pingError error
	saveError error
	saves     int
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		games: make(map[uuid.UUID][]byte),
		saved: make(map[uuid.UUID]time.Time),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail on save with the given error
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// Saves reports how many successful saves happened.
func (m *MockStorage) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveGame mocks saving a gamestate
func (m *MockStorage) SaveGame(ctx context.Context, gs *state.GameState) error {
	if gs == nil {
		return errors.New("gamestate cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	gs.UpdatedAt = time.Now()
	data, err := json.Marshal(gs)
	if err != nil {
		return err
	}
	m.games[gs.ID] = data
	m.saved[gs.ID] = gs.UpdatedAt
	m.saves++
	return nil
}

// LoadGame mocks loading a gamestate
func (m *MockStorage) LoadGame(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.games[id]
	if !ok {
		return nil, nil
	}
	var gs state.GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}

// ListGames mocks listing games, most recently saved first
func (m *MockStorage) ListGames(ctx context.Context) ([]*state.GameState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(m.games))
	for id := range m.games {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return m.saved[ids[i]].After(m.saved[ids[j]]) })

	games := make([]*state.GameState, 0, len(ids))
	for _, id := range ids {
		var gs state.GameState
		if err := json.Unmarshal(m.games[id], &gs); err != nil {
			return nil, err
		}
		games = append(games, &gs)
	}
	return games, nil
}

// DeleteGame mocks deleting a gamestate
func (m *MockStorage) DeleteGame(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, id)
	delete(m.saved, id)
	return nil
}
