package pvpchess

import (
	"context"
	"sort"
	"sync"
)

// GameStore is the durable key-value home of games. Save either fully applies or
// returns an error.
type GameStore interface {
	Save(ctx context.Context, g *Game) error
	LoadOngoing(ctx context.Context) ([]*Game, error)
}

// MemoryStore keeps deep copies of games in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	games map[string]*Game
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[string]*Game)}
}

func (s *MemoryStore) Save(_ context.Context, g *Game) error {
	if g == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID] = g.Clone()
	return nil
}

// Load returns a copy of the stored game, or nil when unknown.
func (s *MemoryStore) Load(_ context.Context, id string) (*Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.games[id].Clone(), nil
}

func (s *MemoryStore) LoadOngoing(_ context.Context) ([]*Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Game
	for _, g := range s.games {
		if !g.IsOver() {
			out = append(out, g.Clone())
		}
	}
	sortByCreation(out)
	return out, nil
}

func sortByCreation(list []*Game) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
