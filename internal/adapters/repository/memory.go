package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/coach/internal/domain/profile"
)

// MemoryStore keeps deep copies of profiles in a map.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]profile.Profile
	closed   bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]profile.Profile)}
}

func (s *MemoryStore) Driver() string { return DriverMemory }

func (s *MemoryStore) Get(_ context.Context, playerID string) (p profile.Profile, err error) {
	start := time.Now()
	defer func() { observe(DriverMemory, "get", start, err) }()
	if err = validID(playerID); err != nil {
		return profile.Profile{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return profile.Profile{}, ErrClosed
	}
	stored, ok := s.profiles[playerID]
	if !ok {
		return profile.Profile{}, ErrNotFound
	}
	return stored.Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, playerID string, p profile.Profile) (err error) {
	start := time.Now()
	defer func() { observe(DriverMemory, "put", start, err) }()
	if err = validID(playerID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.profiles[playerID] = p.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, playerID)
	return nil
}

func (s *MemoryStore) List(_ context.Context, limit, offset int) ([]string, error) {
	limit, offset = clampPage(limit, offset)
	s.mu.RLock()
	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	if offset >= len(ids) {
		return []string{}, nil
	}
	ids = ids[offset:]
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles), nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
