package session

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store for single-instance deployments and
// tests. Sessions do not survive a restart.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[int64]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[int64]string)}
}

func (s *MemoryStore) SetCurrent(_ context.Context, userID int64, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[userID] = token
	return nil
}

func (s *MemoryStore) Current(_ context.Context, userID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[userID]
	if !ok {
		return "", ErrNoSession
	}
	return token, nil
}
