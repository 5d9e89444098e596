package session

import (
	"fmt"
	"sync"
)

// MemoryStore is a thread-safe in-memory Store.
// Sessions are lost on server restart.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string]Identity
	newToken func() (string, error)
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:     make(map[string]Identity),
		newToken: newToken,
	}
}

// maxTokenAttempts bounds redraws on a collision with a live token.
const maxTokenAttempts = 4

func (s *MemoryStore) Create(id Identity) (string, error) {
	for range maxTokenAttempts {
		token, err := s.newToken()
		if err != nil {
			return "", fmt.Errorf("creating session token: %w", err)
		}
		s.mu.Lock()
		if _, taken := s.data[token]; !taken {
			s.data[token] = id
			s.mu.Unlock()
			return token, nil
		}
		s.mu.Unlock()
	}
	return "", fmt.Errorf("creating session token: %d collisions", maxTokenAttempts)
}

func (s *MemoryStore) Get(token string) (Identity, bool) {
	if !validToken(token) {
		return Identity{}, false
	}
	s.mu.RLock()
	id, ok := s.data[token]
	s.mu.RUnlock()
	return id, ok
}

func (s *MemoryStore) Delete(token string) {
	s.mu.Lock()
	delete(s.data, token)
	s.mu.Unlock()
}

func (s *MemoryStore) Update(token string, fn func(*Identity)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.data[token]
	if !ok {
		return false
	}
	fn(&id)
	s.data[token] = id
	return true
}

func (s *MemoryStore) UpdateUser(userID int64, fn func(*Identity)) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for token, id := range s.data {
		if id.ID != userID {
			continue
		}
		fn(&id)
		s.data[token] = id
		n++
	}
	return n
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
