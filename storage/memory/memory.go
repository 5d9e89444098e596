// Package memory provides a thread-safe in-memory implementation of storage.UserRepository.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmcleod/gatehouse/storage"
)

// Repository is a thread-safe in-memory implementation of storage.UserRepository.
// Suitable for testing, demos, and single-process use cases.
type Repository struct {
	mu      sync.RWMutex
	users   map[int64]*storage.User
	byEmail map[string]int64
	nextID  int64
}

var _ storage.UserRepository = (*Repository)(nil)

// NewRepository creates a new empty in-memory Repository.
func NewRepository() *Repository {
	return &Repository{
		users:   make(map[int64]*storage.User),
		byEmail: make(map[string]int64),
	}
}

func cloneUser(u *storage.User) *storage.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func (r *Repository) GetByEmail(_ context.Context, email string) (*storage.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[storage.EmailKey(email)]
	if !ok {
		return nil, fmt.Errorf("email %q: %w", email, storage.ErrNotFound)
	}
	return cloneUser(r.users[id]), nil
}

func (r *Repository) GetByID(_ context.Context, id int64) (*storage.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getLocked(id)
}

func (r *Repository) getLocked(id int64) (*storage.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("id %d: %w", id, storage.ErrNotFound)
	}
	return cloneUser(u), nil
}

func (r *Repository) Create(_ context.Context, user *storage.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := storage.EmailKey(user.Email)
	if _, exists := r.byEmail[key]; exists {
		return storage.ErrDuplicateEmail
	}
	r.nextID++
	user.ID = r.nextID
	user.Email = storage.NormalizeEmail(user.Email)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.users[user.ID] = cloneUser(user)
	r.byEmail[key] = user.ID
	return nil
}

func (r *Repository) UpdateName(_ context.Context, id int64, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("id %d: %w", id, storage.ErrNotFound)
	}
	u.Name = name
	return nil
}

func (r *Repository) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("id %d: %w", id, storage.ErrNotFound)
	}
	u.PasswordHash = passwordHash
	return nil
}

// Len returns the number of stored users.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
