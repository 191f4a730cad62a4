// Package users holds user accounts behind an injected store
// abstraction, so auth handlers never touch storage details directly.
package users

import (
	"errors"
	"sync"
	"time"
)

// Store errors.
var (
	ErrNotFound = errors.New("user not found")
	ErrExists   = errors.New("user already exists")
)

// User is one registered account. HashedPassword is a bcrypt hash,
// never the plaintext.
type User struct {
	ID             string
	Email          string
	FullName       string
	HashedPassword string
	CreatedAt      time.Time
	Active         bool
}

// Store is the account storage abstraction. Implementations must be
// safe for concurrent use.
type Store interface {
	// Get returns the user with the given email, or ErrNotFound.
	Get(email string) (*User, error)

	// Create adds a new user. Returns ErrExists when the email is taken.
	Create(u *User) error

	// Delete removes the user with the given email, or ErrNotFound.
	Delete(email string) error

	// Count returns the number of stored users.
	Count() int
}

// MemoryStore is an in-memory Store for single-process deployments and
// tests. Returned users are copies; mutations never leak back.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User // keyed by email
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]User)}
}

func (s *MemoryStore) Get(email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) Create(u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[u.Email]; exists {
		return ErrExists
	}
	s.users[u.Email] = *u
	return nil
}

func (s *MemoryStore) Delete(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[email]; !exists {
		return ErrNotFound
	}
	delete(s.users, email)
	return nil
}

func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
