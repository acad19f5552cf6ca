// Package appstore is the process wide application state holding the current
// session view. Components read it freely; only the session reconciler writes.
package appstore

import "sync"

// Credentials is the payload of SetCredentials
type Credentials struct {
	Token string
	User  *User
}

// Snapshot is a consistent copy of the store
type Snapshot struct {
	Token string
	User  *User
}

type Store struct {
	mu    sync.RWMutex
	token string
	user  *User
}

func New() *Store {
	return &Store{}
}

// SetCredentials replaces both the token and the user record
func (s *Store) SetCredentials(c Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = c.Token
	s.user = c.User
}

// Logout clears both fields
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
}

func (s *Store) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Token: s.token, User: s.user}
}
