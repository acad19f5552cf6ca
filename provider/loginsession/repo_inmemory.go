package loginsession

import (
	"fmt"
	"sync"

	"github.com/jrsteele09/bytefit/internal/errors"
)

// InMemoryRepo is an in-memory implementation of Repo
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

var _ Repo = (*InMemoryRepo)(nil)

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]Session),
	}
}

func (r *InMemoryRepo) Upsert(clientID string, session Session) error {
	if clientID == "" {
		return fmt.Errorf("clientID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[clientID] = session
	return nil
}

// Get returns errors.ErrNotFound when no session is held for clientID
func (r *InMemoryRepo) Get(clientID string) (Session, error) {
	if clientID == "" {
		return Session{}, fmt.Errorf("clientID is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[clientID]
	if !ok {
		return Session{}, errors.ErrNotFound
	}
	return session, nil
}

func (r *InMemoryRepo) Delete(clientID string) error {
	if clientID == "" {
		return fmt.Errorf("clientID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, clientID)
	return nil
}
