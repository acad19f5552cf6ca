package authflow

import (
	"errors"
	"sync"
	"time"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu     sync.RWMutex
	states map[string]State
}

var _ Repo = (*InMemoryRepo)(nil)

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		states: make(map[string]State),
	}
}

func (r *InMemoryRepo) Upsert(state string, flow *State) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if flow == nil {
		return errors.New("flow cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[state] = *flow
	return nil
}

// Get returns a copy so callers cannot mutate stored state
func (r *InMemoryRepo) Get(state string) (*State, error) {
	if state == "" {
		return nil, errors.New("state cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	flow, ok := r.states[state]
	if !ok {
		return nil, errors.New("state not found")
	}
	return &flow, nil
}

func (r *InMemoryRepo) Delete(state string) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, state)
	return nil
}

// DeleteExpired drops flows created before the cutoff and returns how many went
func (r *InMemoryRepo) DeleteExpired(before time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for state, flow := range r.states {
		if flow.CreatedAt.Before(before) {
			delete(r.states, state)
			n++
		}
	}
	return n
}
