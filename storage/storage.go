// Package storage is the durable key-value layer that keeps a copy of the
// session token across process restarts and lets separate bytefit processes
// observe each other's logins and logouts.
package storage

import (
	"context"
	"errors"
)

// Keys used by the session layer
const (
	KeyToken  = "token"
	KeyUser   = "user"
	KeyUserID = "userId"
)

// SessionKeys are cleared together on logout
var SessionKeys = []string{KeyToken, KeyUser, KeyUserID}

// Change is delivered to watchers when another execution context mutates a
// watched key. Present is false when the key was removed.
type Change struct {
	Key     string
	Value   string
	Present bool
}

// Store is implemented by every backend. Watch only reports mutations made
// through other Store instances, never the caller's own writes. The returned
// channel is closed when ctx is done or the store is closed.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Watch(ctx context.Context, keys ...string) (<-chan Change, error)
	Close() error
}

// Clear removes every key, attempting all of them even when one fails
func Clear(ctx context.Context, s Store, keys ...string) error {
	var errs []error
	for _, k := range keys {
		if err := s.Remove(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Matches reports whether key is one of keys. An empty keys list matches everything.
func Matches(key string, keys []string) bool {
	if len(keys) == 0 {
		return true
	}
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
