package loginsession

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/bytefit/internal/errors"
	"github.com/jrsteele09/bytefit/storage"
)

// KeyPrefix namespaces provider sessions inside the shared store
const KeyPrefix = "oauth2.session."

const storageTimeout = 5 * time.Second

// StorageRepo keeps sessions in a storage.Store so every bytefit process
// sharing that store sees the same provider login.
type StorageRepo struct {
	store storage.Store
}

var _ Repo = (*StorageRepo)(nil)

func NewStorageRepo(store storage.Store) *StorageRepo {
	return &StorageRepo{store: store}
}

// Key is the storage key holding clientID's session
func Key(clientID string) string {
	return KeyPrefix + clientID
}

func (r *StorageRepo) Upsert(clientID string, session Session) error {
	if clientID == "" {
		return fmt.Errorf("clientID is required")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("[StorageRepo Upsert] %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	if err := r.store.Set(ctx, Key(clientID), string(data)); err != nil {
		return fmt.Errorf("[StorageRepo Upsert] %w", err)
	}
	return nil
}

func (r *StorageRepo) Get(clientID string) (Session, error) {
	if clientID == "" {
		return Session{}, fmt.Errorf("clientID is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	raw, ok, err := r.store.Get(ctx, Key(clientID))
	if err != nil {
		return Session{}, fmt.Errorf("[StorageRepo Get] %w", err)
	}
	if !ok {
		return Session{}, errors.ErrNotFound
	}

	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return Session{}, fmt.Errorf("[StorageRepo Get] %w", err)
	}
	return session, nil
}

func (r *StorageRepo) Delete(clientID string) error {
	if clientID == "" {
		return fmt.Errorf("clientID is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	if err := r.store.Remove(ctx, Key(clientID)); err != nil {
		return fmt.Errorf("[StorageRepo Delete] %w", err)
	}
	return nil
}
