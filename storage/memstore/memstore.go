// Package memstore is an in-memory storage.Store. A Shared backend hands out
// per-context views so tests can play several processes against one store.
package memstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/bytefit/internal/errors"
	"github.com/jrsteele09/bytefit/storage"
)

const watchBuffer = 16

type watcher struct {
	owner string
	keys  []string
	ch    chan storage.Change
}

// Shared holds the data all contexts see
type Shared struct {
	mu       sync.Mutex
	data     map[string]string
	watchers map[*watcher]struct{}
}

func New() *Shared {
	return &Shared{
		data:     make(map[string]string),
		watchers: make(map[*watcher]struct{}),
	}
}

// Context returns a new execution context view over the shared data
func (s *Shared) Context() *Store {
	return &Store{shared: s, id: uuid.NewString(), done: make(chan struct{})}
}

// drop must be called with s.mu held. It is safe to call twice.
func (s *Shared) drop(w *watcher) {
	if _, ok := s.watchers[w]; !ok {
		return
	}
	delete(s.watchers, w)
	close(w.ch)
}

// notify must be called with s.mu held. A full buffer already guarantees the
// watcher will re-read state, so dropping is safe.
func (s *Shared) notify(origin string, change storage.Change) {
	for w := range s.watchers {
		if w.owner == origin || !storage.Matches(change.Key, w.keys) {
			continue
		}
		select {
		case w.ch <- change:
		default:
		}
	}
}

// Store is one execution context's view
type Store struct {
	shared *Shared
	id     string
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

var _ storage.Store = (*Store)(nil)

func (m *Store) Get(_ context.Context, key string) (string, bool, error) {
	if m.isClosed() {
		return "", false, errors.ErrStorageClosed
	}
	m.shared.mu.Lock()
	defer m.shared.mu.Unlock()
	v, ok := m.shared.data[key]
	return v, ok, nil
}

func (m *Store) Set(_ context.Context, key, value string) error {
	if m.isClosed() {
		return errors.ErrStorageClosed
	}
	m.shared.mu.Lock()
	defer m.shared.mu.Unlock()
	m.shared.data[key] = value
	m.shared.notify(m.id, storage.Change{Key: key, Value: value, Present: true})
	return nil
}

func (m *Store) Remove(_ context.Context, key string) error {
	if m.isClosed() {
		return errors.ErrStorageClosed
	}
	m.shared.mu.Lock()
	defer m.shared.mu.Unlock()
	if _, ok := m.shared.data[key]; !ok {
		return nil
	}
	delete(m.shared.data, key)
	m.shared.notify(m.id, storage.Change{Key: key})
	return nil
}

func (m *Store) Watch(ctx context.Context, keys ...string) (<-chan storage.Change, error) {
	if m.isClosed() {
		return nil, errors.ErrStorageClosed
	}
	w := &watcher{owner: m.id, keys: keys, ch: make(chan storage.Change, watchBuffer)}

	m.shared.mu.Lock()
	m.shared.watchers[w] = struct{}{}
	m.shared.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-m.done:
		}
		m.shared.mu.Lock()
		m.shared.drop(w)
		m.shared.mu.Unlock()
	}()
	return w.ch, nil
}

// Close stops the view from serving requests and closes its watch channels
func (m *Store) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.done)
	m.mu.Unlock()

	m.shared.mu.Lock()
	defer m.shared.mu.Unlock()
	for w := range m.shared.watchers {
		if w.owner == m.id {
			m.shared.drop(w)
		}
	}
	return nil
}

func (m *Store) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
