// Package filestore keeps the session keys in a JSON file. Other processes
// sharing the file are observed with fsnotify, and values can be sealed with
// a 32 byte secretbox key.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
	"github.com/jrsteele09/bytefit/internal/errors"
	"github.com/jrsteele09/bytefit/storage"
	"github.com/rs/zerolog/log"
)

const fileMode = 0o600

type Option func(*Store)

// WithSealKey seals every stored value with key, which must be 32 bytes
func WithSealKey(key []byte) Option {
	return func(s *Store) {
		s.rawKey = key
	}
}

type watcher struct {
	keys []string
	last map[string]string // raw values as last seen or written by this process
}

type Store struct {
	path   string
	rawKey []byte
	key    *[32]byte
	// lock serializes read-modify-write cycles across processes sharing path
	lock *flock.Flock

	mu       sync.Mutex
	watchers map[*watcher]struct{}
	done     chan struct{}
	closed   bool
}

var _ storage.Store = (*Store)(nil)

// New opens (without creating) the store file at path. The parent folder is created.
func New(path string, options ...Option) (*Store, error) {
	s := &Store{
		path:     path,
		lock:     flock.New(path + ".lock"),
		watchers: make(map[*watcher]struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}

	if s.rawKey != nil {
		if len(s.rawKey) != 32 {
			return nil, fmt.Errorf("[filestore New] %w: got %d bytes", errors.ErrInvalidKeySize, len(s.rawKey))
		}
		s.key = new([32]byte)
		copy(s.key[:], s.rawKey)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("[filestore New] create folder: %w", err)
	}
	return s, nil
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, errors.ErrStorageClosed
	}

	data, err := s.read()
	if err != nil {
		return "", false, err
	}
	raw, ok := data[key]
	if !ok {
		return "", false, nil
	}
	value, err := s.open(raw)
	if err != nil {
		return "", false, errors.Wrapf(err, "[filestore Get] %s", key)
	}
	return value, true, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrStorageClosed
	}

	raw, err := s.seal(value)
	if err != nil {
		return err
	}
	return s.mutate(func(data map[string]string) {
		data[key] = raw
	})
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrStorageClosed
	}
	return s.mutate(func(data map[string]string) {
		delete(data, key)
	})
}

// Watch reports changes written to the file by other processes
func (s *Store) Watch(ctx context.Context, keys ...string) (<-chan storage.Change, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.ErrStorageClosed
	}
	current, err := s.read()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	w := &watcher{keys: keys, last: filter(current, keys)}
	s.watchers[w] = struct{}{}
	s.mu.Unlock()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		s.dropWatcher(w)
		return nil, fmt.Errorf("[filestore Watch] %w", err)
	}
	// Writes replace the file by rename, so the folder is watched rather than the file
	if err := fw.Add(filepath.Dir(s.path)); err != nil {
		_ = fw.Close()
		s.dropWatcher(w)
		return nil, fmt.Errorf("[filestore Watch] %w", err)
	}

	changes := make(chan storage.Change)
	go s.watchLoop(ctx, fw, w, changes)
	return changes, nil
}

func (s *Store) watchLoop(ctx context.Context, fw *fsnotify.Watcher, w *watcher, changes chan<- storage.Change) {
	defer close(changes)
	defer s.dropWatcher(w)
	defer fw.Close()

	base := filepath.Base(s.path)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("path", s.path).Msg("storage watch error")
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			for _, c := range s.diff(w) {
				select {
				case changes <- c:
				case <-ctx.Done():
					return
				case <-s.done:
					return
				}
			}
		}
	}
}

// diff re-reads the file and returns what changed since the watcher last looked
func (s *Store) diff(w *watcher) []storage.Change {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read()
	if err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("storage re-read failed")
		return nil
	}
	current = filter(current, w.keys)

	var out []storage.Change
	for k, raw := range current {
		if prev, ok := w.last[k]; ok && prev == raw {
			continue
		}
		value, err := s.open(raw)
		if err != nil {
			log.Warn().Err(err).Str("key", k).Msg("storage value could not be opened")
			continue
		}
		out = append(out, storage.Change{Key: k, Value: value, Present: true})
	}
	for k := range w.last {
		if _, ok := current[k]; !ok {
			out = append(out, storage.Change{Key: k})
		}
	}
	w.last = current
	return out
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	return s.lock.Close()
}

func (s *Store) dropWatcher(w *watcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watchers, w)
}

// mutate must be called with s.mu held. The file lock is held from read to
// rename. It also records the result as seen by this process's watchers so
// our own writes are not reported back to us.
func (s *Store) mutate(fn func(map[string]string)) error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("[filestore mutate] lock %s: %w", s.lock.Path(), err)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			log.Warn().Err(err).Str("path", s.lock.Path()).Msg("storage unlock failed")
		}
	}()

	data, err := s.read()
	if err != nil {
		return err
	}
	fn(data)
	if err := s.write(data); err != nil {
		return err
	}
	for w := range s.watchers {
		w.last = filter(data, w.keys)
	}
	return nil
}

func (s *Store) read() (map[string]string, error) {
	data := map[string]string{}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[filestore read] %w", err)
	}
	if len(b) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("[filestore read] decode %s: %w", s.path, err)
	}
	return data, nil
}

func (s *Store) write(data map[string]string) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("[filestore write] %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".bytefit-*")
	if err != nil {
		return fmt.Errorf("[filestore write] %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("[filestore write] %w", err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("[filestore write] %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[filestore write] %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("[filestore write] %w", err)
	}
	return nil
}

func filter(data map[string]string, keys []string) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		if storage.Matches(k, keys) {
			out[k] = v
		}
	}
	return out
}
