// Package redisstore keeps the session keys in a redis hash and announces
// every mutation on a pub/sub channel so other processes can react.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	bferrors "github.com/jrsteele09/bytefit/internal/errors"
	"github.com/jrsteele09/bytefit/storage"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// changeMessage is published on every mutation
type changeMessage struct {
	Origin string `json:"origin"`
	Key    string `json:"key"`
}

type Store struct {
	client    redis.UniversalClient
	ownClient bool
	hashKey   string
	channel   string
	origin    string

	mu     sync.Mutex
	closed bool
}

var _ storage.Store = (*Store)(nil)

// NewFromURL connects to redis using a redis:// URL
func NewFromURL(url, namespace string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("[redisstore NewFromURL] %w", err)
	}
	s := New(redis.NewClient(opts), namespace)
	s.ownClient = true
	return s, nil
}

// New wraps an existing client. Every Store gets its own origin id.
func New(client redis.UniversalClient, namespace string) *Store {
	return &Store{
		client:  client,
		hashKey: namespace + ":session",
		channel: namespace + ":session:changes",
		origin:  uuid.NewString(),
	}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if s.isClosed() {
		return "", false, bferrors.ErrStorageClosed
	}
	v, err := s.client.HGet(ctx, s.hashKey, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("[redisstore Get] %w", err)
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if s.isClosed() {
		return bferrors.ErrStorageClosed
	}
	if err := s.client.HSet(ctx, s.hashKey, key, value).Err(); err != nil {
		return fmt.Errorf("[redisstore Set] %w", err)
	}
	return s.publish(ctx, key)
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if s.isClosed() {
		return bferrors.ErrStorageClosed
	}
	removed, err := s.client.HDel(ctx, s.hashKey, key).Result()
	if err != nil {
		return fmt.Errorf("[redisstore Remove] %w", err)
	}
	if removed == 0 {
		return nil
	}
	return s.publish(ctx, key)
}

// Watch subscribes to the change channel. The subscription is confirmed before
// Watch returns, so no later mutation is missed.
func (s *Store) Watch(ctx context.Context, keys ...string) (<-chan storage.Change, error) {
	if s.isClosed() {
		return nil, bferrors.ErrStorageClosed
	}

	ps := s.client.Subscribe(ctx, s.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("[redisstore Watch] subscribe: %w", err)
	}

	changes := make(chan storage.Change)
	go func() {
		defer close(changes)
		defer ps.Close()

		messages := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				change, ok := s.decode(ctx, msg.Payload, keys)
				if !ok {
					continue
				}
				select {
				case changes <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return changes, nil
}

// Close releases the client when the store created it
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.ownClient {
		return s.client.Close()
	}
	return nil
}

func (s *Store) publish(ctx context.Context, key string) error {
	payload, err := json.Marshal(changeMessage{Origin: s.origin, Key: key})
	if err != nil {
		return fmt.Errorf("[redisstore publish] %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("[redisstore publish] %w", err)
	}
	return nil
}

func (s *Store) decode(ctx context.Context, payload string, keys []string) (storage.Change, bool) {
	var msg changeMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		log.Warn().Err(err).Str("channel", s.channel).Msg("ignoring malformed change message")
		return storage.Change{}, false
	}
	if msg.Origin == s.origin || !storage.Matches(msg.Key, keys) {
		return storage.Change{}, false
	}

	value, present, err := s.Get(ctx, msg.Key)
	if err != nil {
		log.Warn().Err(err).Str("key", msg.Key).Msg("change re-read failed")
		return storage.Change{}, false
	}
	return storage.Change{Key: msg.Key, Value: value, Present: present}, true
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
