package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

// Window is one fixed-window counter for a key.
type Window struct {
	Count   int       `json:"count"`
	ResetAt time.Time `json:"reset_at"`
}

// Store abstracts where windows live. The in-memory store is correct for
// single-instance deployments; multi-instance deployments need the Redis
// store so all instances share one counter per key.
type Store interface {
	Get(key string) (*Window, error) // nil, nil when the key is absent
	Set(key string, w *Window, ttl time.Duration) error
	Delete(key string) error
}

// MemoryStore keeps windows in a mutex-guarded map. Expired entries are
// purged lazily on read and by the optional background sweeper so memory
// stays bounded under sustained traffic from many distinct keys.
type MemoryStore struct {
	mu      sync.RWMutex
	windows map[string]Window
	stopCh  chan struct{}
	once    sync.Once
}

// NewMemoryStore creates an empty in-memory window store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]Window),
		stopCh:  make(chan struct{}),
	}
}

func (s *MemoryStore) Get(key string) (*Window, error) {
	s.mu.RLock()
	w, ok := s.windows[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if time.Now().After(w.ResetAt) {
		// Lazy purge of the elapsed window.
		s.mu.Lock()
		if cur, ok := s.windows[key]; ok && time.Now().After(cur.ResetAt) {
			delete(s.windows, key)
		}
		s.mu.Unlock()
		return nil, nil
	}
	return &w, nil
}

func (s *MemoryStore) Set(key string, w *Window, _ time.Duration) error {
	if w == nil {
		return errors.New("ratelimit: nil window")
	}
	s.mu.Lock()
	s.windows[key] = *w
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	delete(s.windows, key)
	s.mu.Unlock()
	return nil
}

// Sweep removes all expired windows and returns how many were purged.
func (s *MemoryStore) Sweep() int {
	now := time.Now()
	purged := 0
	s.mu.Lock()
	for key, w := range s.windows {
		if now.After(w.ResetAt) {
			delete(s.windows, key)
			purged++
		}
	}
	s.mu.Unlock()
	return purged
}

// StartSweeper runs Sweep on the given interval until Stop is called.
func (s *MemoryStore) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if purged := s.Sweep(); purged > 0 {
					log.Debugf("[RateLimit] purged %d expired windows", purged)
				}
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the background sweeper.
func (s *MemoryStore) Stop() {
	s.once.Do(func() {
		close(s.stopCh)
	})
}

// RedisStore shares windows across instances via Redis. Keys carry a TTL
// slightly past the window reset, so Redis garbage-collects them itself.
type RedisStore struct {
	client *redis.Client
	prefix string
	ctx    context.Context
}

// NewRedisStore creates a Redis-backed window store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "ratelimit:",
		ctx:    context.Background(),
	}
}

func (s *RedisStore) Get(key string) (*Window, error) {
	val, err := s.client.Get(s.ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var w Window
	if err := json.Unmarshal([]byte(val), &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *RedisStore) Set(key string, w *Window, ttl time.Duration) error {
	if w == nil {
		return errors.New("ratelimit: nil window")
	}
	data, err := json.Marshal(w)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = time.Until(w.ResetAt) + time.Minute
	}
	return s.client.Set(s.ctx, s.prefix+key, data, ttl).Err()
}

func (s *RedisStore) Delete(key string) error {
	return s.client.Del(s.ctx, s.prefix+key).Err()
}
