package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrNotFound = errors.New("session not found")

// Data is everything kept server-side for one browser session.
type Data struct {
	UserID     string              `json:"userId,omitempty"`
	Email      string              `json:"email,omitempty"`
	Role       string              `json:"role,omitempty"`
	SupplierID string              `json:"supplierId,omitempty"`
	CartCount  int                 `json:"cartCount"`
	Flashes    map[string][]string `json:"flashes,omitempty"`
}

// empty reports whether there is nothing worth keeping: no user and no
// pending flashes.
func (d *Data) empty() bool {
	if d.UserID != "" {
		return false
	}
	for _, messages := range d.Flashes {
		if len(messages) > 0 {
			return false
		}
	}
	return true
}

type Store interface {
	Get(ctx context.Context, id string) (*Data, error)
	Save(ctx context.Context, id string, data *Data, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// sweepInterval bounds how often Save scans for expired entries.
const sweepInterval = time.Minute

// MemoryStore keeps sessions in process. Expired entries are dropped on read
// and swept on Save at most once per sweepInterval.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]memoryEntry
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Data, error) {
	s.mu.Lock()
	entry, ok := s.sessions[id]
	if ok && !s.now().Before(entry.expires) {
		delete(s.sessions, id)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	return decode(entry.data)
}

func (s *MemoryStore) Save(_ context.Context, id string, data *Data, ttl time.Duration) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= sweepInterval {
		for key, entry := range s.sessions {
			if !now.Before(entry.expires) {
				delete(s.sessions, key)
			}
		}
		s.lastSweep = now
	}
	s.sessions[id] = memoryEntry{data: b, expires: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// RedisStore keeps sessions in Redis under "session:<id>" with a TTL.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Data, error) {
	b, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(b)
}

func (s *RedisStore) Save(ctx context.Context, id string, data *Data, ttl time.Duration) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKey(id), b, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, redisKey(id)).Err()
}

func redisKey(id string) string {
	return "session:" + id
}

func decode(b []byte) (*Data, error) {
	data := &Data{}
	if err := json.Unmarshal(b, data); err != nil {
		return nil, err
	}
	return data, nil
}
