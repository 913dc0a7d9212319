package thumbnail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/simonhull/mediaprobe/internal/syncmap"
	"github.com/simonhull/mediaprobe/internal/types"
)

// ErrNotFound is returned by a Store for unknown thumbnail ids.
var ErrNotFound = errors.New("thumbnail not found")

// Store keeps resolved thumbnails. Descriptors only carry the id.
type Store interface {
	Put(ctx context.Context, art *types.Artwork) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Artwork, error)
}

// MemoryStore keeps thumbnails in process memory.
type MemoryStore struct {
	m syncmap.Map[uuid.UUID, *types.Artwork]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Put(_ context.Context, art *types.Artwork) (uuid.UUID, error) {
	id := uuid.New()
	s.m.Store(id, art)
	return id, nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*types.Artwork, error) {
	art, ok := s.m.Load(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return art, nil
}

func (s *MemoryStore) Len() int {
	return s.m.Len()
}

const redisThumbnailPrefix = "mediaprobe:thumb:"

// RedisStore keeps thumbnails in redis as JSON, expiring after ttl.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore returns a store on client. A zero ttl keeps entries forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, art *types.Artwork) (uuid.UUID, error) {
	data, err := json.Marshal(art)
	if err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	if err := s.client.Set(ctx, redisThumbnailPrefix+id.String(), data, s.ttl).Err(); err != nil {
		return uuid.Nil, fmt.Errorf("store thumbnail: %w", err)
	}
	return id, nil
}

func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (*types.Artwork, error) {
	data, err := s.client.Get(ctx, redisThumbnailPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	art := &types.Artwork{}
	if err := json.Unmarshal(data, art); err != nil {
		return nil, fmt.Errorf("decode thumbnail %s: %w", id, err)
	}
	return art, nil
}

// Cache holds cover lookup results. A nil value with ok set records a
// lookup that found nothing.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryCache is a Cache in process memory.
type MemoryCache struct {
	ttl time.Duration
	m   syncmap.Map[string, memoryEntry]
}

// NewMemoryCache returns a cache whose entries expire after ttl. A zero ttl
// keeps entries forever.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := c.m.Load(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		c.m.Delete(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	e := memoryEntry{value: value}
	if c.ttl > 0 {
		e.expires = time.Now().Add(c.ttl)
	}
	c.m.Store(key, e)
	return nil
}

const redisCoverPrefix = "mediaprobe:cover:"

// RedisCache is a Cache in redis. Empty values stand for negative results.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, redisCoverPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, true, nil
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	return c.client.Set(ctx, redisCoverPrefix+key, value, c.ttl).Err()
}
