package redis

import (
	"context"
	"errors"
	"time"

	"fe-quiz-runner/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Storage is a Redis-backed implementation of app.Storage, shared by every
// server instance. An optional TTL bounds how long abandoned records
// (snapshots, leases) linger; zero keeps them forever.
type Storage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewStorage(client *redis.Client, prefix string, ttl time.Duration) *Storage {
	return &Storage{client: client, prefix: prefix, ttl: ttl}
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrKeyNotFound
	}
	return v, err
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.prefix+key, value, s.ttl).Err()
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
