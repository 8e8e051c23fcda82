package statsync

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements OfflineStore on Redis string keys.
type RedisStore struct {
	Client redis.UniversalClient
	Prefix string

	// ExpireAfter, when positive, bounds how long an offline blob is
	// retained.
	ExpireAfter time.Duration
}

// NewRedisStore creates a Redis offline store.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "statsync"
	}
	return &RedisStore{Client: client, Prefix: prefix}
}

func (s *RedisStore) Description() string {
	return "RedisStore"
}

// Save stores the blob for a user.
func (s *RedisStore) Save(userID string, data []byte) error {
	if s.Client == nil {
		return fmt.Errorf("redis store requires Client")
	}
	return s.Client.Set(context.Background(), s.key(userID), data, s.ExpireAfter).Err()
}

// Load fetches the blob for a user; redis.Nil maps to not-found.
func (s *RedisStore) Load(userID string) ([]byte, bool, error) {
	if s.Client == nil {
		return nil, false, fmt.Errorf("redis store requires Client")
	}
	data, err := s.Client.Get(context.Background(), s.key(userID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Delete removes the blob for a user.
func (s *RedisStore) Delete(userID string) error {
	if s.Client == nil {
		return fmt.Errorf("redis store requires Client")
	}
	return s.Client.Del(context.Background(), s.key(userID)).Err()
}

func (s *RedisStore) key(userID string) string {
	return s.Prefix + "::offline::" + userID
}
