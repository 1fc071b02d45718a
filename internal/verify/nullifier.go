package verify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const nullifierKeyPrefix = "verify:nullifier:"

// NullifierStore binds a nullifier to the first address that presented it.
// Presenting it again for the same address is allowed.
type NullifierStore interface {
	Claim(ctx context.Context, nullifier, subject string) error
}

type MemoryNullifierStore struct {
	mu     sync.Mutex
	claims map[string]string
}

func NewMemoryNullifierStore() *MemoryNullifierStore {
	return &MemoryNullifierStore{claims: make(map[string]string)}
}

func (s *MemoryNullifierStore) Claim(_ context.Context, nullifier, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.claims[nullifier]
	if !ok {
		s.claims[nullifier] = subject
		return nil
	}
	if owner != subject {
		return ErrNullifierReused
	}
	return nil
}

type RedisNullifierStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisNullifierStore(rdb *redis.Client, ttl time.Duration) *RedisNullifierStore {
	return &RedisNullifierStore{rdb: rdb, ttl: ttl}
}

func (s *RedisNullifierStore) Claim(ctx context.Context, nullifier, subject string) error {
	key := nullifierKeyPrefix + nullifier

	ok, err := s.rdb.SetNX(ctx, key, subject, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("claim nullifier: %w", err)
	}
	if ok {
		return nil
	}

	owner, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return s.Claim(ctx, nullifier, subject)
	}
	if err != nil {
		return fmt.Errorf("read nullifier owner: %w", err)
	}
	if owner != subject {
		return ErrNullifierReused
	}
	return nil
}
