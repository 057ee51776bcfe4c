package code

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"presence/pkg/platform/sentinel"
)

const registryKeyPrefix = "code:issued:"

// Registry tracks the currently issued code per verification session, so a
// structurally valid code that was never handed out (or was superseded) can
// still be rejected.
type Registry interface {
	Register(ctx context.Context, issued IssuedCode) error
	Lookup(ctx context.Context, sessionID string) (IssuedCode, error)
	Revoke(ctx context.Context, sessionID string) error
}

// InMemoryRegistry is the single-instance fallback.
type InMemoryRegistry struct {
	mu    sync.RWMutex
	byID  map[string]IssuedCode
	clock func() time.Time
}

type MemoryRegistryOption func(*InMemoryRegistry)

func WithMemoryRegistryClock(clock func() time.Time) MemoryRegistryOption {
	return func(r *InMemoryRegistry) { r.clock = clock }
}

func NewInMemoryRegistry(opts ...MemoryRegistryOption) *InMemoryRegistry {
	r := &InMemoryRegistry{
		byID:  make(map[string]IssuedCode),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *InMemoryRegistry) Register(_ context.Context, issued IssuedCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[issued.SessionID] = issued
	return nil
}

// Lookup checks expiry at read time and lazily drops stale entries.
func (r *InMemoryRegistry) Lookup(_ context.Context, sessionID string) (IssuedCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	issued, ok := r.byID[sessionID]
	if !ok {
		return IssuedCode{}, sentinel.ErrNotFound
	}
	if r.clock().After(issued.ExpiresAt) {
		delete(r.byID, sessionID)
		return IssuedCode{}, sentinel.ErrExpired
	}
	return issued, nil
}

func (r *InMemoryRegistry) Revoke(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, sessionID)
	return nil
}

// RedisRegistry keeps issued codes with a TTL matching their expiry.
type RedisRegistry struct {
	client *redis.Client
	clock  func() time.Time
}

type RedisRegistryOption func(*RedisRegistry)

func WithRedisRegistryClock(clock func() time.Time) RedisRegistryOption {
	return func(r *RedisRegistry) { r.clock = clock }
}

func NewRedisRegistry(client *redis.Client, opts ...RedisRegistryOption) *RedisRegistry {
	r := &RedisRegistry{client: client, clock: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func registryKey(sessionID string) string {
	return registryKeyPrefix + sessionID
}

func (r *RedisRegistry) Register(ctx context.Context, issued IssuedCode) error {
	ttl := issued.ExpiresAt.Sub(r.clock())
	if ttl <= 0 {
		return sentinel.ErrExpired
	}
	payload, err := json.Marshal(issued)
	if err != nil {
		return fmt.Errorf("marshal issued code: %w", err)
	}
	return r.client.Set(ctx, registryKey(issued.SessionID), payload, ttl).Err()
}

func (r *RedisRegistry) Lookup(ctx context.Context, sessionID string) (IssuedCode, error) {
	raw, err := r.client.Get(ctx, registryKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return IssuedCode{}, sentinel.ErrNotFound
	}
	if err != nil {
		return IssuedCode{}, err
	}

	var issued IssuedCode
	if err := json.Unmarshal([]byte(raw), &issued); err != nil {
		return IssuedCode{}, fmt.Errorf("unmarshal issued code: %w", err)
	}
	if r.clock().After(issued.ExpiresAt) {
		return IssuedCode{}, sentinel.ErrExpired
	}
	return issued, nil
}

func (r *RedisRegistry) Revoke(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, registryKey(sessionID)).Err()
}
