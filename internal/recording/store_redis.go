package recording

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"presence/pkg/platform/sentinel"
)

const (
	recordingKeyPrefix = "recording:session:"
	recordingActiveKey = "recording:active"

	// Abandoned sessions are reclaimed by Redis itself.
	recordingSessionTTL = 12 * time.Hour

	// Concurrent appends to the same session retry the optimistic
	// transaction a few times before giving up.
	updateRetries = 64
)

// RedisStore persists recording sessions for deployments where point
// appends may land on different instances. Update uses WATCH so two
// concurrent appends to the same session cannot both commit.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func recordingKey(id string) string {
	return recordingKeyPrefix + id
}

func (s *RedisStore) Create(ctx context.Context, session *Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal recording session: %w", err)
	}

	ok, err := s.client.SetNX(ctx, recordingKey(session.ID), payload, recordingSessionTTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return s.client.SAdd(ctx, recordingActiveKey, session.ID).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := s.client.Get(ctx, recordingKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("unmarshal recording session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	key := recordingKey(id)
	var updated *Session

	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return err
		}

		var session Session
		if err := json.Unmarshal([]byte(raw), &session); err != nil {
			return fmt.Errorf("unmarshal recording session: %w", err)
		}
		if err := fn(&session); err != nil {
			return err
		}

		payload, err := json.Marshal(&session)
		if err != nil {
			return fmt.Errorf("marshal recording session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, recordingSessionTTL)
			return nil
		})
		if err != nil {
			return err
		}
		updated = &session
		return nil
	}

	for i := 0; i < updateRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("recording session %s: too many concurrent updates", id)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	deleted, err := s.client.Del(ctx, recordingKey(id)).Result()
	if err != nil {
		return err
	}
	if err := s.client.SRem(ctx, recordingActiveKey, id).Err(); err != nil {
		return err
	}
	if deleted == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *RedisStore) ListActive(ctx context.Context) ([]*Session, error) {
	ids, err := s.client.SMembers(ctx, recordingActiveKey).Result()
	if err != nil {
		return nil, err
	}

	var out []*Session
	for _, id := range ids {
		session, err := s.Get(ctx, id)
		if errors.Is(err, sentinel.ErrNotFound) {
			// Expired by TTL; drop the stale index entry.
			_ = s.client.SRem(ctx, recordingActiveKey, id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		if session.Active() {
			out = append(out, session)
		}
	}
	return out, nil
}
