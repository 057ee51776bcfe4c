package verification

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
	checkinKeyPrefix = "checkin:session:"

	// Sessions expire after SessionTTL, but the record is kept around a
	// while longer so clients can still read the final decision.
	checkinRetention = SessionTTL + 30*time.Minute

	// A session has at most four writers racing (one per step in theory,
	// duplicated submissions in practice), so a short retry cap is
	// plenty.
	checkinUpdateRetries = 16
)

// RedisStore shares verification sessions across instances. Updates run
// under WATCH so a concurrent submission for the same session forces a
// retry against the fresh cursor instead of double-applying a step.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func checkinKey(id string) string {
	return checkinKeyPrefix + id
}

func (s *RedisStore) Create(ctx context.Context, session *Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal verification session: %w", err)
	}

	ok, err := s.client.SetNX(ctx, checkinKey(session.ID), payload, checkinRetention).Result()
	if err != nil {
		return err
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := s.client.Get(ctx, checkinKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("unmarshal verification session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	key := checkinKey(id)
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
			return fmt.Errorf("unmarshal verification session: %w", err)
		}
		if err := fn(&session); err != nil {
			return err
		}

		payload, err := json.Marshal(&session)
		if err != nil {
			return fmt.Errorf("marshal verification session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, checkinRetention)
			return nil
		})
		if err != nil {
			return err
		}
		updated = &session
		return nil
	}

	for i := 0; i < checkinUpdateRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("verification session %s: too many concurrent updates", id)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	deleted, err := s.client.Del(ctx, checkinKey(id)).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
