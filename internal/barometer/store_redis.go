package barometer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"presence/pkg/platform/sentinel"
)

const calibrationKeyPrefix = "cal:ground:"

// RedisCalibrationStore shares ground calibrations across instances. The key
// TTL mirrors the calibration validity window, so Redis expires entries on
// its own; Get still re-checks ValidUntil to close the race at the boundary.
type RedisCalibrationStore struct {
	client *redis.Client
	clock  func() time.Time
}

// RedisOption configures a RedisCalibrationStore.
type RedisOption func(*RedisCalibrationStore)

// WithRedisClock sets the clock function for testability.
func WithRedisClock(clock func() time.Time) RedisOption {
	return func(s *RedisCalibrationStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewRedisCalibrationStore(client *redis.Client, opts ...RedisOption) *RedisCalibrationStore {
	s := &RedisCalibrationStore{client: client, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func redisCalibrationKey(key CalibrationKey) string {
	return calibrationKeyPrefix + key.UserID + ":" + key.Building
}

func (s *RedisCalibrationStore) Put(ctx context.Context, key CalibrationKey, cal Calibration) error {
	payload, err := json.Marshal(cal)
	if err != nil {
		return fmt.Errorf("marshal calibration: %w", err)
	}
	ttl := cal.ValidUntil.Sub(s.clock())
	if ttl <= 0 {
		return sentinel.ErrExpired
	}
	return s.client.Set(ctx, redisCalibrationKey(key), payload, ttl).Err()
}

func (s *RedisCalibrationStore) Get(ctx context.Context, key CalibrationKey) (Calibration, error) {
	raw, err := s.client.Get(ctx, redisCalibrationKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return Calibration{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Calibration{}, fmt.Errorf("get calibration: %w", err)
	}

	var cal Calibration
	if err := json.Unmarshal([]byte(raw), &cal); err != nil {
		return Calibration{}, fmt.Errorf("unmarshal calibration: %w", err)
	}
	if cal.Expired(s.clock()) {
		return Calibration{}, sentinel.ErrExpired
	}
	return cal, nil
}

func (s *RedisCalibrationStore) Delete(ctx context.Context, key CalibrationKey) error {
	return s.client.Del(ctx, redisCalibrationKey(key)).Err()
}
