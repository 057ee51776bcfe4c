//go:build integration

package recording_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presence/pkg/platform/sentinel"
	"presence/pkg/testutil/containers"

	"presence/internal/recording"
)

func TestRedisStore(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()

	newSession := func(id string) *recording.Session {
		return &recording.Session{
			ID:        id,
			UserID:    "admin-1",
			Meta:      recording.RoomMetadata{RoomName: "A101", Building: "engineering", Floor: 2},
			State:     recording.StateActive,
			StartedAt: time.Now().UTC(),
		}
	}

	t.Run("create then get round-trips", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		store := recording.NewRedisStore(rc.Client)

		require.NoError(t, store.Create(ctx, newSession("s1")))
		got, err := store.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "A101", got.Meta.RoomName)
		assert.Equal(t, recording.StateActive, got.State)
	})

	t.Run("duplicate id conflicts", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		store := recording.NewRedisStore(rc.Client)

		require.NoError(t, store.Create(ctx, newSession("s1")))
		assert.ErrorIs(t, store.Create(ctx, newSession("s1")), sentinel.ErrConflict)
	})

	t.Run("unknown session is not found", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		store := recording.NewRedisStore(rc.Client)

		_, err := store.Get(ctx, "nope")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		_, err = store.Update(ctx, "nope", func(*recording.Session) error { return nil })
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, "nope"), sentinel.ErrNotFound)
	})

	t.Run("concurrent appends keep the sequence monotonic", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		store := recording.NewRedisStore(rc.Client)
		require.NoError(t, store.Create(ctx, newSession("s1")))

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Update(ctx, "s1", func(s *recording.Session) error {
					s.Points = append(s.Points, recording.CapturedPoint{Sequence: s.NextSequence()})
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := store.Get(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, got.Points, 20)
		for i, p := range got.Points {
			assert.Equal(t, i, p.Sequence)
		}
	})

	t.Run("list active tracks lifecycle", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		store := recording.NewRedisStore(rc.Client)

		require.NoError(t, store.Create(ctx, newSession("s1")))
		require.NoError(t, store.Create(ctx, newSession("s2")))

		active, err := store.ListActive(ctx)
		require.NoError(t, err)
		assert.Len(t, active, 2)

		require.NoError(t, store.Delete(ctx, "s2"))
		active, err = store.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "s1", active[0].ID)
	})
}
