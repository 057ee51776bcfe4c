package code

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presence/pkg/platform/sentinel"
)

func TestInMemoryRegistry(t *testing.T) {
	ctx := context.Background()
	now := issuedAt
	registry := NewInMemoryRegistry(WithMemoryRegistryClock(func() time.Time { return now }))

	issued := IssuedCode{
		Code:      "signed",
		SessionID: "sess-1",
		LectureID: "lec-1",
		RoomID:    "room-1",
		ExpiresAt: issuedAt.Add(time.Minute),
	}

	t.Run("register then lookup", func(t *testing.T) {
		require.NoError(t, registry.Register(ctx, issued))
		got, err := registry.Lookup(ctx, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, issued, got)
	})

	t.Run("reissue supersedes the previous code", func(t *testing.T) {
		replacement := issued
		replacement.Code = "signed-2"
		require.NoError(t, registry.Register(ctx, replacement))

		got, err := registry.Lookup(ctx, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, "signed-2", got.Code)
	})

	t.Run("expiry is checked at lookup time", func(t *testing.T) {
		now = issuedAt.Add(2 * time.Minute)
		_, err := registry.Lookup(ctx, "sess-1")
		assert.ErrorIs(t, err, sentinel.ErrExpired)

		// The stale entry is dropped; subsequent lookups see not found.
		_, err = registry.Lookup(ctx, "sess-1")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("revoke removes the entry", func(t *testing.T) {
		now = issuedAt
		require.NoError(t, registry.Register(ctx, issued))
		require.NoError(t, registry.Revoke(ctx, "sess-1"))
		_, err := registry.Lookup(ctx, "sess-1")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("unknown session is not found", func(t *testing.T) {
		_, err := registry.Lookup(ctx, "nope")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
