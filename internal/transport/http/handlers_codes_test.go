package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presence/internal/audit"
	"presence/internal/code"
)

func newCodesFixture(t *testing.T) (*chi.Mux, *code.InMemoryRegistry, time.Time) {
	t.Helper()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	codes := code.NewService([]byte("verification-test-key"), "presence-test", code.WithClock(clock))
	registry := code.NewInMemoryRegistry(code.WithMemoryRegistryClock(clock))
	inbox := make(chan audit.Event, 16)
	issuer := code.NewIssuer(codes, registry, audit.NewPublisher(inbox, logger, audit.WithClock(clock)), logger)

	router := chi.NewRouter()
	NewCodeHandler(issuer, logger).Register(router)
	return router, registry, now
}

func TestCodeHandlerIssue(t *testing.T) {
	t.Run("mints and registers a code", func(t *testing.T) {
		router, registry, now := newCodesFixture(t)
		rec := postJSON(t, router, "/codes", map[string]any{
			"session_id":       "display-1",
			"lecture_id":       "lec-1",
			"room_id":          "room-1",
			"lifetime_seconds": 120,
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		var got issueCodeResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.NotEmpty(t, got.Code)
		assert.Equal(t, "lec-1", got.LectureID)
		assert.Equal(t, now.Add(2*time.Minute), got.ExpiresAt.UTC())

		issued, err := registry.Lookup(context.Background(), "display-1")
		require.NoError(t, err)
		assert.Equal(t, got.Code, issued.Code)
	})

	t.Run("lifetime defaults when omitted", func(t *testing.T) {
		router, _, now := newCodesFixture(t)
		rec := postJSON(t, router, "/codes", map[string]any{
			"session_id": "display-1",
			"lecture_id": "lec-1",
			"room_id":    "room-1",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		var got issueCodeResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, now.Add(code.DefaultLifetime), got.ExpiresAt.UTC())
	})

	t.Run("missing identifiers are rejected", func(t *testing.T) {
		router, _, _ := newCodesFixture(t)
		rec := postJSON(t, router, "/codes", map[string]any{
			"session_id": "display-1",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
