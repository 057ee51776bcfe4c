package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presence/internal/barometer"
	"presence/internal/recording"
	"presence/internal/room"
)

const recorderID = "admin-1"

func jsonBody(t *testing.T, body any) *bytes.Reader {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	return bytes.NewReader(payload)
}

type recordingFixture struct {
	router *chi.Mux
	rooms  *room.InMemoryStore
	now    time.Time
}

func newRecordingFixture(t *testing.T) *recordingFixture {
	t.Helper()
	f := &recordingFixture{
		rooms: room.NewInMemoryStore(),
		now:   time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	processor := barometer.NewProcessor(barometer.WithClock(clock))
	svc := recording.NewService(recording.NewInMemoryStore(), f.rooms, processor, logger, recording.WithClock(clock))

	f.router = chi.NewRouter()
	NewRecordingHandler(svc, logger).Register(f.router)
	return f
}

func (f *recordingFixture) startSession(t *testing.T, name string) string {
	t.Helper()
	rec := postJSON(t, f.router, "/recording/sessions", map[string]any{
		"user_id":   recorderID,
		"room_name": name,
		"building":  "engineering",
		"floor":     2,
		"room_type": "classroom",
		"capacity":  30,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var session recording.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.NotEmpty(t, session.ID)
	return session.ID
}

// walkLoop posts 20 points around a 10m square, 3 seconds apart, with tight
// GPS accuracy and mild pressure jitter, closing near the start.
func (f *recordingFixture) walkLoop(t *testing.T, sessionID string) {
	t.Helper()
	const n, sideM = 20, 10.0
	const baseLat, baseLng = 31.95, 35.91
	latPerM := 1.0 / 110540.0
	lngPerM := 1.0 / (111320.0 * math.Cos(baseLat*math.Pi/180))

	for i := 0; i < n; i++ {
		d := float64(i) / float64(n) * 4 * sideM
		var x, y float64
		switch side := int(d / sideM); side {
		case 0:
			x, y = d, 0
		case 1:
			x, y = sideM, d-sideM
		case 2:
			x, y = sideM-(d-2*sideM), sideM
		default:
			x, y = 0, sideM-(d-3*sideM)
		}

		f.now = f.now.Add(3 * time.Second)
		rec := postJSON(t, f.router, fmt.Sprintf("/recording/sessions/%s/points", sessionID), map[string]any{
			"user_id":   recorderID,
			"latitude":  baseLat + y*latPerM,
			"longitude": baseLng + x*lngPerM,
			"accuracy":  3.0,
			"speed":     1.0,
			"pressure":  1013.2 + 0.2*float64(1-2*(i%2)),
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRecordingHandlerStart(t *testing.T) {
	t.Run("opens a session", func(t *testing.T) {
		f := newRecordingFixture(t)
		id := f.startSession(t, "A101")
		assert.NotEmpty(t, id)
	})

	t.Run("missing room name is rejected", func(t *testing.T) {
		f := newRecordingFixture(t)
		rec := postJSON(t, f.router, "/recording/sessions", map[string]any{
			"user_id":  recorderID,
			"building": "engineering",
			"floor":    2,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRecordingHandlerPoints(t *testing.T) {
	t.Run("records a point and reports the check", func(t *testing.T) {
		f := newRecordingFixture(t)
		id := f.startSession(t, "A101")

		rec := postJSON(t, f.router, "/recording/sessions/"+id+"/points", map[string]any{
			"user_id":   recorderID,
			"latitude":  31.95,
			"longitude": 35.91,
			"accuracy":  3.0,
			"speed":     1.0,
			"pressure":  1013.2,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var result recording.PointResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, 0, result.Point.Sequence)
		assert.True(t, result.Check.OK)
		assert.Equal(t, 1, result.TotalPoints)
	})

	t.Run("unknown session is not found", func(t *testing.T) {
		f := newRecordingFixture(t)
		rec := postJSON(t, f.router, "/recording/sessions/nope/points", map[string]any{
			"user_id":   recorderID,
			"latitude":  31.95,
			"longitude": 35.91,
			"pressure":  1013.2,
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("another user's session is forbidden", func(t *testing.T) {
		f := newRecordingFixture(t)
		id := f.startSession(t, "A101")
		rec := postJSON(t, f.router, "/recording/sessions/"+id+"/points", map[string]any{
			"user_id":   "intruder",
			"latitude":  31.95,
			"longitude": 35.91,
			"pressure":  1013.2,
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestRecordingHandlerComplete(t *testing.T) {
	t.Run("full walk produces a room", func(t *testing.T) {
		f := newRecordingFixture(t)
		id := f.startSession(t, "A101")
		f.walkLoop(t, id)

		rec := postJSON(t, f.router, "/recording/sessions/"+id+"/complete", map[string]any{
			"user_id":            recorderID,
			"pressure_tolerance": 0.5,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		var result recording.CompletionResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, "A101", result.Room.Name)
		assert.True(t, result.Room.Validated)
		assert.Greater(t, result.Score, 0.8)

		saved, err := f.rooms.FindByName(context.Background(), "A101")
		require.NoError(t, err)
		assert.Equal(t, result.Room.ID, saved.ID)
	})

	t.Run("too few points is rejected without closing the session", func(t *testing.T) {
		f := newRecordingFixture(t)
		id := f.startSession(t, "A101")

		rec := postJSON(t, f.router, "/recording/sessions/"+id+"/complete", map[string]any{
			"user_id": recorderID,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		req := httptest.NewRequest(http.MethodGet, "/recording/sessions/"+id+"?user_id="+recorderID, nil)
		res := httptest.NewRecorder()
		f.router.ServeHTTP(res, req)
		assert.Equal(t, http.StatusOK, res.Code)
	})
}

func TestRecordingHandlerStatusListCancel(t *testing.T) {
	f := newRecordingFixture(t)
	id := f.startSession(t, "A101")
	f.walkLoop(t, id)

	t.Run("status includes statistics and the last points", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/recording/sessions/"+id+"?user_id="+recorderID, nil)
		res := httptest.NewRecorder()
		f.router.ServeHTTP(res, req)
		require.Equal(t, http.StatusOK, res.Code)

		var status recording.SessionStatus
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &status))
		assert.Equal(t, 20, status.Statistics.TotalPoints)
		assert.Len(t, status.LastPoints, 10)
	})

	t.Run("active sessions are listed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/recording/sessions", nil)
		res := httptest.NewRecorder()
		f.router.ServeHTTP(res, req)
		require.Equal(t, http.StatusOK, res.Code)

		var listing struct {
			Sessions []*recording.Session `json:"sessions"`
			Count    int                  `json:"count"`
		}
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &listing))
		assert.Equal(t, 1, listing.Count)
		require.Len(t, listing.Sessions, 1)
		assert.Equal(t, id, listing.Sessions[0].ID)
	})

	t.Run("cancel discards the session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/recording/sessions/"+id, jsonBody(t, map[string]string{"user_id": recorderID}))
		res := httptest.NewRecorder()
		f.router.ServeHTTP(res, req)
		require.Equal(t, http.StatusOK, res.Code)

		check := httptest.NewRequest(http.MethodGet, "/recording/sessions/"+id+"?user_id="+recorderID, nil)
		out := httptest.NewRecorder()
		f.router.ServeHTTP(out, check)
		assert.Equal(t, http.StatusNotFound, out.Code)
	})
}
