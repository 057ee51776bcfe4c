package httptransport

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	dErrors "presence/pkg/domain-errors"

	"presence/internal/face"
	"presence/internal/transport/http/mocks"
	"presence/internal/verification"
)

func newCheckinTest(t *testing.T) (*chi.Mux, *mocks.MockCheckinService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	service := mocks.NewMockCheckinService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	NewCheckinHandler(service, logger).Register(r)
	return r, service
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCheckinHandlerStart(t *testing.T) {
	t.Run("creates a session", func(t *testing.T) {
		router, service := newCheckinTest(t)
		service.EXPECT().Start(gomock.Any(), "student-7", "lec-1").Return(&verification.Session{
			ID:          "sess-1",
			StudentID:   "student-7",
			LectureID:   "lec-1",
			CurrentStep: verification.StepGPSLocation,
			Status:      verification.StatusPending,
		}, nil)

		rec := postJSON(t, router, "/checkin/sessions", map[string]string{
			"student_id": "student-7",
			"lecture_id": "lec-1",
		})

		require.Equal(t, http.StatusCreated, rec.Code)
		var got verification.Session
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "sess-1", got.ID)
		assert.Equal(t, verification.StepGPSLocation, got.CurrentStep)
	})

	t.Run("inactive lecture maps to conflict", func(t *testing.T) {
		router, service := newCheckinTest(t)
		service.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeLectureNotActive, "lecture is not accepting check-ins"))

		rec := postJSON(t, router, "/checkin/sessions", map[string]string{
			"student_id": "student-7",
			"lecture_id": "lec-1",
		})

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "lecture_not_active")
	})

	t.Run("malformed body never reaches the service", func(t *testing.T) {
		router, _ := newCheckinTest(t)
		req := httptest.NewRequest(http.MethodPost, "/checkin/sessions", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCheckinHandlerStep(t *testing.T) {
	t.Run("gps step builds a typed payload", func(t *testing.T) {
		router, service := newCheckinTest(t)
		accuracy := 8.0
		service.EXPECT().SubmitStep(gomock.Any(), "sess-1", "student-7", verification.GPSPayload{
			Latitude:  31.95,
			Longitude: 35.91,
			AccuracyM: &accuracy,
		}).Return(
			&verification.Session{ID: "sess-1", CurrentStep: verification.StepBarometerAltitude},
			&verification.StepResult{Step: verification.StepGPSLocation, Status: verification.StatusSuccess, Success: true, Confidence: 1},
			nil,
		)

		rec := postJSON(t, router, "/checkin/sessions/sess-1/steps", map[string]any{
			"step":       "gps_location",
			"student_id": "student-7",
			"latitude":   31.95,
			"longitude":  35.91,
			"accuracy":   8.0,
		})

		require.Equal(t, http.StatusOK, rec.Code)
		var got stepResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, verification.StepBarometerAltitude, got.Session.CurrentStep)
		assert.True(t, got.Result.Success)
	})

	t.Run("face step carries the anti-spoofing block and device", func(t *testing.T) {
		router, service := newCheckinTest(t)
		service.EXPECT().SubmitStep(gomock.Any(), "sess-1", "student-7", verification.FacePayload{
			Match: face.MatchInput{
				MatchConfidence: 0.92,
				AntiSpoofing: face.AntiSpoofing{
					LivenessScore:    0.9,
					DepthScore:       0.8,
					MotionScore:      0.75,
					TextureAuthentic: true,
				},
				Device: face.Device{Model: "Pixel 8", OSVersion: "15.1.0"},
			},
		}).Return(
			&verification.Session{ID: "sess-1"},
			&verification.StepResult{Step: verification.StepFaceRecognition, Status: verification.StatusSuccess, Success: true},
			nil,
		)

		rec := postJSON(t, router, "/checkin/sessions/sess-1/steps", map[string]any{
			"step":             "face_recognition",
			"student_id":       "student-7",
			"match_confidence": 0.92,
			"anti_spoofing": map[string]any{
				"liveness_score":    0.9,
				"depth_score":       0.8,
				"motion_score":      0.75,
				"texture_authentic": true,
			},
			"device_info": map[string]string{"model": "Pixel 8", "os_version": "15.1.0"},
		})

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown step name is a bad request", func(t *testing.T) {
		router, _ := newCheckinTest(t)
		rec := postJSON(t, router, "/checkin/sessions/sess-1/steps", map[string]any{
			"step":       "retina_scan",
			"student_id": "student-7",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing step fields are a bad request", func(t *testing.T) {
		router, _ := newCheckinTest(t)
		rec := postJSON(t, router, "/checkin/sessions/sess-1/steps", map[string]any{
			"step":       "gps_location",
			"student_id": "student-7",
			"latitude":   31.95,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("out-of-order step maps to conflict", func(t *testing.T) {
		router, service := newCheckinTest(t)
		service.EXPECT().SubmitStep(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, nil, dErrors.New(dErrors.CodeWrongStep, "expected step gps_location, got qr_code"))

		rec := postJSON(t, router, "/checkin/sessions/sess-1/steps", map[string]any{
			"step":       "qr_code",
			"student_id": "student-7",
			"qr_data":    "token",
		})

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "wrong_step")
	})

	t.Run("expired session maps to gone", func(t *testing.T) {
		router, service := newCheckinTest(t)
		service.EXPECT().SubmitStep(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, nil, dErrors.New(dErrors.CodeExpired, "verification session expired"))

		rec := postJSON(t, router, "/checkin/sessions/sess-1/steps", map[string]any{
			"step":       "gps_location",
			"student_id": "student-7",
			"latitude":   31.95,
			"longitude":  35.91,
		})

		assert.Equal(t, http.StatusGone, rec.Code)
	})
}

func TestCheckinHandlerGet(t *testing.T) {
	router, service := newCheckinTest(t)
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	service.EXPECT().Get(gomock.Any(), "sess-1", "student-7").Return(verification.Summary{
		Session: &verification.Session{
			ID:        "sess-1",
			StudentID: "student-7",
			StartedAt: started,
			Decision:  verification.DecisionApproved,
		},
		OverallConfidence: 0.91,
		SuccessCount:      4,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/checkin/sessions/sess-1?student_id=student-7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got verification.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, verification.DecisionApproved, got.Session.Decision)
	assert.InDelta(t, 0.91, got.OverallConfidence, 1e-9)
}
