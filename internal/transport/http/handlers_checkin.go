package httptransport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "presence/pkg/domain-errors"
	"presence/pkg/platform/httputil"

	"presence/internal/face"
	"presence/internal/verification"
)

//go:generate mockgen -source=handlers_checkin.go -destination=mocks/checkin-mocks.go -package=mocks CheckinService

// CheckinService defines the interface for verification session operations.
type CheckinService interface {
	Start(ctx context.Context, studentID, lectureID string) (*verification.Session, error)
	SubmitStep(ctx context.Context, sessionID, studentID string, payload verification.StepPayload) (*verification.Session, *verification.StepResult, error)
	Get(ctx context.Context, sessionID, studentID string) (verification.Summary, error)
}

// CheckinHandler wires check-in endpoints to the verification service.
type CheckinHandler struct {
	service CheckinService
	logger  *slog.Logger
}

func NewCheckinHandler(service CheckinService, logger *slog.Logger) *CheckinHandler {
	return &CheckinHandler{service: service, logger: logger}
}

// Register mounts check-in endpoints on the router.
func (h *CheckinHandler) Register(r chi.Router) {
	r.Post("/checkin/sessions", h.handleStart)
	r.Post("/checkin/sessions/{sessionID}/steps", h.handleStep)
	r.Get("/checkin/sessions/{sessionID}", h.handleGet)
}

type startSessionRequest struct {
	StudentID string `json:"student_id"`
	LectureID string `json:"lecture_id"`
}

// stepRequest is the wire shape for all four step kinds. The step field
// selects which of the optional blocks must be present; device_info stays
// raw because its shape differs between barometer and face steps.
type stepRequest struct {
	Step      string `json:"step"`
	StudentID string `json:"student_id"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`

	Pressure    *float64 `json:"pressure,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`

	QRData string `json:"qr_data,omitempty"`

	MatchConfidence *float64           `json:"match_confidence,omitempty"`
	AntiSpoofing    *face.AntiSpoofing `json:"anti_spoofing,omitempty"`

	DeviceInfo json.RawMessage `json:"device_info,omitempty"`
}

func (req stepRequest) payload() (verification.StepPayload, error) {
	switch verification.Step(req.Step) {
	case verification.StepGPSLocation:
		if req.Latitude == nil || req.Longitude == nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "latitude and longitude are required")
		}
		return verification.GPSPayload{
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
			AccuracyM: req.Accuracy,
		}, nil

	case verification.StepBarometerAltitude:
		if req.Pressure == nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "pressure is required")
		}
		payload := verification.BarometerPayload{
			PressureHPa:     *req.Pressure,
			TemperatureC:    req.Temperature,
			HumidityPercent: req.Humidity,
		}
		if len(req.DeviceInfo) > 0 {
			if err := json.Unmarshal(req.DeviceInfo, &payload.Device); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed device_info")
			}
		}
		return payload, nil

	case verification.StepQRCode:
		if req.QRData == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "qr_data is required")
		}
		return verification.CodePayload{QRData: req.QRData}, nil

	case verification.StepFaceRecognition:
		if req.MatchConfidence == nil || req.AntiSpoofing == nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "match_confidence and anti_spoofing are required")
		}
		match := face.MatchInput{
			MatchConfidence: *req.MatchConfidence,
			AntiSpoofing:    *req.AntiSpoofing,
		}
		if len(req.DeviceInfo) > 0 {
			if err := json.Unmarshal(req.DeviceInfo, &match.Device); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed device_info")
			}
		}
		return verification.FacePayload{Match: match}, nil

	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown step %q", req.Step))
	}
}

type stepResponse struct {
	Session *verification.Session    `json:"session"`
	Result  *verification.StepResult `json:"result"`
}

func (h *CheckinHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[startSessionRequest](w, r, h.logger)
	if !ok {
		return
	}

	session, err := h.service.Start(r.Context(), req.StudentID, req.LectureID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, session)
}

func (h *CheckinHandler) handleStep(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	req, ok := httputil.Decode[stepRequest](w, r, h.logger)
	if !ok {
		return
	}

	payload, err := req.payload()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	session, result, err := h.service.SubmitStep(r.Context(), sessionID, req.StudentID, payload)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stepResponse{Session: session, Result: result})
}

func (h *CheckinHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	studentID := r.URL.Query().Get("student_id")

	summary, err := h.service.Get(r.Context(), sessionID, studentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}
