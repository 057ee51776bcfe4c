package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"presence/pkg/platform/httputil"

	"presence/internal/barometer"
	"presence/internal/recording"
)

// RecordingService defines the interface for boundary recording operations.
type RecordingService interface {
	Start(ctx context.Context, userID string, meta recording.RoomMetadata) (*recording.Session, error)
	AddPoint(ctx context.Context, sessionID, userID string, in recording.PointInput) (*recording.PointResult, error)
	Status(ctx context.Context, sessionID, userID string) (*recording.SessionStatus, error)
	ListActive(ctx context.Context) ([]*recording.Session, error)
	Complete(ctx context.Context, sessionID, userID string, params recording.CompleteParams) (*recording.CompletionResult, error)
	Cancel(ctx context.Context, sessionID, userID string) error
}

// RecordingHandler wires boundary recording endpoints to its service.
type RecordingHandler struct {
	service RecordingService
	logger  *slog.Logger
}

func NewRecordingHandler(service RecordingService, logger *slog.Logger) *RecordingHandler {
	return &RecordingHandler{service: service, logger: logger}
}

// Register mounts recording endpoints on the router.
func (h *RecordingHandler) Register(r chi.Router) {
	r.Post("/recording/sessions", h.handleStart)
	r.Get("/recording/sessions", h.handleListActive)
	r.Post("/recording/sessions/{sessionID}/points", h.handleAddPoint)
	r.Get("/recording/sessions/{sessionID}", h.handleStatus)
	r.Post("/recording/sessions/{sessionID}/complete", h.handleComplete)
	r.Delete("/recording/sessions/{sessionID}", h.handleCancel)
}

type startRecordingRequest struct {
	UserID   string `json:"user_id"`
	RoomName string `json:"room_name"`
	Building string `json:"building"`
	Floor    int    `json:"floor"`
	RoomType string `json:"room_type,omitempty"`
	Capacity int    `json:"capacity,omitempty"`
}

type recordPointRequest struct {
	UserID      string               `json:"user_id"`
	Latitude    float64              `json:"latitude"`
	Longitude   float64              `json:"longitude"`
	GPSAltitude *float64             `json:"gps_altitude,omitempty"`
	Accuracy    *float64             `json:"accuracy,omitempty"`
	Speed       *float64             `json:"speed,omitempty"`
	Pressure    float64              `json:"pressure"`
	Temperature *float64             `json:"temperature,omitempty"`
	Humidity    *float64             `json:"humidity,omitempty"`
	DeviceInfo  barometer.DeviceInfo `json:"device_info,omitempty"`
}

type completeRecordingRequest struct {
	UserID            string  `json:"user_id"`
	CeilingHeight     float64 `json:"ceiling_height,omitempty"`
	PressureTolerance float64 `json:"pressure_tolerance,omitempty"`
}

type cancelRecordingRequest struct {
	UserID string `json:"user_id"`
}

func (h *RecordingHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[startRecordingRequest](w, r, h.logger)
	if !ok {
		return
	}

	session, err := h.service.Start(r.Context(), req.UserID, recording.RoomMetadata{
		RoomName: req.RoomName,
		Building: req.Building,
		Floor:    req.Floor,
		RoomType: req.RoomType,
		Capacity: req.Capacity,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, session)
}

func (h *RecordingHandler) handleAddPoint(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	req, ok := httputil.Decode[recordPointRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.AddPoint(r.Context(), sessionID, req.UserID, recording.PointInput{
		Lat:          req.Latitude,
		Lng:          req.Longitude,
		GPSAltitudeM: req.GPSAltitude,
		AccuracyM:    req.Accuracy,
		SpeedMS:      req.Speed,
		PressureHPa:  req.Pressure,
		TemperatureC: req.Temperature,
		Humidity:     req.Humidity,
		Device:       req.DeviceInfo,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *RecordingHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	userID := r.URL.Query().Get("user_id")

	status, err := h.service.Status(r.Context(), sessionID, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

func (h *RecordingHandler) handleListActive(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.ListActive(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (h *RecordingHandler) handleComplete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	req, ok := httputil.Decode[completeRecordingRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.Complete(r.Context(), sessionID, req.UserID, recording.CompleteParams{
		CeilingHeightM:       req.CeilingHeight,
		PressureToleranceHPa: req.PressureTolerance,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

func (h *RecordingHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	req, ok := httputil.Decode[cancelRecordingRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.Cancel(r.Context(), sessionID, req.UserID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
