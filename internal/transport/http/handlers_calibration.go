package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"presence/pkg/platform/httputil"

	"presence/internal/barometer"
)

// CalibrationService defines the interface for ground calibration operations.
type CalibrationService interface {
	CalibrateGround(ctx context.Context, key barometer.CalibrationKey, samples []barometer.RawSample, knownAltitudeM float64, device barometer.DeviceInfo) (barometer.Calibration, error)
	VerifyFloor(ctx context.Context, key barometer.CalibrationKey, sample barometer.RawSample, device barometer.DeviceInfo) (barometer.FloorReport, error)
}

// CalibrationHandler wires calibration endpoints to the barometer service.
type CalibrationHandler struct {
	service CalibrationService
	logger  *slog.Logger
}

func NewCalibrationHandler(service CalibrationService, logger *slog.Logger) *CalibrationHandler {
	return &CalibrationHandler{service: service, logger: logger}
}

// Register mounts calibration endpoints on the router.
func (h *CalibrationHandler) Register(r chi.Router) {
	r.Post("/calibration/ground", h.handleCalibrateGround)
	r.Post("/calibration/floor", h.handleVerifyFloor)
}

type calibrateGroundRequest struct {
	UserID        string                `json:"user_id"`
	Building      string                `json:"building"`
	KnownAltitude float64               `json:"known_altitude"`
	Readings      []barometer.RawSample `json:"readings"`
	DeviceInfo    barometer.DeviceInfo  `json:"device_info,omitempty"`
}

type verifyFloorRequest struct {
	UserID      string               `json:"user_id"`
	Building    string               `json:"building"`
	Pressure    float64              `json:"pressure"`
	Temperature *float64             `json:"temperature,omitempty"`
	Humidity    *float64             `json:"humidity,omitempty"`
	DeviceInfo  barometer.DeviceInfo `json:"device_info,omitempty"`
}

func (h *CalibrationHandler) handleCalibrateGround(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[calibrateGroundRequest](w, r, h.logger)
	if !ok {
		return
	}

	key := barometer.CalibrationKey{UserID: req.UserID, Building: req.Building}
	cal, err := h.service.CalibrateGround(r.Context(), key, req.Readings, req.KnownAltitude, req.DeviceInfo)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, cal)
}

func (h *CalibrationHandler) handleVerifyFloor(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[verifyFloorRequest](w, r, h.logger)
	if !ok {
		return
	}

	key := barometer.CalibrationKey{UserID: req.UserID, Building: req.Building}
	sample := barometer.RawSample{
		PressureHPa:     req.Pressure,
		TemperatureC:    req.Temperature,
		HumidityPercent: req.Humidity,
	}
	report, err := h.service.VerifyFloor(r.Context(), key, sample, req.DeviceInfo)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}
