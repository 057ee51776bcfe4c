package barometer

import (
	"context"
	"errors"
	"log/slog"

	dErrors "presence/pkg/domain-errors"
	"presence/pkg/platform/sentinel"
)

// RawSample is one uncalibrated pressure sample from a client device.
type RawSample struct {
	PressureHPa     float64  `json:"pressure"`
	TemperatureC    *float64 `json:"temperature,omitempty"`
	HumidityPercent *float64 `json:"humidity,omitempty"`
}

// FloorReport is the result of a floor check against a stored ground
// calibration. Poor or expired calibrations never block the check; they
// only flag that the reference needs refreshing.
type FloorReport struct {
	Detection             FloorDetection `json:"detection"`
	Calibration           Calibration    `json:"calibration"`
	RecalibrationRequired bool           `json:"recalibration_required"`
	Warnings              []string       `json:"warnings,omitempty"`
}

// CalibrationService manages per-user, per-building ground references.
// Expiry lives in the store, which checks it at read time.
type CalibrationService struct {
	processor *Processor
	store     CalibrationStore
	log       *slog.Logger
}

func NewCalibrationService(processor *Processor, store CalibrationStore, log *slog.Logger) *CalibrationService {
	return &CalibrationService{
		processor: processor,
		store:     store,
		log:       log,
	}
}

// CalibrateGround derives a ground reference from a batch of samples
// taken at a known altitude and stores it for the user and building.
func (s *CalibrationService) CalibrateGround(ctx context.Context, key CalibrationKey, samples []RawSample, knownAltitudeM float64, device DeviceInfo) (Calibration, error) {
	if key.UserID == "" || key.Building == "" {
		return Calibration{}, dErrors.New(dErrors.CodeInvalidInput, "user id and building are required")
	}

	readings := make([]Reading, 0, len(samples))
	for _, sample := range samples {
		reading, err := s.processor.ProcessReading(sample.PressureHPa, sample.TemperatureC, sample.HumidityPercent, device)
		if err != nil {
			return Calibration{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid pressure sample")
		}
		readings = append(readings, reading)
	}

	cal, err := s.processor.CalibrateGround(readings, knownAltitudeM)
	if errors.Is(err, ErrInsufficientReadings) || errors.Is(err, ErrNoRecentReadings) {
		return Calibration{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "not enough usable readings")
	}
	if err != nil {
		return Calibration{}, dErrors.Wrap(err, dErrors.CodeInternal, "calibration failed")
	}

	if err := s.store.Put(ctx, key, cal); err != nil {
		return Calibration{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not store calibration")
	}

	s.log.InfoContext(ctx, "ground calibration stored",
		slog.String("user_id", key.UserID),
		slog.String("building", key.Building),
		slog.String("quality", string(cal.Quality)),
		slog.Int("readings_used", cal.ReadingsUsed),
	)
	return cal, nil
}

// VerifyFloor estimates which floor a sample was taken on, relative to
// the stored ground reference for the building.
func (s *CalibrationService) VerifyFloor(ctx context.Context, key CalibrationKey, sample RawSample, device DeviceInfo) (FloorReport, error) {
	cal, err := s.store.Get(ctx, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		return FloorReport{}, dErrors.Wrap(err, dErrors.CodeNotFound, "no ground calibration for this building")
	}
	if errors.Is(err, sentinel.ErrExpired) {
		return FloorReport{}, dErrors.Wrap(err, dErrors.CodeExpired, "ground calibration expired; recalibrate at the building entrance")
	}
	if err != nil {
		return FloorReport{}, dErrors.Wrap(err, dErrors.CodeInternal, "calibration lookup failed")
	}

	reading, err := s.processor.ProcessReading(sample.PressureHPa, sample.TemperatureC, sample.HumidityPercent, device)
	if err != nil {
		return FloorReport{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid pressure sample")
	}

	report := FloorReport{
		Detection:   s.processor.DetectFloor(reading, cal.ReferencePressureHPa),
		Calibration: cal,
	}
	if cal.Quality == QualityPoor {
		report.RecalibrationRequired = true
		report.Warnings = append(report.Warnings, "ground calibration quality is poor; results may be off by a floor")
	}
	if report.Detection.RecalibrationNeeded {
		report.RecalibrationRequired = true
	}
	return report, nil
}
