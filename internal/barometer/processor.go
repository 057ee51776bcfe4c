package barometer

import (
	"errors"
	"math"
	"time"
)

const (
	// SeaLevelPressureHPa anchors the international barometric formula.
	SeaLevelPressureHPa = 1013.25
	// PressureLapseHPaPerMeter is the average pressure drop per meter climbed.
	PressureLapseHPaPerMeter = 0.12
	// TypicalFloorHeightM converts altitude above ground into floor numbers.
	TypicalFloorHeightM = 3.5

	referenceTemperatureC  = 15.0
	temperatureCoefficient = 0.0065

	// MinReadingsForCalibration readings inside CalibrationWindow are required
	// before a ground reference is trusted.
	MinReadingsForCalibration = 5
	// CalibrationWindow bounds how old readings may be when calibrating.
	CalibrationWindow = 5 * time.Minute
	// DefaultCalibrationValidity is how long a ground reference holds before
	// callers must recalibrate.
	DefaultCalibrationValidity = 6 * time.Hour
)

var (
	// ErrMissingReading is returned when a pressure sample is absent or unusable.
	ErrMissingReading = errors.New("missing barometer reading")
	// ErrInsufficientReadings is returned when too few samples back a calibration.
	ErrInsufficientReadings = errors.New("insufficient readings for calibration")
	// ErrNoRecentReadings is returned when all samples fall outside the window.
	ErrNoRecentReadings = errors.New("no recent readings for calibration")
)

// Processor turns raw pressure samples into altitude estimates, ground
// calibrations and floor detections. It holds no mutable state; the clock is
// injectable for tests.
type Processor struct {
	clock               func() time.Time
	calibrationValidity time.Duration
}

// Option configures a Processor.
type Option func(*Processor)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(p *Processor) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithCalibrationValidity overrides how long calibrations stay valid.
func WithCalibrationValidity(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.calibrationValidity = d
		}
	}
}

func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		clock:               time.Now,
		calibrationValidity: DefaultCalibrationValidity,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// ProcessReading applies temperature compensation when a temperature is
// present, converts pressure to altitude, and tiers the accuracy by how much
// sensor context the device supplied.
func (p *Processor) ProcessReading(rawPressure float64, temperature, humidity *float64, device DeviceInfo) (Reading, error) {
	if rawPressure <= 0 || math.IsNaN(rawPressure) || math.IsInf(rawPressure, 0) {
		return Reading{}, ErrMissingReading
	}

	pressure := rawPressure
	if temperature != nil {
		pressure = rawPressure * (1 + temperatureCoefficient*(*temperature-referenceTemperatureC))
	}

	return Reading{
		PressureHPa:     pressure,
		AltitudeM:       PressureToAltitude(pressure),
		TemperatureC:    temperature,
		HumidityPercent: humidity,
		Accuracy:        accuracyFor(temperature, humidity, device),
		Timestamp:       p.clock(),
		Device:          device,
	}, nil
}

// PressureToAltitude converts hPa to meters via the international barometric
// formula. Monotonic: higher pressure always means lower altitude.
func PressureToAltitude(pressureHPa float64) float64 {
	return 44330 * (1 - math.Pow(pressureHPa/SeaLevelPressureHPa, 0.1903))
}

func accuracyFor(temperature, humidity *float64, device DeviceInfo) Accuracy {
	score := 0
	if temperature != nil {
		score++
	}
	if humidity != nil {
		score++
	}
	switch {
	case device.HasHighPrecisionBarometer:
		score += 2
	case device.HasBarometer:
		score++
	}
	switch {
	case score >= 3:
		return AccuracyHigh
	case score >= 2:
		return AccuracyMedium
	default:
		return AccuracyLow
	}
}

// CalibrateGround averages recent readings into a ground pressure reference.
// At least MinReadingsForCalibration samples inside CalibrationWindow are
// required; quality is graded on the pressure standard deviation.
func (p *Processor) CalibrateGround(readings []Reading, knownGroundAltitude float64) (Calibration, error) {
	if len(readings) < MinReadingsForCalibration {
		return Calibration{}, ErrInsufficientReadings
	}

	now := p.clock()
	cutoff := now.Add(-CalibrationWindow)
	recent := make([]Reading, 0, len(readings))
	for _, r := range readings {
		if !r.Timestamp.Before(cutoff) {
			recent = append(recent, r)
		}
	}
	if len(recent) == 0 {
		return Calibration{}, ErrNoRecentReadings
	}

	var sum float64
	for _, r := range recent {
		sum += r.PressureHPa
	}
	mean := sum / float64(len(recent))

	var variance float64
	for _, r := range recent {
		variance += (r.PressureHPa - mean) * (r.PressureHPa - mean)
	}
	variance /= float64(len(recent))
	stdDev := math.Sqrt(variance)

	return Calibration{
		ReferencePressureHPa: mean,
		GroundAltitudeM:      knownGroundAltitude,
		Quality:              qualityFor(stdDev),
		ReadingsUsed:         len(recent),
		PressureStdDev:       stdDev,
		CalibratedAt:         now,
		ValidUntil:           now.Add(p.calibrationValidity),
	}, nil
}

func qualityFor(stdDev float64) Quality {
	switch {
	case stdDev < 0.5:
		return QualityExcellent
	case stdDev < 1.0:
		return QualityGood
	case stdDev < 2.0:
		return QualityFair
	default:
		return QualityPoor
	}
}

// DetectFloor estimates the floor a reading was taken on relative to a ground
// pressure reference. Confidence blends the accuracy tier with how well the
// observed pressure difference agrees with the altitude it implies.
func (p *Processor) DetectFloor(reading Reading, referenceGroundPressure float64) FloorDetection {
	pressureDiff := referenceGroundPressure - reading.PressureHPa
	altitudeAboveGround := pressureDiff / PressureLapseHPaPerMeter
	floor := int(math.Round(altitudeAboveGround / TypicalFloorHeightM))
	if floor < 1 {
		floor = 1
	}

	confidence := 0.5
	switch reading.Accuracy {
	case AccuracyHigh:
		confidence += 0.3
	case AccuracyMedium:
		confidence += 0.2
	default:
		confidence += 0.1
	}
	expectedDiff := altitudeAboveGround * PressureLapseHPaPerMeter
	consistency := 1 - math.Abs(pressureDiff-expectedDiff)/math.Max(pressureDiff, 1)
	confidence += 0.2 * math.Max(0, consistency)

	return FloorDetection{
		Floor:                floor,
		Confidence:           math.Min(1.0, confidence),
		PressureDiffHPa:      pressureDiff,
		AltitudeAboveGroundM: altitudeAboveGround,
		RecalibrationNeeded:  confidence < 0.7,
	}
}

// VerifyRoomAltitude compares a reading to a room's center altitude. The
// precision score decays linearly and reaches zero at twice the tolerance.
func (p *Processor) VerifyRoomAltitude(reading Reading, roomCenterAltitude, toleranceM float64) AltitudeVerification {
	diff := math.Abs(reading.AltitudeM - roomCenterAltitude)
	return AltitudeVerification{
		Valid:               diff <= toleranceM,
		PrecisionScore:      math.Max(0, 1.0-diff/(toleranceM*2)),
		AltitudeDifferenceM: diff,
		ToleranceM:          toleranceM,
		RoomAltitudeM:       roomCenterAltitude,
		ReadingAltitudeM:    reading.AltitudeM,
	}
}
