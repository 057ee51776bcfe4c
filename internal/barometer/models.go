package barometer

import "time"

// Accuracy tiers a reading by how much sensor context backed it.
type Accuracy string

const (
	AccuracyHigh   Accuracy = "high"
	AccuracyMedium Accuracy = "medium"
	AccuracyLow    Accuracy = "low"
)

// Quality grades a ground calibration by the spread of its readings.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
)

// DeviceInfo describes the sensor platform a reading came from. Field names
// are part of the client wire contract.
type DeviceInfo struct {
	Model                     string `json:"model,omitempty"`
	OSVersion                 string `json:"os_version,omitempty"`
	HasBarometer              bool   `json:"has_barometer,omitempty"`
	HasHighPrecisionBarometer bool   `json:"has_high_precision_barometer,omitempty"`
}

// Reading is a processed barometer sample. Immutable once created.
type Reading struct {
	PressureHPa     float64    `json:"pressure_hpa"`
	AltitudeM       float64    `json:"altitude_m"`
	TemperatureC    *float64   `json:"temperature_c,omitempty"`
	HumidityPercent *float64   `json:"humidity_percent,omitempty"`
	Accuracy        Accuracy   `json:"accuracy"`
	Timestamp       time.Time  `json:"timestamp"`
	Device          DeviceInfo `json:"device,omitempty"`
}

// Calibration is a ground pressure reference with a bounded validity window.
// Recalibration creates a new record; old ones simply expire.
type Calibration struct {
	ReferencePressureHPa float64   `json:"reference_pressure_hpa"`
	GroundAltitudeM      float64   `json:"ground_altitude_m"`
	Quality              Quality   `json:"quality"`
	ReadingsUsed         int       `json:"readings_used"`
	PressureStdDev       float64   `json:"pressure_std_dev"`
	CalibratedAt         time.Time `json:"calibrated_at"`
	ValidUntil           time.Time `json:"valid_until"`
}

// Expired must be checked at the moment of use, not at session start:
// calibration lookup may race with expiry.
func (c Calibration) Expired(now time.Time) bool {
	return now.After(c.ValidUntil)
}

// FloorDetection estimates which floor a reading was taken on.
type FloorDetection struct {
	Floor                int     `json:"floor"`
	Confidence           float64 `json:"confidence"`
	PressureDiffHPa      float64 `json:"pressure_diff_hpa"`
	AltitudeAboveGroundM float64 `json:"altitude_above_ground_m"`
	RecalibrationNeeded  bool    `json:"recalibration_needed"`
}

// AltitudeVerification compares a reading against a room's center altitude.
type AltitudeVerification struct {
	Valid               bool    `json:"valid"`
	PrecisionScore      float64 `json:"precision_score"`
	AltitudeDifferenceM float64 `json:"altitude_difference_m"`
	ToleranceM          float64 `json:"tolerance_m"`
	RoomAltitudeM       float64 `json:"room_altitude_m"`
	ReadingAltitudeM    float64 `json:"reading_altitude_m"`
}

// CalibrationKey scopes a ground calibration to one user in one building.
type CalibrationKey struct {
	UserID   string
	Building string
}
