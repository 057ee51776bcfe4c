package recording

import (
	"math"

	"presence/internal/geometry"
)

// Per-point advisory thresholds. Violations are reported, never rejected:
// a noisy point is still part of the walked path.
const (
	MaxPointAccuracyM      = 10.0
	MaxWalkingSpeedMS      = 2.0
	MaxPressureJumpHPa     = 2.0
	MinPointsForCompletion = 3
	MinCompletionScore     = 0.5
)

// Level labels an overall quality score.
type Level string

const (
	LevelExcellent Level = "excellent"
	LevelGood      Level = "good"
	LevelFair      Level = "fair"
	LevelPoor      Level = "poor"
)

// PointCheck is the real-time advisory result for a single appended point.
type PointCheck struct {
	GPSAccuracyOK  bool     `json:"gps_accuracy_ok"`
	WalkingSpeedOK bool     `json:"walking_speed_ok"`
	PressureOK     bool     `json:"pressure_ok"`
	OK             bool     `json:"ok"`
	Warnings       []string `json:"warnings,omitempty"`
}

// Breakdown is the weighted components of the overall quality score.
type Breakdown struct {
	GPSScore       float64 `json:"gps_score"`
	DensityScore   float64 `json:"density_score"`
	BarometerScore float64 `json:"barometer_score"`
	ClosureScore   float64 `json:"closure_score"`
}

// Assessment is the overall recording quality used to gate completion.
type Assessment struct {
	OverallScore float64   `json:"overall_score"`
	Level        Level     `json:"level"`
	Breakdown    Breakdown `json:"breakdown"`
}

// CheckPoint runs the real-time checks on a freshly appended point against
// its predecessor. prev is nil for the first point.
func CheckPoint(prev *CapturedPoint, p CapturedPoint) PointCheck {
	check := PointCheck{GPSAccuracyOK: true, WalkingSpeedOK: true, PressureOK: true}

	if p.AccuracyM != nil && *p.AccuracyM > MaxPointAccuracyM {
		check.GPSAccuracyOK = false
		check.Warnings = append(check.Warnings, "gps accuracy above 10m, move to a more open area")
	}
	if speed := inferSpeed(prev, p); speed > MaxWalkingSpeedMS {
		check.WalkingSpeedOK = false
		check.Warnings = append(check.Warnings, "moving faster than walking speed, slow down")
	}
	if prev != nil {
		jump := math.Abs(p.Reading.PressureHPa - prev.Reading.PressureHPa)
		if jump > MaxPressureJumpHPa {
			check.PressureOK = false
			check.Warnings = append(check.Warnings, "pressure jumped between readings, keep the device steady")
		}
	}

	check.OK = check.GPSAccuracyOK && check.WalkingSpeedOK && check.PressureOK
	return check
}

// inferSpeed prefers the device-reported speed and falls back to the
// distance covered since the previous point.
func inferSpeed(prev *CapturedPoint, p CapturedPoint) float64 {
	if p.SpeedMS != nil {
		return *p.SpeedMS
	}
	if prev == nil {
		return 0
	}
	elapsed := p.Timestamp.Sub(prev.Timestamp).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return geometry.Haversine(prev.Lat, prev.Lng, p.Lat, p.Lng) / elapsed
}

// AssessQuality scores a recording out of four weighted components: GPS
// accuracy (0.3), point density over the covered area (0.2), barometric
// consistency (0.3) and path closure (0.2).
func AssessQuality(points []CapturedPoint) Assessment {
	if len(points) == 0 {
		return Assessment{Level: LevelPoor}
	}

	var b Breakdown

	if avg, ok := averageAccuracy(points); ok {
		b.GPSScore = 0.3 * math.Max(0, 1-avg/20)
	} else {
		b.GPSScore = 0.3
	}

	area := geometry.BoundingBoxAreaM2(vertices(points))
	pointsPer100M2 := float64(len(points)) / math.Max(area/100, 1)
	b.DensityScore = math.Min(0.2, pointsPer100M2*0.01)

	pressures := make([]float64, len(points))
	for i, p := range points {
		pressures[i] = p.Reading.PressureHPa
	}
	b.BarometerScore = 0.3 * math.Max(0, 1-stdDev(pressures)/5)

	if len(points) >= 3 {
		first, last := points[0], points[len(points)-1]
		closure := geometry.Haversine(first.Lat, first.Lng, last.Lat, last.Lng)
		b.ClosureScore = 0.2 * math.Max(0, 1-closure/20)
	}

	score := math.Min(1.0, b.GPSScore+b.DensityScore+b.BarometerScore+b.ClosureScore)
	return Assessment{OverallScore: score, Level: levelFor(score), Breakdown: b}
}

func levelFor(score float64) Level {
	switch {
	case score > 0.8:
		return LevelExcellent
	case score > 0.6:
		return LevelGood
	case score > 0.4:
		return LevelFair
	default:
		return LevelPoor
	}
}

// averageAccuracy considers only points that carry an accuracy estimate.
func averageAccuracy(points []CapturedPoint) (float64, bool) {
	var sum float64
	var n int
	for _, p := range points {
		if p.AccuracyM != nil {
			sum += *p.AccuracyM
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func vertices(points []CapturedPoint) []geometry.Vertex {
	vs := make([]geometry.Vertex, len(points))
	for i, p := range points {
		vs[i] = geometry.Vertex{Lat: p.Lat, Lng: p.Lng, Alt: p.Reading.AltitudeM}
	}
	return vs
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return math.Sqrt(variance / float64(len(values)))
}
