package recording

import "math"

// GPS altitude may disagree with the barometric estimate by a few meters;
// beyond this the two sensors are considered inconsistent.
const altitudeConsistencyToleranceM = 3.0

// Range is a min/max/avg summary of one measured quantity over the path.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// AltitudeConsistency compares GPS altitudes against barometric estimates
// for the points that reported both.
type AltitudeConsistency struct {
	AvgDifferenceM float64 `json:"avg_difference_m"`
	MaxDifferenceM float64 `json:"max_difference_m"`
	Consistent     bool    `json:"consistent"`
}

// PathReport summarizes the walked path for the completion response.
type PathReport struct {
	TotalPoints       int                 `json:"total_points"`
	Pressure          Range               `json:"pressure_hpa"`
	Altitude          Range               `json:"altitude_m"`
	DurationSeconds   float64             `json:"duration_seconds"`
	AltitudeAgreement AltitudeConsistency `json:"altitude_agreement"`
}

// BuildPathReport derives path statistics from the captured points.
func BuildPathReport(points []CapturedPoint) PathReport {
	if len(points) == 0 {
		return PathReport{AltitudeAgreement: AltitudeConsistency{Consistent: true}}
	}

	report := PathReport{
		TotalPoints:     len(points),
		DurationSeconds: points[len(points)-1].Timestamp.Sub(points[0].Timestamp).Seconds(),
	}

	var pressureSum, altitudeSum float64
	report.Pressure.Min = math.Inf(1)
	report.Pressure.Max = math.Inf(-1)
	report.Altitude.Min = math.Inf(1)
	report.Altitude.Max = math.Inf(-1)

	var diffSum, diffMax float64
	var diffCount int
	consistent := true

	for _, p := range points {
		pressureSum += p.Reading.PressureHPa
		altitudeSum += p.Reading.AltitudeM
		report.Pressure.Min = math.Min(report.Pressure.Min, p.Reading.PressureHPa)
		report.Pressure.Max = math.Max(report.Pressure.Max, p.Reading.PressureHPa)
		report.Altitude.Min = math.Min(report.Altitude.Min, p.Reading.AltitudeM)
		report.Altitude.Max = math.Max(report.Altitude.Max, p.Reading.AltitudeM)

		if p.GPSAltitudeM != nil {
			diff := math.Abs(*p.GPSAltitudeM - p.Reading.AltitudeM)
			diffSum += diff
			diffMax = math.Max(diffMax, diff)
			diffCount++
			if diff >= altitudeConsistencyToleranceM {
				consistent = false
			}
		}
	}

	report.Pressure.Avg = pressureSum / float64(len(points))
	report.Altitude.Avg = altitudeSum / float64(len(points))

	report.AltitudeAgreement.Consistent = consistent
	report.AltitudeAgreement.MaxDifferenceM = diffMax
	if diffCount > 0 {
		report.AltitudeAgreement.AvgDifferenceM = diffSum / float64(diffCount)
	}
	return report
}

// Recommendations turns the latest point check and session progress into
// corrective guidance for the person walking the boundary.
func Recommendations(s *Session, check PointCheck) []string {
	recs := append([]string(nil), check.Warnings...)
	switch {
	case len(s.Points) < 5:
		recs = append(recs, "keep walking along the room boundary")
	case len(s.Points) > 50:
		recs = append(recs, "almost done, close the loop back to the starting point")
	}
	return recs
}
