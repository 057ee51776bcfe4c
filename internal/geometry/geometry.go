package geometry

import (
	"errors"
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius used for all distance math.
const EarthRadiusMeters = 6371000.0

// Local equirectangular projection factors, meters per degree.
const (
	metersPerDegreeLat = 110540.0
	metersPerDegreeLng = 111320.0
)

// TypicalFloorHeightMeters is used to translate altitude above ground into a
// floor number for diagnostics.
const TypicalFloorHeightMeters = 3.5

var (
	// ErrDegenerateGeometry is returned when a boundary has fewer than three
	// vertices and cannot describe an area.
	ErrDegenerateGeometry = errors.New("degenerate geometry: boundary needs at least 3 vertices")
	// ErrInvalidCoordinate is returned for NaN or out-of-range coordinates.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)

// Vertex is one corner of a room boundary in (lat, lng) order. Altitude is
// optional and only informational at the geometry level.
type Vertex struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
	Alt float64 `json:"alt,omitempty"`
}

// Derived holds the properties computed from a boundary. Recompute whenever
// the boundary changes; never persist stale values.
type Derived struct {
	AreaM2      float64 `json:"area_m2"`
	VolumeM3    float64 `json:"volume_m3"`
	PerimeterM  float64 `json:"perimeter_m"`
	CenterLat   float64 `json:"center_lat"`
	CenterLng   float64 `json:"center_lng"`
	VertexCount int     `json:"vertex_count"`
}

// AltitudeCheck reports whether an altitude falls inside a floor band, with
// the quantitative gap for corrective guidance.
type AltitudeCheck struct {
	Valid           bool    `json:"valid"`
	Altitude        float64 `json:"altitude"`
	FloorAltitude   float64 `json:"floor_altitude"`
	CeilingAltitude float64 `json:"ceiling_altitude"`
	Tolerance       float64 `json:"tolerance"`
	// GapMeters is how far outside the band the altitude sits; zero when valid.
	GapMeters float64 `json:"gap_meters"`
	// EstimatedFloor is a diagnostic floor number relative to groundReference.
	EstimatedFloor int `json:"estimated_floor"`
}

func validCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// ValidateBoundary checks a boundary is usable for geometry operations.
func ValidateBoundary(boundary []Vertex) error {
	if len(boundary) < 3 {
		return ErrDegenerateGeometry
	}
	for _, v := range boundary {
		if !validCoordinate(v.Lat, v.Lng) {
			return ErrInvalidCoordinate
		}
	}
	return nil
}

// Haversine returns the great-circle distance between two points in meters.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lng1)
	p2 := s2.LatLngFromDegrees(lat2, lng2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// PointInPolygon runs a ray-casting test against the boundary, treating it as
// closed (the last vertex connects back to the first). A point exactly on a
// crossed edge counts as inside; the rule is deterministic and pinned by tests.
func PointInPolygon(lat, lng float64, boundary []Vertex) (bool, error) {
	if err := ValidateBoundary(boundary); err != nil {
		return false, err
	}
	if !validCoordinate(lat, lng) {
		return false, ErrInvalidCoordinate
	}

	inside := false
	n := len(boundary)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		yi, xi := boundary[i].Lat, boundary[i].Lng
		yj, xj := boundary[j].Lat, boundary[j].Lng
		if (yi > lat) != (yj > lat) &&
			lng <= (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside, nil
}

// AltitudeInRange checks an altitude against a floor band with symmetric
// tolerance. groundReference anchors the diagnostic floor estimate.
func AltitudeInRange(altitude, floorAltitude, ceilingAltitude, tolerance, groundReference float64) AltitudeCheck {
	check := AltitudeCheck{
		Altitude:        altitude,
		FloorAltitude:   floorAltitude,
		CeilingAltitude: ceilingAltitude,
		Tolerance:       tolerance,
		EstimatedFloor:  int(math.Round((altitude - groundReference) / TypicalFloorHeightMeters)),
	}
	low := floorAltitude - tolerance
	high := ceilingAltitude + tolerance
	switch {
	case altitude < low:
		check.GapMeters = low - altitude
	case altitude > high:
		check.GapMeters = altitude - high
	default:
		check.Valid = true
	}
	return check
}

// project maps a vertex to local planar meters around its own latitude.
func project(v Vertex) (x, y float64) {
	x = v.Lng * metersPerDegreeLng * math.Cos(v.Lat*math.Pi/180)
	y = v.Lat * metersPerDegreeLat
	return x, y
}

// DeriveGeometry computes area (shoelace over the local projection), volume
// (area times ceiling height) and perimeter (haversine over closed boundary).
// The result depends only on the inputs, so rederiving is always safe.
func DeriveGeometry(boundary []Vertex, ceilingHeight float64) (Derived, error) {
	if err := ValidateBoundary(boundary); err != nil {
		return Derived{}, err
	}

	n := len(boundary)
	var area, perimeter float64
	var sumLat, sumLng float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		xi, yi := project(boundary[i])
		xj, yj := project(boundary[j])
		area += xi*yj - xj*yi
		perimeter += Haversine(boundary[i].Lat, boundary[i].Lng, boundary[j].Lat, boundary[j].Lng)
		sumLat += boundary[i].Lat
		sumLng += boundary[i].Lng
	}
	area = math.Abs(area) / 2

	return Derived{
		AreaM2:      area,
		VolumeM3:    area * ceilingHeight,
		PerimeterM:  perimeter,
		CenterLat:   sumLat / float64(n),
		CenterLng:   sumLng / float64(n),
		VertexCount: n,
	}, nil
}

// BoundingBoxAreaM2 estimates the area covered by a set of points from their
// bounding box. Used by recording quality scoring, where a rough number beats
// an exact one computed from a still-open path.
func BoundingBoxAreaM2(points []Vertex) float64 {
	if len(points) < 3 {
		return 0
	}
	minLat, maxLat := points[0].Lat, points[0].Lat
	minLng, maxLng := points[0].Lng, points[0].Lng
	var sumLat float64
	for _, p := range points {
		minLat = math.Min(minLat, p.Lat)
		maxLat = math.Max(maxLat, p.Lat)
		minLng = math.Min(minLng, p.Lng)
		maxLng = math.Max(maxLng, p.Lng)
		sumLat += p.Lat
	}
	meanLat := sumLat / float64(len(points))
	latMeters := (maxLat - minLat) * metersPerDegreeLat
	lngMeters := (maxLng - minLng) * metersPerDegreeLng * math.Cos(meanLat*math.Pi/180)
	return latMeters * lngMeters
}

// Centroid returns the arithmetic center of a boundary.
func Centroid(boundary []Vertex) (Vertex, error) {
	if len(boundary) == 0 {
		return Vertex{}, ErrDegenerateGeometry
	}
	var sumLat, sumLng, sumAlt float64
	for _, v := range boundary {
		sumLat += v.Lat
		sumLng += v.Lng
		sumAlt += v.Alt
	}
	n := float64(len(boundary))
	return Vertex{Lat: sumLat / n, Lng: sumLng / n, Alt: sumAlt / n}, nil
}
