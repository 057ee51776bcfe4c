package room

import (
	"time"

	dErrors "presence/pkg/domain-errors"

	"presence/internal/geometry"
)

// PathPoint is one sample of the walked recording path kept for provenance.
type PathPoint struct {
	Sequence    int       `json:"sequence"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	PressureHPa float64   `json:"pressure_hpa"`
	AltitudeM   float64   `json:"altitude_m"`
	Timestamp   time.Time `json:"timestamp"`
}

// Provenance records who captured a room's geometry and from what raw path.
type Provenance struct {
	RecordedBy string      `json:"recorded_by"`
	RecordedAt time.Time   `json:"recorded_at"`
	Path       []PathPoint `json:"path,omitempty"`
}

// PressureRange is the barometric envelope observed while recording.
type PressureRange struct {
	MinHPa       float64 `json:"min_hpa"`
	MaxHPa       float64 `json:"max_hpa"`
	AvgHPa       float64 `json:"avg_hpa"`
	ToleranceHPa float64 `json:"tolerance_hpa"`
}

// Room is a three-dimensional verification volume: a closed boundary polygon
// plus a floor-to-ceiling altitude band. Derived properties are recomputed
// whenever the boundary changes and never stored stale.
type Room struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Building string `json:"building"`
	Floor    int    `json:"floor"`
	RoomType string `json:"room_type,omitempty"`
	Capacity int    `json:"capacity,omitempty"`

	Boundary         []geometry.Vertex `json:"boundary"`
	FloorAltitudeM   float64           `json:"floor_altitude_m"`
	CeilingAltitudeM float64           `json:"ceiling_altitude_m"`
	Center           geometry.Vertex   `json:"center"`

	AreaM2     float64 `json:"area_m2"`
	VolumeM3   float64 `json:"volume_m3"`
	PerimeterM float64 `json:"perimeter_m"`

	Pressure   PressureRange `json:"pressure"`
	Provenance Provenance    `json:"provenance"`
	Validated  bool          `json:"validated"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New builds a Room, deriving geometry from the boundary and enforcing the
// structural invariants.
func New(name, building string, floor int, boundary []geometry.Vertex, floorAltitude, ceilingAltitude float64) (*Room, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "room name is required")
	}
	if ceilingAltitude <= floorAltitude {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "ceiling altitude must be above floor altitude")
	}

	r := &Room{
		Name:             name,
		Building:         building,
		Floor:            floor,
		FloorAltitudeM:   floorAltitude,
		CeilingAltitudeM: ceilingAltitude,
	}
	if err := r.SetBoundary(boundary); err != nil {
		return nil, err
	}
	return r, nil
}

// SetBoundary replaces the boundary and recomputes every derived property.
func (r *Room) SetBoundary(boundary []geometry.Vertex) error {
	if err := geometry.ValidateBoundary(boundary); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid boundary")
	}

	derived, err := geometry.DeriveGeometry(boundary, r.CeilingHeightM())
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "derive geometry")
	}
	center, err := geometry.Centroid(boundary)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "derive center")
	}

	r.Boundary = boundary
	r.AreaM2 = derived.AreaM2
	r.VolumeM3 = derived.VolumeM3
	r.PerimeterM = derived.PerimeterM
	center.Alt = r.CenterAltitudeM()
	r.Center = center
	return nil
}

// CeilingHeightM is the interior height of the room.
func (r *Room) CeilingHeightM() float64 {
	return r.CeilingAltitudeM - r.FloorAltitudeM
}

// CenterAltitudeM is the midpoint of the altitude band, used by the
// barometric altitude check.
func (r *Room) CenterAltitudeM() float64 {
	return (r.FloorAltitudeM + r.CeilingAltitudeM) / 2
}

// Contains reports whether a coordinate falls inside the boundary polygon.
func (r *Room) Contains(lat, lng float64) (bool, error) {
	return geometry.PointInPolygon(lat, lng, r.Boundary)
}

// DistanceFromCenterM is the great-circle distance from the room center,
// reported to clients for corrective guidance.
func (r *Room) DistanceFromCenterM(lat, lng float64) float64 {
	return geometry.Haversine(lat, lng, r.Center.Lat, r.Center.Lng)
}

// PressureInRange checks a pressure sample against the recorded envelope,
// widened by the configured tolerance.
func (r *Room) PressureInRange(pressureHPa float64) bool {
	if r.Pressure.MinHPa == 0 && r.Pressure.MaxHPa == 0 {
		return true
	}
	return pressureHPa >= r.Pressure.MinHPa-r.Pressure.ToleranceHPa &&
		pressureHPa <= r.Pressure.MaxHPa+r.Pressure.ToleranceHPa
}
