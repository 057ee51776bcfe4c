package room

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "presence/pkg/domain-errors"

	"presence/internal/geometry"
)

func testBoundary(centerLat, centerLng, width, height float64) []geometry.Vertex {
	halfLat := (height / 2) / 110540.0
	halfLng := (width / 2) / (111320.0 * math.Cos(centerLat*math.Pi/180))
	return []geometry.Vertex{
		{Lat: centerLat - halfLat, Lng: centerLng - halfLng},
		{Lat: centerLat - halfLat, Lng: centerLng + halfLng},
		{Lat: centerLat + halfLat, Lng: centerLng + halfLng},
		{Lat: centerLat + halfLat, Lng: centerLng - halfLng},
	}
}

func TestNewRoom(t *testing.T) {
	boundary := testBoundary(31.95, 35.91, 10, 10)

	t.Run("derives geometry on construction", func(t *testing.T) {
		r, err := New("A101", "engineering", 2, boundary, 103.5, 107.0)
		require.NoError(t, err)
		assert.InEpsilon(t, 100, r.AreaM2, 0.01)
		assert.InEpsilon(t, 100*3.5, r.VolumeM3, 0.011)
		assert.InEpsilon(t, 40, r.PerimeterM, 0.01)
		assert.InDelta(t, 31.95, r.Center.Lat, 1e-9)
		assert.InDelta(t, 105.25, r.CenterAltitudeM(), 1e-9)
	})

	t.Run("ceiling must be above floor", func(t *testing.T) {
		_, err := New("A102", "engineering", 2, boundary, 107.0, 103.5)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("name is required", func(t *testing.T) {
		_, err := New("", "engineering", 2, boundary, 103.5, 107.0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("boundary needs at least three vertices", func(t *testing.T) {
		_, err := New("A103", "engineering", 2, boundary[:2], 103.5, 107.0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestSetBoundaryRecomputesDerived(t *testing.T) {
	r, err := New("A101", "engineering", 2, testBoundary(31.95, 35.91, 10, 10), 103.5, 107.0)
	require.NoError(t, err)
	before := r.AreaM2

	require.NoError(t, r.SetBoundary(testBoundary(31.95, 35.91, 20, 10)))
	assert.InEpsilon(t, 2*before, r.AreaM2, 0.02, "area follows the new boundary")
	assert.InEpsilon(t, 60, r.PerimeterM, 0.01)
}

func TestContainsAndDistance(t *testing.T) {
	r, err := New("A101", "engineering", 2, testBoundary(31.95, 35.91, 10, 10), 103.5, 107.0)
	require.NoError(t, err)

	inside, err := r.Contains(31.95, 35.91)
	require.NoError(t, err)
	assert.True(t, inside)

	awayLat := 31.95 + 50.0/110540.0
	inside, err = r.Contains(awayLat, 35.91)
	require.NoError(t, err)
	assert.False(t, inside)
	assert.InDelta(t, 50, r.DistanceFromCenterM(awayLat, 35.91), 1)
}

func TestPressureInRange(t *testing.T) {
	r := &Room{Pressure: PressureRange{MinHPa: 1000, MaxHPa: 1002, ToleranceHPa: 0.5}}

	assert.True(t, r.PressureInRange(1001))
	assert.True(t, r.PressureInRange(999.6), "tolerance widens the envelope")
	assert.False(t, r.PressureInRange(998))

	unset := &Room{}
	assert.True(t, unset.PressureInRange(950), "rooms without an envelope accept anything")
}
