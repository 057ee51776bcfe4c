package face

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presence/pkg/platform/sentinel"
)

const studentID = "student-1"

func registeredGate(t *testing.T) *Gate {
	t.Helper()
	store := NewInMemoryRegistrationStore()
	require.NoError(t, store.Save(context.Background(), Registration{
		StudentID:    studentID,
		Device:       Device{Model: "Pixel 8", OSVersion: "15.0.1"},
		RegisteredAt: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
	}))
	return NewGate(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func goodInput() MatchInput {
	return MatchInput{
		MatchConfidence: 0.92,
		AntiSpoofing: AntiSpoofing{
			LivenessScore:    0.9,
			DepthScore:       0.8,
			MotionScore:      0.75,
			TextureAuthentic: true,
		},
		Device: Device{Model: "Pixel 8", OSVersion: "15.1.0"},
	}
}

func TestGateVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("passes when every check clears its threshold", func(t *testing.T) {
		gate := registeredGate(t)
		result, err := gate.Verify(ctx, studentID, goodInput())
		require.NoError(t, err)
		assert.True(t, result.Verified)
		assert.True(t, result.AntiSpoofingPassed)
		assert.True(t, result.DeviceConsistent)
		assert.Equal(t, 0.92, result.Confidence)
	})

	t.Run("thresholds are inclusive", func(t *testing.T) {
		gate := registeredGate(t)
		input := MatchInput{
			MatchConfidence: MinMatchConfidence,
			AntiSpoofing: AntiSpoofing{
				LivenessScore:    MinLivenessScore,
				DepthScore:       MinDepthScore,
				MotionScore:      MinMotionScore,
				TextureAuthentic: true,
			},
			Device: Device{Model: "Pixel 8", OSVersion: "15.0.1"},
		}
		result, err := gate.Verify(ctx, studentID, input)
		require.NoError(t, err)
		assert.True(t, result.Verified)
	})

	t.Run("low confidence", func(t *testing.T) {
		gate := registeredGate(t)
		input := goodInput()
		input.MatchConfidence = 0.84

		result, err := gate.Verify(ctx, studentID, input)
		require.ErrorIs(t, err, ErrLowConfidence)
		assert.False(t, result.Verified)
		assert.Equal(t, 0.84, result.Confidence)
	})

	t.Run("anti-spoofing failures", func(t *testing.T) {
		cases := map[string]func(*AntiSpoofing){
			"liveness below threshold": func(a *AntiSpoofing) { a.LivenessScore = 0.79 },
			"depth below threshold":    func(a *AntiSpoofing) { a.DepthScore = 0.74 },
			"motion below threshold":   func(a *AntiSpoofing) { a.MotionScore = 0.69 },
			"texture not authentic":    func(a *AntiSpoofing) { a.TextureAuthentic = false },
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				gate := registeredGate(t)
				input := goodInput()
				mutate(&input.AntiSpoofing)

				result, err := gate.Verify(ctx, studentID, input)
				require.ErrorIs(t, err, ErrAntiSpoofingFailed)
				assert.False(t, result.AntiSpoofingPassed)
			})
		}
	})

	t.Run("different device model", func(t *testing.T) {
		gate := registeredGate(t)
		input := goodInput()
		input.Device.Model = "iPhone 15"

		_, err := gate.Verify(ctx, studentID, input)
		require.ErrorIs(t, err, ErrDeviceMismatch)
	})

	t.Run("different OS major version", func(t *testing.T) {
		gate := registeredGate(t)
		input := goodInput()
		input.Device.OSVersion = "16.0"

		_, err := gate.Verify(ctx, studentID, input)
		require.ErrorIs(t, err, ErrDeviceMismatch)
	})

	t.Run("unregistered student", func(t *testing.T) {
		gate := registeredGate(t)
		_, err := gate.Verify(ctx, "stranger", goodInput())
		require.ErrorIs(t, err, ErrNotRegistered)
	})
}

func TestDeviceConsistent(t *testing.T) {
	registered := Device{Model: "Pixel 8", OSVersion: "15.0.1"}

	assert.True(t, Consistent(Device{Model: "Pixel 8", OSVersion: "15.2.0"}, registered))
	assert.False(t, Consistent(Device{Model: "Pixel 9", OSVersion: "15.0.1"}, registered))
	assert.False(t, Consistent(Device{Model: "Pixel 8", OSVersion: "14.9"}, registered))
	assert.False(t, Consistent(Device{}, registered))
	assert.False(t, Consistent(registered, Device{}))
}

func TestDeviceNormalize(t *testing.T) {
	t.Run("fills OS version from the user agent", func(t *testing.T) {
		d := Device{
			Model:     "Pixel 8",
			UserAgent: "Mozilla/5.0 (Linux; Android 15; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36",
		}.Normalize()
		assert.Equal(t, "Pixel 8", d.Model)
		assert.Equal(t, "15", d.OSVersion)
	})

	t.Run("explicit fields win over the user agent", func(t *testing.T) {
		d := Device{
			Model:     "Pixel 8",
			OSVersion: "15.0.1",
			UserAgent: "Mozilla/5.0 (Linux; Android 14; Pixel 7) AppleWebKit/537.36",
		}.Normalize()
		assert.Equal(t, "Pixel 8", d.Model)
		assert.Equal(t, "15.0.1", d.OSVersion)
	})

	t.Run("no user agent is a no-op", func(t *testing.T) {
		d := Device{Model: "Pixel 8"}.Normalize()
		assert.Equal(t, Device{Model: "Pixel 8"}, d)
	})
}

func TestInMemoryRegistrationStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryRegistrationStore()

	reg := Registration{StudentID: studentID, Device: Device{Model: "Pixel 8", OSVersion: "15.0.1"}}
	require.NoError(t, store.Save(ctx, reg))

	got, err := store.Find(ctx, studentID)
	require.NoError(t, err)
	assert.Equal(t, "Pixel 8", got.Device.Model)

	require.NoError(t, store.Revoke(ctx, studentID))
	_, err = store.Find(ctx, studentID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.ErrorIs(t, store.Revoke(ctx, studentID), sentinel.ErrNotFound)
}
