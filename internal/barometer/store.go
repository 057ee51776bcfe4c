package barometer

import "context"

// CalibrationStore keeps ground calibrations keyed by (user, building).
// Implementations must re-validate expiry at read time so a lookup racing
// with expiry can never hand out a stale reference.
type CalibrationStore interface {
	Put(ctx context.Context, key CalibrationKey, cal Calibration) error
	Get(ctx context.Context, key CalibrationKey) (Calibration, error)
	Delete(ctx context.Context, key CalibrationKey) error
}
