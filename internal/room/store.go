package room

import "context"

// Store persists validated rooms. The Boundary Recorder writes here on
// successful completion; the verification state machine only reads.
type Store interface {
	Save(ctx context.Context, r *Room) error
	FindByID(ctx context.Context, id string) (*Room, error)
	FindByName(ctx context.Context, name string) (*Room, error)
}
