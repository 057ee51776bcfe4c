package room

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"presence/pkg/platform/sentinel"
)

// PostgresStore persists rooms in PostgreSQL. Geometry and provenance are
// stored as JSONB since they are read back whole, never queried piecewise.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is applied by the deployment's migration step.
const Schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id                 UUID PRIMARY KEY,
	name               TEXT NOT NULL UNIQUE,
	building           TEXT NOT NULL,
	floor              INT NOT NULL,
	room_type          TEXT NOT NULL DEFAULT '',
	capacity           INT NOT NULL DEFAULT 0,
	boundary           JSONB NOT NULL,
	floor_altitude_m   DOUBLE PRECISION NOT NULL,
	ceiling_altitude_m DOUBLE PRECISION NOT NULL,
	center             JSONB NOT NULL,
	area_m2            DOUBLE PRECISION NOT NULL,
	volume_m3          DOUBLE PRECISION NOT NULL,
	perimeter_m        DOUBLE PRECISION NOT NULL,
	pressure           JSONB NOT NULL,
	provenance         JSONB NOT NULL,
	validated          BOOLEAN NOT NULL DEFAULT FALSE,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *PostgresStore) Save(ctx context.Context, r *Room) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	boundary, err := json.Marshal(r.Boundary)
	if err != nil {
		return fmt.Errorf("marshal boundary: %w", err)
	}
	center, err := json.Marshal(r.Center)
	if err != nil {
		return fmt.Errorf("marshal center: %w", err)
	}
	pressure, err := json.Marshal(r.Pressure)
	if err != nil {
		return fmt.Errorf("marshal pressure: %w", err)
	}
	provenance, err := json.Marshal(r.Provenance)
	if err != nil {
		return fmt.Errorf("marshal provenance: %w", err)
	}

	query := `
		INSERT INTO rooms (
			id, name, building, floor, room_type, capacity, boundary,
			floor_altitude_m, ceiling_altitude_m, center,
			area_m2, volume_m3, perimeter_m,
			pressure, provenance, validated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			room_type          = EXCLUDED.room_type,
			capacity           = EXCLUDED.capacity,
			boundary           = EXCLUDED.boundary,
			floor_altitude_m   = EXCLUDED.floor_altitude_m,
			ceiling_altitude_m = EXCLUDED.ceiling_altitude_m,
			center             = EXCLUDED.center,
			area_m2            = EXCLUDED.area_m2,
			volume_m3          = EXCLUDED.volume_m3,
			perimeter_m        = EXCLUDED.perimeter_m,
			pressure           = EXCLUDED.pressure,
			provenance         = EXCLUDED.provenance,
			validated          = EXCLUDED.validated,
			updated_at         = now()
	`
	_, err = s.db.ExecContext(ctx, query,
		r.ID, r.Name, r.Building, r.Floor, r.RoomType, r.Capacity, boundary,
		r.FloorAltitudeM, r.CeilingAltitudeM, center,
		r.AreaM2, r.VolumeM3, r.PerimeterM,
		pressure, provenance, r.Validated,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("save room: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Room, error) {
	return s.findBy(ctx, "id", id)
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*Room, error) {
	return s.findBy(ctx, "name", name)
}

func (s *PostgresStore) findBy(ctx context.Context, column, value string) (*Room, error) {
	query := fmt.Sprintf(`
		SELECT id, name, building, floor, room_type, capacity, boundary,
		       floor_altitude_m, ceiling_altitude_m, center,
		       area_m2, volume_m3, perimeter_m,
		       pressure, provenance, validated, created_at, updated_at
		FROM rooms WHERE %s = $1
	`, pq.QuoteIdentifier(column))

	var (
		r                                      Room
		boundary, center, pressure, provenance []byte
	)
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&r.ID, &r.Name, &r.Building, &r.Floor, &r.RoomType, &r.Capacity, &boundary,
		&r.FloorAltitudeM, &r.CeilingAltitudeM, &center,
		&r.AreaM2, &r.VolumeM3, &r.PerimeterM,
		&pressure, &provenance, &r.Validated, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find room by %s: %w", column, err)
	}

	if err := json.Unmarshal(boundary, &r.Boundary); err != nil {
		return nil, fmt.Errorf("unmarshal boundary: %w", err)
	}
	if err := json.Unmarshal(center, &r.Center); err != nil {
		return nil, fmt.Errorf("unmarshal center: %w", err)
	}
	if err := json.Unmarshal(pressure, &r.Pressure); err != nil {
		return nil, fmt.Errorf("unmarshal pressure: %w", err)
	}
	if err := json.Unmarshal(provenance, &r.Provenance); err != nil {
		return nil, fmt.Errorf("unmarshal provenance: %w", err)
	}
	return &r, nil
}
