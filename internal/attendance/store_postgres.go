package attendance

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

// PostgresStore persists attendance outcomes. The step breakdown is JSONB;
// it is read back whole for reporting, never queried piecewise.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is applied by the deployment's migration step.
const Schema = `
CREATE TABLE IF NOT EXISTS attendance_outcomes (
	id          UUID PRIMARY KEY,
	session_id  TEXT NOT NULL UNIQUE,
	student_id  TEXT NOT NULL,
	lecture_id  TEXT NOT NULL,
	room_id     TEXT NOT NULL,
	decision    TEXT NOT NULL,
	confidence  DOUBLE PRECISION NOT NULL,
	steps       JSONB NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	UNIQUE (student_id, lecture_id)
);
`

func (s *PostgresStore) Record(ctx context.Context, outcome *Outcome) error {
	if outcome.ID == "" {
		outcome.ID = uuid.NewString()
	}
	steps, err := json.Marshal(outcome.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	query := `
		INSERT INTO attendance_outcomes (
			id, session_id, student_id, lecture_id, room_id,
			decision, confidence, steps, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id) DO UPDATE SET
			decision    = EXCLUDED.decision,
			confidence  = EXCLUDED.confidence,
			steps       = EXCLUDED.steps,
			recorded_at = EXCLUDED.recorded_at
	`
	_, err = s.db.ExecContext(ctx, query,
		outcome.ID, outcome.SessionID, outcome.StudentID, outcome.LectureID, outcome.RoomID,
		outcome.Decision, outcome.Confidence, steps, outcome.RecordedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("record attendance: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindBySession(ctx context.Context, sessionID string) (*Outcome, error) {
	rows, err := s.query(ctx, "session_id", sessionID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return rows[0], nil
}

func (s *PostgresStore) ListByLecture(ctx context.Context, lectureID string) ([]*Outcome, error) {
	return s.query(ctx, "lecture_id", lectureID)
}

func (s *PostgresStore) query(ctx context.Context, column, value string) ([]*Outcome, error) {
	query := fmt.Sprintf(`
		SELECT id, session_id, student_id, lecture_id, room_id,
		       decision, confidence, steps, recorded_at
		FROM attendance_outcomes WHERE %s = $1
		ORDER BY recorded_at
	`, pq.QuoteIdentifier(column))

	rows, err := s.db.QueryContext(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("query attendance by %s: %w", column, err)
	}
	defer rows.Close()

	var out []*Outcome
	for rows.Next() {
		var (
			o     Outcome
			steps []byte
		)
		if err := rows.Scan(&o.ID, &o.SessionID, &o.StudentID, &o.LectureID, &o.RoomID,
			&o.Decision, &o.Confidence, &steps, &o.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		if err := json.Unmarshal(steps, &o.Steps); err != nil {
			return nil, fmt.Errorf("unmarshal steps: %w", err)
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}
