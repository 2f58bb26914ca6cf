package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pulsecare/vitalwatch/internal/vitals/database"
	"github.com/pulsecare/vitalwatch/internal/vitals/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ThresholdStore owns the thresholds table. The unique constraint on
// (patient_id, metric) plus single-statement upserts keep the registry at
// one row per key under concurrent administrative writes.
type ThresholdStore struct {
	db *database.Database
}

func NewThresholdStore(db *database.Database) *ThresholdStore {
	return &ThresholdStore{db: db}
}

const thresholdColumns = `id, patient_id, metric, min_value, max_value, created_at, updated_at`

// ListForPatient returns every threshold configured for the patient.
// An empty result means no monitoring is configured and is not an error.
func (s *ThresholdStore) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]model.Threshold, error) {
	const q = `SELECT ` + thresholdColumns + ` FROM thresholds WHERE patient_id = $1 ORDER BY metric`
	rows, err := s.db.Pool().Query(ctx, q, patientID)
	if err != nil {
		return nil, fmt.Errorf("list thresholds: %w", err)
	}
	defer rows.Close()
	out := []model.Threshold{}
	for rows.Next() {
		t, err := scanThreshold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan threshold: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Get returns the threshold for one (patient, metric) key, or ErrNotFound.
func (s *ThresholdStore) Get(ctx context.Context, patientID uuid.UUID, metric model.Metric) (*model.Threshold, error) {
	const q = `SELECT ` + thresholdColumns + ` FROM thresholds WHERE patient_id = $1 AND metric = $2`
	rows, err := s.db.Pool().Query(ctx, q, patientID, metric)
	if err != nil {
		return nil, fmt.Errorf("get threshold: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get threshold: %w", err)
		}
		return nil, ErrNotFound
	}
	t, err := scanThreshold(rows)
	if err != nil {
		return nil, fmt.Errorf("scan threshold: %w", err)
	}
	return &t, nil
}

// Upsert creates the threshold if absent, otherwise updates min/max and
// updated_at in place. The statement serializes on the unique key, so
// concurrent upserts for the same (patient, metric) can never produce a
// duplicate row; a lost insert race surfaces as a unique violation and is
// retried once as an update.
func (s *ThresholdStore) Upsert(ctx context.Context, patientID uuid.UUID, metric model.Metric, minValue, maxValue *float64) (*model.Threshold, error) {
	const q = `
	INSERT INTO thresholds (patient_id, metric, min_value, max_value)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (patient_id, metric) DO UPDATE SET
		min_value  = EXCLUDED.min_value,
		max_value  = EXCLUDED.max_value,
		updated_at = now()
	RETURNING ` + thresholdColumns

	for attempt := 0; ; attempt++ {
		rows, err := s.db.Pool().Query(ctx, q, patientID, metric, minValue, maxValue)
		if err != nil {
			if IsUniqueViolation(err) && attempt == 0 {
				continue
			}
			return nil, fmt.Errorf("upsert threshold: %w", err)
		}
		t, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (model.Threshold, error) {
			return scanThreshold(row)
		})
		if err != nil {
			if IsUniqueViolation(err) && attempt == 0 {
				continue
			}
			return nil, fmt.Errorf("upsert threshold: %w", err)
		}
		return &t, nil
	}
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanThreshold(row pgx.Row) (model.Threshold, error) {
	var t model.Threshold
	err := row.Scan(&t.ID, &t.PatientID, &t.Metric, &t.MinValue, &t.MaxValue, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}
