package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pulsecare/vitalwatch/internal/vitals/database"
	"github.com/pulsecare/vitalwatch/internal/vitals/model"
)

// AnomalyStore owns the append-only anomalies table. Rows are written only
// by the evaluator paths and never updated or deleted.
type AnomalyStore struct {
	db *database.Database
}

func NewAnomalyStore(db *database.Database) *AnomalyStore {
	return &AnomalyStore{db: db}
}

const anomalyColumns = `id, patient_id, metric, observed_value, severity, description, timestamp, created_at, threshold_id`

// AppendBatch persists all events in one transaction: either every anomaly
// derived from a reading is recorded or none of them are. Returns the
// persisted events with ids and created_at filled in.
func (s *AnomalyStore) AppendBatch(ctx context.Context, events []model.AnomalyEvent) ([]model.AnomalyEvent, error) {
	if len(events) == 0 {
		return nil, nil
	}
	tx, err := s.db.Pool().Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("append anomalies: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `
	INSERT INTO anomalies (patient_id, metric, observed_value, severity, description, timestamp, threshold_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id, created_at`

	out := make([]model.AnomalyEvent, 0, len(events))
	for _, ev := range events {
		row := tx.QueryRow(ctx, q,
			ev.PatientID, ev.Metric, ev.ObservedValue, ev.Severity, ev.Description, ev.Timestamp, ev.ThresholdID)
		if err := row.Scan(&ev.ID, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("append anomalies: insert: %w", err)
		}
		out = append(out, ev)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("append anomalies: commit: %w", err)
	}
	return out, nil
}

// ListForPatient returns the patient's anomaly history, newest first.
func (s *AnomalyStore) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]model.AnomalyEvent, error) {
	const q = `SELECT ` + anomalyColumns + ` FROM anomalies WHERE patient_id = $1 ORDER BY timestamp DESC`
	return s.list(ctx, q, patientID)
}

// ListForPatientInRange returns anomalies within [start, end], ascending by
// timestamp, for analysis use.
func (s *AnomalyStore) ListForPatientInRange(ctx context.Context, patientID uuid.UUID, start, end time.Time) ([]model.AnomalyEvent, error) {
	const q = `SELECT ` + anomalyColumns + ` FROM anomalies
	WHERE patient_id = $1 AND timestamp >= $2 AND timestamp <= $3
	ORDER BY timestamp ASC`
	return s.list(ctx, q, patientID, start, end)
}

func (s *AnomalyStore) list(ctx context.Context, q string, args ...any) ([]model.AnomalyEvent, error) {
	rows, err := s.db.Pool().Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list anomalies: %w", err)
	}
	defer rows.Close()
	out := []model.AnomalyEvent{}
	for rows.Next() {
		ev, err := scanAnomaly(rows)
		if err != nil {
			return nil, fmt.Errorf("scan anomaly: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func scanAnomaly(row pgx.Row) (model.AnomalyEvent, error) {
	var ev model.AnomalyEvent
	err := row.Scan(&ev.ID, &ev.PatientID, &ev.Metric, &ev.ObservedValue,
		&ev.Severity, &ev.Description, &ev.Timestamp, &ev.CreatedAt, &ev.ThresholdID)
	return ev, err
}
