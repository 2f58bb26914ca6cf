package database

import (
	"context"
	"fmt"
)

// Schema bootstrap for the threshold registry and the append-only anomaly
// log. The unique constraint on (patient_id, metric) is what guarantees
// administrative upsert races resolve to a single row.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS thresholds (
		id          BIGSERIAL PRIMARY KEY,
		patient_id  UUID NOT NULL,
		metric      TEXT NOT NULL,
		min_value   DOUBLE PRECISION,
		max_value   DOUBLE PRECISION,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT unique_patient_metric_threshold UNIQUE (patient_id, metric)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_thresholds_patient ON thresholds (patient_id)`,
	`CREATE TABLE IF NOT EXISTS anomalies (
		id             BIGSERIAL PRIMARY KEY,
		patient_id     UUID NOT NULL,
		metric         TEXT NOT NULL,
		observed_value DOUBLE PRECISION NOT NULL,
		severity       TEXT NOT NULL,
		description    TEXT NOT NULL,
		timestamp      TIMESTAMPTZ NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		threshold_id   BIGINT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_anomalies_patient ON anomalies (patient_id)`,
	`CREATE INDEX IF NOT EXISTS idx_anomalies_patient_ts ON anomalies (patient_id, timestamp)`,
}

// Init creates the tables and indexes if they do not exist yet.
func (d *Database) Init(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := d.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
