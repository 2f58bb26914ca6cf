package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pulsecare/vitalwatch/internal/metrics"
	"github.com/pulsecare/vitalwatch/internal/vitals/model"
	"github.com/rs/zerolog/log"
)

// HistorySource pulls historical samples per metric from the time-series
// collaborator.
type HistorySource interface {
	Samples(ctx context.Context, patientID uuid.UUID, metric model.Metric, start, end time.Time) ([]model.Sample, error)
}

// Analyzer is the manual/backfill path. It applies the same per-sample
// violation logic as the live pipeline, with no check against previously
// recorded anomalies: re-running over an overlapping range duplicates rows
// on purpose. Backfill results are persisted but not dispatched.
type Analyzer struct {
	registry  ThresholdRegistry
	history   HistorySource
	anomalies AnomalySink
	window    time.Duration
}

func NewAnalyzer(registry ThresholdRegistry, history HistorySource, anomalies AnomalySink, window time.Duration) *Analyzer {
	if window <= 0 {
		window = time.Hour
	}
	return &Analyzer{registry: registry, history: history, anomalies: anomalies, window: window}
}

// AnalyzeRecent runs the backfill over the fixed recent window ending now.
func (a *Analyzer) AnalyzeRecent(ctx context.Context, patientID uuid.UUID) ([]model.AnomalyEvent, error) {
	end := time.Now().UTC()
	return a.AnalyzeRange(ctx, patientID, end.Add(-a.window), end)
}

// AnalyzeRange pulls history for every configured threshold's metric,
// evaluates each sample, and persists all violations as one atomic batch.
// A metric whose history pull fails is skipped; the rest still run.
func (a *Analyzer) AnalyzeRange(ctx context.Context, patientID uuid.UUID, start, end time.Time) ([]model.AnomalyEvent, error) {
	thresholds, err := a.registry.ListForPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("fetch thresholds: %w", err)
	}
	if len(thresholds) == 0 {
		return []model.AnomalyEvent{}, nil
	}

	var events []model.AnomalyEvent
	for _, th := range thresholds {
		samples, err := a.history.Samples(ctx, patientID, th.Metric, start, end)
		if err != nil {
			log.Error().Err(err).
				Str("patient_id", patientID.String()).
				Str("metric", string(th.Metric)).
				Msg("history pull failed; metric skipped in this run")
			continue
		}
		for _, sample := range samples {
			if ev, violated := checkThreshold(th, sample.Value, patientID, sample.Timestamp); violated {
				events = append(events, ev)
			}
		}
	}
	if len(events) == 0 {
		return []model.AnomalyEvent{}, nil
	}

	persisted, err := a.anomalies.AppendBatch(ctx, events)
	if err != nil {
		return nil, fmt.Errorf("persist backfill anomalies: %w", err)
	}
	for _, ev := range persisted {
		metrics.AnomaliesDetected.WithLabelValues(string(ev.Metric), "backfill").Inc()
	}
	return persisted, nil
}
