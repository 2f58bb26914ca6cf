package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pulsecare/vitalwatch/internal/vitals/model"
)

// ThresholdRegistry serves the per-patient threshold snapshot used during
// evaluation. Reads see whatever is current at fetch time; an
// administrative edit racing an in-flight evaluation is acceptable.
type ThresholdRegistry interface {
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]model.Threshold, error)
}

// AnomalySink persists anomaly batches atomically per call.
type AnomalySink interface {
	AppendBatch(ctx context.Context, events []model.AnomalyEvent) ([]model.AnomalyEvent, error)
}

// Evaluator applies a patient's configured thresholds to observed values.
// It holds no mutable state, so evaluations for different patients may run
// concurrently.
type Evaluator struct {
	registry ThresholdRegistry
}

func NewEvaluator(registry ThresholdRegistry) *Evaluator {
	return &Evaluator{registry: registry}
}

// Evaluate checks one reading against the patient's thresholds and returns
// the violations found. No thresholds configured means no anomalies and no
// error. The returned events are not yet persisted.
func (e *Evaluator) Evaluate(ctx context.Context, r *model.Reading) ([]model.AnomalyEvent, error) {
	thresholds, err := e.registry.ListForPatient(ctx, r.PatientID)
	if err != nil {
		return nil, fmt.Errorf("fetch thresholds: %w", err)
	}
	if len(thresholds) == 0 {
		return nil, nil
	}

	var events []model.AnomalyEvent
	for _, th := range thresholds {
		v, ok := r.Value(th.Metric)
		if !ok {
			continue
		}
		if ev, violated := checkThreshold(th, v, r.PatientID, r.Timestamp); violated {
			events = append(events, ev)
		}
	}
	return events, nil
}

// checkThreshold applies one threshold to one observed value. Comparisons
// are strict: a value exactly at a bound is not a violation.
func checkThreshold(th model.Threshold, v float64, patientID uuid.UUID, ts time.Time) (model.AnomalyEvent, bool) {
	var desc string
	switch {
	case th.MinValue != nil && v < *th.MinValue:
		desc = fmt.Sprintf("%s %s < min %s", th.Metric, formatObserved(v), formatBound(*th.MinValue))
	case th.MaxValue != nil && v > *th.MaxValue:
		desc = fmt.Sprintf("%s %s > max %s", th.Metric, formatObserved(v), formatBound(*th.MaxValue))
	default:
		return model.AnomalyEvent{}, false
	}
	thresholdID := th.ID
	return model.AnomalyEvent{
		PatientID:     patientID,
		Metric:        th.Metric,
		ObservedValue: v,
		Severity:      model.SeverityWarning,
		Description:   desc,
		Timestamp:     ts,
		ThresholdID:   &thresholdID,
	}, true
}

// formatObserved renders an observed value for the audit description.
// Integral values keep a trailing .0 ("110.0"); fractional values render
// minimally ("98.6"). The formatting is deterministic so re-evaluating the
// same reading reproduces the description bit for bit.
func formatObserved(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// formatBound renders a threshold bound minimally ("100", "92.5").
func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
