package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsecare/vitalwatch/internal/metrics"
	"github.com/pulsecare/vitalwatch/internal/vitals/model"
	"github.com/rs/zerolog/log"
)

// AlertDispatcher forwards a persisted anomaly to the external alerting
// collaborator. Delivery is best-effort and at-most-once: a failed dispatch
// is logged and the notification is lost; the persisted anomaly stands.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, ev model.AnomalyEvent) error
}

// Pipeline runs decode -> evaluate -> persist -> dispatch for one bus
// message. Every failure is contained to that message; the consumer loop
// keeps going regardless.
type Pipeline struct {
	evaluator  *Evaluator
	anomalies  AnomalySink
	dispatcher AlertDispatcher
}

func NewPipeline(evaluator *Evaluator, anomalies AnomalySink, dispatcher AlertDispatcher) *Pipeline {
	return &Pipeline{evaluator: evaluator, anomalies: anomalies, dispatcher: dispatcher}
}

// ProcessMessage handles one raw payload from the vital-signs channel.
// The returned error is informational; callers log it and move on.
func (p *Pipeline) ProcessMessage(ctx context.Context, payload []byte) error {
	metrics.ReadingsConsumed.Inc()

	reading, err := model.DecodeReading(payload)
	if err != nil {
		metrics.DecodeFailures.Inc()
		return err
	}

	start := time.Now()
	events, err := p.evaluator.Evaluate(ctx, reading)
	metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("evaluate reading for patient %s: %w", reading.PatientID, err)
	}
	if len(events) == 0 {
		return nil
	}

	// All anomalies from one reading persist together or not at all.
	persisted, err := p.anomalies.AppendBatch(ctx, events)
	if err != nil {
		metrics.PersistFailures.Inc()
		return fmt.Errorf("persist anomalies for patient %s: %w", reading.PatientID, err)
	}
	for _, ev := range persisted {
		metrics.AnomaliesDetected.WithLabelValues(string(ev.Metric), "stream").Inc()
	}

	for _, ev := range persisted {
		if err := p.dispatcher.Dispatch(ctx, ev); err != nil {
			metrics.AlertsDispatched.WithLabelValues("failed").Inc()
			log.Error().Err(err).
				Str("patient_id", ev.PatientID.String()).
				Str("metric", string(ev.Metric)).
				Int64("anomaly_id", ev.ID).
				Msg("alert dispatch failed; anomaly record stands")
			continue
		}
		metrics.AlertsDispatched.WithLabelValues("success").Inc()
	}
	return nil
}
