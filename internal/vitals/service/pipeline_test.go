package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/pulsecare/vitalwatch/internal/vitals/model"
)

// fakeSink records batches in memory and assigns ids the way the store
// would, one atomic batch per call.
type fakeSink struct {
	batches [][]model.AnomalyEvent
	all     []model.AnomalyEvent
	nextID  int64
	err     error
}

func (f *fakeSink) AppendBatch(_ context.Context, events []model.AnomalyEvent) ([]model.AnomalyEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.AnomalyEvent, 0, len(events))
	for _, ev := range events {
		f.nextID++
		ev.ID = f.nextID
		out = append(out, ev)
	}
	f.batches = append(f.batches, out)
	f.all = append(f.all, out...)
	return out, nil
}

type fakeDispatcher struct {
	dispatched []model.AnomalyEvent
	err        error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, ev model.AnomalyEvent) error {
	if f.err != nil {
		return f.err
	}
	f.dispatched = append(f.dispatched, ev)
	return nil
}

func pipelineFixture(thresholds map[uuid.UUID][]model.Threshold) (*Pipeline, *fakeSink, *fakeDispatcher) {
	sink := &fakeSink{}
	dispatcher := &fakeDispatcher{}
	p := NewPipeline(NewEvaluator(&fakeRegistry{thresholds: thresholds}), sink, dispatcher)
	return p, sink, dispatcher
}

func TestPipelineProcessMessage(t *testing.T) {
	patient := uuid.MustParse("7f9c24e5-3f11-4db0-8c2f-001122334455")
	thresholds := map[uuid.UUID][]model.Threshold{patient: {
		threshold(1, patient, model.MetricHeartRate, fptr(60), fptr(100)),
	}}
	payload := fmt.Sprintf(`{"patient_id":"%s","timestamp":"2025-06-01T12:00:00Z","heart_rate":110}`, patient)

	p, sink, dispatcher := pipelineFixture(thresholds)
	if err := p.ProcessMessage(context.Background(), []byte(payload)); err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if len(sink.batches) != 1 || len(sink.batches[0]) != 1 {
		t.Fatalf("expected one batch with one anomaly, got %v", sink.batches)
	}
	if got := sink.batches[0][0].Description; got != "heart_rate 110.0 > max 100" {
		t.Errorf("Description = %q", got)
	}
	if len(dispatcher.dispatched) != 1 {
		t.Fatalf("expected 1 dispatched alert, got %d", len(dispatcher.dispatched))
	}
	if dispatcher.dispatched[0].ID == 0 {
		t.Error("dispatched anomaly should carry its persisted id")
	}
}

func TestPipelineMalformedMessageDoesNotHaltProcessing(t *testing.T) {
	patient := uuid.New()
	thresholds := map[uuid.UUID][]model.Threshold{patient: {
		threshold(1, patient, model.MetricHeartRate, fptr(60), fptr(100)),
	}}
	p, sink, _ := pipelineFixture(thresholds)

	if err := p.ProcessMessage(context.Background(), []byte(`{{not json`)); err == nil {
		t.Fatal("expected decode error for malformed message")
	}

	valid := fmt.Sprintf(`{"patient_id":"%s","heart_rate":150}`, patient)
	if err := p.ProcessMessage(context.Background(), []byte(valid)); err != nil {
		t.Fatalf("valid message after malformed one failed: %v", err)
	}
	if len(sink.all) != 1 {
		t.Fatalf("expected 1 persisted anomaly, got %d", len(sink.all))
	}
}

func TestPipelineNoViolationsPersistsNothing(t *testing.T) {
	patient := uuid.New()
	thresholds := map[uuid.UUID][]model.Threshold{patient: {
		threshold(1, patient, model.MetricHeartRate, fptr(60), fptr(100)),
	}}
	p, sink, dispatcher := pipelineFixture(thresholds)

	payload := fmt.Sprintf(`{"patient_id":"%s","heart_rate":100}`, patient) // exactly at bound
	if err := p.ProcessMessage(context.Background(), []byte(payload)); err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if len(sink.batches) != 0 {
		t.Errorf("expected no batches, got %d", len(sink.batches))
	}
	if len(dispatcher.dispatched) != 0 {
		t.Errorf("expected no dispatches, got %d", len(dispatcher.dispatched))
	}
}

func TestPipelinePersistFailureIsContained(t *testing.T) {
	patient := uuid.New()
	thresholds := map[uuid.UUID][]model.Threshold{patient: {
		threshold(1, patient, model.MetricHeartRate, fptr(60), fptr(100)),
	}}
	sink := &fakeSink{err: errors.New("connection reset")}
	dispatcher := &fakeDispatcher{}
	p := NewPipeline(NewEvaluator(&fakeRegistry{thresholds: thresholds}), sink, dispatcher)

	payload := fmt.Sprintf(`{"patient_id":"%s","heart_rate":140}`, patient)
	if err := p.ProcessMessage(context.Background(), []byte(payload)); err == nil {
		t.Fatal("expected persist error")
	}
	if len(dispatcher.dispatched) != 0 {
		t.Error("nothing may be dispatched when persistence fails")
	}

	// The next reading still goes through once the store recovers.
	sink.err = nil
	if err := p.ProcessMessage(context.Background(), []byte(payload)); err != nil {
		t.Fatalf("subsequent message failed: %v", err)
	}
	if len(sink.all) != 1 {
		t.Fatalf("expected 1 persisted anomaly after recovery, got %d", len(sink.all))
	}
}

func TestPipelineDispatchFailureKeepsAnomaly(t *testing.T) {
	patient := uuid.New()
	thresholds := map[uuid.UUID][]model.Threshold{patient: {
		threshold(1, patient, model.MetricHeartRate, fptr(60), fptr(100)),
	}}
	sink := &fakeSink{}
	dispatcher := &fakeDispatcher{err: errors.New("alerts service down")}
	p := NewPipeline(NewEvaluator(&fakeRegistry{thresholds: thresholds}), sink, dispatcher)

	payload := fmt.Sprintf(`{"patient_id":"%s","heart_rate":140}`, patient)
	if err := p.ProcessMessage(context.Background(), []byte(payload)); err != nil {
		t.Fatalf("dispatch failure must not fail the message: %v", err)
	}
	if len(sink.all) != 1 {
		t.Fatalf("anomaly record must stand after dispatch failure, got %d", len(sink.all))
	}
}

func TestPipelineMultiMetricBatchIsAtomicUnit(t *testing.T) {
	patient := uuid.New()
	thresholds := map[uuid.UUID][]model.Threshold{patient: {
		threshold(1, patient, model.MetricHeartRate, fptr(60), fptr(100)),
		threshold(2, patient, model.MetricSpO2, fptr(92), nil),
	}}
	p, sink, dispatcher := pipelineFixture(thresholds)

	payload := fmt.Sprintf(`{"patient_id":"%s","heart_rate":140,"spo2":85}`, patient)
	if err := p.ProcessMessage(context.Background(), []byte(payload)); err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if len(sink.batches) != 1 {
		t.Fatalf("both anomalies must persist in a single batch, got %d batches", len(sink.batches))
	}
	if len(sink.batches[0]) != 2 {
		t.Fatalf("batch size = %d, want 2", len(sink.batches[0]))
	}
	if len(dispatcher.dispatched) != 2 {
		t.Errorf("dispatched = %d, want 2", len(dispatcher.dispatched))
	}
}
