package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Reading is one timestamped set of metric values for a patient, decoded
// from a bus message. Readings are transient: consumed once by the
// pipeline and discarded, never persisted.
type Reading struct {
	PatientID uuid.UUID
	Timestamp time.Time

	HeartRate       *float64
	SpO2            *float64
	RespiratoryRate *float64
	SystolicBP      *float64
	DiastolicBP     *float64
	Temperature     *float64
	Glucose         *float64
}

// Value returns the observed value for the given metric, if present.
func (r *Reading) Value(m Metric) (float64, bool) {
	var p *float64
	switch m {
	case MetricHeartRate:
		p = r.HeartRate
	case MetricSpO2:
		p = r.SpO2
	case MetricRespiratoryRate:
		p = r.RespiratoryRate
	case MetricSystolicBP:
		p = r.SystolicBP
	case MetricDiastolicBP:
		p = r.DiastolicBP
	case MetricTemperature:
		p = r.Temperature
	case MetricGlucose:
		p = r.Glucose
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// readingPayload is the wire shape published on the vital-signs channel.
// Unknown fields are ignored; metric fields are all optional.
type readingPayload struct {
	PatientID       string   `json:"patient_id"`
	Timestamp       string   `json:"timestamp"`
	HeartRate       *float64 `json:"heart_rate"`
	SpO2            *float64 `json:"spo2"`
	RespiratoryRate *float64 `json:"respiratory_rate"`
	SystolicBP      *float64 `json:"systolic_bp"`
	DiastolicBP     *float64 `json:"diastolic_bp"`
	Temperature     *float64 `json:"temperature"`
	Glucose         *float64 `json:"glucose"`
}

// DecodeReading parses a raw bus payload into a typed Reading.
// It fails on unparseable payloads, a missing or invalid patient_id, and
// malformed timestamps. A missing timestamp falls back to receipt time;
// the upstream producer normally stamps every message.
func DecodeReading(payload []byte) (*Reading, error) {
	var p readingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode reading: %w", err)
	}
	if p.PatientID == "" {
		return nil, fmt.Errorf("decode reading: missing patient_id")
	}
	patientID, err := uuid.Parse(p.PatientID)
	if err != nil {
		return nil, fmt.Errorf("decode reading: invalid patient_id %q: %w", p.PatientID, err)
	}

	ts := time.Now().UTC()
	if p.Timestamp != "" {
		ts, err = ParseTimestamp(p.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("decode reading: invalid timestamp %q: %w", p.Timestamp, err)
		}
	}

	return &Reading{
		PatientID:       patientID,
		Timestamp:       ts,
		HeartRate:       p.HeartRate,
		SpO2:            p.SpO2,
		RespiratoryRate: p.RespiratoryRate,
		SystolicBP:      p.SystolicBP,
		DiastolicBP:     p.DiastolicBP,
		Temperature:     p.Temperature,
		Glucose:         p.Glucose,
	}, nil
}

// ParseTimestamp accepts RFC 3339 timestamps with or without a zone
// suffix; zoneless values are treated as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format")
}
