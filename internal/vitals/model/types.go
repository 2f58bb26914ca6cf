package model

import (
	"time"

	"github.com/google/uuid"
)

// Metric is a named physiological measurement type carried by readings.
type Metric string

const (
	MetricHeartRate       Metric = "heart_rate"
	MetricSpO2            Metric = "spo2"
	MetricRespiratoryRate Metric = "respiratory_rate"
	MetricSystolicBP      Metric = "systolic_bp"
	MetricDiastolicBP     Metric = "diastolic_bp"
	MetricTemperature     Metric = "temperature"
	MetricGlucose         Metric = "glucose"
)

// Metrics lists every supported metric in a stable order.
var Metrics = []Metric{
	MetricHeartRate,
	MetricSpO2,
	MetricRespiratoryRate,
	MetricSystolicBP,
	MetricDiastolicBP,
	MetricTemperature,
	MetricGlucose,
}

func (m Metric) Valid() bool {
	switch m {
	case MetricHeartRate, MetricSpO2, MetricRespiratoryRate,
		MetricSystolicBP, MetricDiastolicBP, MetricTemperature, MetricGlucose:
		return true
	}
	return false
}

func (m Metric) String() string { return string(m) }

// Severity classifies an anomaly for downstream alert routing.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Threshold is a configured min/max bound for one metric of one patient.
// At most one row exists per (patient_id, metric); administrative upserts
// update in place. The evaluator never mutates thresholds.
type Threshold struct {
	ID        int64     `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	Metric    Metric    `json:"metric"`
	MinValue  *float64  `json:"min_value,omitempty"`
	MaxValue  *float64  `json:"max_value,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sample is one historical data point for a single metric, as served by
// the time-series collaborator.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// AnomalyEvent records one threshold violation derived from one reading.
// Rows are append-only. ThresholdID is a soft reference: the anomaly is
// retained even if the originating threshold is later removed.
type AnomalyEvent struct {
	ID            int64     `json:"id"`
	PatientID     uuid.UUID `json:"patient_id"`
	Metric        Metric    `json:"metric"`
	ObservedValue float64   `json:"observed_value"`
	Severity      Severity  `json:"severity"`
	Description   string    `json:"description"`
	Timestamp     time.Time `json:"timestamp"`
	CreatedAt     time.Time `json:"created_at"`
	ThresholdID   *int64    `json:"threshold_id,omitempty"`
}
