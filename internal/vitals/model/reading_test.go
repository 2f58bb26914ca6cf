package model

import (
	"testing"
	"time"
)

func TestDecodeReading(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
		check   func(t *testing.T, r *Reading)
	}{
		{
			name:    "full payload",
			payload: `{"patient_id":"7f9c24e5-3f11-4db0-8c2f-001122334455","timestamp":"2025-06-01T12:00:00Z","heart_rate":110,"spo2":97.5}`,
			check: func(t *testing.T, r *Reading) {
				if r.PatientID.String() != "7f9c24e5-3f11-4db0-8c2f-001122334455" {
					t.Errorf("PatientID = %v", r.PatientID)
				}
				want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
				if !r.Timestamp.Equal(want) {
					t.Errorf("Timestamp = %v, want %v", r.Timestamp, want)
				}
				if r.HeartRate == nil || *r.HeartRate != 110 {
					t.Errorf("HeartRate = %v, want 110", r.HeartRate)
				}
				if r.SpO2 == nil || *r.SpO2 != 97.5 {
					t.Errorf("SpO2 = %v, want 97.5", r.SpO2)
				}
				if r.Glucose != nil {
					t.Errorf("Glucose = %v, want nil", r.Glucose)
				}
			},
		},
		{
			name:    "zoneless timestamp treated as UTC",
			payload: `{"patient_id":"7f9c24e5-3f11-4db0-8c2f-001122334455","timestamp":"2025-06-01T12:00:00","heart_rate":80}`,
			check: func(t *testing.T, r *Reading) {
				want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
				if !r.Timestamp.Equal(want) {
					t.Errorf("Timestamp = %v, want %v", r.Timestamp, want)
				}
			},
		},
		{
			name:    "missing timestamp defaults to receipt time",
			payload: `{"patient_id":"7f9c24e5-3f11-4db0-8c2f-001122334455","heart_rate":80}`,
			check: func(t *testing.T, r *Reading) {
				if time.Since(r.Timestamp) > time.Minute {
					t.Errorf("Timestamp = %v, want close to now", r.Timestamp)
				}
			},
		},
		{
			name:    "unknown fields ignored",
			payload: `{"patient_id":"7f9c24e5-3f11-4db0-8c2f-001122334455","timestamp":"2025-06-01T12:00:00Z","device_id":"abc","battery":12}`,
			check: func(t *testing.T, r *Reading) {
				for _, m := range Metrics {
					if _, ok := r.Value(m); ok {
						t.Errorf("metric %s unexpectedly present", m)
					}
				}
			},
		},
		{
			name:    "missing patient_id",
			payload: `{"timestamp":"2025-06-01T12:00:00Z","heart_rate":110}`,
			wantErr: true,
		},
		{
			name:    "invalid patient_id",
			payload: `{"patient_id":"not-a-uuid","heart_rate":110}`,
			wantErr: true,
		},
		{
			name:    "not json",
			payload: `this is not json`,
			wantErr: true,
		},
		{
			name:    "non-numeric metric value",
			payload: `{"patient_id":"7f9c24e5-3f11-4db0-8c2f-001122334455","heart_rate":"high"}`,
			wantErr: true,
		},
		{
			name:    "malformed timestamp",
			payload: `{"patient_id":"7f9c24e5-3f11-4db0-8c2f-001122334455","timestamp":"yesterday"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := DecodeReading([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatal("DecodeReading() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeReading() error = %v", err)
			}
			tt.check(t, r)
		})
	}
}

func TestReadingValue(t *testing.T) {
	v := 72.0
	r := Reading{HeartRate: &v}
	if got, ok := r.Value(MetricHeartRate); !ok || got != 72 {
		t.Errorf("Value(heart_rate) = %v, %v; want 72, true", got, ok)
	}
	if _, ok := r.Value(MetricGlucose); ok {
		t.Error("Value(glucose) should be absent")
	}
	if _, ok := r.Value(Metric("bogus")); ok {
		t.Error("Value(bogus) should be absent")
	}
}

func TestMetricValid(t *testing.T) {
	for _, m := range Metrics {
		if !m.Valid() {
			t.Errorf("Metric %q should be valid", m)
		}
	}
	for _, m := range []Metric{"", "pulse", "heartrate", "HEART_RATE"} {
		if m.Valid() {
			t.Errorf("Metric %q should be invalid", m)
		}
	}
}
