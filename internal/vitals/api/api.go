package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pulsecare/vitalwatch/internal/vitals/client"
	"github.com/pulsecare/vitalwatch/internal/vitals/model"
	"github.com/pulsecare/vitalwatch/internal/vitals/store"
)

// ThresholdRegistry is the administrative surface of the threshold store.
type ThresholdRegistry interface {
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]model.Threshold, error)
	Get(ctx context.Context, patientID uuid.UUID, metric model.Metric) (*model.Threshold, error)
	Upsert(ctx context.Context, patientID uuid.UUID, metric model.Metric, minValue, maxValue *float64) (*model.Threshold, error)
}

// AnomalyReader serves the anomaly history.
type AnomalyReader interface {
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]model.AnomalyEvent, error)
}

// Analyzer runs the manual backfill over the fixed recent window.
type Analyzer interface {
	AnalyzeRecent(ctx context.Context, patientID uuid.UUID) ([]model.AnomalyEvent, error)
}

// PatientDirectory validates patient ids before administrative mutations.
type PatientDirectory interface {
	EnsureExists(ctx context.Context, patientID uuid.UUID) error
}

// API is the thin HTTP wrapper around the core. Consumer-path errors never
// surface here; administrative errors map to explicit categories.
type API struct {
	Thresholds ThresholdRegistry
	Anomalies  AnomalyReader
	Analyzer   Analyzer
	Patients   PatientDirectory
}

// RegisterRoutes binds the threshold and anomaly resources onto the router.
func (api *API) RegisterRoutes(router *gin.Engine) {
	router.GET("/v1/thresholds/:patientID", api.ListThresholds)
	router.GET("/v1/thresholds/:patientID/:metric", api.GetThreshold)
	router.POST("/v1/thresholds", api.UpsertThreshold)
	router.GET("/v1/anomalies/:patientID", api.ListAnomalies)
	router.POST("/v1/analyze/:patientID", api.Analyze)
}

func (api *API) ListThresholds(c *gin.Context) {
	patientID, ok := api.patientFromPath(c)
	if !ok {
		return
	}
	ths, err := api.Thresholds.ListForPatient(c.Request.Context(), patientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ths)
}

func (api *API) GetThreshold(c *gin.Context) {
	patientID, ok := api.patientFromPath(c)
	if !ok {
		return
	}
	metric := model.Metric(c.Param("metric"))
	if !metric.Valid() {
		respondValidation(c, "unknown metric "+c.Param("metric"))
		return
	}
	th, err := api.Thresholds.Get(c.Request.Context(), patientID, metric)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, th)
}

type thresholdRequest struct {
	PatientID string   `json:"patient_id"`
	Metric    string   `json:"metric"`
	MinValue  *float64 `json:"min_value"`
	MaxValue  *float64 `json:"max_value"`
}

// UpsertThreshold creates or updates the single threshold row for one
// (patient, metric) key; repeated posts update in place.
func (api *API) UpsertThreshold(c *gin.Context) {
	var req thresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "invalid request body")
		return
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		respondValidation(c, "invalid patient_id")
		return
	}
	metric := model.Metric(req.Metric)
	if !metric.Valid() {
		respondValidation(c, "unknown metric "+req.Metric)
		return
	}
	if err := api.Patients.EnsureExists(c.Request.Context(), patientID); err != nil {
		respondError(c, err)
		return
	}
	th, err := api.Thresholds.Upsert(c.Request.Context(), patientID, metric, req.MinValue, req.MaxValue)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, th)
}

func (api *API) ListAnomalies(c *gin.Context) {
	patientID, ok := api.patientFromPath(c)
	if !ok {
		return
	}
	events, err := api.Anomalies.ListForPatient(c.Request.Context(), patientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// Analyze triggers the backfill path over the recent window and returns
// the newly persisted batch. Overlapping invocations duplicate rows; that
// is the documented contract, not a defect.
func (api *API) Analyze(c *gin.Context) {
	patientID, ok := api.patientFromPath(c)
	if !ok {
		return
	}
	events, err := api.Analyzer.AnalyzeRecent(c.Request.Context(), patientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// patientFromPath parses and existence-checks the patient id. On failure
// it writes the error response and returns ok=false.
func (api *API) patientFromPath(c *gin.Context) (uuid.UUID, bool) {
	patientID, err := uuid.Parse(c.Param("patientID"))
	if err != nil {
		respondValidation(c, "invalid patient id")
		return uuid.Nil, false
	}
	if err := api.Patients.EnsureExists(c.Request.Context(), patientID); err != nil {
		respondError(c, err)
		return uuid.Nil, false
	}
	return patientID, true
}

func respondValidation(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "INVALID_PARAMETER", "message": msg}})
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, client.ErrPatientNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "patient not found"}})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "threshold not found"}})
	case errors.Is(err, client.ErrUpstreamUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": gin.H{"code": "UPSTREAM_UNAVAILABLE", "message": err.Error()}})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "INTERNAL_ERROR", "message": err.Error()}})
	}
}
