package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pulsecare/vitalwatch/internal/metrics"
	"github.com/rs/zerolog/log"
)

// RequestLog tags every request with an X-Request-ID, logs start and end,
// and records the HTTP metrics. Inbound request ids are kept so callers
// can correlate across services.
func RequestLog(c *gin.Context) {
	reqID := c.GetHeader("X-Request-ID")
	if reqID == "" {
		reqID = uuid.NewString()
	}
	start := time.Now()
	log.Info().
		Str("request_id", reqID).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Msg("request start")

	c.Writer.Header().Set("X-Request-ID", reqID)
	c.Next()

	elapsed := time.Since(start)
	status := c.Writer.Status()
	c.Writer.Header().Set("X-Response-Time-ms", strconv.FormatInt(elapsed.Milliseconds(), 10))

	metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, c.FullPath(), strconv.Itoa(status)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, c.FullPath(), strconv.Itoa(status)).Observe(elapsed.Seconds())

	log.Info().
		Str("request_id", reqID).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Int("status", status).
		Dur("duration", elapsed).
		Msg("request end")
}
