package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rankwell/apperrors"
)

var (
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rankwell_submissions_total",
			Help: "Wizard submissions by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	ModerationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rankwell_moderation_transitions_total",
			Help: "Listing moderation actions applied",
		},
		[]string{"action"},
	)

	DraftSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rankwell_draft_saves_total",
			Help: "Draft autosaves written to the draft store",
		},
		[]string{"outcome"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "rankwell_http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "route", "status"},
	)
)

// Outcome labels an error for the submission counter.
func Outcome(err error) string {
	var verr *apperrors.ValidationError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, apperrors.ErrAuthRequired):
		return "unauthorized"
	case errors.Is(err, apperrors.ErrAssetUploadFailed):
		return "upload_failed"
	default:
		return "error"
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// Middleware records request latency by route template, so /api/listings/:slug
// is one series regardless of the slug.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
