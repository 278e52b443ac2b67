package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cesizen",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, labeled by method, route template and status code.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cesizen",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency of HTTP requests by route template.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"method", "route"})

	authRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cesizen",
		Subsystem: "auth",
		Name:      "rejections_total",
		Help:      "Requests rejected by authentication or role guards, labeled by status.",
	}, []string{"status"})

	diagnosticSubmissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cesizen",
		Subsystem: "diagnostic",
		Name:      "submissions_total",
		Help:      "Stress assessments computed, labeled by resulting level.",
	}, []string{"level"})

	contentChangeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cesizen",
		Subsystem: "content",
		Name:      "last_change_timestamp_seconds",
		Help:      "Unix timestamp of the most recent editorial change.",
	})

	reportsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cesizen",
		Subsystem: "reports",
		Name:      "created_total",
		Help:      "Number of content reports submitted.",
	})
)

func init() {
	prometheus.MustRegister(httpRequests, httpDuration, authRejections, diagnosticSubmissions, contentChangeGauge, reportsCreated)
}

// RecordHTTPRequest updates request counters and latency.
func RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordAuthRejection counts a 401/403 issued by the auth layer.
func RecordAuthRejection(status int) {
	authRejections.WithLabelValues(strconv.Itoa(status)).Inc()
}

// RecordDiagnostic counts a computed assessment.
func RecordDiagnostic(level string) {
	diagnosticSubmissions.WithLabelValues(level).Inc()
}

// RecordContentChange updates the editorial watermark.
func RecordContentChange(ts time.Time) {
	if ts.IsZero() {
		return
	}
	contentChangeGauge.Set(float64(ts.Unix()))
}

// RecordReportCreated counts a new report.
func RecordReportCreated() {
	reportsCreated.Inc()
}
