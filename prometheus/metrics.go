package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// File access decisions by outcome
	FileAccessCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_file_access_total",
			Help: "Total number of file access checks by decision",
		},
		[]string{"decision"}, // "allowed" or the denial reason
	)

	// Resolver lookups by outcome
	ResolverLookupCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_resolver_lookups_total",
			Help: "Total number of multi-location file resolutions",
		},
		[]string{"outcome"}, // "found", "miss"
	)

	// Upload attempts by bucket and outcome
	UploadCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_uploads_total",
			Help: "Total number of file upload attempts",
		},
		[]string{"bucket", "outcome"}, // outcome: "ok", "failed", "fallback"
	)

	// NDA operations
	NDAOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_nda_operations_total",
			Help: "Total number of NDA operations",
		},
		[]string{"operation"}, // "sign", "auto_approve", "approve", "reject"
	)

	// Business listing operations
	BusinessOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_business_operations_total",
			Help: "Total number of business listing operations",
		},
		[]string{"operation"}, // "create", "update", "approve", "reject", "delete"
	)

	// Messages sent
	MessageCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_messages_total",
			Help: "Total number of messages sent",
		},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counter by type
	ErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type"}, // "db_error", "storage_error", "schema_drift", ...
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketplace_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketplace_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "query", "insert", "update", "delete"
	)
)

// Gauge metrics
var (
	// Pending listings awaiting admin review
	PendingBusinessesGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketplace_pending_businesses",
			Help: "Number of listings awaiting admin approval",
		},
	)

	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketplace_info",
			Help: "Information about the marketplace service",
		},
		[]string{"version"},
	)
)

func init() {
	prometheus.MustRegister(FileAccessCounter)
	prometheus.MustRegister(ResolverLookupCounter)
	prometheus.MustRegister(UploadCounter)
	prometheus.MustRegister(NDAOperationCounter)
	prometheus.MustRegister(BusinessOperationCounter)
	prometheus.MustRegister(MessageCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(ErrorCounter)

	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	prometheus.MustRegister(PendingBusinessesGauge)
	prometheus.MustRegister(InfoGauge)

	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// RecordFileAccess records a file access decision
func RecordFileAccess(decision string) {
	FileAccessCounter.With(prometheus.Labels{"decision": decision}).Inc()
}

// RecordResolverLookup records a multi-location resolution outcome
func RecordResolverLookup(outcome string) {
	ResolverLookupCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// RecordUpload records an upload attempt against a bucket
func RecordUpload(bucket, outcome string) {
	UploadCounter.With(prometheus.Labels{"bucket": bucket, "outcome": outcome}).Inc()
}

// RecordNDAOperation records an NDA operation
func RecordNDAOperation(operation string) {
	NDAOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordBusinessOperation records a business listing operation
func RecordBusinessOperation(operation string) {
	BusinessOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordError records an error by type
func RecordError(errorType string) {
	ErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}
