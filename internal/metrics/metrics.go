// Package metrics provides Prometheus metrics for the media server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beatsync_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "beatsync_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	mediaResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beatsync_media_responses_total",
			Help: "Media route responses by status code",
		},
		[]string{"status"},
	)

	mediaBytesServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "beatsync_media_bytes_served_total",
			Help: "Total body bytes streamed by the media route",
		},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beatsync_uploads_total",
			Help: "Direct uploads by outcome",
		},
		[]string{"status"},
	)

	uploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "beatsync_upload_bytes_total",
			Help: "Total bytes accepted by direct upload",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordMediaResponse counts a media response and the body bytes it sent.
func RecordMediaResponse(status int, bytes int64) {
	mediaResponsesTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	if bytes > 0 {
		mediaBytesServed.Add(float64(bytes))
	}
}

// RecordUpload counts a direct upload.
func RecordUpload(bytes int64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	uploadsTotal.WithLabelValues(status).Inc()
	if success {
		uploadBytes.Add(float64(bytes))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter { return sr.ResponseWriter }

// Middleware records request count and latency under a fixed route label,
// keeping asset keys out of label values.
func Middleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sr, r)
			httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sr.status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
