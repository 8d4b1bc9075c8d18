// Package metrics exposes Prometheus collectors for the lighthouse auditor.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	auditsTotal                *prometheus.CounterVec
	auditDurationSeconds       *prometheus.HistogramVec
	sinkWritesTotal            *prometheus.CounterVec
	batchesTotal               prometheus.Counter
	batchTasks                 *prometheus.GaugeVec
	lastBatchTimestamp         prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	hostWaitSeconds            *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		auditsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditor_audits_total",
				Help: "Total number of audit tasks, labeled by site, device and pipeline stage reached.",
			},
			[]string{"site", "device", "stage"},
		)

		auditDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auditor_audit_duration_seconds",
				Help:    "Histogram of audit engine run durations, labeled by device.",
				Buckets: []float64{5, 10, 20, 30, 45, 60, 90, 120, 180},
			},
			[]string{"device"},
		)

		sinkWritesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditor_sink_writes_total",
				Help: "Total number of sink writes, labeled by sink and status.",
			},
			[]string{"sink", "status"},
		)

		batchesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "auditor_batches_total",
				Help: "Total number of batches run.",
			},
		)

		batchTasks = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "auditor_last_batch_tasks",
				Help: "Task counts of the most recent batch, labeled by result.",
			},
			[]string{"result"},
		)

		lastBatchTimestamp = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "auditor_last_batch_timestamp_seconds",
				Help: "Unix time the most recent batch finished.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditor_http_requests_total",
				Help: "Total number of ops HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auditor_http_request_duration_seconds",
				Help:    "Histogram of ops HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"method", "route"},
		)

		hostWaitSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auditor_host_wait_seconds",
				Help:    "Time an audit waited for its host's rate limit, labeled by host.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"host"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAudit records one finished task.
func ObserveAudit(site, device, stage string) {
	Init()
	auditsTotal.WithLabelValues(SanitizeSite(site), device, stage).Inc()
}

// ObserveAuditDuration records how long the engine took.
func ObserveAuditDuration(device string, d time.Duration) {
	Init()
	auditDurationSeconds.WithLabelValues(device).Observe(d.Seconds())
}

// ObserveSinkWrite records a tabular append, archive upload or notification.
func ObserveSinkWrite(sink string, err error) {
	Init()
	status := "success"
	if err != nil {
		status = "error"
	}
	sinkWritesTotal.WithLabelValues(sink, status).Inc()
}

// ObserveBatch records a finished batch.
func ObserveBatch(succeeded, failed int, finished time.Time) {
	Init()
	batchesTotal.Inc()
	batchTasks.WithLabelValues("succeeded").Set(float64(succeeded))
	batchTasks.WithLabelValues("failed").Set(float64(failed))
	lastBatchTimestamp.Set(float64(finished.Unix()))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveHostWait records a rate limit delay before an audit.
func ObserveHostWait(host string, d time.Duration) {
	Init()
	hostWaitSeconds.WithLabelValues(strings.ToLower(host)).Observe(d.Seconds())
}
