package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	syncRunsTotal       *prometheus.CounterVec
	syncRunDuration     prometheus.Histogram
	deviceSyncsTotal    *prometheus.CounterVec
}

// New creates a fresh Metrics registry with HTTP and sync metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "biosync",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by biosync-server",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "biosync",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by biosync-server",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	syncRunsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "biosync",
		Name:      "sync_runs_total",
		Help:      "Total number of attendance sync runs processed",
	}, []string{"trigger"})

	syncRunDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "biosync",
		Name:      "sync_run_duration_seconds",
		Help:      "Duration of sync runs from claim to completion",
		Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	})

	deviceSyncsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "biosync",
		Name:      "device_syncs_total",
		Help:      "Per-device sync attempts by result",
	}, []string{"result"})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		syncRunsTotal,
		syncRunDuration,
		deviceSyncsTotal,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		syncRunsTotal:       syncRunsTotal,
		syncRunDuration:     syncRunDuration,
		deviceSyncsTotal:    deviceSyncsTotal,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// IncSyncRun counts a processed sync run by what queued it (manual or schedule).
func (m *Metrics) IncSyncRun(trigger string) {
	if m == nil {
		return
	}
	m.syncRunsTotal.WithLabelValues(trigger).Inc()
}

// ObserveSyncRunDuration observes a sync run duration.
func (m *Metrics) ObserveSyncRunDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.syncRunDuration.Observe(duration.Seconds())
}

// IncDeviceSync counts one device attempt; result is "success" or "failure".
func (m *Metrics) IncDeviceSync(result string) {
	if m == nil {
		return
	}
	m.deviceSyncsTotal.WithLabelValues(result).Inc()
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
