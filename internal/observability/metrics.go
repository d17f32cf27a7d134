package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aerd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aerd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	preloadRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aerd",
			Subsystem: "dataset",
			Name:      "preload_runs_total",
			Help:      "Dataset preload executions, by outcome.",
		},
		[]string{"dataset", "outcome"},
	)
	trialsLoaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aerd",
			Subsystem: "dataset",
			Name:      "trials_loaded_total",
			Help:      "Trials surviving load and filtering.",
		},
		[]string{"dataset"},
	)
	signalLoadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aerd",
			Subsystem: "trial",
			Name:      "signal_load_duration_seconds",
			Help:      "Trial signal load duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"dataset", "signal", "preprocessed"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, preloadRuns, trialsLoaded, signalLoadDuration)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordPreload(dataset string, err error) {
	RegisterMetrics()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	preloadRuns.WithLabelValues(dataset, outcome).Inc()
}

func RecordTrialsLoaded(dataset string, count int) {
	RegisterMetrics()
	trialsLoaded.WithLabelValues(dataset).Add(float64(count))
}

func RecordSignalLoad(dataset, signal string, preprocessed bool, duration time.Duration) {
	RegisterMetrics()
	signalLoadDuration.WithLabelValues(dataset, signal, strconv.FormatBool(preprocessed)).
		Observe(duration.Seconds())
}
