package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agenda"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	showConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "show_conflicts_total",
			Help:      "Show saves rejected because of a schedule conflict.",
		},
	)

	showsSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shows_saved_total",
			Help:      "Show writes by operation.",
		},
		[]string{"op"},
	)

	sheetsSync = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheets_sync_total",
			Help:      "Google Sheets sync attempts by result.",
		},
		[]string{"result"},
	)

	usersBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_blocked_total",
			Help:      "Users blocked by reason.",
		},
		[]string{"reason"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, showConflicts, showsSaved, sheetsSync, usersBlocked)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func ObserveHTTP(endpoint string, d time.Duration) {
	httpDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func IncConflict() {
	showConflicts.Inc()
}

// IncShowSaved counts create, update and delete operations.
func IncShowSaved(op string) {
	showsSaved.WithLabelValues(op).Inc()
}

func IncSheetsSync(result string) {
	sheetsSync.WithLabelValues(result).Inc()
}

func IncUserBlocked(reason string) {
	usersBlocked.WithLabelValues(reason).Inc()
}
