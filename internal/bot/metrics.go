package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors of the command bot.
type Metrics struct {
	CommandsProcessed    *prometheus.CounterVec
	ErrorsTotal          prometheus.Counter
	UpdateProcessingTime prometheus.Histogram
}

// NewMetrics registers the bot metrics on the default registry; call it once.
func NewMetrics() *Metrics {
	return &Metrics{
		CommandsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_commands_total",
			Help: "Commands handled by the agenda bot",
		}, []string{"command"}),
		ErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bot_errors_total",
			Help: "Update handling failures and recovered panics",
		}),
		UpdateProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "telegram_bot_update_processing_time_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
