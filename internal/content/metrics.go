package content

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bazaar_content_fetch_total",
			Help: "Total number of gateway fetch attempts by gateway and outcome",
		},
		[]string{"gateway", "outcome"},
	)

	fetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bazaar_content_fetch_duration_seconds",
			Help:    "Duration of single gateway fetch attempts",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"gateway"},
	)

	cacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bazaar_content_cache_total",
			Help: "Document cache lookups by result",
		},
		[]string{"result"},
	)
)

func fetchAttempted(gateway, outcome string, d time.Duration) {
	fetchTotal.WithLabelValues(gateway, outcome).Inc()
	fetchDuration.WithLabelValues(gateway).Observe(d.Seconds())
}

func cacheLookup(result string) {
	cacheTotal.WithLabelValues(result).Inc()
}
