package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dbQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bazaar_db_queries_total",
			Help: "Record store queries by database and operation",
		},
		[]string{"db", "operation"},
	)

	dbQueryTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bazaar_db_query_duration_seconds",
			Help:    "Duration of record store queries",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"db", "operation"},
	)

	dbErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bazaar_db_errors_total",
			Help: "Failed record store queries by database and operation",
		},
		[]string{"db", "operation"},
	)

	lastIndexedBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bazaar_last_indexed_block",
			Help: "Last block handed to the indexer",
		},
		[]string{"indexer"},
	)

	blocksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bazaar_blocks_processed_total",
			Help: "Blocks covered by indexed batches",
		},
		[]string{"indexer"},
	)

	logsIndexed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bazaar_logs_indexed_total",
			Help: "Marketplace, satellite and EAS logs handed to the indexer",
		},
		[]string{"indexer"},
	)

	batchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bazaar_batch_duration_seconds",
			Help:    "Time an indexer spent on one downloaded range, enrichment included",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"indexer"},
	)

	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bazaar_errors_total",
			Help: "Errors by component and severity",
		},
		[]string{"component", "severity"},
	)

	componentHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bazaar_component_health",
			Help: "1 while the component is running, 0 otherwise",
		},
		[]string{"component"},
	)

	uptime = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bazaar_uptime_seconds",
		Help: "Process uptime in seconds",
	})

	goroutines = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bazaar_goroutines",
		Help: "Number of goroutines",
	})

	memoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bazaar_memory_usage_bytes",
			Help: "Go runtime memory statistics",
		},
		[]string{"type"},
	)

	startTime = time.Now()
)

// DBQueryObserve records one query with its duration, and its error when err is not nil.
func DBQueryObserve(db, operation string, start time.Time, err error) {
	dbQueries.WithLabelValues(db, operation).Inc()
	dbQueryTime.WithLabelValues(db, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		dbErrors.WithLabelValues(db, operation).Inc()
	}
}

// RecordBatch records a range [fromBlock, toBlock] an indexer finished.
func RecordBatch(indexer string, fromBlock, toBlock uint64, logs int, elapsed time.Duration) {
	if toBlock >= fromBlock {
		blocksProcessed.WithLabelValues(indexer).Add(float64(toBlock - fromBlock + 1))
	}
	logsIndexed.WithLabelValues(indexer).Add(float64(logs))
	lastIndexedBlock.WithLabelValues(indexer).Set(float64(toBlock))
	batchDuration.WithLabelValues(indexer).Observe(elapsed.Seconds())
}

func ErrorsInc(component, severity string) {
	errorsTotal.WithLabelValues(component, severity).Inc()
}

func ComponentHealthSet(component string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	componentHealth.WithLabelValues(component).Set(v)
}

// UpdateSystemMetrics refreshes the runtime gauges. The metrics server calls it on a ticker.
func UpdateSystemMetrics() {
	uptime.Set(time.Since(startTime).Seconds())
	goroutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	memoryUsage.WithLabelValues("alloc").Set(float64(m.Alloc))
	memoryUsage.WithLabelValues("sys").Set(float64(m.Sys))
	memoryUsage.WithLabelValues("heap_inuse").Set(float64(m.HeapInuse))
}
