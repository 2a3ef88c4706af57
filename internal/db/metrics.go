package db

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Every maintenance metric is labelled with the logical database name ("downloader", "bazaar").
var (
	maintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bazaar_db_maintenance_runs_total",
			Help: "Total number of maintenance runs by database and outcome",
		},
		[]string{"db", "status"},
	)

	maintenanceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bazaar_db_maintenance_duration_seconds",
			Help:    "Duration of maintenance runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"db"},
	)

	maintenanceLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bazaar_db_maintenance_last_run_timestamp",
			Help: "Unix timestamp of the last maintenance run",
		},
		[]string{"db"},
	)

	maintenanceSpaceReclaimed = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bazaar_db_maintenance_space_reclaimed_bytes",
			Help: "Bytes reclaimed by the last maintenance run",
		},
		[]string{"db"},
	)

	walCheckpoints = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bazaar_db_wal_checkpoint_total",
			Help: "Total number of WAL checkpoints",
		},
		[]string{"db", "mode"},
	)

	dbSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bazaar_db_size_bytes",
			Help: "Database size in bytes including WAL and shared memory files",
		},
		[]string{"db"},
	)
)

func maintenanceOutcome(db string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	maintenanceRuns.WithLabelValues(db, status).Inc()
}

func maintenanceFinished(db string, took time.Duration) {
	maintenanceDuration.WithLabelValues(db).Observe(took.Seconds())
	maintenanceLastRun.WithLabelValues(db).Set(float64(time.Now().UTC().Unix()))
}

func spaceReclaimed(db string, bytes uint64) {
	maintenanceSpaceReclaimed.WithLabelValues(db).Set(float64(bytes))
}

func walCheckpointInc(db, mode string) {
	walCheckpoints.WithLabelValues(db, mode).Inc()
}

func sizeLog(db string, bytes int64) {
	dbSize.WithLabelValues(db).Set(float64(bytes))
}
