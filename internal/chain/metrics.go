package chain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var chainCalls = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bazaar_chain_calls_total",
		Help: "Total number of read-only contract calls by method and outcome",
	},
	[]string{"method", "outcome"},
)

func callFinished(method string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	chainCalls.WithLabelValues(method, outcome).Inc()
}
