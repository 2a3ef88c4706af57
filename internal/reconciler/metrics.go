package reconciler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK      = "ok"
	outcomeError   = "error"
	outcomeIgnored = "ignored"
)

var (
	eventsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bazaar_events_handled_total",
			Help: "Total number of events handled by contract, event and outcome",
		},
		[]string{"contract", "event", "outcome"},
	)

	enrichmentFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bazaar_enrichment_failures_total",
			Help: "Total number of failed best-effort enrichment steps",
		},
		[]string{"step"},
	)
)
