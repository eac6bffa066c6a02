package enrich

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes recorded per unit considered during a sync.
const (
	OutcomeReused   = "reused"
	OutcomeEnriched = "enriched"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

var enrichTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lumis",
	Name:      "enrich_total",
	Help:      "Units considered for enrichment, by outcome",
}, []string{"outcome"})

// RecordOutcome counts one unit with the given outcome.
func RecordOutcome(outcome string) {
	enrichTotal.WithLabelValues(outcome).Inc()
}
