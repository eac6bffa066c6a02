package index

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sync modes.
const (
	ModeRebuild = "rebuild"
	ModeSync    = "sync"
)

var (
	syncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lumis",
		Name:      "sync_total",
		Help:      "Completed sync runs by mode and result",
	}, []string{"mode", "result"})

	syncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lumis",
		Name:      "sync_duration_seconds",
		Help:      "Wall time of sync runs",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
	}, []string{"mode"})

	unitsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lumis",
		Name:      "units",
		Help:      "Units in the knowledge store after the last save",
	})
)

func recordSync(mode, result string, d time.Duration) {
	syncTotal.WithLabelValues(mode, result).Inc()
	syncDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// SetUnits publishes the current store size.
func SetUnits(n int) {
	unitsGauge.Set(float64(n))
}
