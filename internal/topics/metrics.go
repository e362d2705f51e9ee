// Package topics provides Prometheus metrics for discovery monitoring.
package topics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DiscoveryStageTotal counts which probe stage resolved a
	// discovery run.
	// Labels: stage (broad, creates, fallback, none)
	DiscoveryStageTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agrod",
			Subsystem: "topics",
			Name:      "discovery_stage_total",
			Help:      "Discovery runs by the probe stage that produced candidates",
		},
		[]string{"stage"},
	)

	// DiscoveryDuration tracks how long a full discovery run takes.
	DiscoveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "agrod",
			Subsystem: "topics",
			Name:      "discovery_duration_seconds",
			Help:      "Duration of topic discovery runs in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// PlaceholderTotal counts topics that degraded to placeholder
	// detail because enrichment failed.
	PlaceholderTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "agrod",
			Subsystem: "topics",
			Name:      "placeholders_total",
			Help:      "Total topics returned with placeholder detail after a failed detail lookup",
		},
	)
)

func recordDiscoveryStage(stage string) {
	DiscoveryStageTotal.WithLabelValues(stage).Inc()
}
