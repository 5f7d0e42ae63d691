package orchestrator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	clubevents "github.com/romeda-works/romeda-bot/app/events"
)

// Metrics exposes pass-level counters on the shared registry.
type Metrics struct {
	passesTotal    *prometheus.CounterVec
	passDuration   prometheus.Histogram
	passErrors     prometheus.Counter
	channelsRanked prometheus.Gauge
	channelsMoved  prometheus.Counter
	clubsArchived  prometheus.Counter
	clubsRevived   prometheus.Counter
}

// NewMetrics registers the orchestrator metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		passesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "romeda",
			Subsystem: "club",
			Name:      "passes_total",
			Help:      "Reorganization passes by trigger.",
		}, []string{"triggered_by"}),
		passDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "romeda",
			Subsystem: "club",
			Name:      "pass_duration_seconds",
			Help:      "Wall-clock duration of a full pass.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		passErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "romeda",
			Subsystem: "club",
			Name:      "pass_errors_total",
			Help:      "Per-channel errors accumulated across passes.",
		}),
		channelsRanked: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "romeda",
			Subsystem: "club",
			Name:      "channels_ranked",
			Help:      "Channels ranked in the most recent pass.",
		}),
		channelsMoved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "romeda",
			Subsystem: "club",
			Name:      "channels_moved_total",
			Help:      "Channel category moves applied.",
		}),
		clubsArchived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "romeda",
			Subsystem: "club",
			Name:      "clubs_archived_total",
			Help:      "Clubs demoted into the archive.",
		}),
		clubsRevived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "romeda",
			Subsystem: "club",
			Name:      "clubs_revived_total",
			Help:      "Clubs promoted back out of the archive.",
		}),
	}
}

// NewNoopMetrics returns metrics bound to a throwaway registry, for tests and
// optional wiring.
func NewNoopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// ObservePass records the outcome of one pass.
func (m *Metrics) ObservePass(summary clubevents.PassSummaryPayloadV1, elapsed time.Duration) {
	m.passesTotal.WithLabelValues(summary.TriggeredBy).Inc()
	m.passDuration.Observe(elapsed.Seconds())
	m.passErrors.Add(float64(len(summary.Errors)))
	m.channelsRanked.Set(float64(summary.Ranked))
	m.channelsMoved.Add(float64(summary.Moved))
	m.clubsArchived.Add(float64(summary.Archived))
	m.clubsRevived.Add(float64(summary.Revived))
}
