package splittest

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SplitTestRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "splittest_runs_total",
			Help: "Count of completed split test fan-out runs.",
		},
	)

	SplitTestFeatureUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splittest_feature_updates_total",
			Help: "Count of per-feature split test updates by status.",
		},
		[]string{"status"},
	)

	SplitTestUpdateDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "splittest_feature_update_duration_seconds",
		Help:    "Duration of one feature's split test update.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		SplitTestRunsTotal,
		SplitTestFeatureUpdatesTotal,
		SplitTestUpdateDuration,
	)
}
