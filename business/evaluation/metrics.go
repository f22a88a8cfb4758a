package evaluation

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EvaluationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flag_evaluation_requests_total",
			Help: "Count of flag evaluation requests by environment.",
		},
		[]string{"environment"},
	)

	ConversionEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversion_events_total",
			Help: "Count of recorded conversion events by environment and event_type.",
		},
		[]string{"environment", "event_type"},
	)
)

func init() {
	prometheus.MustRegister(
		EvaluationRequestsTotal,
		ConversionEventsTotal,
	)
}
