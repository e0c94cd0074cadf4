package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shoppinglens"

var sessionCount atomic.Value // func() int

var (
	AdmissionDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "admission_decisions_total",
		Help:      "Detector payloads seen by the admission filter, by outcome.",
	}, []string{"outcome"})

	ResearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "research_duration_seconds",
		Help:      "Wall time of one research run.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40},
	})

	AlternativeLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alternative_lookups_total",
		Help:      "Alternative product lookups, by result.",
	}, []string{"result"})

	PayloadsBroadcast = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payloads_broadcast_total",
		Help:      "Payloads handed to a transport, by payload type and transport.",
	}, []string{"type", "transport"})

	OrchestratorRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orchestrator_runs_total",
		Help:      "Orchestrator entry point invocations, by intent and result.",
	}, []string{"intent", "result"})

	ActiveSessions = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Sessions currently held by the session store.",
	}, func() float64 {
		if count, ok := sessionCount.Load().(func() int); ok {
			return float64(count())
		}
		return 0
	})
)

// TrackSessions makes ActiveSessions report the value of count.
func TrackSessions(count func() int) {
	sessionCount.Store(count)
}
