// Package metrics exposes Prometheus instrumentation for the recognition
// reconciler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Submissions *prometheus.CounterVec
	PushEvents  *prometheus.CounterVec
	Polls       *prometheus.CounterVec
	Retries     prometheus.Counter
	InFlight    prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "recognition",
			Name:      "submissions_total",
			Help:      "Document submissions to the recognition backend.",
		}, []string{"result"}),
		PushEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "recognition",
			Name:      "push_events_total",
			Help:      "Push events received, by terminal status.",
		}, []string{"status"}),
		Polls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "recognition",
			Name:      "polls_total",
			Help:      "Fallback status polls, by outcome.",
		}, []string{"result"}),
		Retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "recognition",
			Name:      "retries_total",
			Help:      "Explicit retries of terminal documents.",
		}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "intake",
			Subsystem: "recognition",
			Name:      "in_flight",
			Help:      "Submissions currently awaiting a remote id.",
		}),
	}
}
