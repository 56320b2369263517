package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "postplanner"

var (
	publicationsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publications",
			Name:      "fired_total",
			Help:      "Publications that reached a terminal state, by outcome",
		},
		[]string{"outcome"}, // delivered|failed|cancelled
	)

	sweepRevocations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscriptions",
			Name:      "revocations_total",
			Help:      "Successful access revocations performed by the expiry sweep",
		},
	)

	gatewayFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "failures_total",
			Help:      "External gateway call failures",
		},
		[]string{"gateway"}, // delivery|access
	)
)

func RecordPublication(outcome string) {
	publicationsFired.WithLabelValues(outcome).Inc()
}

func RecordRevocation() {
	sweepRevocations.Inc()
}

func RecordGatewayFailure(gateway string) {
	gatewayFailures.WithLabelValues(gateway).Inc()
}
