package authz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var decisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "orgchart",
	Subsystem: "authz",
	Name:      "decisions_total",
	Help:      "Total number of permission gate decisions broken down by mode and result.",
}, []string{"mode", "result"})

func recordDecision(mode Mode, allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	decisions.WithLabelValues(string(mode), result).Inc()
}
