package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks credential workflow outcomes at the HTTP boundary.
type Metrics struct {
	RequestsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the auth boundary metrics. Passing a
// dedicated Registerer keeps tests isolated from the global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vouch_auth_requests_total",
				Help: "Total number of auth requests by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.RequestsTotal)
	}
	return m
}

func (m *Metrics) observe(operation, outcome string) {
	if m == nil || m.RequestsTotal == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(operation, outcome).Inc()
}
