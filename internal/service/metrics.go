package service

import "github.com/prometheus/client_golang/prometheus"

// AuthMetrics counts credential and session operations by outcome.
type AuthMetrics struct {
	operations *prometheus.CounterVec
}

// NewAuthMetrics creates and registers the auth counters on reg.
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_operations_total",
				Help: "Total number of auth operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.operations)
	}
	return m
}

func (m *AuthMetrics) observe(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}
