package api

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmcleod/gatehouse/auth"
	"github.com/jmcleod/gatehouse/session"
)

// Flow names used as the "flow" label.
const (
	flowRegister       = "register"
	flowLogin          = "login"
	flowLogout         = "logout"
	flowProfile        = "profile"
	flowUpdateProfile  = "update_profile"
	flowChangePassword = "change_password"
)

// Metrics contains the Prometheus metrics exported by gatehouse.
type Metrics struct {
	FlowsTotal *prometheus.CounterVec
	registry   *prometheus.Registry
}

// NewMetrics creates a registry with Go and process collectors, the flow
// counter and a gauge reporting sessions.Len().
func NewMetrics(sessions session.Store) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		FlowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_auth_flows_total",
				Help: "Total number of auth flow requests by flow and outcome",
			},
			[]string{"flow", "outcome"},
		),
		registry: reg,
	}
	reg.MustRegister(m.FlowsTotal)
	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "gatehouse_sessions_active",
			Help: "Number of live sessions",
		},
		func() float64 { return float64(sessions.Len()) },
	))
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observe(flow string, err error) {
	if m == nil {
		return
	}
	m.FlowsTotal.WithLabelValues(flow, outcomeOf(err)).Inc()
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, auth.ErrValidation):
		return "invalid"
	case errors.Is(err, auth.ErrConflict):
		return "conflict"
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrInvalidCredentials):
		return "unauthorized"
	default:
		return "error"
	}
}
