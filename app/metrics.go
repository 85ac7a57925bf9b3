package app

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jmcleod/eventdesk/router"
)

const metricsNamespace = "eventdesk"

// metrics counts navigation steps by outcome and user actions by result.
type metrics struct {
	navigations *prometheus.CounterVec
	actions     *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		navigations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "client",
			Name:      "navigation_steps_total",
			Help:      "Navigation steps taken by the router, by outcome",
		}, []string{"outcome"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "client",
			Name:      "actions_total",
			Help:      "User actions by name and result",
		}, []string{"action", "result"}),
	}
	for _, c := range []prometheus.Collector{m.navigations, m.actions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) observeNavigation(_ string, outcome router.Outcome) {
	m.navigations.WithLabelValues(string(outcome)).Inc()
}

// action records the result of one user action: ok, error or cancelled.
func (m *metrics) action(name string, err error, cancelled bool) {
	result := "ok"
	switch {
	case cancelled:
		result = "cancelled"
	case err != nil:
		result = "error"
	}
	m.actions.WithLabelValues(name, result).Inc()
}
