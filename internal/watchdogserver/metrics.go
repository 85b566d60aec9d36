package watchdogserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the server's Prometheus counters and gauges.
//
// Unlike the metrics the ambient stack is grounded on, which publish
// through a process-wide sync.Once singleton bound to the default
// registry, NewMetrics here takes an explicit prometheus.Registerer. A
// watchdog server is cheap to construct many times over in tests
// (scenarios 1-8), and a singleton bound to prometheus.DefaultRegisterer
// would panic on the second test's duplicate registration. Passing the
// registerer in keeps the same promauto call shape while letting each
// test supply its own prometheus.NewRegistry().
type Metrics struct {
	registrations   prometheus.Counter
	unregistrations prometheus.Counter
	expirations     prometheus.Counter
	resets          prometheus.Counter
	killAlls        prometheus.Counter
	liveUnits       prometheus.Gauge
}

// NewMetrics registers the server's metric family against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "watchdog_registrations_total",
			Help: "Total number of units registered.",
		}),
		unregistrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "watchdog_unregistrations_total",
			Help: "Total number of units unregistered.",
		}),
		expirations: factory.NewCounter(prometheus.CounterOpts{
			Name: "watchdog_expirations_total",
			Help: "Total number of units whose TTL was exhausted by consecutive timer expirations.",
		}),
		resets: factory.NewCounter(prometheus.CounterOpts{
			Name: "watchdog_resets_total",
			Help: "Total number of ResetOnly recovery actions invoked.",
		}),
		killAlls: factory.NewCounter(prometheus.CounterOpts{
			Name: "watchdog_kill_alls_total",
			Help: "Total number of fleet-wide KillAll recovery actions invoked.",
		}),
		liveUnits: factory.NewGauge(prometheus.GaugeOpts{
			Name: "watchdog_live_units",
			Help: "Current number of registered units.",
		}),
	}
}

func (m *Metrics) recordRegistration() {
	if m == nil {
		return
	}
	m.registrations.Inc()
}

func (m *Metrics) recordUnregistration() {
	if m == nil {
		return
	}
	m.unregistrations.Inc()
}

func (m *Metrics) recordExpiration() {
	if m == nil {
		return
	}
	m.expirations.Inc()
}

func (m *Metrics) recordReset() {
	if m == nil {
		return
	}
	m.resets.Inc()
}

func (m *Metrics) recordKillAll() {
	if m == nil {
		return
	}
	m.killAlls.Inc()
}

func (m *Metrics) setLiveUnits(n int) {
	if m == nil {
		return
	}
	m.liveUnits.Set(float64(n))
}
