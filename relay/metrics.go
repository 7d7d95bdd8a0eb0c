package relay

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "txverify"
	metricsSubsystem = "relay"
)

type metrics struct {
	verified     *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	deferred     *prometheus.CounterVec
	deferredSize prometheus.Gauge
}

func newMetrics() *metrics {
	return &metrics{
		verified: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "verified_total",
				Help:      "Processed transaction submissions by outcome.",
			},
			[]string{"outcome"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "rejected_total",
				Help:      "Rejected transactions by verification error kind.",
			},
			[]string{"kind"},
		),
		deferred: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "deferred_total",
				Help:      "Transactions parked in the deferred pool by verification error kind.",
			},
			[]string{"kind"},
		),
		deferredSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "deferred_pool_size",
				Help:      "Transactions currently waiting in the deferred pool.",
			},
		),
	}
}

func (m *metrics) register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.verified, m.rejected, m.deferred, m.deferredSize} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
