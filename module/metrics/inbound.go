package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cody-wang-cb/rollup-boost/module"
)

type InboundStreamCollector struct {
	connected      prometheus.Gauge
	reconnects     prometheus.Counter
	decodeFailures prometheus.Counter
}

var _ module.InboundStreamMetrics = (*InboundStreamCollector)(nil)

func NewInboundStreamCollector(registerer prometheus.Registerer) *InboundStreamCollector {
	factory := promauto.With(registerer)

	return &InboundStreamCollector{
		connected: factory.NewGauge(prometheus.GaugeOpts{
			Name:      "connected",
			Namespace: namespaceRollupBoost,
			Subsystem: subsystemInbound,
			Help:      "set to 1 while connected to the upstream flashblocks stream",
		}),
		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Name:      "connections_total",
			Namespace: namespaceRollupBoost,
			Subsystem: subsystemInbound,
			Help:      "the number of connections established to the upstream flashblocks stream",
		}),
		decodeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name:      "decode_failures_total",
			Namespace: namespaceRollupBoost,
			Subsystem: subsystemInbound,
			Help:      "the number of upstream frames that could not be decoded",
		}),
	}
}

func (ic *InboundStreamCollector) StreamConnected() {
	ic.connected.Set(1)
	ic.reconnects.Inc()
}

func (ic *InboundStreamCollector) StreamDisconnected() {
	ic.connected.Set(0)
}

func (ic *InboundStreamCollector) MessageDecodeFailed() {
	ic.decodeFailures.Inc()
}
