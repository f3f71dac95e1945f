package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cody-wang-cb/rollup-boost/module"
)

type FlashblocksCollector struct {
	received         prometheus.Counter
	dropped          prometheus.Counter
	accepted         prometheus.Counter
	rejected         *prometheus.CounterVec
	payloadMismatch  prometheus.Counter
	publishFailed    prometheus.Counter
	payloadsServed   *prometheus.CounterVec
	inboundQueueSize prometheus.Gauge
	latestIndex      prometheus.Gauge
}

var _ module.FlashblocksMetrics = (*FlashblocksCollector)(nil)

func NewFlashblocksCollector(registerer prometheus.Registerer) *FlashblocksCollector {
	factory := promauto.With(registerer)

	fc := &FlashblocksCollector{
		received: factory.NewCounter(prometheus.CounterOpts{
			Name:      "received_total",
			Namespace: namespaceRollupBoost,
			Subsystem: subsystemFlashblocks,
			Help:      "the number of flashblocks received from the upstream feed",
		}),

		dropped: factory.NewCounter(prometheus.CounterOpts{
			Name:      "dropped_total",
			Namespace: namespaceRollupBoost,
			Subsystem: subsystemFlashblocks,
			Help:      "the number of flashblocks dropped because the inbound queue was full",
		}),

		accepted: factory.NewCounter(prometheus.CounterOpts{
			Name:      "accepted_total",
			Namespace: namespaceRollupBoost,
			Subsystem: subsystemFlashblocks,
			Help:      "the number of flashblocks folded into the current build",
		}),

		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "rejected_total",
			Namespace: namespaceRollupBoost,
			Subsystem: subsystemFlashblocks,
			Help:      "the number of flashblocks rejected by validation",
		}, []string{LabelReason}),

		payloadMismatch: factory.NewCounter(prometheus.CounterOpts{
			Name:      "payload_id_mismatch_total",
			Namespace: namespaceRollupBoost,
			Subsystem: subsystemFlashblocks,
			Help:      "the number of flashblocks dropped because they belong to an inactive job",
		}),

		publishFailed: factory.NewCounter(prometheus.CounterOpts{
			Name:      "publish_failed_total",
			Namespace: namespaceRollupBoost,
			Subsystem: subsystemFlashblocks,
			Help:      "the number of accepted flashblocks that could not be broadcast",
		}),

		payloadsServed: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "payloads_served_total",
			Namespace: namespaceRollupBoost,
			Subsystem: subsystemFlashblocks,
			Help:      "the number of get payload requests answered, by envelope version and payload source",
		}, []string{LabelVersion, LabelSource}),

		inboundQueueSize: factory.NewGauge(prometheus.GaugeOpts{
			Name:      "inbound_queue_length",
			Namespace: namespaceRollupBoost,
			Subsystem: subsystemFlashblocks,
			Help:      "the number of flashblocks waiting to be processed",
		}),

		latestIndex: factory.NewGauge(prometheus.GaugeOpts{
			Name:      "latest_accepted_index",
			Namespace: namespaceRollupBoost,
			Subsystem: subsystemFlashblocks,
			Help:      "the index of the most recently accepted flashblock",
		}),
	}

	return fc
}

func (fc *FlashblocksCollector) FlashblockReceived() {
	fc.received.Inc()
}

func (fc *FlashblocksCollector) FlashblockDropped() {
	fc.dropped.Inc()
}

func (fc *FlashblocksCollector) FlashblockAccepted(index uint64) {
	fc.accepted.Inc()
	fc.latestIndex.Set(float64(index))
}

func (fc *FlashblocksCollector) FlashblockRejected(reason string) {
	fc.rejected.With(prometheus.Labels{LabelReason: reason}).Inc()
}

func (fc *FlashblocksCollector) PayloadIDMismatch() {
	fc.payloadMismatch.Inc()
}

func (fc *FlashblocksCollector) PublishFailed() {
	fc.publishFailed.Inc()
}

func (fc *FlashblocksCollector) PayloadServed(version string, fromFlashblocks bool) {
	source := SourceEngine
	if fromFlashblocks {
		source = SourceFlashblocks
	}
	fc.payloadsServed.With(prometheus.Labels{LabelVersion: version, LabelSource: source}).Inc()
}

func (fc *FlashblocksCollector) InboundQueueLength(length uint) {
	fc.inboundQueueSize.Set(float64(length))
}
