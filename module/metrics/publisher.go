package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cody-wang-cb/rollup-boost/module"
)

type PublisherCollector struct {
	subscribers      prometheus.Gauge
	subscriberDrops  prometheus.Counter
	messagesSent     prometheus.Counter
	messageSizeBytes prometheus.Histogram
}

var _ module.PublisherMetrics = (*PublisherCollector)(nil)

func NewPublisherCollector(registerer prometheus.Registerer) *PublisherCollector {
	factory := promauto.With(registerer)

	return &PublisherCollector{
		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name:      "subscribers",
			Namespace: namespaceRollupBoost,
			Subsystem: subsystemPublisher,
			Help:      "the number of connected flashblocks subscribers",
		}),
		subscriberDrops: factory.NewCounter(prometheus.CounterOpts{
			Name:      "subscribers_dropped_total",
			Namespace: namespaceRollupBoost,
			Subsystem: subsystemPublisher,
			Help:      "the number of subscribers disconnected because they could not keep up",
		}),
		messagesSent: factory.NewCounter(prometheus.CounterOpts{
			Name:      "messages_published_total",
			Namespace: namespaceRollupBoost,
			Subsystem: subsystemPublisher,
			Help:      "the number of flashblocks published",
		}),
		messageSizeBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:      "message_size_bytes",
			Namespace: namespaceRollupBoost,
			Subsystem: subsystemPublisher,
			Help:      "the size of published flashblocks messages",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		}),
	}
}

func (pc *PublisherCollector) SubscribersConnected(count uint) {
	pc.subscribers.Set(float64(count))
}

func (pc *PublisherCollector) SubscriberDropped() {
	pc.subscriberDrops.Inc()
}

func (pc *PublisherCollector) MessagePublished(sizeBytes int) {
	pc.messagesSent.Inc()
	pc.messageSizeBytes.Observe(float64(sizeBytes))
}
