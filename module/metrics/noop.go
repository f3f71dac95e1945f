package metrics

import (
	"context"
	"time"

	httpmetrics "github.com/slok/go-http-metrics/metrics"

	"github.com/cody-wang-cb/rollup-boost/module"
)

type NoopCollector struct{}

func NewNoopCollector() *NoopCollector {
	nc := &NoopCollector{}
	return nc
}

var _ module.FlashblocksMetrics = (*NoopCollector)(nil)
var _ module.EngineClientMetrics = (*NoopCollector)(nil)
var _ module.PublisherMetrics = (*NoopCollector)(nil)
var _ module.InboundStreamMetrics = (*NoopCollector)(nil)
var _ module.HTTPMetrics = (*NoopCollector)(nil)

func (nc *NoopCollector) FlashblockReceived()                                           {}
func (nc *NoopCollector) FlashblockDropped()                                            {}
func (nc *NoopCollector) FlashblockAccepted(index uint64)                               {}
func (nc *NoopCollector) FlashblockRejected(reason string)                              {}
func (nc *NoopCollector) PayloadIDMismatch()                                            {}
func (nc *NoopCollector) PublishFailed()                                                {}
func (nc *NoopCollector) PayloadServed(version string, fromFlashblocks bool)            {}
func (nc *NoopCollector) InboundQueueLength(length uint)                                {}
func (nc *NoopCollector) RequestCompleted(method string, duration time.Duration, _ bool) {}
func (nc *NoopCollector) CircuitBreakerStateChanged(state string)                       {}
func (nc *NoopCollector) SubscribersConnected(count uint)                               {}
func (nc *NoopCollector) SubscriberDropped()                                            {}
func (nc *NoopCollector) MessagePublished(sizeBytes int)                                {}
func (nc *NoopCollector) StreamConnected()                                              {}
func (nc *NoopCollector) StreamDisconnected()                                           {}
func (nc *NoopCollector) MessageDecodeFailed()                                          {}
func (nc *NoopCollector) ObserveHTTPRequestDuration(ctx context.Context, props httpmetrics.HTTPReqProperties, duration time.Duration) {
}
func (nc *NoopCollector) ObserveHTTPResponseSize(ctx context.Context, props httpmetrics.HTTPReqProperties, sizeBytes int64) {
}
func (nc *NoopCollector) AddInflightRequests(ctx context.Context, props httpmetrics.HTTPProperties, quantity int) {
}
