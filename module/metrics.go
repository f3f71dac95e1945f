package module

import (
	"time"

	httpmetrics "github.com/slok/go-http-metrics/metrics"
)

// FlashblocksMetrics encapsulates the metrics collectors for the flashblocks engine.
type FlashblocksMetrics interface {
	// FlashblockReceived is called when a flashblock is handed to the engine's inbound queue.
	FlashblockReceived()

	// FlashblockDropped is called when a flashblock is dropped because the inbound queue is full.
	FlashblockDropped()

	// FlashblockAccepted is called when a flashblock is folded into the current build,
	// with the index of the accepted flashblock.
	FlashblockAccepted(index uint64)

	// FlashblockRejected is called when a flashblock fails validation, with a reason label.
	FlashblockRejected(reason string)

	// PayloadIDMismatch is called when a flashblock belongs to a job that is not the active one.
	PayloadIDMismatch()

	// PublishFailed is called when broadcasting an accepted flashblock to subscribers fails.
	PublishFailed()

	// PayloadServed is called when a get-payload request is answered, with the envelope version
	// and whether the answer came from the flashblocks build (true) or the execution engine (false).
	PayloadServed(version string, fromFlashblocks bool)

	// InboundQueueLength reports the number of flashblocks waiting to be processed.
	InboundQueueLength(length uint)
}

// EngineClientMetrics encapsulates the metrics collectors for the execution engine RPC client.
type EngineClientMetrics interface {
	// RequestCompleted is called when an engine API request finished, with its duration and
	// whether it failed.
	RequestCompleted(method string, duration time.Duration, failed bool)

	// CircuitBreakerStateChanged is called when the circuit breaker guarding the engine changes state.
	CircuitBreakerStateChanged(state string)
}

// PublisherMetrics encapsulates the metrics collectors for the outbound flashblocks publisher.
type PublisherMetrics interface {
	// SubscribersConnected reports the number of subscribers currently connected.
	SubscribersConnected(count uint)

	// SubscriberDropped is called when a subscriber is disconnected because it could not keep up.
	SubscriberDropped()

	// MessagePublished is called for every published message with its size in bytes.
	MessagePublished(sizeBytes int)
}

// InboundStreamMetrics encapsulates the metrics collectors for the upstream flashblocks stream.
type InboundStreamMetrics interface {
	// StreamConnected is called when a connection to the upstream stream is established.
	StreamConnected()

	// StreamDisconnected is called when the connection to the upstream stream is lost.
	StreamDisconnected()

	// MessageDecodeFailed is called when a frame of the upstream stream could not be decoded.
	MessageDecodeFailed()
}

// HTTPMetrics records the requests served by the HTTP servers of the node.
type HTTPMetrics interface {
	// Recorder is the recorder interface of the go-http-metrics middleware, see
	// https://github.com/slok/go-http-metrics/blob/master/metrics/prometheus/prometheus.go
	httpmetrics.Recorder
}
