package outbound

import "time"

const (
	// WriteWait is the time allowed to write a single message to a subscriber.
	WriteWait = 10 * time.Second
	// PongWait is the time allowed to read the next pong from a subscriber.
	PongWait = 60 * time.Second
	// PingPeriod is the interval of keepalive pings. It must be shorter than PongWait.
	PingPeriod = (PongWait * 9) / 10
)

const (
	DefaultListenAddress        = "0.0.0.0:1111"
	DefaultSubscriberBufferSize = 256
	DefaultMaxSubscribers       = 1024
	DefaultConnectionsPerSecond = 0
)

// Config is the configuration of the flashblocks Publisher.
type Config struct {
	// ListenAddress is the address subscribers connect to.
	ListenAddress string
	// SubscriberBufferSize is the number of messages buffered per subscriber. A subscriber
	// with a full buffer is disconnected.
	SubscriberBufferSize int
	// MaxSubscribers limits the number of concurrently connected subscribers.
	MaxSubscribers uint
	// ConnectionsPerSecond limits the rate of new subscriptions; 0 disables the limit.
	ConnectionsPerSecond float64
}

func DefaultConfig() Config {
	return Config{
		ListenAddress:        DefaultListenAddress,
		SubscriberBufferSize: DefaultSubscriberBufferSize,
		MaxSubscribers:       DefaultMaxSubscribers,
		ConnectionsPerSecond: DefaultConnectionsPerSecond,
	}
}
