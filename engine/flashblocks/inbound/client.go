package inbound

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/cody-wang-cb/rollup-boost/model/flashblocks"
	"github.com/cody-wang-cb/rollup-boost/module"
	"github.com/cody-wang-cb/rollup-boost/module/component"
	"github.com/cody-wang-cb/rollup-boost/module/irrecoverable"
)

const (
	DefaultRetryDelay         = 100 * time.Millisecond
	DefaultMaxRetryDelay      = 10 * time.Second
	DefaultRetryJitterPercent = 15
	DefaultReadTimeout        = 30 * time.Second
	DefaultDialTimeout        = 5 * time.Second
)

// Config is the configuration of the upstream flashblocks stream client.
type Config struct {
	// URL is the websocket endpoint of the block builder's flashblocks stream.
	URL string
	// RetryDelay is the initial delay between connection attempts.
	RetryDelay time.Duration
	// MaxRetryDelay caps the delay between connection attempts.
	MaxRetryDelay time.Duration
	// ReadTimeout is the longest the stream may stay silent before the connection is
	// considered dead and replaced.
	ReadTimeout time.Duration
	// DialTimeout bounds a single connection attempt.
	DialTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
		ReadTimeout:   DefaultReadTimeout,
		DialTimeout:   DefaultDialTimeout,
	}
}

// Client subscribes to the flashblocks stream of the block builder and hands every decoded
// flashblock to the consumer, in the order received.
//
// The connection is re-established with capped exponential backoff whenever it is lost,
// until the component shuts down. Frames that cannot be decoded are skipped.
type Client struct {
	component.Component

	log      zerolog.Logger
	metrics  module.InboundStreamMetrics
	consumer module.FlashblocksConsumer
	config   Config
	dialer   *websocket.Dialer
}

func NewClient(log zerolog.Logger, metrics module.InboundStreamMetrics, consumer module.FlashblocksConsumer, config Config) *Client {
	c := &Client{
		log:      log.With().Str("component", "flashblocks_stream").Str("url", config.URL).Logger(),
		metrics:  metrics,
		consumer: consumer,
		config:   config,
		dialer: &websocket.Dialer{
			HandshakeTimeout: config.DialTimeout,
		},
	}

	c.Component = component.NewComponentManagerBuilder().
		AddWorker(c.subscribeLoop).
		Build()

	return c
}

// subscribeLoop keeps a connection to the stream open and reads from it until shutdown.
func (c *Client) subscribeLoop(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	ready()

	for {
		conn, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			ctx.Throw(fmt.Errorf("could not connect to flashblocks stream: %w", err))
		}

		c.metrics.StreamConnected()
		c.log.Info().Msg("connected to flashblocks stream")

		err = c.readMessages(ctx, conn)
		c.metrics.StreamDisconnected()
		if ctx.Err() != nil {
			c.log.Info().Msg("disconnected from flashblocks stream")
			return
		}
		c.log.Warn().Err(err).Msg("lost connection to flashblocks stream, reconnecting")
	}
}

// connect dials the stream until a connection is established or the context is cancelled.
func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	backoff := retry.NewExponential(c.config.RetryDelay)
	backoff = retry.WithCappedDuration(c.config.MaxRetryDelay, backoff)
	backoff = retry.WithJitterPercent(DefaultRetryJitterPercent, backoff)

	var conn *websocket.Conn
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		var err error
		conn, _, err = c.dialer.DialContext(ctx, c.config.URL, nil)
		if err != nil {
			c.log.Debug().Err(err).Int("attempt", attempt).Msg("could not connect to flashblocks stream, retrying")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// readMessages reads the stream until the connection fails or the context is cancelled.
// The connection is always closed when readMessages returns.
func (c *Client) readMessages(ctx context.Context, conn *websocket.Conn) error {
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
		case <-stopped:
		}
		_ = conn.Close()
	}()

	for {
		err := conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		if err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}

		messageType, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return fmt.Errorf("stream closed by builder: %w", err)
			}
			return fmt.Errorf("error reading message: %w", err)
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		p, err := flashblocks.DecodeMessage(data)
		if err != nil {
			c.metrics.MessageDecodeFailed()
			c.log.Warn().Err(err).Int("size", len(data)).Msg("skipping undecodable flashblocks message")
			continue
		}
		c.consumer.OnFlashblock(p)
	}
}
