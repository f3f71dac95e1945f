package outbound

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/cody-wang-cb/rollup-boost/model/flashblocks"
	"github.com/cody-wang-cb/rollup-boost/module"
	"github.com/cody-wang-cb/rollup-boost/module/component"
	"github.com/cody-wang-cb/rollup-boost/module/irrecoverable"
)

const shutdownTimeout = 5 * time.Second

// Publisher republishes accepted flashblocks to websocket subscribers.
//
// Publishing is best effort: a subscriber that cannot keep up is disconnected instead of
// slowing down the publisher.
type Publisher struct {
	component.Component

	log      zerolog.Logger
	metrics  module.PublisherMetrics
	config   Config
	upgrader websocket.Upgrader
	limiter  *rate.Limiter
	server   *http.Server

	mu          sync.RWMutex
	subscribers map[uuid.UUID]*subscriber
	closed      bool
	handlers    sync.WaitGroup

	addr  net.Addr
	ready chan struct{}
}

var _ module.FlashblocksPublisher = (*Publisher)(nil)
var _ http.Handler = (*Publisher)(nil)

func NewPublisher(log zerolog.Logger, metrics module.PublisherMetrics, config Config) (*Publisher, error) {
	if config.SubscriberBufferSize < 1 {
		return nil, fmt.Errorf("subscriber buffer size must be positive, got %d", config.SubscriberBufferSize)
	}

	p := &Publisher{
		log:         log.With().Str("component", "flashblocks_publisher").Logger(),
		metrics:     metrics,
		config:      config,
		subscribers: make(map[uuid.UUID]*subscriber),
		ready:       make(chan struct{}),
	}
	if config.ConnectionsPerSecond > 0 {
		burst := int(config.ConnectionsPerSecond)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(config.ConnectionsPerSecond), burst)
	}
	p.server = &http.Server{
		Addr:              config.ListenAddress,
		Handler:           p,
		ReadHeaderTimeout: 10 * time.Second,
	}

	p.Component = component.NewComponentManagerBuilder().
		AddWorker(p.serve).
		Build()

	return p, nil
}

// Addr returns the address the publisher is listening on. It blocks until the publisher is ready.
func (p *Publisher) Addr() net.Addr {
	<-p.ready
	return p.addr
}

// SubscriberCount returns the number of connected subscribers.
func (p *Publisher) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers)
}

// Publish encodes the flashblock once and hands it to every subscriber.
// Subscribers whose buffer is full are disconnected.
// No errors are expected during normal operation.
func (p *Publisher) Publish(fb *flashblocks.FlashblocksPayloadV1) error {
	msg, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("could not encode flashblock: %w", err)
	}

	p.mu.RLock()
	var slow []*subscriber
	for _, s := range p.subscribers {
		if !s.enqueue(msg) {
			slow = append(slow, s)
		}
	}
	p.mu.RUnlock()

	for _, s := range slow {
		p.metrics.SubscriberDropped()
		s.log.Warn().Msg("subscriber cannot keep up, disconnecting")
		_ = s.close(websocket.ClosePolicyViolation, "too slow")
	}

	p.metrics.MessagePublished(len(msg))
	return nil
}

// ServeHTTP upgrades the request to a websocket subscription and serves it until the
// connection ends.
func (p *Publisher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if p.limiter != nil && !p.limiter.Allow() {
		http.Error(w, "too many connection attempts", http.StatusTooManyRequests)
		return
	}
	if uint(p.SubscriberCount()) >= p.config.MaxSubscribers {
		http.Error(w, "too many subscribers", http.StatusServiceUnavailable)
		return
	}

	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already replied to the client
		p.log.Debug().Err(err).Msg("failed to upgrade subscriber connection")
		return
	}

	s := newSubscriber(p.log, conn, p.config.SubscriberBufferSize)
	if !p.register(s) {
		_ = s.close(websocket.CloseGoingAway, "shutting down")
		return
	}
	defer p.unregister(s)

	s.log.Info().Msg("subscriber connected")
	err = s.run()
	if err != nil {
		s.log.Warn().Err(err).Msg("subscriber connection failed")
		return
	}
	s.log.Info().Msg("subscriber disconnected")
}

func (p *Publisher) register(s *subscriber) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	p.subscribers[s.id] = s
	p.handlers.Add(1)
	p.metrics.SubscribersConnected(uint(len(p.subscribers)))
	return true
}

func (p *Publisher) unregister(s *subscriber) {
	p.mu.Lock()
	delete(p.subscribers, s.id)
	p.metrics.SubscribersConnected(uint(len(p.subscribers)))
	p.mu.Unlock()

	p.handlers.Done()
}

// serve accepts subscribers until the component shuts down.
func (p *Publisher) serve(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	listener, err := net.Listen("tcp", p.server.Addr)
	if err != nil {
		ctx.Throw(fmt.Errorf("could not listen for flashblocks subscribers on %s: %w", p.server.Addr, err))
	}
	p.addr = listener.Addr()
	close(p.ready)
	p.log.Info().Str("address", p.addr.String()).Msg("flashblocks publisher started")
	ready()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = p.server.Shutdown(shutdownCtx)
	}()

	err = p.server.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		ctx.Throw(fmt.Errorf("flashblocks publisher failed: %w", err))
	}

	<-stopped
	err = p.closeSubscribers()
	if err != nil {
		p.log.Warn().Err(err).Msg("failed to close some subscribers")
	}
	p.handlers.Wait()
	p.log.Info().Msg("flashblocks publisher stopped")
}

// closeSubscribers disconnects all subscribers and rejects new ones.
func (p *Publisher) closeSubscribers() error {
	p.mu.Lock()
	p.closed = true
	subscribers := make([]*subscriber, 0, len(p.subscribers))
	for _, s := range p.subscribers {
		subscribers = append(subscribers, s)
	}
	p.mu.Unlock()

	var errs *multierror.Error
	for _, s := range subscribers {
		err := s.close(websocket.CloseGoingAway, "shutting down")
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
