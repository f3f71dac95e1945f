package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/cody-wang-cb/rollup-boost/client/engineapi"
	"github.com/cody-wang-cb/rollup-boost/config"
	"github.com/cody-wang-cb/rollup-boost/engine/flashblocks"
	"github.com/cody-wang-cb/rollup-boost/engine/flashblocks/inbound"
	"github.com/cody-wang-cb/rollup-boost/engine/flashblocks/outbound"
	"github.com/cody-wang-cb/rollup-boost/engine/rpc"
	"github.com/cody-wang-cb/rollup-boost/module/component"
	"github.com/cody-wang-cb/rollup-boost/module/irrecoverable"
	"github.com/cody-wang-cb/rollup-boost/module/metrics"
	"github.com/cody-wang-cb/rollup-boost/module/util"
)

// ShutdownTimeout bounds how long Run waits for the components to stop.
const ShutdownTimeout = 30 * time.Second

var _ component.Component = (*Node)(nil)

// Node runs all components of rollup-boost: the execution engine client, the flashblocks
// engine, the upstream stream client, the flashblocks publisher, the JSON-RPC server and,
// if enabled, the metrics server.
type Node struct {
	*component.ComponentManager

	log    zerolog.Logger
	client *engineapi.Client

	Engine    *flashblocks.Engine
	Inbound   *inbound.Client
	Publisher *outbound.Publisher
	RPC       *rpc.Server
	Metrics   *metrics.Server
}

// NewNode creates all components of the node from the given config.
// The config is expected to be validated.
func NewNode(log zerolog.Logger, cfg *config.Config) (*Node, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engineConfig, err := cfg.EngineClientConfig()
	if err != nil {
		return nil, fmt.Errorf("could not create engine client config: %w", err)
	}
	client, err := engineapi.NewClient(context.Background(), log, metrics.NewEngineClientCollector(registry), engineConfig)
	if err != nil {
		return nil, fmt.Errorf("could not create engine client: %w", err)
	}

	node := &Node{
		log:    log.With().Str("component", "node").Logger(),
		client: client,
	}

	node.Publisher, err = outbound.NewPublisher(log, metrics.NewPublisherCollector(registry), cfg.OutboundConfig())
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not create flashblocks publisher: %w", err)
	}

	node.Engine, err = flashblocks.New(log, metrics.NewFlashblocksCollector(registry), client, node.Publisher, cfg.FlashblocksConfig())
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not create flashblocks engine: %w", err)
	}

	node.Inbound = inbound.NewClient(log, metrics.NewInboundStreamCollector(registry), node.Engine, cfg.InboundConfig())

	node.RPC, err = rpc.NewServer(log, metrics.NewHTTPCollector(registry), node.Engine, cfg.RPCConfig())
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not create rpc server: %w", err)
	}

	builder := component.NewComponentManagerBuilder().
		AddWorker(node.runComponent("flashblocks engine", node.Engine)).
		AddWorker(node.runComponent("flashblocks publisher", node.Publisher)).
		AddWorker(node.runComponent("flashblocks stream client", node.Inbound)).
		AddWorker(node.runComponent("rpc server", node.RPC))

	if cfg.MetricsEnabled {
		node.Metrics = metrics.NewServer(log, cfg.MetricsListenAddress, registry)
		builder.AddWorker(node.runComponent("metrics server", node.Metrics))
	}

	builder.AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
		ready()
		<-ctx.Done()
		// the engine client outlives the components issuing requests to it
		<-util.AllDone(node.Engine, node.RPC)
		node.client.Close()
	})

	node.ComponentManager = builder.Build()
	return node, nil
}

// runComponent returns a worker which starts the given component and ties its lifecycle to the node.
func (n *Node) runComponent(name string, c component.Component) component.ComponentWorker {
	return func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
		c.Start(ctx)

		select {
		case <-c.Ready():
			n.log.Info().Msg(name + " ready")
			ready()
		case <-ctx.Done():
		}

		<-c.Done()
		n.log.Info().Msg(name + " shutdown complete")
	}
}

// Run starts all the node components and blocks until ctx is canceled, e.g. when a SIGINT is
// received, or one of the components throws an irrecoverable error. It then waits for all
// components to shut down.
func (n *Node) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalerCtx, errChan := irrecoverable.WithSignaler(ctx)
	n.Start(signalerCtx)

	go func() {
		select {
		case <-n.Ready():
			n.log.Info().Msg("node startup complete")
		case <-ctx.Done():
		}
	}()

	// block till ctx is canceled or a fatal error is encountered
	if err := util.WaitError(errChan, ctx.Done()); err != nil {
		return fmt.Errorf("unhandled irrecoverable error: %w", err)
	}

	n.log.Info().Msg("node shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	select {
	case <-n.Done():
	case <-shutdownCtx.Done():
		return errors.New("node shutdown timed out")
	}
	if err := util.WaitError(errChan, n.Done()); err != nil {
		return fmt.Errorf("unhandled irrecoverable error during shutdown: %w", err)
	}

	n.log.Info().Msg("node shutdown complete")
	return nil
}
