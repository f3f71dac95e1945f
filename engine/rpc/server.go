package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	ethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"

	"github.com/cody-wang-cb/rollup-boost/module"
	"github.com/cody-wang-cb/rollup-boost/module/component"
	"github.com/cody-wang-cb/rollup-boost/module/irrecoverable"
)

const (
	DefaultListenAddress = "0.0.0.0:8081"
	shutdownTimeout      = 5 * time.Second
)

// Config is the configuration of the JSON-RPC server.
type Config struct {
	ListenAddress string
	// CORSAllowedOrigins are the origins browsers may call the server from.
	// Cross origin requests are refused if empty.
	CORSAllowedOrigins []string
}

func DefaultConfig() Config {
	return Config{ListenAddress: DefaultListenAddress}
}

// Server serves the engine API to the consensus client over HTTP.
type Server struct {
	component.Component

	log        zerolog.Logger
	rpcServer  *ethrpc.Server
	httpServer *http.Server

	addr  net.Addr
	ready chan struct{}
}

// NewServer creates a JSON-RPC server answering the engine and eth namespaces with the given API.
func NewServer(log zerolog.Logger, metrics module.HTTPMetrics, api module.EngineAPI, config Config) (*Server, error) {
	rpcServer := ethrpc.NewServer()
	err := rpcServer.RegisterName("engine", NewEngineAPI(api))
	if err != nil {
		return nil, fmt.Errorf("could not register engine namespace: %w", err)
	}
	err = rpcServer.RegisterName("eth", NewEthAPI(api))
	if err != nil {
		return nil, fmt.Errorf("could not register eth namespace: %w", err)
	}

	var handler http.Handler = rpcServer
	handler = std.Handler("engine_api", middleware.New(middleware.Config{
		Recorder: metrics,
		Service:  "rpc",
	}), handler)
	if len(config.CORSAllowedOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: config.CORSAllowedOrigins,
			AllowedHeaders: []string{"*"},
			AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		}).Handler(handler)
	}

	s := &Server{
		log:       log.With().Str("component", "rpc_server").Logger(),
		rpcServer: rpcServer,
		httpServer: &http.Server{
			Addr:              config.ListenAddress,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ready: make(chan struct{}),
	}

	s.Component = component.NewComponentManagerBuilder().
		AddWorker(s.serve).
		Build()

	return s, nil
}

// Addr returns the address the server is listening on. It blocks until the server is ready.
func (s *Server) Addr() net.Addr {
	<-s.ready
	return s.addr
}

func (s *Server) serve(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		ctx.Throw(fmt.Errorf("failed to start the rpc server: %w", err))
	}

	// save the actual address on which we are listening (may be different from the configured
	// address if no port was specified)
	s.addr = l.Addr()
	close(s.ready)
	s.log.Info().Str("address", s.addr.String()).Msg("rpc server started")
	ready()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := s.httpServer.Shutdown(shutdownCtx)
		if err != nil {
			s.log.Error().Err(err).Msg("error stopping rpc server")
		}
		s.rpcServer.Stop()
	}()

	err = s.httpServer.Serve(l) // blocking call
	if err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			ctx.Throw(fmt.Errorf("fatal error in rpc server: %w", err))
		}
	}
	<-stopped
}
