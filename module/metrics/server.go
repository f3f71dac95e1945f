package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/cody-wang-cb/rollup-boost/module/component"
	"github.com/cody-wang-cb/rollup-boost/module/irrecoverable"
)

const shutdownTimeout = 5 * time.Second

// Server is the http server that will be serving the /metrics request for prometheus
type Server struct {
	component.Component

	server *http.Server
	log    zerolog.Logger
	addr   net.Addr
	ready  chan struct{}
}

// NewServer creates a new server that will listen on the given address,
// and responds to only GET requests of the `/metrics` endpoint
func NewServer(log zerolog.Logger, address string, gatherer prometheus.Gatherer) *Server {
	router := mux.NewRouter()
	endpoint := "/metrics"
	router.Handle(endpoint, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	m := &Server{
		server: &http.Server{Addr: address, Handler: router, ReadHeaderTimeout: 10 * time.Second},
		log:    log.With().Str("component", "metrics_server").Str("endpoint", endpoint).Logger(),
		ready:  make(chan struct{}),
	}

	m.Component = component.NewComponentManagerBuilder().
		AddWorker(m.serve).
		Build()

	return m
}

// Addr returns the address the server is listening on. It blocks until the server is ready.
func (m *Server) Addr() net.Addr {
	<-m.ready
	return m.addr
}

func (m *Server) serve(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	listener, err := net.Listen("tcp", m.server.Addr)
	if err != nil {
		ctx.Throw(err)
	}
	m.addr = listener.Addr()
	close(m.ready)
	m.log.Info().Str("address", m.addr.String()).Msg("metrics server started")
	ready()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = m.server.Shutdown(shutdownCtx)
	}()

	err = m.server.Serve(listener)
	if err != nil {
		// http.ErrServerClosed is returned when Close or Shutdown is called
		// we don't consider this an error, so print this with debug level instead
		if !errors.Is(err, http.ErrServerClosed) {
			ctx.Throw(err)
		}
		m.log.Debug().Err(err).Msg("metrics server shutdown")
	}
	<-stopped
}
