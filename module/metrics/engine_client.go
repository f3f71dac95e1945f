package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cody-wang-cb/rollup-boost/module"
)

type EngineClientCollector struct {
	requestDuration *prometheus.HistogramVec
	requests        *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
}

var _ module.EngineClientMetrics = (*EngineClientCollector)(nil)

// circuit breaker states reported by the engine client
var breakerStates = []string{"closed", "half-open", "open"}

func NewEngineClientCollector(registerer prometheus.Registerer) *EngineClientCollector {
	factory := promauto.With(registerer)

	return &EngineClientCollector{
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:      "request_duration_seconds",
			Namespace: namespaceRollupBoost,
			Subsystem: subsystemEngineClient,
			Help:      "the duration of engine API requests",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{LabelMethod}),

		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "requests_total",
			Namespace: namespaceRollupBoost,
			Subsystem: subsystemEngineClient,
			Help:      "the number of engine API requests, by method and result",
		}, []string{LabelMethod, LabelResult}),

		breakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name:      "circuit_breaker_state",
			Namespace: namespaceRollupBoost,
			Subsystem: subsystemEngineClient,
			Help:      "set to 1 for the current state of the circuit breaker guarding the engine",
		}, []string{LabelState}),
	}
}

func (ec *EngineClientCollector) RequestCompleted(method string, duration time.Duration, failed bool) {
	result := ResultSuccess
	if failed {
		result = ResultFailure
	}
	ec.requestDuration.With(prometheus.Labels{LabelMethod: method}).Observe(duration.Seconds())
	ec.requests.With(prometheus.Labels{LabelMethod: method, LabelResult: result}).Inc()
}

func (ec *EngineClientCollector) CircuitBreakerStateChanged(state string) {
	for _, s := range breakerStates {
		value := 0.0
		if s == state {
			value = 1
		}
		ec.breakerState.With(prometheus.Labels{LabelState: s}).Set(value)
	}
}
