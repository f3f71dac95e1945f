package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	httpmetrics "github.com/slok/go-http-metrics/metrics"

	"github.com/cody-wang-cb/rollup-boost/module"
)

// HTTPCollector records the requests of HTTP servers instrumented with the go-http-metrics
// middleware.
type HTTPCollector struct {
	requestDuration *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
	inflight        *prometheus.GaugeVec
}

var _ module.HTTPMetrics = (*HTTPCollector)(nil)

func NewHTTPCollector(registerer prometheus.Registerer) *HTTPCollector {
	factory := promauto.With(registerer)

	return &HTTPCollector{
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:      "request_duration_seconds",
			Namespace: namespaceRollupBoost,
			Subsystem: subsystemHTTP,
			Help:      "the latency of served HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{LabelService, LabelHandler, LabelMethod, LabelCode}),
		responseSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:      "response_size_bytes",
			Namespace: namespaceRollupBoost,
			Subsystem: subsystemHTTP,
			Help:      "the size of HTTP responses",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
		}, []string{LabelService, LabelHandler, LabelMethod, LabelCode}),
		inflight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name:      "requests_inflight",
			Namespace: namespaceRollupBoost,
			Subsystem: subsystemHTTP,
			Help:      "the number of HTTP requests being served",
		}, []string{LabelService, LabelHandler}),
	}
}

func (hc *HTTPCollector) ObserveHTTPRequestDuration(_ context.Context, p httpmetrics.HTTPReqProperties, duration time.Duration) {
	hc.requestDuration.WithLabelValues(p.Service, p.ID, p.Method, p.Code).Observe(duration.Seconds())
}

func (hc *HTTPCollector) ObserveHTTPResponseSize(_ context.Context, p httpmetrics.HTTPReqProperties, sizeBytes int64) {
	hc.responseSize.WithLabelValues(p.Service, p.ID, p.Method, p.Code).Observe(float64(sizeBytes))
}

func (hc *HTTPCollector) AddInflightRequests(_ context.Context, p httpmetrics.HTTPProperties, quantity int) {
	hc.inflight.WithLabelValues(p.Service, p.ID).Add(float64(quantity))
}
