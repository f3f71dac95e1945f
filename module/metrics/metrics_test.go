package metrics_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	httpmetrics "github.com/slok/go-http-metrics/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cody-wang-cb/rollup-boost/module/irrecoverable"
	"github.com/cody-wang-cb/rollup-boost/module/metrics"
	"github.com/cody-wang-cb/rollup-boost/utils/unittest"
)

func TestFlashblocksCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewFlashblocksCollector(reg)

	collector.FlashblockReceived()
	collector.FlashblockReceived()
	collector.FlashblockAccepted(0)
	collector.FlashblockAccepted(1)
	collector.FlashblockRejected("invalid_index")
	collector.PayloadServed("v3", true)
	collector.PayloadServed("v4", false)
	collector.InboundQueueLength(7)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, family := range families {
		for _, m := range family.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				values[family.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[family.GetName()] = m.GetGauge().GetValue()
			}
		}
	}

	assert.Equal(t, 2.0, values["rollup_boost_flashblocks_received_total"])
	assert.Equal(t, 2.0, values["rollup_boost_flashblocks_accepted_total"])
	assert.Equal(t, 1.0, values["rollup_boost_flashblocks_latest_accepted_index"])
	assert.Equal(t, 1.0, values["rollup_boost_flashblocks_rejected_total"])
	assert.Equal(t, 2.0, values["rollup_boost_flashblocks_payloads_served_total"])
	assert.Equal(t, 7.0, values["rollup_boost_flashblocks_inbound_queue_length"])
}

func TestEngineClientCollector_CircuitBreakerState(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewEngineClientCollector(reg)

	collector.CircuitBreakerStateChanged("open")
	collector.RequestCompleted("engine_getPayloadV3", 20*time.Millisecond, false)
	collector.RequestCompleted("engine_getPayloadV3", 20*time.Millisecond, true)

	expected := `
# HELP rollup_boost_engine_client_circuit_breaker_state set to 1 for the current state of the circuit breaker guarding the engine
# TYPE rollup_boost_engine_client_circuit_breaker_state gauge
rollup_boost_engine_client_circuit_breaker_state{state="closed"} 0
rollup_boost_engine_client_circuit_breaker_state{state="half-open"} 0
rollup_boost_engine_client_circuit_breaker_state{state="open"} 1
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "rollup_boost_engine_client_circuit_breaker_state")
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "rollup_boost_engine_client_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

// TestCollectorsShareRegistry checks that all collectors can be registered side by side.
func TestCollectorsShareRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() {
		metrics.NewFlashblocksCollector(reg)
		metrics.NewEngineClientCollector(reg)
		metrics.NewPublisherCollector(reg)
		metrics.NewInboundStreamCollector(reg)
		metrics.NewHTTPCollector(reg)
	})
}

func TestServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewPublisherCollector(reg)
	collector.MessagePublished(512)

	server := metrics.NewServer(unittest.Logger(), "127.0.0.1:0", reg)
	signalerCtx, cancel := irrecoverable.NewMockSignalerContextWithCancel(t, context.Background())
	unittest.StartComponents(t, signalerCtx, time.Second, server)

	resp, err := http.Get(fmt.Sprintf("http://%s/metrics", server.Addr()))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "rollup_boost_publisher_messages_published_total 1")

	resp, err = http.Post(fmt.Sprintf("http://%s/metrics", server.Addr()), "text/plain", nil)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(fmt.Sprintf("http://%s/other", server.Addr()))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	unittest.StopComponents(t, cancel, time.Second, server)
}

func TestHTTPCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewHTTPCollector(reg)
	ctx := context.Background()

	props := httpmetrics.HTTPReqProperties{Service: "rpc", ID: "engine_api", Method: http.MethodPost, Code: "200"}
	collector.AddInflightRequests(ctx, httpmetrics.HTTPProperties{Service: "rpc", ID: "engine_api"}, 1)
	collector.ObserveHTTPRequestDuration(ctx, props, 20*time.Millisecond)
	collector.ObserveHTTPResponseSize(ctx, props, 2048)
	collector.AddInflightRequests(ctx, httpmetrics.HTTPProperties{Service: "rpc", ID: "engine_api"}, -1)

	expected := `
# HELP rollup_boost_http_requests_inflight the number of HTTP requests being served
# TYPE rollup_boost_http_requests_inflight gauge
rollup_boost_http_requests_inflight{handler="engine_api",service="rpc"} 0
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "rollup_boost_http_requests_inflight"))

	count, err := testutil.GatherAndCount(reg, "rollup_boost_http_request_duration_seconds", "rollup_boost_http_response_size_bytes")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
