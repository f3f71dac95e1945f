package engineapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/beacon/engine"
	"github.com/ethereum/go-ethereum/node"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/cody-wang-cb/rollup-boost/model/payload"
	"github.com/cody-wang-cb/rollup-boost/module"
)

const (
	MethodForkchoiceUpdatedV3 = "engine_forkchoiceUpdatedV3"
	MethodNewPayloadV3        = "engine_newPayloadV3"
	MethodNewPayloadV4        = "engine_newPayloadV4"
	MethodGetPayloadV3        = "engine_getPayloadV3"
	MethodGetPayloadV4        = "engine_getPayloadV4"
	MethodGetBlockByNumber    = "eth_getBlockByNumber"
)

// Client is an engine API client of the execution engine.
//
// Every request is bounded by the configured timeout and guarded by a circuit breaker: after
// too many consecutive transport failures, requests fail fast with gobreaker.ErrOpenState until
// the engine recovers. Errors answered by the engine itself (JSON-RPC errors) prove the engine
// is reachable and do not count as failures.
type Client struct {
	log     zerolog.Logger
	metrics module.EngineClientMetrics
	rpc     *rpc.Client
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

var _ module.EngineAPI = (*Client)(nil)

// NewClient creates a client of the engine API served at config.URL, authenticating with the
// configured JWT secret. No connection is made until the first request.
func NewClient(ctx context.Context, log zerolog.Logger, metrics module.EngineClientMetrics, config Config) (*Client, error) {
	rpcClient, err := rpc.DialOptions(ctx, config.URL, rpc.WithHTTPAuth(node.NewJWTAuth(config.JWTSecret)))
	if err != nil {
		return nil, fmt.Errorf("could not create engine api client for %s: %w", config.URL, err)
	}
	return newClient(log, metrics, rpcClient, config), nil
}

func newClient(log zerolog.Logger, metrics module.EngineClientMetrics, rpcClient *rpc.Client, config Config) *Client {
	c := &Client{
		log:     log.With().Str("component", "engine_api_client").Logger(),
		metrics: metrics,
		rpc:     rpcClient,
		timeout: config.Timeout,
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "engine_api",
		MaxRequests: config.BreakerMaxRequests,
		Timeout:     config.BreakerRestoreTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.BreakerMaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			c.log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("engine api circuit breaker changed state")
			c.metrics.CircuitBreakerStateChanged(to.String())
		},
		IsSuccessful: func(err error) bool {
			var rpcErr rpc.Error
			return err == nil || errors.As(err, &rpcErr)
		},
	})

	return c
}

// Close tears down the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// call performs a single request through the circuit breaker.
func (c *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.rpc.CallContext(ctx, result, method, args...)
	})
	c.metrics.RequestCompleted(method, time.Since(start), err != nil)
	if err != nil {
		return fmt.Errorf("%s failed: %w", method, err)
	}
	return nil
}

func (c *Client) ForkchoiceUpdatedV3(ctx context.Context, state engine.ForkchoiceStateV1, attrs *payload.OpPayloadAttributes) (*engine.ForkChoiceResponse, error) {
	var resp engine.ForkChoiceResponse
	err := c.call(ctx, &resp, MethodForkchoiceUpdatedV3, state, attrs)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) NewPayload(ctx context.Context, p *payload.NewPayload) (*engine.PayloadStatusV1, error) {
	err := p.Validate()
	if err != nil {
		return nil, err
	}

	var status engine.PayloadStatusV1
	switch p.Version {
	case payload.PayloadVersionV3:
		err = c.call(ctx, &status, MethodNewPayloadV3, p.V3.ExecutionPayload, p.V3.VersionedHashes, p.V3.ParentBeaconBlockRoot)
	case payload.PayloadVersionV4:
		err = c.call(ctx, &status, MethodNewPayloadV4, p.V4.ExecutionPayload, p.V4.VersionedHashes, p.V4.ParentBeaconBlockRoot, p.V4.ExecutionRequests)
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) GetPayload(ctx context.Context, id engine.PayloadID, version payload.PayloadVersion) (*payload.OpExecutionPayloadEnvelope, error) {
	switch version {
	case payload.PayloadVersionV3:
		var env payload.OpExecutionPayloadEnvelopeV3
		err := c.call(ctx, &env, MethodGetPayloadV3, id)
		if err != nil {
			return nil, err
		}
		return payload.NewEnvelopeV3(&env), nil
	case payload.PayloadVersionV4:
		var env payload.OpExecutionPayloadEnvelopeV4
		err := c.call(ctx, &env, MethodGetPayloadV4, id)
		if err != nil {
			return nil, err
		}
		return payload.NewEnvelopeV4(&env), nil
	default:
		return nil, fmt.Errorf("unsupported payload version %s", version)
	}
}

func (c *Client) GetBlockByNumber(ctx context.Context, number rpc.BlockNumber, fullTx bool) (json.RawMessage, error) {
	var block json.RawMessage
	err := c.call(ctx, &block, MethodGetBlockByNumber, number, fullTx)
	if err != nil {
		return nil, err
	}
	return block, nil
}
