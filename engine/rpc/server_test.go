package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/beacon/engine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/cody-wang-cb/rollup-boost/engine/flashblocks"
	"github.com/cody-wang-cb/rollup-boost/model/payload"
	"github.com/cody-wang-cb/rollup-boost/module/irrecoverable"
	"github.com/cody-wang-cb/rollup-boost/module/metrics"
	mockmodule "github.com/cody-wang-cb/rollup-boost/module/mock"
	"github.com/cody-wang-cb/rollup-boost/utils/unittest"
)

// engineError is an error answered by the execution engine.
type engineError struct{}

func (engineError) Error() string  { return "Unknown payload" }
func (engineError) ErrorCode() int { return -38001 }

type ServerSuite struct {
	suite.Suite

	api      *mockmodule.EngineAPI
	registry *prometheus.Registry
	server   *Server
	client   *ethrpc.Client
	cancel   context.CancelFunc
}

const allowedOrigin = "https://dashboard.example"

func TestServer(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	s.api = mockmodule.NewEngineAPI(s.T())
	s.registry = prometheus.NewRegistry()

	var err error
	s.server, err = NewServer(unittest.Logger(), metrics.NewHTTPCollector(s.registry), s.api, Config{
		ListenAddress:      "127.0.0.1:0",
		CORSAllowedOrigins: []string{allowedOrigin},
	})
	s.Require().NoError(err)

	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	unittest.StartComponents(s.T(), irrecoverable.NewMockSignalerContext(s.T(), ctx), time.Second, s.server)

	s.client, err = ethrpc.DialHTTP(fmt.Sprintf("http://%s", s.server.Addr()))
	s.Require().NoError(err)
}

func (s *ServerSuite) TearDownTest() {
	s.client.Close()
	unittest.StopComponents(s.T(), s.cancel, 2*time.Second, s.server)
}

func (s *ServerSuite) TestForkchoiceUpdated() {
	id := unittest.PayloadIDFixture()
	state := unittest.ForkchoiceStateFixture()
	s.api.On("ForkchoiceUpdatedV3", mock.Anything, state, mock.AnythingOfType("*payload.OpPayloadAttributes")).
		Return(unittest.ForkChoiceResponseFixture(&id), nil).Once()

	var resp engine.ForkChoiceResponse
	err := s.client.Call(&resp, "engine_forkchoiceUpdatedV3", state, unittest.PayloadAttributesFixture())
	s.Require().NoError(err)
	s.Require().NotNil(resp.PayloadID)
	s.Assert().Equal(id, *resp.PayloadID)
}

func (s *ServerSuite) TestGetPayload() {
	id := unittest.PayloadIDFixture()

	s.Run("v3", func() {
		env := unittest.EnvelopeFixture(payload.PayloadVersionV3)
		s.api.On("GetPayload", mock.Anything, id, payload.PayloadVersionV3).Return(env, nil).Once()

		var resp payload.OpExecutionPayloadEnvelopeV3
		s.Require().NoError(s.client.Call(&resp, "engine_getPayloadV3", id))
		s.Assert().Equal(env.ExecutionPayload().BlockHash, resp.ExecutionPayload.BlockHash)
		s.Assert().Equal(env.ExecutionPayload().Transactions, resp.ExecutionPayload.Transactions)
	})

	s.Run("v4", func() {
		env := unittest.EnvelopeFixture(payload.PayloadVersionV4)
		s.api.On("GetPayload", mock.Anything, id, payload.PayloadVersionV4).Return(env, nil).Once()

		var resp map[string]json.RawMessage
		s.Require().NoError(s.client.Call(&resp, "engine_getPayloadV4", id))
		s.Assert().JSONEq(`[]`, string(resp["executionRequests"]))

		var exec payload.OpExecutionPayloadV4
		s.Require().NoError(json.Unmarshal(resp["executionPayload"], &exec))
		v4, _ := env.V4()
		s.Assert().Equal(v4.ExecutionPayload.WithdrawalsRoot, exec.WithdrawalsRoot)
	})

	s.Run("engine error keeps its code", func() {
		s.api.On("GetPayload", mock.Anything, id, payload.PayloadVersionV3).
			Return(nil, fmt.Errorf("engine_getPayloadV3 failed: %w", engineError{})).Once()

		err := s.client.Call(&json.RawMessage{}, "engine_getPayloadV3", id)
		var rpcErr ethrpc.Error
		s.Require().True(errors.As(err, &rpcErr), "unexpected error: %v", err)
		s.Assert().Equal(-38001, rpcErr.ErrorCode())
	})

	s.Run("flashblocks error is an invalid payload", func() {
		s.api.On("GetPayload", mock.Anything, id, payload.PayloadVersionV3).
			Return(nil, flashblocks.UnsupportedVersionError{Version: payload.PayloadVersionV3}).Once()

		err := s.client.Call(&json.RawMessage{}, "engine_getPayloadV3", id)
		var rpcErr ethrpc.Error
		s.Require().True(errors.As(err, &rpcErr), "unexpected error: %v", err)
		s.Assert().Equal(InvalidParamsCode, rpcErr.ErrorCode())
	})
}

func (s *ServerSuite) TestNewPayload() {
	exec := unittest.ExecutionPayloadFixture()
	root := unittest.HashFixture()
	status := &engine.PayloadStatusV1{Status: engine.VALID, LatestValidHash: &exec.BlockHash}

	s.Run("v3", func() {
		s.api.On("NewPayload", mock.Anything, mock.MatchedBy(func(p *payload.NewPayload) bool {
			return p.Version == payload.PayloadVersionV3 && p.V3.ParentBeaconBlockRoot == root && p.BlockHash() == exec.BlockHash
		})).Return(status, nil).Once()

		var resp engine.PayloadStatusV1
		s.Require().NoError(s.client.Call(&resp, "engine_newPayloadV3", exec, []common.Hash{}, root))
		s.Assert().Equal(engine.VALID, resp.Status)
	})

	s.Run("v4", func() {
		requests := []hexutil.Bytes{{0x02, 0x03}}
		s.api.On("NewPayload", mock.Anything, mock.MatchedBy(func(p *payload.NewPayload) bool {
			return p.Version == payload.PayloadVersionV4 && len(p.V4.ExecutionRequests) == 1 && p.BlockHash() == exec.BlockHash
		})).Return(status, nil).Once()

		var resp engine.PayloadStatusV1
		v4 := payload.OpExecutionPayloadV4{ExecutionPayloadV3: exec, WithdrawalsRoot: unittest.HashFixture()}
		s.Require().NoError(s.client.Call(&resp, "engine_newPayloadV4", v4, []common.Hash{}, root, requests))
		s.Assert().Equal(engine.VALID, resp.Status)
	})
}

func (s *ServerSuite) TestGetBlockByNumber() {
	block := json.RawMessage(`{"number":"0x2a","hash":"0x01"}`)
	s.api.On("GetBlockByNumber", mock.Anything, ethrpc.BlockNumber(42), false).Return(block, nil).Once()

	var resp json.RawMessage
	s.Require().NoError(s.client.Call(&resp, "eth_getBlockByNumber", "0x2a", false))
	s.Assert().JSONEq(string(block), string(resp))
}

func (s *ServerSuite) TestUnknownMethod() {
	err := s.client.Call(&json.RawMessage{}, "engine_getPayloadV1", unittest.PayloadIDFixture())
	s.Require().Error(err)
}

// TestHTTPMetrics verifies that served requests are recorded.
func (s *ServerSuite) TestHTTPMetrics() {
	block := json.RawMessage(`{}`)
	s.api.On("GetBlockByNumber", mock.Anything, ethrpc.BlockNumber(1), false).Return(block, nil).Once()
	s.Require().NoError(s.client.Call(&json.RawMessage{}, "eth_getBlockByNumber", "0x1", false))

	count, err := testutil.GatherAndCount(s.registry, "rollup_boost_http_request_duration_seconds")
	s.Require().NoError(err)
	s.Assert().Equal(1, count)
}

// TestCORS verifies that preflight requests are only allowed for the configured origins.
func (s *ServerSuite) TestCORS() {
	preflight := func(origin string) *http.Response {
		req, err := http.NewRequest(http.MethodOptions, fmt.Sprintf("http://%s", s.server.Addr()), nil)
		s.Require().NoError(err)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		resp, err := http.DefaultClient.Do(req)
		s.Require().NoError(err)
		s.Require().NoError(resp.Body.Close())
		return resp
	}

	s.Assert().Equal(allowedOrigin, preflight(allowedOrigin).Header.Get("Access-Control-Allow-Origin"))
	s.Assert().Empty(preflight("https://elsewhere.example").Header.Get("Access-Control-Allow-Origin"))
}

// TestServer_NoCORS verifies that without allowed origins no cross origin headers are sent.
func TestServer_NoCORS(t *testing.T) {
	server, err := NewServer(unittest.Logger(), metrics.NewNoopCollector(), mockmodule.NewEngineAPI(t), Config{ListenAddress: "127.0.0.1:0"})
	require.NoError(t, err)

	signalerCtx, cancel := irrecoverable.NewMockSignalerContextWithCancel(t, context.Background())
	unittest.StartComponents(t, signalerCtx, time.Second, server)
	defer unittest.StopComponents(t, cancel, 2*time.Second, server)

	req, err := http.NewRequest(http.MethodOptions, fmt.Sprintf("http://%s", server.Addr()), nil)
	require.NoError(t, err)
	req.Header.Set("Origin", allowedOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
