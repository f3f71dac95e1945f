package cmd

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/beacon/engine"
	ethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cody-wang-cb/rollup-boost/config"
	"github.com/cody-wang-cb/rollup-boost/model/flashblocks"
	"github.com/cody-wang-cb/rollup-boost/model/payload"
	"github.com/cody-wang-cb/rollup-boost/utils/unittest"
)

type unknownPayloadError struct{}

func (unknownPayloadError) Error() string  { return "Unknown payload" }
func (unknownPayloadError) ErrorCode() int { return -38001 }

// fakeEngine starts a build job with a fixed id and knows no payloads.
type fakeEngine struct {
	job engine.PayloadID
}

func (f *fakeEngine) ForkchoiceUpdatedV3(state engine.ForkchoiceStateV1, attrs *payload.OpPayloadAttributes) (*engine.ForkChoiceResponse, error) {
	resp := unittest.ForkChoiceResponseFixture(nil)
	if attrs != nil {
		id := f.job
		resp.PayloadID = &id
	}
	return resp, nil
}

func (f *fakeEngine) GetPayloadV3(id engine.PayloadID) (*payload.OpExecutionPayloadEnvelopeV3, error) {
	return nil, unknownPayloadError{}
}

// fakeBuilder streams the given flashblocks to every connection once started is closed.
func fakeBuilder(t *testing.T, started <-chan struct{}, seq []*flashblocks.FlashblocksPayloadV1) *httptest.Server {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		<-started
		for _, fb := range seq {
			if err := conn.WriteJSON(fb); err != nil {
				return
			}
		}
		// keep the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T, dir string, engineURL string, builderURL string) *config.Config {
	secret := filepath.Join(dir, "jwt.hex")
	require.NoError(t, os.WriteFile(secret, []byte(strings.Repeat("ab", 32)), 0600))

	cfg := config.DefaultConfig()
	cfg.EngineURL = engineURL
	cfg.EngineJWTSecret = secret
	cfg.FlashblocksURL = "ws" + strings.TrimPrefix(builderURL, "http")
	cfg.FlashblocksRetryDelay = 10 * time.Millisecond
	cfg.FlashblocksMaxRetryDelay = 50 * time.Millisecond
	cfg.RPCListenAddress = "127.0.0.1:0"
	cfg.OutboundListenAddress = "127.0.0.1:0"
	cfg.MetricsListenAddress = "127.0.0.1:0"
	return cfg
}

// TestNode_AssemblesFlashblocks runs the node between a fake execution engine and a fake
// block builder, and drives a block production round trip through the JSON-RPC server.
func TestNode_AssemblesFlashblocks(t *testing.T) {
	unittest.RunWithTempDir(t, func(dir string) {
		job := unittest.PayloadIDFixture()
		seq := unittest.FlashblockSequenceFixture(job, 3)

		rpcServer := ethrpc.NewServer()
		require.NoError(t, rpcServer.RegisterName("engine", &fakeEngine{job: job}))
		engineServer := httptest.NewServer(rpcServer)
		t.Cleanup(func() {
			engineServer.Close()
			rpcServer.Stop()
		})

		started := make(chan struct{})
		builder := fakeBuilder(t, started, seq)

		node, err := NewNode(unittest.Logger(), testConfig(t, dir, engineServer.URL, builder.URL))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		runErr := make(chan error, 1)
		go func() { runErr <- node.Run(ctx) }()
		unittest.RequireCloseBefore(t, node.Ready(), 5*time.Second, "node did not start")

		subscriber, _, err := websocket.DefaultDialer.Dial("ws://"+node.Publisher.Addr().String(), nil)
		require.NoError(t, err)
		defer subscriber.Close()
		require.Eventually(t, func() bool { return node.Publisher.SubscriberCount() == 1 }, 5*time.Second, 10*time.Millisecond)

		client, err := ethrpc.DialHTTP("http://" + node.RPC.Addr().String())
		require.NoError(t, err)
		defer client.Close()

		var fcu engine.ForkChoiceResponse
		require.NoError(t, client.Call(&fcu, "engine_forkchoiceUpdatedV3", unittest.ForkchoiceStateFixture(), unittest.PayloadAttributesFixture()))
		require.NotNil(t, fcu.PayloadID)
		require.Equal(t, job, *fcu.PayloadID)
		close(started)

		// every flashblock is republished once accepted
		for _, expected := range seq {
			require.NoError(t, subscriber.SetReadDeadline(time.Now().Add(5*time.Second)))
			var received flashblocks.FlashblocksPayloadV1
			require.NoError(t, subscriber.ReadJSON(&received))
			assert.Equal(t, expected.Index, received.Index)
			assert.Equal(t, expected.Diff.BlockHash, received.Diff.BlockHash)
		}

		var env payload.OpExecutionPayloadEnvelopeV3
		require.NoError(t, client.Call(&env, "engine_getPayloadV3", job))
		assert.Equal(t, seq[2].Diff.BlockHash, env.ExecutionPayload.BlockHash)
		assert.Equal(t, seq[0].Base.ParentBeaconBlockRoot, env.ParentBeaconBlockRoot)
		assert.Len(t, env.ExecutionPayload.Transactions, 3*len(seq[0].Diff.Transactions))

		// the build was consumed, the engine is asked next and knows nothing
		err = client.Call(&env, "engine_getPayloadV3", job)
		var rpcErr ethrpc.Error
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, -38001, rpcErr.ErrorCode())

		resp, err := http.Get("http://" + node.Metrics.Addr().String() + "/metrics")
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, resp.Body.Close())
		require.NoError(t, err)
		assert.Contains(t, string(body), "rollup_boost_flashblocks_accepted_total 3")
		assert.Contains(t, string(body), "go_goroutines")

		cancel()
		select {
		case err := <-runErr:
			require.NoError(t, err)
		case <-time.After(10 * time.Second):
			require.Fail(t, "node did not shut down")
		}
	})
}

func TestNode_MetricsDisabled(t *testing.T) {
	unittest.RunWithTempDir(t, func(dir string) {
		cfg := testConfig(t, dir, "http://127.0.0.1:1", "http://127.0.0.1:1")
		cfg.MetricsEnabled = false

		node, err := NewNode(unittest.Logger(), cfg)
		require.NoError(t, err)
		assert.Nil(t, node.Metrics)

		ctx, cancel := context.WithCancel(context.Background())
		runErr := make(chan error, 1)
		go func() { runErr <- node.Run(ctx) }()
		unittest.RequireCloseBefore(t, node.Ready(), 5*time.Second, "node did not start")

		cancel()
		select {
		case err := <-runErr:
			require.NoError(t, err)
		case <-time.After(10 * time.Second):
			require.Fail(t, "node did not shut down")
		}
	})
}

func TestNode_InvalidJWTSecret(t *testing.T) {
	unittest.RunWithTempDir(t, func(dir string) {
		cfg := testConfig(t, dir, "http://127.0.0.1:1", "http://127.0.0.1:1")
		require.NoError(t, os.WriteFile(cfg.EngineJWTSecret, []byte("not hex"), 0600))

		_, err := NewNode(unittest.Logger(), cfg)
		require.Error(t, err)
	})
}

func TestNewLogger(t *testing.T) {
	var out strings.Builder
	log, err := NewLogger(&out, "warn", "json")
	require.NoError(t, err)

	log.Info().Msg("hidden")
	log.Warn().Str("key", "value").Msg("shown")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out.String()), &line))
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "value", line["key"])

	_, err = NewLogger(&out, "loud", "json")
	assert.Error(t, err)
	_, err = NewLogger(&out, "info", "xml")
	assert.Error(t, err)
}

