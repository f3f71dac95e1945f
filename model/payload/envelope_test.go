package payload_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cody-wang-cb/rollup-boost/model/payload"
	"github.com/cody-wang-cb/rollup-boost/utils/unittest"
)

func TestNewEnvelope(t *testing.T) {
	exec := unittest.ExecutionPayloadFixture()
	withdrawalsRoot := unittest.HashFixture()
	beaconRoot := unittest.HashFixture()

	t.Run("v3", func(t *testing.T) {
		env, err := payload.NewEnvelope(payload.PayloadVersionV3, exec, withdrawalsRoot, beaconRoot)
		require.NoError(t, err)
		assert.Equal(t, payload.PayloadVersionV3, env.Version())
		assert.Equal(t, exec, *env.ExecutionPayload())

		encoded, err := json.Marshal(env)
		require.NoError(t, err)

		var decoded map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(encoded, &decoded))
		assert.ElementsMatch(t,
			[]string{"executionPayload", "blockValue", "blobsBundle", "shouldOverrideBuilder", "parentBeaconBlockRoot"},
			keys(decoded))
		assert.JSONEq(t, `"0x0"`, string(decoded["blockValue"]))
		assert.JSONEq(t, `{"commitments":[],"proofs":[],"blobs":[]}`, string(decoded["blobsBundle"]))

		var roundTrip payload.OpExecutionPayloadEnvelopeV3
		require.NoError(t, json.Unmarshal(encoded, &roundTrip))
		assert.Equal(t, beaconRoot, roundTrip.ParentBeaconBlockRoot)
		assert.Equal(t, exec.BlockHash, roundTrip.ExecutionPayload.BlockHash)
	})

	t.Run("v4", func(t *testing.T) {
		env, err := payload.NewEnvelope(payload.PayloadVersionV4, exec, withdrawalsRoot, beaconRoot)
		require.NoError(t, err)
		assert.Equal(t, payload.PayloadVersionV4, env.Version())

		encoded, err := json.Marshal(env)
		require.NoError(t, err)

		var decoded map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(encoded, &decoded))
		assert.JSONEq(t, `[]`, string(decoded["executionRequests"]))

		var roundTrip payload.OpExecutionPayloadEnvelopeV4
		require.NoError(t, json.Unmarshal(encoded, &roundTrip))
		assert.Equal(t, withdrawalsRoot, roundTrip.ExecutionPayload.WithdrawalsRoot)
		assert.Equal(t, exec.Transactions, roundTrip.ExecutionPayload.Transactions)
	})

	t.Run("unsupported version", func(t *testing.T) {
		_, err := payload.NewEnvelope(payload.PayloadVersion(5), exec, withdrawalsRoot, beaconRoot)
		require.Error(t, err)
	})
}

func TestNewPayload_Validate(t *testing.T) {
	exec := unittest.ExecutionPayloadFixture()

	v3 := &payload.NewPayload{Version: payload.PayloadVersionV3, V3: &payload.NewPayloadV3{ExecutionPayload: exec}}
	require.NoError(t, v3.Validate())
	assert.Equal(t, exec.BlockHash, v3.BlockHash())

	v4 := &payload.NewPayload{Version: payload.PayloadVersionV4, V4: &payload.NewPayloadV4{
		ExecutionPayload: payload.OpExecutionPayloadV4{ExecutionPayloadV3: exec},
	}}
	require.NoError(t, v4.Validate())
	assert.Equal(t, exec.BlockHash, v4.BlockHash())

	mismatched := &payload.NewPayload{Version: payload.PayloadVersionV4, V3: &payload.NewPayloadV3{ExecutionPayload: exec}}
	assert.Error(t, mismatched.Validate())

	unknown := &payload.NewPayload{Version: payload.PayloadVersion(9)}
	assert.Error(t, unknown.Validate())
}

func keys(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
