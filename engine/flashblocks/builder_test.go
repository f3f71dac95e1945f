package flashblocks

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cody-wang-cb/rollup-boost/model/payload"
	"github.com/cody-wang-cb/rollup-boost/utils/unittest"
)

func TestBuilder_Extend(t *testing.T) {
	id := unittest.PayloadIDFixture()

	t.Run("accepts a contiguous sequence", func(t *testing.T) {
		b := NewBuilder()
		require.True(t, b.IsEmpty())
		for i, p := range unittest.FlashblockSequenceFixture(id, 5) {
			require.NoError(t, b.Extend(p))
			assert.Equal(t, i+1, b.Len())
		}
		assert.False(t, b.IsEmpty())
	})

	t.Run("initial flashblock without base", func(t *testing.T) {
		b := NewBuilder()
		err := b.Extend(unittest.FlashblockFixture(id, 0, unittest.WithBase(nil)))
		require.ErrorIs(t, err, ErrMissingBasePayload)
		assert.True(t, IsValidationError(err))
		assert.True(t, b.IsEmpty())
	})

	t.Run("non-initial flashblock with base", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.Extend(unittest.FlashblockFixture(id, 0)))

		err := b.Extend(unittest.FlashblockFixture(id, 1, unittest.WithBase(unittest.BaseFixture())))
		require.ErrorIs(t, err, ErrUnexpectedBasePayload)
		assert.Equal(t, 1, b.Len())
	})

	t.Run("first flashblock is not index 0", func(t *testing.T) {
		b := NewBuilder()
		err := b.Extend(unittest.FlashblockFixture(id, 1))
		require.ErrorIs(t, err, ErrInvalidIndex)
		assert.True(t, IsInvalidIndexError(err))
		assert.Equal(t, InvalidIndexError{Expected: 0, Actual: 1}, err)
		assert.True(t, b.IsEmpty())
	})

	t.Run("gap", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.Extend(unittest.FlashblockFixture(id, 0)))
		require.NoError(t, b.Extend(unittest.FlashblockFixture(id, 1)))

		err := b.Extend(unittest.FlashblockFixture(id, 3))
		require.ErrorIs(t, err, ErrInvalidIndex)
		assert.Equal(t, InvalidIndexError{Expected: 2, Actual: 3}, err)
		assert.Equal(t, 2, b.Len())

		// the expected flashblock is still accepted after a rejection
		require.NoError(t, b.Extend(unittest.FlashblockFixture(id, 2)))
		assert.Equal(t, 3, b.Len())
	})

	t.Run("duplicate", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.Extend(unittest.FlashblockFixture(id, 0)))
		require.NoError(t, b.Extend(unittest.FlashblockFixture(id, 1)))

		err := b.Extend(unittest.FlashblockFixture(id, 1))
		require.ErrorIs(t, err, ErrInvalidIndex)
		assert.Equal(t, 2, b.Len())
	})

	// a replayed initial flashblock must not replace the captured base
	t.Run("duplicate initial flashblock", func(t *testing.T) {
		b := NewBuilder()
		first := unittest.FlashblockFixture(id, 0)
		require.NoError(t, b.Extend(first))

		err := b.Extend(unittest.FlashblockFixture(id, 0))
		require.ErrorIs(t, err, ErrInvalidIndex)
		assert.Same(t, first.Base, b.base)
		assert.Equal(t, 1, b.Len())
	})
}

func TestBuilder_IntoEnvelope(t *testing.T) {
	id := unittest.PayloadIDFixture()

	t.Run("single flashblock", func(t *testing.T) {
		p := unittest.FlashblockFixture(id, 0)
		b := NewBuilder()
		require.NoError(t, b.Extend(p))

		env, err := b.IntoEnvelope(payload.PayloadVersionV3)
		require.NoError(t, err)
		require.Equal(t, payload.PayloadVersionV3, env.Version())

		exec := env.ExecutionPayload()
		assert.Equal(t, p.Base.ParentHash, exec.ParentHash)
		assert.Equal(t, p.Base.FeeRecipient, exec.FeeRecipient)
		assert.Equal(t, p.Base.PrevRandao, exec.PrevRandao)
		assert.Equal(t, p.Base.BlockNumber, exec.BlockNumber)
		assert.Equal(t, p.Base.GasLimit, exec.GasLimit)
		assert.Equal(t, p.Base.Timestamp, exec.Timestamp)
		assert.Equal(t, p.Base.ExtraData, exec.ExtraData)
		assert.Equal(t, p.Base.BaseFeePerGas, exec.BaseFeePerGas)
		assert.Equal(t, p.Diff.StateRoot, exec.StateRoot)
		assert.Equal(t, p.Diff.ReceiptsRoot, exec.ReceiptsRoot)
		assert.Equal(t, p.Diff.LogsBloom, exec.LogsBloom)
		assert.Equal(t, p.Diff.GasUsed, exec.GasUsed)
		assert.Equal(t, p.Diff.BlockHash, exec.BlockHash)
		assert.Equal(t, p.Diff.Transactions, exec.Transactions)
		assert.Equal(t, hexutil.Uint64(0), exec.BlobGasUsed)
		assert.Equal(t, hexutil.Uint64(0), exec.ExcessBlobGas)
	})

	t.Run("cumulative fields come from the latest flashblock", func(t *testing.T) {
		first := unittest.FlashblockFixture(id, 0, unittest.WithDiff(unittest.DeltaFixture(unittest.WithGasUsed(100))))
		second := unittest.FlashblockFixture(id, 1, unittest.WithDiff(unittest.DeltaFixture(unittest.WithGasUsed(250))))
		b := NewBuilder()
		require.NoError(t, b.Extend(first))
		require.NoError(t, b.Extend(second))

		env, err := b.IntoEnvelope(payload.PayloadVersionV3)
		require.NoError(t, err)

		exec := env.ExecutionPayload()
		assert.Equal(t, hexutil.Uint64(250), exec.GasUsed)
		assert.Equal(t, second.Diff.StateRoot, exec.StateRoot)
		assert.Equal(t, second.Diff.ReceiptsRoot, exec.ReceiptsRoot)
		assert.Equal(t, second.Diff.LogsBloom, exec.LogsBloom)
		assert.Equal(t, second.Diff.BlockHash, exec.BlockHash)
		assert.Equal(t, first.Base.ParentHash, exec.ParentHash)
	})

	t.Run("transactions and withdrawals are concatenated in order", func(t *testing.T) {
		txs := unittest.TransactionsFixture(5)
		w1, w2 := unittest.WithdrawalFixture(), unittest.WithdrawalFixture()

		b := NewBuilder()
		require.NoError(t, b.Extend(unittest.FlashblockFixture(id, 0, unittest.WithDiff(unittest.DeltaFixture(
			unittest.WithTransactions(txs[0], txs[1]),
			unittest.WithWithdrawals(w1),
		)))))
		require.NoError(t, b.Extend(unittest.FlashblockFixture(id, 1, unittest.WithDiff(unittest.DeltaFixture(
			unittest.WithTransactions(),
			unittest.WithWithdrawals(),
		)))))
		require.NoError(t, b.Extend(unittest.FlashblockFixture(id, 2, unittest.WithDiff(unittest.DeltaFixture(
			unittest.WithTransactions(txs[2], txs[3], txs[4]),
			unittest.WithWithdrawals(w2),
		)))))

		env, err := b.IntoEnvelope(payload.PayloadVersionV3)
		require.NoError(t, err)
		assert.Equal(t, txs, env.ExecutionPayload().Transactions)
		assert.Equal(t, []*types.Withdrawal{w1, w2}, env.ExecutionPayload().Withdrawals)
	})

	t.Run("v3 wrapper", func(t *testing.T) {
		p := unittest.FlashblockFixture(id, 0)
		b := NewBuilder()
		require.NoError(t, b.Extend(p))

		env, err := b.IntoEnvelope(payload.PayloadVersionV3)
		require.NoError(t, err)

		v3, ok := env.V3()
		require.True(t, ok)
		_, ok = env.V4()
		assert.False(t, ok)
		assert.Equal(t, p.Base.ParentBeaconBlockRoot, v3.ParentBeaconBlockRoot)
		assert.Zero(t, v3.BlockValue.ToInt().Sign())
		assert.Empty(t, v3.BlobsBundle.Commitments)
		assert.Empty(t, v3.BlobsBundle.Proofs)
		assert.Empty(t, v3.BlobsBundle.Blobs)
		assert.False(t, v3.ShouldOverrideBuilder)

		encoded, err := json.Marshal(env)
		require.NoError(t, err)
		assert.NotContains(t, string(encoded), "executionRequests")
		assert.NotContains(t, string(encoded), "withdrawalsRoot")
	})

	t.Run("v4 wrapper", func(t *testing.T) {
		first := unittest.FlashblockFixture(id, 0)
		second := unittest.FlashblockFixture(id, 1)
		b := NewBuilder()
		require.NoError(t, b.Extend(first))
		require.NoError(t, b.Extend(second))

		env, err := b.IntoEnvelope(payload.PayloadVersionV4)
		require.NoError(t, err)

		v4, ok := env.V4()
		require.True(t, ok)
		assert.Equal(t, second.Diff.WithdrawalsRoot, v4.ExecutionPayload.WithdrawalsRoot)
		assert.Equal(t, first.Base.ParentBeaconBlockRoot, v4.ParentBeaconBlockRoot)
		assert.NotNil(t, v4.ExecutionRequests)
		assert.Empty(t, v4.ExecutionRequests)
		assert.Zero(t, v4.BlockValue.ToInt().Sign())
		assert.False(t, v4.ShouldOverrideBuilder)

		encoded, err := json.Marshal(env)
		require.NoError(t, err)
		assert.Contains(t, string(encoded), `"executionRequests":[]`)
		assert.Contains(t, string(encoded), `"withdrawalsRoot"`)
	})

	t.Run("empty builder", func(t *testing.T) {
		_, err := NewBuilder().IntoEnvelope(payload.PayloadVersionV3)
		require.ErrorIs(t, err, ErrMissingPayload)
	})

	t.Run("base without deltas", func(t *testing.T) {
		b := &Builder{base: unittest.BaseFixture()}
		_, err := b.IntoEnvelope(payload.PayloadVersionV3)
		require.ErrorIs(t, err, ErrMissingDelta)
	})

	t.Run("unsupported version", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.Extend(unittest.FlashblockFixture(id, 0)))
		_, err := b.IntoEnvelope(payload.PayloadVersion(7))
		require.True(t, IsUnsupportedVersionError(err))
	})
}
