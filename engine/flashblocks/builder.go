package flashblocks

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/cody-wang-cb/rollup-boost/model/flashblocks"
	"github.com/cody-wang-cb/rollup-boost/model/payload"
)

// Builder accumulates the flashblocks of a single build job into one execution payload.
//
// Invariants:
//   - deltas[i] was taken from the flashblock with index i, without gaps
//   - base is set iff the flashblock with index 0 has been accepted
//
// Accepted deltas are never removed; the only way to discard accumulated state is to
// start over with a new Builder.
// Builder is NOT concurrency safe.
type Builder struct {
	base   *flashblocks.ExecutionPayloadBaseV1
	deltas []flashblocks.ExecutionPayloadFlashblockDeltaV1
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Len returns the number of accepted flashblocks, which is also the index expected next.
func (b *Builder) Len() int {
	return len(b.deltas)
}

// IsEmpty returns true if no flashblock has been accepted yet.
func (b *Builder) IsEmpty() bool {
	return b.base == nil && len(b.deltas) == 0
}

// Extend validates the given flashblock against the accumulated state and folds it in.
// The flashblock is fully validated before any state is touched, so a rejected flashblock
// leaves the builder unchanged.
// Expected errors during normal operations:
//   - ErrMissingBasePayload if the flashblock has index 0 but no base
//   - ErrUnexpectedBasePayload if the flashblock has a non-zero index and carries a base
//   - InvalidIndexError (matching ErrInvalidIndex) if the index is not the next expected one
func (b *Builder) Extend(p *flashblocks.FlashblocksPayloadV1) error {
	if p.Index == 0 && p.Base == nil {
		return ErrMissingBasePayload
	}
	if p.Index != 0 && p.Base != nil {
		return ErrUnexpectedBasePayload
	}

	expected := uint64(len(b.deltas))
	if p.Index != expected {
		return InvalidIndexError{Expected: expected, Actual: p.Index}
	}

	if p.Index == 0 {
		b.base = p.Base
	}
	b.deltas = append(b.deltas, p.Diff)
	return nil
}

// IntoEnvelope materializes the accumulated flashblocks into an envelope of the given version.
// Transactions and withdrawals are concatenated over all flashblocks in order. The roots, bloom,
// gas used and block hash describe the cumulative block state, so only the values of the latest
// flashblock are used.
// The builder must not be used after calling IntoEnvelope.
// Expected errors during normal operations:
//   - ErrMissingPayload if no base was ever captured
//   - ErrMissingDelta if no flashblock was accumulated
//   - UnsupportedVersionError if the version is unknown
func (b *Builder) IntoEnvelope(version payload.PayloadVersion) (*payload.OpExecutionPayloadEnvelope, error) {
	if !version.Valid() {
		return nil, UnsupportedVersionError{Version: version}
	}
	base := b.base
	if base == nil {
		return nil, ErrMissingPayload
	}
	if len(b.deltas) == 0 {
		return nil, ErrMissingDelta
	}
	latest := b.deltas[len(b.deltas)-1]

	var (
		txCount         int
		withdrawalCount int
	)
	for _, d := range b.deltas {
		txCount += len(d.Transactions)
		withdrawalCount += len(d.Withdrawals)
	}
	transactions := make([]hexutil.Bytes, 0, txCount)
	withdrawals := make([]*types.Withdrawal, 0, withdrawalCount)
	for _, d := range b.deltas {
		transactions = append(transactions, d.Transactions...)
		withdrawals = append(withdrawals, d.Withdrawals...)
	}

	executionPayload := payload.ExecutionPayloadV3{
		ExecutionPayloadV2: payload.ExecutionPayloadV2{
			ExecutionPayloadV1: payload.ExecutionPayloadV1{
				ParentHash:    base.ParentHash,
				FeeRecipient:  base.FeeRecipient,
				StateRoot:     latest.StateRoot,
				ReceiptsRoot:  latest.ReceiptsRoot,
				LogsBloom:     latest.LogsBloom,
				PrevRandao:    base.PrevRandao,
				BlockNumber:   base.BlockNumber,
				GasLimit:      base.GasLimit,
				GasUsed:       latest.GasUsed,
				Timestamp:     base.Timestamp,
				ExtraData:     base.ExtraData,
				BaseFeePerGas: base.BaseFeePerGas,
				BlockHash:     latest.BlockHash,
				Transactions:  transactions,
			},
			Withdrawals: withdrawals,
		},
		BlobGasUsed:   0,
		ExcessBlobGas: 0,
	}

	return payload.NewEnvelope(version, executionPayload, latest.WithdrawalsRoot, base.ParentBeaconBlockRoot)
}
