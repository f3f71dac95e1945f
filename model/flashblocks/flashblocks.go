package flashblocks

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/beacon/engine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// ExecutionPayloadBaseV1 holds the block fields fixed when a build job starts.
// Only the first flashblock (index 0) of a job carries it.
type ExecutionPayloadBaseV1 struct {
	// ParentBeaconBlockRoot is not part of the execution payload; it is only used
	// in the envelope wrapping the final payload.
	ParentBeaconBlockRoot common.Hash    `json:"parent_beacon_block_root"`
	ParentHash            common.Hash    `json:"parent_hash"`
	FeeRecipient          common.Address `json:"fee_recipient"`
	PrevRandao            common.Hash    `json:"prev_randao"`
	BlockNumber           hexutil.Uint64 `json:"block_number"`
	GasLimit              hexutil.Uint64 `json:"gas_limit"`
	Timestamp             hexutil.Uint64 `json:"timestamp"`
	ExtraData             hexutil.Bytes  `json:"extra_data"`
	BaseFeePerGas         *hexutil.Big   `json:"base_fee_per_gas"`
}

// ExecutionPayloadFlashblockDeltaV1 holds the block fields refined or extended by a flashblock.
// Roots, bloom, gas used and block hash describe the cumulative block state up to and including
// this flashblock. Transactions and withdrawals are only the ones added by this flashblock.
type ExecutionPayloadFlashblockDeltaV1 struct {
	StateRoot       common.Hash         `json:"state_root"`
	ReceiptsRoot    common.Hash         `json:"receipts_root"`
	LogsBloom       types.Bloom         `json:"logs_bloom"`
	GasUsed         hexutil.Uint64      `json:"gas_used"`
	BlockHash       common.Hash         `json:"block_hash"`
	Transactions    []hexutil.Bytes     `json:"transactions"`
	Withdrawals     []*types.Withdrawal `json:"withdrawals"`
	WithdrawalsRoot common.Hash         `json:"withdrawals_root"`
}

// FlashblocksPayloadV1 is one increment of a block under construction.
type FlashblocksPayloadV1 struct {
	// PayloadID correlates the flashblock to the build job announced by the engine.
	PayloadID engine.PayloadID `json:"payload_id"`
	// Index is the zero-based position of the flashblock within the job.
	Index uint64                            `json:"index"`
	Base  *ExecutionPayloadBaseV1           `json:"base,omitempty"`
	Diff  ExecutionPayloadFlashblockDeltaV1 `json:"diff"`
	// Metadata is opaque builder data, relayed to subscribers untouched.
	Metadata json.RawMessage `json:"metadata,omitempty"`
}
