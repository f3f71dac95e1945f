package payload

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// ExecutionPayloadV1 is the Paris execution payload.
type ExecutionPayloadV1 struct {
	ParentHash    common.Hash     `json:"parentHash"`
	FeeRecipient  common.Address  `json:"feeRecipient"`
	StateRoot     common.Hash     `json:"stateRoot"`
	ReceiptsRoot  common.Hash     `json:"receiptsRoot"`
	LogsBloom     types.Bloom     `json:"logsBloom"`
	PrevRandao    common.Hash     `json:"prevRandao"`
	BlockNumber   hexutil.Uint64  `json:"blockNumber"`
	GasLimit      hexutil.Uint64  `json:"gasLimit"`
	GasUsed       hexutil.Uint64  `json:"gasUsed"`
	Timestamp     hexutil.Uint64  `json:"timestamp"`
	ExtraData     hexutil.Bytes   `json:"extraData"`
	BaseFeePerGas *hexutil.Big    `json:"baseFeePerGas"`
	BlockHash     common.Hash     `json:"blockHash"`
	Transactions  []hexutil.Bytes `json:"transactions"`
}

// ExecutionPayloadV2 is the Shanghai execution payload.
type ExecutionPayloadV2 struct {
	ExecutionPayloadV1
	Withdrawals []*types.Withdrawal `json:"withdrawals"`
}

// ExecutionPayloadV3 is the Cancun execution payload. OP stack chains carry no blobs,
// so both blob gas fields are always zero for locally assembled payloads.
type ExecutionPayloadV3 struct {
	ExecutionPayloadV2
	BlobGasUsed   hexutil.Uint64 `json:"blobGasUsed"`
	ExcessBlobGas hexutil.Uint64 `json:"excessBlobGas"`
}

// OpExecutionPayloadV4 is the Isthmus execution payload, which commits to the
// L2ToL1MessagePasser storage root in the withdrawals root field.
type OpExecutionPayloadV4 struct {
	ExecutionPayloadV3
	WithdrawalsRoot common.Hash `json:"withdrawalsRoot"`
}
