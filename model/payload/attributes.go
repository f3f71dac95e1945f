package payload

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// OpPayloadAttributes are the payload attributes of engine_forkchoiceUpdatedV3 extended
// with the OP stack fields.
type OpPayloadAttributes struct {
	Timestamp             hexutil.Uint64      `json:"timestamp"`
	PrevRandao            common.Hash         `json:"prevRandao"`
	SuggestedFeeRecipient common.Address      `json:"suggestedFeeRecipient"`
	Withdrawals           []*types.Withdrawal `json:"withdrawals"`
	ParentBeaconBlockRoot *common.Hash        `json:"parentBeaconBlockRoot"`

	Transactions  []hexutil.Bytes `json:"transactions,omitempty"`
	NoTxPool      bool            `json:"noTxPool,omitempty"`
	GasLimit      *hexutil.Uint64 `json:"gasLimit,omitempty"`
	EIP1559Params hexutil.Bytes   `json:"eip1559Params,omitempty"`
}
