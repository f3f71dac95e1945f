package unittest

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand"

	"github.com/ethereum/go-ethereum/beacon/engine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/cody-wang-cb/rollup-boost/model/flashblocks"
	"github.com/cody-wang-cb/rollup-boost/model/payload"
)

func randomBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}

func PayloadIDFixture() engine.PayloadID {
	var id engine.PayloadID
	copy(id[:], randomBytes(len(id)))
	return id
}

func HashFixture() common.Hash {
	return common.BytesToHash(randomBytes(common.HashLength))
}

func AddressFixture() common.Address {
	return common.BytesToAddress(randomBytes(common.AddressLength))
}

func BloomFixture() types.Bloom {
	return types.BytesToBloom(randomBytes(types.BloomByteLength))
}

// TransactionFixture returns an opaque encoded transaction.
func TransactionFixture() hexutil.Bytes {
	return randomBytes(32 + mrand.Intn(96))
}

func TransactionsFixture(n int) []hexutil.Bytes {
	txs := make([]hexutil.Bytes, 0, n)
	for i := 0; i < n; i++ {
		txs = append(txs, TransactionFixture())
	}
	return txs
}

func WithdrawalFixture() *types.Withdrawal {
	return &types.Withdrawal{
		Index:     mrand.Uint64(),
		Validator: mrand.Uint64(),
		Address:   AddressFixture(),
		Amount:    mrand.Uint64(),
	}
}

func BaseFixture(opts ...func(*flashblocks.ExecutionPayloadBaseV1)) *flashblocks.ExecutionPayloadBaseV1 {
	base := &flashblocks.ExecutionPayloadBaseV1{
		ParentBeaconBlockRoot: HashFixture(),
		ParentHash:            HashFixture(),
		FeeRecipient:          AddressFixture(),
		PrevRandao:            HashFixture(),
		BlockNumber:           hexutil.Uint64(mrand.Uint32()),
		GasLimit:              30_000_000,
		Timestamp:             hexutil.Uint64(1_700_000_000 + mrand.Intn(1_000_000)),
		ExtraData:             randomBytes(8),
		BaseFeePerGas:         (*hexutil.Big)(big.NewInt(1_000_000_000)),
	}
	for _, apply := range opts {
		apply(base)
	}
	return base
}

func WithBlockNumber(number uint64) func(*flashblocks.ExecutionPayloadBaseV1) {
	return func(base *flashblocks.ExecutionPayloadBaseV1) {
		base.BlockNumber = hexutil.Uint64(number)
	}
}

func DeltaFixture(opts ...func(*flashblocks.ExecutionPayloadFlashblockDeltaV1)) flashblocks.ExecutionPayloadFlashblockDeltaV1 {
	delta := flashblocks.ExecutionPayloadFlashblockDeltaV1{
		StateRoot:       HashFixture(),
		ReceiptsRoot:    HashFixture(),
		LogsBloom:       BloomFixture(),
		GasUsed:         hexutil.Uint64(21_000 * (1 + mrand.Intn(100))),
		BlockHash:       HashFixture(),
		Transactions:    TransactionsFixture(2),
		Withdrawals:     []*types.Withdrawal{},
		WithdrawalsRoot: HashFixture(),
	}
	for _, apply := range opts {
		apply(&delta)
	}
	return delta
}

func WithGasUsed(gasUsed uint64) func(*flashblocks.ExecutionPayloadFlashblockDeltaV1) {
	return func(delta *flashblocks.ExecutionPayloadFlashblockDeltaV1) {
		delta.GasUsed = hexutil.Uint64(gasUsed)
	}
}

func WithTransactions(txs ...hexutil.Bytes) func(*flashblocks.ExecutionPayloadFlashblockDeltaV1) {
	return func(delta *flashblocks.ExecutionPayloadFlashblockDeltaV1) {
		delta.Transactions = txs
	}
}

func WithWithdrawals(withdrawals ...*types.Withdrawal) func(*flashblocks.ExecutionPayloadFlashblockDeltaV1) {
	return func(delta *flashblocks.ExecutionPayloadFlashblockDeltaV1) {
		delta.Withdrawals = withdrawals
	}
}

// FlashblockFixture returns a flashblock of the given job. The flashblock with index 0 carries
// a base, all others don't.
func FlashblockFixture(id engine.PayloadID, index uint64, opts ...func(*flashblocks.FlashblocksPayloadV1)) *flashblocks.FlashblocksPayloadV1 {
	p := &flashblocks.FlashblocksPayloadV1{
		PayloadID: id,
		Index:     index,
		Diff:      DeltaFixture(),
	}
	if index == 0 {
		p.Base = BaseFixture()
	}
	for _, apply := range opts {
		apply(p)
	}
	return p
}

// FlashblockSequenceFixture returns the flashblocks 0..n-1 of the given job.
func FlashblockSequenceFixture(id engine.PayloadID, n int) []*flashblocks.FlashblocksPayloadV1 {
	seq := make([]*flashblocks.FlashblocksPayloadV1, 0, n)
	for i := 0; i < n; i++ {
		seq = append(seq, FlashblockFixture(id, uint64(i)))
	}
	return seq
}

func WithBase(base *flashblocks.ExecutionPayloadBaseV1) func(*flashblocks.FlashblocksPayloadV1) {
	return func(p *flashblocks.FlashblocksPayloadV1) {
		p.Base = base
	}
}

func WithDiff(diff flashblocks.ExecutionPayloadFlashblockDeltaV1) func(*flashblocks.FlashblocksPayloadV1) {
	return func(p *flashblocks.FlashblocksPayloadV1) {
		p.Diff = diff
	}
}

func WithMetadata(metadata string) func(*flashblocks.FlashblocksPayloadV1) {
	return func(p *flashblocks.FlashblocksPayloadV1) {
		p.Metadata = []byte(metadata)
	}
}

func ExecutionPayloadFixture() payload.ExecutionPayloadV3 {
	return payload.ExecutionPayloadV3{
		ExecutionPayloadV2: payload.ExecutionPayloadV2{
			ExecutionPayloadV1: payload.ExecutionPayloadV1{
				ParentHash:    HashFixture(),
				FeeRecipient:  AddressFixture(),
				StateRoot:     HashFixture(),
				ReceiptsRoot:  HashFixture(),
				LogsBloom:     BloomFixture(),
				PrevRandao:    HashFixture(),
				BlockNumber:   hexutil.Uint64(mrand.Uint32()),
				GasLimit:      30_000_000,
				GasUsed:       hexutil.Uint64(mrand.Intn(30_000_000)),
				Timestamp:     hexutil.Uint64(1_700_000_000 + mrand.Intn(1_000_000)),
				ExtraData:     randomBytes(8),
				BaseFeePerGas: (*hexutil.Big)(big.NewInt(1_000_000_000)),
				BlockHash:     HashFixture(),
				Transactions:  TransactionsFixture(3),
			},
			Withdrawals: []*types.Withdrawal{},
		},
	}
}

// EnvelopeFixture returns an envelope of the given version as an execution engine would build it.
func EnvelopeFixture(version payload.PayloadVersion) *payload.OpExecutionPayloadEnvelope {
	env, err := payload.NewEnvelope(version, ExecutionPayloadFixture(), HashFixture(), HashFixture())
	if err != nil {
		panic(err)
	}
	return env
}

func ForkchoiceStateFixture() engine.ForkchoiceStateV1 {
	return engine.ForkchoiceStateV1{
		HeadBlockHash:      HashFixture(),
		SafeBlockHash:      HashFixture(),
		FinalizedBlockHash: HashFixture(),
	}
}

func PayloadAttributesFixture() *payload.OpPayloadAttributes {
	return &payload.OpPayloadAttributes{
		Timestamp:             hexutil.Uint64(1_700_000_000 + mrand.Intn(1_000_000)),
		PrevRandao:            HashFixture(),
		SuggestedFeeRecipient: AddressFixture(),
		Withdrawals:           []*types.Withdrawal{},
		ParentBeaconBlockRoot: func() *common.Hash { h := HashFixture(); return &h }(),
		Transactions:          TransactionsFixture(1),
		NoTxPool:              false,
		GasLimit:              func() *hexutil.Uint64 { g := hexutil.Uint64(30_000_000); return &g }(),
	}
}

// ForkChoiceResponseFixture returns a valid fork choice response, starting a build job if id is given.
func ForkChoiceResponseFixture(id *engine.PayloadID) *engine.ForkChoiceResponse {
	head := HashFixture()
	return &engine.ForkChoiceResponse{
		PayloadStatus: engine.PayloadStatusV1{
			Status:          engine.VALID,
			LatestValidHash: &head,
		},
		PayloadID: id,
	}
}
