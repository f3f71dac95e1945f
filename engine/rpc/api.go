package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/beacon/engine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/cody-wang-cb/rollup-boost/model/payload"
	"github.com/cody-wang-cb/rollup-boost/module"
)

// EngineAPI serves the `engine` namespace of the JSON-RPC API.
type EngineAPI struct {
	api module.EngineAPI
}

func NewEngineAPI(api module.EngineAPI) *EngineAPI {
	return &EngineAPI{api: api}
}

// ForkchoiceUpdatedV3 serves engine_forkchoiceUpdatedV3.
func (a *EngineAPI) ForkchoiceUpdatedV3(ctx context.Context, state engine.ForkchoiceStateV1, attrs *payload.OpPayloadAttributes) (*engine.ForkChoiceResponse, error) {
	resp, err := a.api.ForkchoiceUpdatedV3(ctx, state, attrs)
	return resp, toRPCError(err)
}

// NewPayloadV3 serves engine_newPayloadV3.
func (a *EngineAPI) NewPayloadV3(ctx context.Context, executionPayload payload.ExecutionPayloadV3, versionedHashes []common.Hash, parentBeaconBlockRoot common.Hash) (*engine.PayloadStatusV1, error) {
	status, err := a.api.NewPayload(ctx, &payload.NewPayload{
		Version: payload.PayloadVersionV3,
		V3: &payload.NewPayloadV3{
			ExecutionPayload:      executionPayload,
			VersionedHashes:       versionedHashes,
			ParentBeaconBlockRoot: parentBeaconBlockRoot,
		},
	})
	return status, toRPCError(err)
}

// NewPayloadV4 serves engine_newPayloadV4.
func (a *EngineAPI) NewPayloadV4(ctx context.Context, executionPayload payload.OpExecutionPayloadV4, versionedHashes []common.Hash, parentBeaconBlockRoot common.Hash, executionRequests []hexutil.Bytes) (*engine.PayloadStatusV1, error) {
	status, err := a.api.NewPayload(ctx, &payload.NewPayload{
		Version: payload.PayloadVersionV4,
		V4: &payload.NewPayloadV4{
			ExecutionPayload:      executionPayload,
			VersionedHashes:       versionedHashes,
			ParentBeaconBlockRoot: parentBeaconBlockRoot,
			ExecutionRequests:     executionRequests,
		},
	})
	return status, toRPCError(err)
}

// GetPayloadV3 serves engine_getPayloadV3.
func (a *EngineAPI) GetPayloadV3(ctx context.Context, id engine.PayloadID) (*payload.OpExecutionPayloadEnvelopeV3, error) {
	env, err := a.api.GetPayload(ctx, id, payload.PayloadVersionV3)
	if err != nil {
		return nil, toRPCError(err)
	}
	v3, ok := env.V3()
	if !ok {
		return nil, fmt.Errorf("payload %s was built as %s instead of v3", id, env.Version())
	}
	return v3, nil
}

// GetPayloadV4 serves engine_getPayloadV4.
func (a *EngineAPI) GetPayloadV4(ctx context.Context, id engine.PayloadID) (*payload.OpExecutionPayloadEnvelopeV4, error) {
	env, err := a.api.GetPayload(ctx, id, payload.PayloadVersionV4)
	if err != nil {
		return nil, toRPCError(err)
	}
	v4, ok := env.V4()
	if !ok {
		return nil, fmt.Errorf("payload %s was built as %s instead of v4", id, env.Version())
	}
	return v4, nil
}

// EthAPI serves the subset of the `eth` namespace a consensus client needs.
type EthAPI struct {
	api module.EngineAPI
}

func NewEthAPI(api module.EngineAPI) *EthAPI {
	return &EthAPI{api: api}
}

// GetBlockByNumber serves eth_getBlockByNumber.
func (a *EthAPI) GetBlockByNumber(ctx context.Context, number ethrpc.BlockNumber, fullTx bool) (json.RawMessage, error) {
	block, err := a.api.GetBlockByNumber(ctx, number, fullTx)
	return block, toRPCError(err)
}
