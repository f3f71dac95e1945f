package module

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/beacon/engine"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/cody-wang-cb/rollup-boost/model/payload"
)

// EngineAPI is the subset of the execution engine API a consensus client drives block
// production with. It is implemented by the RPC client of the execution engine, and by the
// flashblocks engine which wraps such a client.
type EngineAPI interface {
	// ForkchoiceUpdatedV3 updates the fork choice and, with attributes, starts a new build job.
	ForkchoiceUpdatedV3(ctx context.Context, state engine.ForkchoiceStateV1, attrs *payload.OpPayloadAttributes) (*engine.ForkChoiceResponse, error)

	// NewPayload submits a complete payload for validation.
	NewPayload(ctx context.Context, p *payload.NewPayload) (*engine.PayloadStatusV1, error)

	// GetPayload returns the payload built for the given job in the requested envelope version.
	GetPayload(ctx context.Context, id engine.PayloadID, version payload.PayloadVersion) (*payload.OpExecutionPayloadEnvelope, error)

	// GetBlockByNumber returns the block at the given height, verbatim as served by the engine.
	GetBlockByNumber(ctx context.Context, number rpc.BlockNumber, fullTx bool) (json.RawMessage, error)
}
