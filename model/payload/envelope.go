package payload

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/beacon/engine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// OpExecutionPayloadEnvelopeV3 is the response of engine_getPayloadV3.
type OpExecutionPayloadEnvelopeV3 struct {
	ExecutionPayload      ExecutionPayloadV3    `json:"executionPayload"`
	BlockValue            *hexutil.Big          `json:"blockValue"`
	BlobsBundle           *engine.BlobsBundleV1 `json:"blobsBundle"`
	ShouldOverrideBuilder bool                  `json:"shouldOverrideBuilder"`
	ParentBeaconBlockRoot common.Hash           `json:"parentBeaconBlockRoot"`
}

// OpExecutionPayloadEnvelopeV4 is the response of engine_getPayloadV4.
type OpExecutionPayloadEnvelopeV4 struct {
	ExecutionPayload      OpExecutionPayloadV4  `json:"executionPayload"`
	BlockValue            *hexutil.Big          `json:"blockValue"`
	BlobsBundle           *engine.BlobsBundleV1 `json:"blobsBundle"`
	ShouldOverrideBuilder bool                  `json:"shouldOverrideBuilder"`
	ParentBeaconBlockRoot common.Hash           `json:"parentBeaconBlockRoot"`
	ExecutionRequests     []hexutil.Bytes       `json:"executionRequests"`
}

// OpExecutionPayloadEnvelope is a tagged variant over the supported envelope versions.
// Exactly one of the version specific envelopes is set, matching Version().
type OpExecutionPayloadEnvelope struct {
	version PayloadVersion
	v3      *OpExecutionPayloadEnvelopeV3
	v4      *OpExecutionPayloadEnvelopeV4
}

// NewEnvelopeV3 wraps a V3 envelope.
func NewEnvelopeV3(env *OpExecutionPayloadEnvelopeV3) *OpExecutionPayloadEnvelope {
	return &OpExecutionPayloadEnvelope{version: PayloadVersionV3, v3: env}
}

// NewEnvelopeV4 wraps a V4 envelope.
func NewEnvelopeV4(env *OpExecutionPayloadEnvelopeV4) *OpExecutionPayloadEnvelope {
	return &OpExecutionPayloadEnvelope{version: PayloadVersionV4, v4: env}
}

// NewEnvelope wraps a locally built execution payload into the envelope of the given version.
// The wrapper carries a zero block value, an empty blobs bundle, no override flag and, for V4,
// the withdrawals root and an empty list of execution requests.
func NewEnvelope(
	version PayloadVersion,
	executionPayload ExecutionPayloadV3,
	withdrawalsRoot common.Hash,
	parentBeaconBlockRoot common.Hash,
) (*OpExecutionPayloadEnvelope, error) {
	switch version {
	case PayloadVersionV3:
		return NewEnvelopeV3(&OpExecutionPayloadEnvelopeV3{
			ExecutionPayload:      executionPayload,
			BlockValue:            (*hexutil.Big)(new(big.Int)),
			BlobsBundle:           emptyBlobsBundle(),
			ShouldOverrideBuilder: false,
			ParentBeaconBlockRoot: parentBeaconBlockRoot,
		}), nil
	case PayloadVersionV4:
		return NewEnvelopeV4(&OpExecutionPayloadEnvelopeV4{
			ExecutionPayload: OpExecutionPayloadV4{
				ExecutionPayloadV3: executionPayload,
				WithdrawalsRoot:    withdrawalsRoot,
			},
			BlockValue:            (*hexutil.Big)(new(big.Int)),
			BlobsBundle:           emptyBlobsBundle(),
			ShouldOverrideBuilder: false,
			ParentBeaconBlockRoot: parentBeaconBlockRoot,
			ExecutionRequests:     []hexutil.Bytes{},
		}), nil
	default:
		return nil, fmt.Errorf("unsupported payload version %s", version)
	}
}

func emptyBlobsBundle() *engine.BlobsBundleV1 {
	return &engine.BlobsBundleV1{
		Commitments: []hexutil.Bytes{},
		Proofs:      []hexutil.Bytes{},
		Blobs:       []hexutil.Bytes{},
	}
}

// Version returns the envelope version tag.
func (e *OpExecutionPayloadEnvelope) Version() PayloadVersion {
	return e.version
}

// V3 returns the V3 envelope, if this is a V3 envelope.
func (e *OpExecutionPayloadEnvelope) V3() (*OpExecutionPayloadEnvelopeV3, bool) {
	return e.v3, e.version == PayloadVersionV3 && e.v3 != nil
}

// V4 returns the V4 envelope, if this is a V4 envelope.
func (e *OpExecutionPayloadEnvelope) V4() (*OpExecutionPayloadEnvelopeV4, bool) {
	return e.v4, e.version == PayloadVersionV4 && e.v4 != nil
}

// ExecutionPayload returns the execution payload shared by all envelope versions.
func (e *OpExecutionPayloadEnvelope) ExecutionPayload() *ExecutionPayloadV3 {
	switch e.version {
	case PayloadVersionV3:
		return &e.v3.ExecutionPayload
	case PayloadVersionV4:
		return &e.v4.ExecutionPayload.ExecutionPayloadV3
	default:
		return nil
	}
}

// MarshalJSON encodes the version specific envelope.
func (e *OpExecutionPayloadEnvelope) MarshalJSON() ([]byte, error) {
	switch e.version {
	case PayloadVersionV3:
		return json.Marshal(e.v3)
	case PayloadVersionV4:
		return json.Marshal(e.v4)
	default:
		return nil, fmt.Errorf("cannot encode envelope with unsupported version %s", e.version)
	}
}
