package payload

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NewPayloadV3 holds the arguments of engine_newPayloadV3.
type NewPayloadV3 struct {
	ExecutionPayload      ExecutionPayloadV3
	VersionedHashes       []common.Hash
	ParentBeaconBlockRoot common.Hash
}

// NewPayloadV4 holds the arguments of engine_newPayloadV4.
type NewPayloadV4 struct {
	ExecutionPayload      OpExecutionPayloadV4
	VersionedHashes       []common.Hash
	ParentBeaconBlockRoot common.Hash
	ExecutionRequests     []hexutil.Bytes
}

// NewPayload is a tagged variant over the supported engine_newPayload versions.
type NewPayload struct {
	Version PayloadVersion
	V3      *NewPayloadV3
	V4      *NewPayloadV4
}

// Validate checks that exactly the arguments matching Version are set.
func (p *NewPayload) Validate() error {
	switch p.Version {
	case PayloadVersionV3:
		if p.V3 == nil || p.V4 != nil {
			return fmt.Errorf("new payload %s must carry exactly the v3 arguments", p.Version)
		}
	case PayloadVersionV4:
		if p.V4 == nil || p.V3 != nil {
			return fmt.Errorf("new payload %s must carry exactly the v4 arguments", p.Version)
		}
	default:
		return fmt.Errorf("unsupported new payload version %s", p.Version)
	}
	return nil
}

// BlockHash returns the hash of the block carried by the payload.
func (p *NewPayload) BlockHash() common.Hash {
	switch {
	case p.V3 != nil:
		return p.V3.ExecutionPayload.BlockHash
	case p.V4 != nil:
		return p.V4.ExecutionPayload.BlockHash
	default:
		return common.Hash{}
	}
}
