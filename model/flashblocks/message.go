package flashblocks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// MethodFlashblocksPayloadV1 is the method name of an enveloped flashblock message.
const MethodFlashblocksPayloadV1 = "flashblocks_payloadV1"

// ErrUnknownMethod is returned when an enveloped message carries a method other than
// MethodFlashblocksPayloadV1.
var ErrUnknownMethod = errors.New("unknown flashblocks message method")

// Message is the envelope the upstream feed may wrap flashblocks in. The ID is only used
// for correlation at the transport layer.
type Message struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     *uint64         `json:"id,omitempty"`
}

// DecodeMessage decodes a single frame of the upstream feed. A frame is either a bare
// FlashblocksPayloadV1 or a Message envelope whose params hold one.
func DecodeMessage(data []byte) (*FlashblocksPayloadV1, error) {
	var probe struct {
		Method *string `json:"method"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("could not decode flashblocks message: %w", err)
	}

	raw := data
	if probe.Method != nil {
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("could not decode flashblocks envelope: %w", err)
		}
		if msg.Method != MethodFlashblocksPayloadV1 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, msg.Method)
		}
		raw = msg.Params
	}

	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, fmt.Errorf("flashblocks message carries no payload")
	}

	var payload FlashblocksPayloadV1
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("could not decode flashblocks payload: %w", err)
	}
	return &payload, nil
}
