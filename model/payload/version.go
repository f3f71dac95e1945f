package payload

import "fmt"

// PayloadVersion selects the engine API envelope shape a payload is served in.
// The inner execution payload is identical across versions; only the wrapper differs.
type PayloadVersion uint8

const (
	// PayloadVersionV3 is the Ecotone envelope (engine_getPayloadV3).
	PayloadVersionV3 PayloadVersion = 3
	// PayloadVersionV4 is the Isthmus envelope (engine_getPayloadV4), which adds the
	// payload-level withdrawals root and the execution requests list.
	PayloadVersionV4 PayloadVersion = 4
)

func (v PayloadVersion) String() string {
	switch v {
	case PayloadVersionV3:
		return "v3"
	case PayloadVersionV4:
		return "v4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(v))
	}
}

// Valid returns true if the version is one of the supported envelope versions.
func (v PayloadVersion) Valid() bool {
	return v == PayloadVersionV3 || v == PayloadVersionV4
}
