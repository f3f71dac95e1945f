package module

import (
	"github.com/cody-wang-cb/rollup-boost/model/flashblocks"
)

// FlashblocksConsumer accepts flashblocks from the upstream feed, one at a time and in order.
// Implementations must not block.
type FlashblocksConsumer interface {
	OnFlashblock(p *flashblocks.FlashblocksPayloadV1)
}

// FlashblocksPublisher republishes validated flashblocks to subscribers. Publishing is best
// effort: a failure must not affect payload assembly.
type FlashblocksPublisher interface {
	Publish(p *flashblocks.FlashblocksPayloadV1) error
}
