package flashblocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/beacon/engine"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"

	"github.com/cody-wang-cb/rollup-boost/engine/common/fifoqueue"
	"github.com/cody-wang-cb/rollup-boost/model/flashblocks"
	"github.com/cody-wang-cb/rollup-boost/model/payload"
	"github.com/cody-wang-cb/rollup-boost/module"
	"github.com/cody-wang-cb/rollup-boost/module/component"
	"github.com/cody-wang-cb/rollup-boost/module/irrecoverable"
)

// DefaultInboundQueueCapacity is the maximum number of flashblocks waiting to be processed.
const DefaultInboundQueueCapacity = 10_000

// Config is the configuration of the flashblocks Engine.
type Config struct {
	InboundQueueCapacity uint
}

func DefaultConfig() Config {
	return Config{
		InboundQueueCapacity: DefaultInboundQueueCapacity,
	}
}

// Engine assembles the flashblocks of the active build job into the best known payload and
// serves it to the consensus client in place of the execution engine's own payload.
//
// Flashblocks are queued by OnFlashblock and processed one at a time, in arrival order, by a
// single worker. The engine API methods are called concurrently by the RPC server and share
// the job and build state with the worker:
//   - currentPayloadID is guarded by payloadIDMu
//   - best is guarded by bestMu
//
// When both locks are needed, payloadIDMu is always acquired first.
type Engine struct {
	log       zerolog.Logger
	metrics   module.FlashblocksMetrics
	client    module.EngineAPI
	publisher module.FlashblocksPublisher

	payloadIDMu      sync.RWMutex
	currentPayloadID engine.PayloadID
	hasPayloadID     bool

	bestMu sync.Mutex
	best   *Builder

	pendingFlashblocks *fifoqueue.FifoQueue[*flashblocks.FlashblocksPayloadV1]

	cm *component.ComponentManager
	component.Component
}

var _ module.EngineAPI = (*Engine)(nil)
var _ module.FlashblocksConsumer = (*Engine)(nil)

// New creates a flashblocks Engine forwarding to the given execution engine client and
// broadcasting accepted flashblocks with the given publisher.
func New(
	log zerolog.Logger,
	metrics module.FlashblocksMetrics,
	client module.EngineAPI,
	publisher module.FlashblocksPublisher,
	config Config,
) (*Engine, error) {
	queue, err := fifoqueue.NewFifoQueue[*flashblocks.FlashblocksPayloadV1](
		fifoqueue.WithCapacity(int(config.InboundQueueCapacity)),
		fifoqueue.WithLengthObserver(func(len int) { metrics.InboundQueueLength(uint(len)) }),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create queue for inbound flashblocks: %w", err)
	}

	e := &Engine{
		log:                log.With().Str("engine", "flashblocks").Logger(),
		metrics:            metrics,
		client:             client,
		publisher:          publisher,
		best:               NewBuilder(),
		pendingFlashblocks: queue,
	}

	e.cm = component.NewComponentManagerBuilder().
		AddWorker(e.processFlashblocksLoop).
		Build()
	e.Component = e.cm

	return e, nil
}

// OnFlashblock queues a flashblock from the upstream feed for processing. It never blocks;
// if the inbound queue is full the flashblock is dropped.
func (e *Engine) OnFlashblock(p *flashblocks.FlashblocksPayloadV1) {
	e.metrics.FlashblockReceived()
	if e.pendingFlashblocks.Push(p) {
		return
	}
	e.metrics.FlashblockDropped()
	e.log.Warn().
		Str("payload_id", p.PayloadID.String()).
		Uint64("index", p.Index).
		Msg("inbound flashblocks queue is full, dropping flashblock")
}

// processFlashblocksLoop processes queued flashblocks as they arrive.
func (e *Engine) processFlashblocksLoop(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	ready()

	doneSignal := ctx.Done()
	newFlashblockSignal := e.pendingFlashblocks.Notifications()
	for {
		select {
		case <-doneSignal:
			return
		case <-newFlashblockSignal:
			e.processQueuedFlashblocks(doneSignal)
		}
	}
}

// processQueuedFlashblocks processes queued flashblocks until the queue is empty or the engine
// is shutting down.
func (e *Engine) processQueuedFlashblocks(doneSignal <-chan struct{}) {
	for {
		select {
		case <-doneSignal:
			return
		default:
		}

		p, ok := e.pendingFlashblocks.Pop()
		if !ok {
			return
		}
		e.processFlashblock(p)
	}
}

// processFlashblock validates a single flashblock and folds it into the current build.
// Flashblocks of a job other than the active one are dropped. Invalid flashblocks are dropped
// and leave the build untouched. Accepted flashblocks are broadcast to subscribers.
// No errors are returned: none of these outcomes affects the processing of later flashblocks.
func (e *Engine) processFlashblock(p *flashblocks.FlashblocksPayloadV1) {
	log := e.log.With().
		Str("payload_id", p.PayloadID.String()).
		Uint64("index", p.Index).
		Bool("has_base", p.Base != nil).
		Logger()
	log.Debug().Msg("received flashblock")

	matched, err := e.extend(p)
	if !matched {
		e.metrics.PayloadIDMismatch()
		log.Warn().Msg("payload id mismatch, dropping flashblock")
		return
	}
	if err != nil {
		e.metrics.FlashblockRejected(rejectionReason(err))
		log.Error().Err(err).Msg("failed to extend payload")
		return
	}
	e.metrics.FlashblockAccepted(p.Index)

	err = e.publisher.Publish(p)
	if err != nil {
		e.metrics.PublishFailed()
		log.Error().Err(err).Msg("failed to broadcast flashblock")
	}
}

// extend folds the flashblock into the current build if it belongs to the active job.
// The payload id read lock is held across the fold, so the active job cannot switch
// between the check and the fold.
func (e *Engine) extend(p *flashblocks.FlashblocksPayloadV1) (bool, error) {
	e.payloadIDMu.RLock()
	defer e.payloadIDMu.RUnlock()

	if !e.hasPayloadID || e.currentPayloadID != p.PayloadID {
		return false, nil
	}

	e.bestMu.Lock()
	defer e.bestMu.Unlock()
	return true, e.best.Extend(p)
}

// CurrentPayloadID returns the id of the active build job, if any job was announced yet.
func (e *Engine) CurrentPayloadID() (engine.PayloadID, bool) {
	e.payloadIDMu.RLock()
	defer e.payloadIDMu.RUnlock()
	return e.currentPayloadID, e.hasPayloadID
}

// SetCurrentPayloadID makes the given job the active one and starts a fresh build for it.
// Anything accumulated for the previous job and not yet fetched is discarded.
// Announcing the already active job is a no-op.
func (e *Engine) SetCurrentPayloadID(id engine.PayloadID) {
	e.payloadIDMu.Lock()
	defer e.payloadIDMu.Unlock()

	if e.hasPayloadID && e.currentPayloadID == id {
		e.log.Debug().Str("payload_id", id.String()).Msg("payload id already active")
		return
	}

	e.log.Debug().Str("payload_id", id.String()).Msg("setting current payload id")
	e.currentPayloadID = id
	e.hasPayloadID = true

	e.bestMu.Lock()
	e.best = NewBuilder()
	e.bestMu.Unlock()
}

// GetBestPayload takes the current build, replacing it with an empty one, and materializes it
// into an envelope of the given version.
// Returns (nil, nil) if no flashblock has been accumulated since the last call.
// Expected errors during normal operations:
//   - UnsupportedVersionError if the version is unknown; the current build is left untouched
//   - ErrMissingPayload, ErrMissingDelta if the taken build cannot be materialized
func (e *Engine) GetBestPayload(version payload.PayloadVersion) (*payload.OpExecutionPayloadEnvelope, error) {
	if !version.Valid() {
		return nil, UnsupportedVersionError{Version: version}
	}

	e.bestMu.Lock()
	taken := e.best
	e.best = NewBuilder()
	e.bestMu.Unlock()

	if taken.IsEmpty() {
		return nil, nil
	}
	return taken.IntoEnvelope(version)
}

// ForkchoiceUpdatedV3 forwards the fork choice update to the execution engine. If the engine
// starts a new build job, the job becomes the active one.
func (e *Engine) ForkchoiceUpdatedV3(ctx context.Context, state engine.ForkchoiceStateV1, attrs *payload.OpPayloadAttributes) (*engine.ForkChoiceResponse, error) {
	resp, err := e.client.ForkchoiceUpdatedV3(ctx, state, attrs)
	if err != nil {
		return nil, err
	}

	if resp.PayloadID != nil {
		e.log.Debug().Str("payload_id", resp.PayloadID.String()).Msg("forkchoice updated")
		e.SetCurrentPayloadID(*resp.PayloadID)
	} else {
		e.log.Debug().Msg("forkchoice updated with no payload id")
	}
	return resp, nil
}

// NewPayload forwards the payload to the execution engine.
func (e *Engine) NewPayload(ctx context.Context, p *payload.NewPayload) (*engine.PayloadStatusV1, error) {
	return e.client.NewPayload(ctx, p)
}

// GetPayload returns the payload assembled from flashblocks if there is one, and otherwise
// the payload built by the execution engine.
func (e *Engine) GetPayload(ctx context.Context, id engine.PayloadID, version payload.PayloadVersion) (*payload.OpExecutionPayloadEnvelope, error) {
	log := e.log.With().Str("payload_id", id.String()).Str("version", version.String()).Logger()

	env, err := e.GetBestPayload(version)
	if err != nil {
		if IsUnsupportedVersionError(err) {
			return nil, err
		}
		log.Warn().Err(err).Msg("could not build payload from flashblocks")
	}
	if env != nil {
		e.metrics.PayloadServed(version.String(), true)
		log.Info().
			Uint64("block_number", uint64(env.ExecutionPayload().BlockNumber)).
			Int("tx_count", len(env.ExecutionPayload().Transactions)).
			Msg("returning flashblocks payload")
		return env, nil
	}

	log.Info().Msg("no flashblocks payload available, fetching from engine")
	env, err = e.client.GetPayload(ctx, id, version)
	if err != nil {
		return nil, err
	}
	e.metrics.PayloadServed(version.String(), false)
	return env, nil
}

// GetBlockByNumber forwards the block lookup to the execution engine.
func (e *Engine) GetBlockByNumber(ctx context.Context, number rpc.BlockNumber, fullTx bool) (json.RawMessage, error) {
	return e.client.GetBlockByNumber(ctx, number, fullTx)
}
