package rpc

import (
	"errors"

	ethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/cody-wang-cb/rollup-boost/engine/flashblocks"
)

const (
	// InvalidParamsCode is the JSON-RPC error code of invalid method parameters.
	InvalidParamsCode = -32602
)

// InvalidPayloadError is answered when a request cannot be served because the payload it
// asks for is malformed or of an unsupported version.
type InvalidPayloadError struct {
	err error
}

func NewInvalidPayloadError(err error) InvalidPayloadError {
	return InvalidPayloadError{err: err}
}

func (e InvalidPayloadError) Error() string {
	return "invalid payload: " + e.err.Error()
}

func (e InvalidPayloadError) Unwrap() error {
	return e.err
}

func (e InvalidPayloadError) ErrorCode() int {
	return InvalidParamsCode
}

// codedError keeps the code of an error answered by the execution engine when it is
// relayed to the caller.
type codedError struct {
	message string
	code    int
	data    interface{}
}

func (e codedError) Error() string          { return e.message }
func (e codedError) ErrorCode() int         { return e.code }
func (e codedError) ErrorData() interface{} { return e.data }

// toRPCError maps errors onto the JSON-RPC errors answered to the caller.
// Errors of the execution engine are relayed with their original code. Errors without a code
// are answered with the server's default error code.
func toRPCError(err error) error {
	if err == nil {
		return nil
	}
	if flashblocks.IsValidationError(err) || flashblocks.IsUnsupportedVersionError(err) {
		return NewInvalidPayloadError(err)
	}

	var rpcErr ethrpc.Error
	if errors.As(err, &rpcErr) {
		coded := codedError{message: rpcErr.Error(), code: rpcErr.ErrorCode()}
		var dataErr ethrpc.DataError
		if errors.As(err, &dataErr) {
			coded.data = dataErr.ErrorData()
		}
		return coded
	}
	return err
}
