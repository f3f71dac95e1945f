package flashblocks

import (
	"errors"
	"fmt"

	"github.com/cody-wang-cb/rollup-boost/model/payload"
)

var (
	// ErrMissingBasePayload is returned when the initial flashblock of a job carries no base.
	ErrMissingBasePayload = errors.New("missing base payload for initial flashblock")
	// ErrUnexpectedBasePayload is returned when a non-initial flashblock carries a base.
	ErrUnexpectedBasePayload = errors.New("unexpected base payload for non-initial flashblock")
	// ErrInvalidIndex is returned when a flashblock is not the next expected one (duplicate, gap or reorder).
	ErrInvalidIndex = errors.New("invalid index for flashblock")
	// ErrMissingDelta is returned when materializing a payload without any accumulated flashblock.
	ErrMissingDelta = errors.New("missing delta for flashblock")
	// ErrMissingPayload is returned when materializing a payload without a captured base.
	ErrMissingPayload = errors.New("missing payload")
)

// InvalidIndexError details an ErrInvalidIndex rejection.
type InvalidIndexError struct {
	Expected uint64
	Actual   uint64
}

func (e InvalidIndexError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", ErrInvalidIndex, e.Expected, e.Actual)
}

func (e InvalidIndexError) Is(target error) bool {
	return target == ErrInvalidIndex
}

// IsInvalidIndexError returns whether err is an InvalidIndexError
func IsInvalidIndexError(err error) bool {
	var e InvalidIndexError
	return errors.As(err, &e)
}

// UnsupportedVersionError indicates a payload was requested in an envelope version we cannot build.
type UnsupportedVersionError struct {
	Version payload.PayloadVersion
}

func (e UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported payload version %s", e.Version)
}

// IsUnsupportedVersionError returns whether err is an UnsupportedVersionError
func IsUnsupportedVersionError(err error) bool {
	var e UnsupportedVersionError
	return errors.As(err, &e)
}

// IsValidationError returns whether err is one of the errors rejecting a single flashblock.
// Validation errors are benign: the flashblock is dropped and the accumulated state is untouched.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingBasePayload) ||
		errors.Is(err, ErrUnexpectedBasePayload) ||
		errors.Is(err, ErrInvalidIndex)
}

// rejectionReason maps a validation error onto a metrics label.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingBasePayload):
		return "missing_base"
	case errors.Is(err, ErrUnexpectedBasePayload):
		return "unexpected_base"
	case errors.Is(err, ErrInvalidIndex):
		return "invalid_index"
	default:
		return "unknown"
	}
}
