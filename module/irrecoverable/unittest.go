package irrecoverable

import (
	"context"
	"runtime"
	"testing"
)

// MockSignalerContext is a SignalerContext which fails the test if an error is thrown.
// Like Signaler.Throw, it ends the throwing goroutine. Components throw from their own
// routines, so the failure is recorded with Errorf rather than FailNow.
type MockSignalerContext struct {
	context.Context
	t testing.TB
}

var _ SignalerContext = &MockSignalerContext{}

func (m MockSignalerContext) sealed() {}

func (m MockSignalerContext) Throw(err error) {
	m.t.Errorf("mock signaler context received error: %v", err)
	runtime.Goexit()
}

func NewMockSignalerContext(t testing.TB, ctx context.Context) *MockSignalerContext {
	return &MockSignalerContext{
		Context: ctx,
		t:       t,
	}
}

func NewMockSignalerContextWithCancel(t testing.TB, parent context.Context) (*MockSignalerContext, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	return NewMockSignalerContext(t, ctx), cancel
}
