package unittest

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cody-wang-cb/rollup-boost/module"
	"github.com/cody-wang-cb/rollup-boost/module/irrecoverable"
	"github.com/cody-wang-cb/rollup-boost/module/util"
)

// RequireReturnsBefore requires that the given function returns before the
// duration expires.
func RequireReturnsBefore(t testing.TB, f func(), duration time.Duration, message string) {
	done := make(chan struct{})

	go func() {
		f()
		close(done)
	}()

	select {
	case <-time.After(duration):
		require.Fail(t, "function did not return in time: "+message)
	case <-done:
		return
	}
}

// RequireCloseBefore requires that the given channel closes before the duration expires.
func RequireCloseBefore(t testing.TB, c <-chan struct{}, duration time.Duration, message string) {
	select {
	case <-time.After(duration):
		require.Fail(t, "channel did not close in time: "+message)
	case <-c:
		return
	}
}

// RequireNeverClosedWithin requires that the given channel stays open for the whole duration.
func RequireNeverClosedWithin(t testing.TB, c <-chan struct{}, duration time.Duration, message string) {
	select {
	case <-time.After(duration):
	case <-c:
		require.Fail(t, "channel closed unexpectedly: "+message)
	}
}

// RequireComponentsReadyBefore requires that all the given components become ready before the duration expires.
func RequireComponentsReadyBefore(t testing.TB, duration time.Duration, components ...module.ReadyDoneAware) {
	ready := util.AllReady(components...)
	RequireCloseBefore(t, ready, duration, "components did not become ready in time")
}

// RequireComponentsDoneBefore requires that all the given components shut down before the duration expires.
func RequireComponentsDoneBefore(t testing.TB, duration time.Duration, components ...module.ReadyDoneAware) {
	done := util.AllDone(components...)
	RequireCloseBefore(t, done, duration, "components did not shut down in time")
}

// StartComponents starts the given components with a signaler context that fails the test on
// any irrecoverable error, and waits until they are ready.
func StartComponents(t testing.TB, ctx irrecoverable.SignalerContext, duration time.Duration, components ...interface {
	module.Startable
	module.ReadyDoneAware
}) {
	readyAware := make([]module.ReadyDoneAware, 0, len(components))
	for _, c := range components {
		c.Start(ctx)
		readyAware = append(readyAware, c)
	}
	RequireComponentsReadyBefore(t, duration, readyAware...)
}

// StopComponents cancels the context the components were started with and waits until they are done.
func StopComponents(t testing.TB, cancel context.CancelFunc, duration time.Duration, components ...module.ReadyDoneAware) {
	cancel()
	RequireComponentsDoneBefore(t, duration, components...)
}

// AssertErrSubstringMatch asserts that two errors match with substring
// checking on the Error method (`expected` must be a substring of `actual`, to
// account for the actual error being wrapped). Fails the test if either error
// is nil.
//
// NOTE: This should only be used in cases where `errors.Is` cannot be, like
// when errors are transmitted over the wire without type information.
func AssertErrSubstringMatch(t testing.TB, expected, actual error) {
	require.NotNil(t, expected)
	require.NotNil(t, actual)
	assert.True(
		t,
		strings.Contains(actual.Error(), expected.Error()) || strings.Contains(expected.Error(), actual.Error()),
		"expected error: '%s', got: '%s'", expected.Error(), actual.Error(),
	)
}

func TempDir(t testing.TB) string {
	dir, err := os.MkdirTemp("", "rollup-boost-testing-temp-")
	require.NoError(t, err)
	return dir
}

func RunWithTempDir(t testing.TB, f func(string)) {
	dir := TempDir(t)
	defer os.RemoveAll(dir)
	f(dir)
}
