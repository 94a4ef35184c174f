package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func failingCall() error {
	return NewNetworkError("tap", errors.New("connection refused"))
}

func TestCircuitBreaker_OpensOnFailureRate(t *testing.T) {
	cb := NewCircuitBreaker()

	for i := 0; i < MinRequests; i++ {
		_ = cb.Call(failingCall)
	}

	assert.Equal(t, BreakerOpen, cb.State())
	assert.ErrorIs(t, cb.Call(func() error { return nil }), ErrCircuitOpen)
}

func TestCircuitBreaker_StaysClosedBelowMinRequests(t *testing.T) {
	cb := NewCircuitBreaker()

	for i := 0; i < MinRequests-1; i++ {
		_ = cb.Call(failingCall)
	}

	assert.Equal(t, BreakerClosed, cb.State())
}

func TestCircuitBreaker_DomainRejectionsAreNotFailures(t *testing.T) {
	cb := NewCircuitBreaker()

	// An authoritative rejection is a successful round-trip; a storm of
	// AlreadyVoted answers must not cut the authority off.
	for i := 0; i < MinRequests*2; i++ {
		err := cb.Call(func() error {
			return NewAlreadyVotedError("p1")
		})
		assert.True(t, IsAlreadyVoted(err))
	}

	assert.Equal(t, BreakerClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cb := NewCircuitBreaker()

	for i := 0; i < MinRequests; i++ {
		_ = cb.Call(failingCall)
	}
	assert.Equal(t, BreakerOpen, cb.State())

	// Age the failure past the cool-down.
	cb.lastFailureTime = cb.lastFailureTime.Add(-TimeoutDuration)

	for i := 0; i < HalfOpenMaxRequests; i++ {
		assert.NoError(t, cb.Call(func() error { return nil }))
	}

	assert.Equal(t, BreakerClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureTripsAgain(t *testing.T) {
	cb := NewCircuitBreaker()

	for i := 0; i < MinRequests; i++ {
		_ = cb.Call(failingCall)
	}
	cb.lastFailureTime = cb.lastFailureTime.Add(-TimeoutDuration)

	_ = cb.Call(failingCall)
	assert.Equal(t, BreakerOpen, cb.State())
}
