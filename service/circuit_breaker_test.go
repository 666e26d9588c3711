package service

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	breakers := NewBreakers(5, time.Minute)
	boom := errors.New("boom")
	calls := 0
	failing := func() (interface{}, error) {
		calls++
		return nil, boom
	}

	for i := 0; i < 5; i++ {
		_, err := breakers.Embedding.Execute(failing)
		require.ErrorIs(t, err, boom)
	}
	require.Equal(t, 5, calls)

	// Open breaker fails fast without invoking the dependency.
	_, err := breakers.Embedding.Execute(failing)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, IsBreakerOpen(err))
	assert.Equal(t, 5, calls)
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	breakers := NewBreakers(2, 30*time.Millisecond)
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		breakers.Generation.Execute(func() (interface{}, error) { return nil, boom })
	}
	_, err := breakers.Generation.Execute(func() (interface{}, error) { return "ok", nil })
	require.ErrorIs(t, err, gobreaker.ErrOpenState)

	// After the cooldown one trial call is allowed; success closes the
	// breaker again.
	time.Sleep(50 * time.Millisecond)
	result, err := breakers.Generation.Execute(func() (interface{}, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, gobreaker.StateClosed, breakers.Generation.State())
}

func TestBreakersAreIndependent(t *testing.T) {
	breakers := NewBreakers(1, time.Minute)
	boom := errors.New("boom")

	breakers.Embedding.Execute(func() (interface{}, error) { return nil, boom })
	_, err := breakers.Embedding.Execute(func() (interface{}, error) { return "ok", nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)

	// The generation breaker is unaffected by embedding failures.
	result, err := breakers.Generation.Execute(func() (interface{}, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestIsBreakerOpen(t *testing.T) {
	assert.True(t, IsBreakerOpen(gobreaker.ErrOpenState))
	assert.True(t, IsBreakerOpen(gobreaker.ErrTooManyRequests))
	assert.False(t, IsBreakerOpen(errors.New("boom")))
	assert.False(t, IsBreakerOpen(nil))
}
