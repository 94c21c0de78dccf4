package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker("platform", 3, time.Minute)

	for i := 0; i < 3; i++ {
		require.NoError(t, cb.Allow())
		cb.Record(true)
	}

	assert.Equal(t, StateOpen, cb.GetState())
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen)
}

func TestCircuitBreaker_RejectionDoesNotCount(t *testing.T) {
	cb := NewCircuitBreaker("platform", 2, time.Minute)

	require.NoError(t, cb.Allow())
	cb.Record(true)
	require.NoError(t, cb.Allow())
	cb.Record(false)
	require.NoError(t, cb.Allow())
	cb.Record(true)

	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenSingleProbe(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker("seller-1", 1, 10*time.Second)
	cb.now = func() time.Time { return now }

	require.NoError(t, cb.Allow())
	cb.Record(true)
	assert.Equal(t, StateOpen, cb.GetState())

	now = now.Add(11 * time.Second)
	require.NoError(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.GetState())
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen, "second caller must wait for the probe")

	cb.Record(false)
	assert.Equal(t, StateClosed, cb.GetState())
	assert.NoError(t, cb.Allow())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker("seller-1", 1, time.Second)
	cb.now = func() time.Time { return now }

	require.NoError(t, cb.Allow())
	cb.Record(true)
	now = now.Add(2 * time.Second)
	require.NoError(t, cb.Allow())
	cb.Record(true)

	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreakerManager_PerTenant(t *testing.T) {
	m := NewCircuitBreakerManager(1, time.Minute)
	a := m.GetOrCreate("a")
	assert.Same(t, a, m.GetOrCreate("a"))
	assert.NotSame(t, a, m.GetOrCreate("b"))
}
