package infra

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSMTPDown = errors.New("smtp relay unreachable")

func fastCB() *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		OpenTimeout:      50 * time.Millisecond,
	})
}

func failN(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		cb.Execute(func() error { return errSMTPDown }) //nolint
	}
}

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb := fastCB()
	assert.Equal(t, CBClosed, cb.State())

	err := cb.Execute(func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := fastCB()

	failN(cb, 2)
	assert.Equal(t, CBClosed, cb.State(), "below threshold must stay closed")

	failN(cb, 1)
	assert.Equal(t, CBOpen, cb.State())

	// While open, calls fast-fail without running fn
	ran := false
	err := cb.Execute(func() error { ran = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, ran)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := fastCB()

	failN(cb, 2)
	require.NoError(t, cb.Execute(func() error { return nil }))

	// Counter was reset: two more failures must not trip it
	failN(cb, 2)
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenAfterTimeout(t *testing.T) {
	cb := fastCB()
	failN(cb, 3)
	require.Equal(t, CBOpen, cb.State())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, CBHalfOpen, cb.State())
}

func TestCircuitBreaker_ClosesAfterSuccessfulProbes(t *testing.T) {
	cb := fastCB()
	failN(cb, 3)
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, CBHalfOpen, cb.State())

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBHalfOpen, cb.State(), "one probe is not enough")

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb := fastCB()
	failN(cb, 3)
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, CBHalfOpen, cb.State())

	failN(cb, 1)
	assert.Equal(t, CBOpen, cb.State())
}

func TestCBState_String(t *testing.T) {
	assert.Equal(t, "closed", CBClosed.String())
	assert.Equal(t, "open", CBOpen.String())
	assert.Equal(t, "half-open", CBHalfOpen.String())
}
