package infra

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRelay = errors.New("smtp: connection refused")

func newTestCB(openTimeout time.Duration) *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		OpenTimeout:      openTimeout,
	})
}

func fail() error { return errRelay }
func ok() error   { return nil }

func TestCircuitBreakerAbreTrasFallasConsecutivas(t *testing.T) {
	cb := newTestCB(time.Minute)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(fail), errRelay)
	}
	assert.Equal(t, CBOpen, cb.State())

	// Open means fast-fail: fn never runs.
	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreakerExitoResetaElContador(t *testing.T) {
	cb := newTestCB(time.Minute)

	require.Error(t, cb.Execute(fail))
	require.Error(t, cb.Execute(fail))
	require.NoError(t, cb.Execute(ok))
	require.Error(t, cb.Execute(fail))
	require.Error(t, cb.Execute(fail))

	// Never three in a row, so the circuit stays closed.
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreakerPruebaTrasElTimeout(t *testing.T) {
	cb := newTestCB(10 * time.Millisecond)

	for i := 0; i < 3; i++ {
		require.Error(t, cb.Execute(fail))
	}
	require.Equal(t, CBOpen, cb.State())

	time.Sleep(15 * time.Millisecond)
	assert.Equal(t, CBHalfOpen, cb.State())

	// Two successful probes close the circuit again.
	require.NoError(t, cb.Execute(ok))
	require.NoError(t, cb.Execute(ok))
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreakerProbeFallidoReabre(t *testing.T) {
	cb := newTestCB(10 * time.Millisecond)

	for i := 0; i < 3; i++ {
		require.Error(t, cb.Execute(fail))
	}
	time.Sleep(15 * time.Millisecond)
	require.Equal(t, CBHalfOpen, cb.State())

	require.ErrorIs(t, cb.Execute(fail), errRelay)
	assert.Equal(t, CBOpen, cb.State())
}

func TestCircuitBreakerStateString(t *testing.T) {
	assert.Equal(t, "closed", CBClosed.String())
	assert.Equal(t, "open", CBOpen.String())
	assert.Equal(t, "half-open", CBHalfOpen.String())
}
