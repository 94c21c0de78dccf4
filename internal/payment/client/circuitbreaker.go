package client

import (
	"errors"
	"sync"
	"time"

	"github.com/tair/marketplace-payments/pkg/logger"
)

// CircuitState represents the state of a circuit breaker
type CircuitState string

const (
	StateClosed   CircuitState = "closed"
	StateOpen     CircuitState = "open"
	StateHalfOpen CircuitState = "half-open"
)

// ErrCircuitOpen is returned without contacting the provider.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker fast-fails calls to a tenant's provider endpoint after
// consecutive transport failures. It never retries.
type CircuitBreaker struct {
	name            string
	maxFailures     int
	openFor         time.Duration
	state           CircuitState
	failures        int
	lastStateChange time.Time
	probeInFlight   bool
	now             func() time.Time
	mu              sync.Mutex
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(name string, maxFailures int, openFor time.Duration) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &CircuitBreaker{
		name:            name,
		maxFailures:     maxFailures,
		openFor:         openFor,
		state:           StateClosed,
		lastStateChange: time.Now(),
		now:             time.Now,
	}
}

// Allow reports whether a call may proceed. In half-open only one probe is let through.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.now().Sub(cb.lastStateChange) >= cb.openFor {
		cb.setState(StateHalfOpen)
		logger.Logger.Info().
			Str("circuit", cb.name).
			Msg("Circuit breaker transitioning to half-open")
	}

	switch cb.state {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.probeInFlight {
			return ErrCircuitOpen
		}
		cb.probeInFlight = true
	}
	return nil
}

// Record feeds the outcome of an allowed call back into the breaker. Only
// transport failures count; a provider refusal is a healthy answer.
func (cb *CircuitBreaker) Record(transportFailure bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probeInFlight = false
	if !transportFailure {
		if cb.state != StateClosed {
			logger.Logger.Info().
				Str("circuit", cb.name).
				Msg("Circuit breaker closed after successful recovery")
		}
		cb.failures = 0
		cb.setState(StateClosed)
		return
	}

	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
		if cb.state != StateOpen {
			logger.Logger.Error().
				Str("circuit", cb.name).
				Int("failures", cb.failures).
				Int("threshold", cb.maxFailures).
				Msg("Circuit breaker opened")
		}
		cb.setState(StateOpen)
	}
}

func (cb *CircuitBreaker) setState(s CircuitState) {
	if cb.state != s {
		cb.state = s
		cb.lastStateChange = cb.now()
	}
}

// GetState returns the current state
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// CircuitBreakerManager keeps one breaker per tenant.
type CircuitBreakerManager struct {
	breakers    map[string]*CircuitBreaker
	maxFailures int
	openFor     time.Duration
	mu          sync.Mutex
}

// NewCircuitBreakerManager creates a new manager
func NewCircuitBreakerManager(maxFailures int, openFor time.Duration) *CircuitBreakerManager {
	return &CircuitBreakerManager{
		breakers:    make(map[string]*CircuitBreaker),
		maxFailures: maxFailures,
		openFor:     openFor,
	}
}

// GetOrCreate gets or creates a circuit breaker for a tenant
func (m *CircuitBreakerManager) GetOrCreate(name string) *CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cb, exists := m.breakers[name]; exists {
		return cb
	}

	cb := NewCircuitBreaker(name, m.maxFailures, m.openFor)
	m.breakers[name] = cb

	logger.Logger.Debug().
		Str("circuit", name).
		Msg("Circuit breaker created")

	return cb
}
