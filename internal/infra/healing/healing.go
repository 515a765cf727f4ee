// Package healing protects storage from bulk jobs during an outage.
//
// Circuit Breaker states:
//   - CLOSED    (normal) → failures reach threshold → OPEN
//   - OPEN      (blocking) → after timeout → HALF_OPEN
//   - HALF_OPEN (probing) → enough successes → CLOSED, any failure → OPEN
package healing

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lingoleap/lingoleap/internal/infra/metrics"
)

// CBState represents the circuit breaker state.
type CBState int

const (
	CBClosed   CBState = iota // Normal operation
	CBOpen                    // Tripped, calls rejected immediately
	CBHalfOpen                // Probing recovery
)

// String returns a human-readable circuit breaker state.
func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "CLOSED"
	case CBOpen:
		return "OPEN"
	case CBHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// ErrCircuitOpen is returned by Allow while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive-ish failures to trip (default 5)
	ResetTimeout     time.Duration // time in OPEN before probing (default 30s)
	HalfOpenMax      int           // successes in HALF_OPEN needed to close (default 3)
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMax:      3,
	}
}

// CircuitBreaker is safe for concurrent use.
type CircuitBreaker struct {
	mu         sync.Mutex
	name       string
	config     CircuitBreakerConfig
	state      CBState
	failures   int
	successes  int // successes in HALF_OPEN
	trippedAt  time.Time
	totalTrips int
	now        func() time.Time
}

// NewCircuitBreaker creates a closed breaker. Zero config fields take defaults.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = def.HalfOpenMax
	}
	cb := &CircuitBreaker{name: name, config: cfg, now: time.Now}
	metrics.BreakerState.WithLabelValues(name).Set(float64(CBClosed))
	return cb
}

// WithClock replaces the wall clock. Used by tests.
func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	cb.now = now
	return cb
}

// Allow reports whether a call may proceed.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probeIfDue()
	if cb.state == CBOpen {
		return fmt.Errorf("%s: %w", cb.name, ErrCircuitOpen)
	}
	return nil
}

// RecordSuccess records a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CBHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.HalfOpenMax {
			cb.setState(CBClosed)
			cb.failures = 0
			cb.successes = 0
		}
	case CBClosed:
		if cb.failures > 0 {
			cb.failures--
		}
	}
}

// RecordFailure records a failed call. May trip the breaker.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CBClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.trip()
		}
	case CBHalfOpen:
		cb.trip()
	}
}

// State returns the current state, moving OPEN to HALF_OPEN once the timeout elapsed.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probeIfDue()
	return cb.state
}

// Snapshot is a point-in-time view of a breaker.
type Snapshot struct {
	Name       string    `json:"name"`
	State      string    `json:"state"`
	Failures   int       `json:"failures"`
	TotalTrips int       `json:"total_trips"`
	TrippedAt  time.Time `json:"tripped_at,omitempty"`
}

// Snapshot returns the current state snapshot.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probeIfDue()
	return Snapshot{
		Name:       cb.name,
		State:      cb.state.String(),
		Failures:   cb.failures,
		TotalTrips: cb.totalTrips,
		TrippedAt:  cb.trippedAt,
	}
}

// Reset forces the breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(CBClosed)
	cb.failures = 0
	cb.successes = 0
}

// caller holds mu
func (cb *CircuitBreaker) trip() {
	cb.setState(CBOpen)
	cb.trippedAt = cb.now()
	cb.totalTrips++
	cb.successes = 0
	metrics.BreakerTrips.WithLabelValues(cb.name).Inc()
}

// caller holds mu
func (cb *CircuitBreaker) probeIfDue() {
	if cb.state == CBOpen && cb.now().Sub(cb.trippedAt) >= cb.config.ResetTimeout {
		cb.setState(CBHalfOpen)
		cb.successes = 0
	}
}

// caller holds mu
func (cb *CircuitBreaker) setState(s CBState) {
	cb.state = s
	metrics.BreakerState.WithLabelValues(cb.name).Set(float64(s))
}
