package circuitbreaker

import (
	"sync"
	"time"
)

type State int

const (
	StateClosed State = iota // Normal operation
	StateOpen                // Blocking calls until the recovery window elapses
)

type CircuitBreaker struct {
	mutex            sync.Mutex
	state            State
	failures         int
	openedAt         time.Time
	trial            bool
	failureThreshold int
	recoveryTimeout  time.Duration
}

// Snapshot is a point-in-time copy of breaker state for introspection
// endpoints. OpenedAt is the zero time while the circuit is closed.
type Snapshot struct {
	State    string    `json:"state"`
	Failures int       `json:"failures"`
	OpenedAt time.Time `json:"opened_at"`
}

func NewCircuitBreaker(threshold int, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: threshold,
		recoveryTimeout:  timeout,
	}
}

// Allow reports whether a call may proceed. Once the recovery window has
// elapsed on an open circuit the breaker closes optimistically and marks the
// next attempt as a trial: a single recorded failure re-opens the circuit
// immediately, without waiting for the counter to reach the threshold again.
func (cb *CircuitBreaker) Allow() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == StateClosed {
		return true
	}

	if time.Since(cb.openedAt) >= cb.recoveryTimeout {
		cb.state = StateClosed
		cb.failures = 0
		cb.openedAt = time.Time{}
		cb.trial = true
		return true
	}

	return false
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures++

	if cb.trial || cb.failures >= cb.failureThreshold {
		cb.state = StateOpen
		cb.openedAt = time.Now()
		cb.trial = false
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures = 0
	cb.state = StateClosed
	cb.openedAt = time.Time{}
	cb.trial = false
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return Snapshot{
		State:    cb.state.String(),
		Failures: cb.failures,
		OpenedAt: cb.openedAt,
	}
}

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}
