// Package circuitbreaker implements the failure-isolation state machine that
// guards calls to remote services.
//
// A breaker trips open after a run of consecutive failures and blocks calls
// until a recovery window has elapsed. The first Allow after the window
// closes the circuit optimistically; if that trial call fails the circuit
// re-opens immediately with a fresh open timestamp. A successful call resets
// the breaker completely. There is no separate half-open state to persist.
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(3, 60*time.Second)
//	cb := registry.GetBreaker("ml-service")
//	if cb.Allow() {
//	    // Make request...
//	    if err != nil {
//	        cb.RecordFailure()
//	    } else {
//	        cb.RecordSuccess()
//	    }
//	}
package circuitbreaker
