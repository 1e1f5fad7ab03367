// Package mlclient is the resilient client for the remote category-prediction
// service.
//
// The gateway must keep working when the prediction service is slow, down or
// misbehaving, so the client never lets a dependency failure escape as an
// error. Every prediction attempt resolves to an Outcome: the model's answer
// when the call succeeds, or a fallback describing why it did not (service
// disabled, circuit open, timeout, connection error, unexpected status or
// body). A circuit breaker trips after consecutive failures and short-circuits
// calls until a recovery window has passed.
//
// Health probes and model metadata lookups run outside the breaker: probes
// answer "is it reachable", which must stay observable while the circuit is
// open.
package mlclient
