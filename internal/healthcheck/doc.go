// Package healthcheck implements periodic health monitoring for the
// gateway's remote dependencies. It tracks per-dependency status and probe
// latency and reports transitions as they happen.
package healthcheck
