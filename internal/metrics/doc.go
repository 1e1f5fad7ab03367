// Package metrics provides real-time metrics collection for the gateway.
//
// It uses a channel-based event pipeline to asynchronously collect metrics
// about:
//   - Prediction request counts per dependency
//   - Successful model answers and fallbacks broken down by reason
//   - Upstream call latencies with percentile calculations (P50, P95, P99)
//   - Dependency health transitions
//
// The collector runs in a dedicated goroutine and processes events without
// blocking the request path. Emit drops events instead of blocking when the
// buffer is full.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	// Emit events during request handling
//	collector.Emit(metrics.Event{
//		Type:       metrics.EventFallbackUsed,
//		Dependency: "prediction",
//		Reason:     "timeout",
//		Duration:   150 * time.Millisecond,
//	})
//
//	// Get metrics snapshot
//	snapshot := collector.Snapshot()
//
// The package provides thread-safe metrics storage using sync.RWMutex and
// supports graceful shutdown with event draining to prevent data loss.
package metrics
