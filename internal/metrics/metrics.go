package metrics

import (
	"sort"
	"sync"
	"time"
)

type Metrics struct {
	mutex        sync.RWMutex
	requests     map[string]int64
	successes    map[string]int64
	fallbacks    map[string]map[string]int64
	latencies    map[string][]time.Duration
	healthStatus map[string]bool
	startTime    time.Time
}

type Snapshot struct {
	TotalRequests int64                        `json:"total_requests"`
	Uptime        time.Duration                `json:"uptime"`
	Dependencies  map[string]DependencyMetrics `json:"dependencies"`
}

type DependencyMetrics struct {
	Requests   int64            `json:"requests"`
	Successes  int64            `json:"successes"`
	Fallbacks  map[string]int64 `json:"fallbacks"`
	Healthy    bool             `json:"healthy"`
	AvgLatency time.Duration    `json:"avg_latency"`
	P50Latency time.Duration    `json:"p50_latency"`
	P95Latency time.Duration    `json:"p95_latency"`
	P99Latency time.Duration    `json:"p99_latency"`
}

func (m *Metrics) IncrementRequests(dependency string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requests[dependency]++
}

func (m *Metrics) RecordSuccess(dependency string, duration time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.successes[dependency]++
	m.recordLatency(dependency, duration)
}

func (m *Metrics) RecordFallback(dependency, reason string, duration time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.fallbacks[dependency] == nil {
		m.fallbacks[dependency] = make(map[string]int64)
	}
	m.fallbacks[dependency][reason]++
	m.recordLatency(dependency, duration)
}

// recordLatency must be called with the mutex held.
func (m *Metrics) recordLatency(dependency string, duration time.Duration) {
	m.latencies[dependency] = append(m.latencies[dependency], duration)

	if len(m.latencies[dependency]) > 1000 {
		m.latencies[dependency] = m.latencies[dependency][1:]
	}
}

func (m *Metrics) UpdateHealthStatus(dependency string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.healthStatus[dependency] = healthy
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:       time.Since(m.startTime),
		Dependencies: make(map[string]DependencyMetrics),
	}

	// Collect all dependency names seen by any counter
	allDeps := make(map[string]bool)
	for dep := range m.requests {
		allDeps[dep] = true
	}
	for dep := range m.successes {
		allDeps[dep] = true
	}
	for dep := range m.fallbacks {
		allDeps[dep] = true
	}
	for dep := range m.latencies {
		allDeps[dep] = true
	}
	for dep := range m.healthStatus {
		allDeps[dep] = true
	}

	for dep := range allDeps {
		snap.TotalRequests += m.requests[dep]

		dm := DependencyMetrics{
			Requests:  m.requests[dep],
			Successes: m.successes[dep],
			Fallbacks: m.fallbacks[dep],
			Healthy:   m.healthStatus[dep],
		}

		durations := m.latencies[dep]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			dm.AvgLatency = average(sorted)
			dm.P50Latency = percentile(sorted, 0.50)
			dm.P95Latency = percentile(sorted, 0.95)
			dm.P99Latency = percentile(sorted, 0.99)
		}

		snap.Dependencies[dep] = dm
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests:     make(map[string]int64),
		successes:    make(map[string]int64),
		fallbacks:    make(map[string]map[string]int64),
		latencies:    make(map[string][]time.Duration),
		healthStatus: make(map[string]bool),
		startTime:    time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
