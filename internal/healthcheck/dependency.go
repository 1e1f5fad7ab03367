package healthcheck

import (
	"sync"
	"time"
)

const ewmaAlpha = 0.2

// Dependency tracks the observed health of one remote service: current
// status, how many consecutive probes agreed with it, when it was last
// checked, and a smoothed probe latency.
type Dependency struct {
	name string

	mutex       sync.Mutex
	healthy     bool
	consecutive int
	lastChecked time.Time
	ewmaLatency time.Duration
	hasEWMA     bool
}

// Status is a point-in-time view of a dependency for the API.
type Status struct {
	Name              string    `json:"name"`
	Healthy           bool      `json:"healthy"`
	ConsecutiveChecks int       `json:"consecutive_checks"`
	LastChecked       time.Time `json:"last_checked"`
	ProbeLatencyMS    float64   `json:"probe_latency_ms"`
}

// NewDependency creates a dependency that starts in a healthy state.
func NewDependency(name string) *Dependency {
	return &Dependency{
		name:    name,
		healthy: true,
	}
}

func (d *Dependency) Name() string {
	return d.name
}

// Healthy returns true if the dependency is currently considered healthy.
func (d *Dependency) Healthy() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.healthy
}

// Observe records the result of one probe. The latency feeds the EWMA only
// for healthy probes; failed probes run into their timeout and would skew
// it. Returns true if the health status changed.
func (d *Dependency) Observe(healthy bool, latency time.Duration) (changed bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.lastChecked = time.Now()

	if healthy {
		if !d.hasEWMA {
			d.ewmaLatency = latency
			d.hasEWMA = true
		} else {
			//ewma = (1 - α) * ewma + α * latest
			d.ewmaLatency = time.Duration((1-ewmaAlpha)*float64(d.ewmaLatency) + ewmaAlpha*float64(latency))
		}
	}

	if d.healthy == healthy {
		d.consecutive++
		return false
	}

	d.healthy = healthy
	d.consecutive = 1
	return true
}

// Status returns a snapshot of the dependency's observed state.
func (d *Dependency) Status() Status {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return Status{
		Name:              d.name,
		Healthy:           d.healthy,
		ConsecutiveChecks: d.consecutive,
		LastChecked:       d.lastChecked,
		ProbeLatencyMS:    float64(d.ewmaLatency) / float64(time.Millisecond),
	}
}
