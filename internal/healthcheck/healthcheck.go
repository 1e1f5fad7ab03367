package healthcheck

import (
	"context"
	"log/slog"
	"time"
)

// Prober reports whether a dependency currently answers its health
// endpoint. Implementations decide what reachable means for their service.
type Prober func(ctx context.Context) bool

// Watcher periodically probes one dependency and records the result.
// Status transitions are logged and forwarded to an optional hook.
type Watcher struct {
	dep      *Dependency
	probe    Prober
	interval time.Duration
	logger   *slog.Logger
	onChange func(name string, healthy bool)
}

func NewWatcher(dep *Dependency, probe Prober, interval time.Duration, logger *slog.Logger) *Watcher {
	return &Watcher{
		dep:      dep,
		probe:    probe,
		interval: interval,
		logger:   logger,
	}
}

// OnChange registers a hook invoked after every status transition.
// It must be set before Run is started.
func (w *Watcher) OnChange(fn func(name string, healthy bool)) {
	w.onChange = fn
}

// Run probes the dependency on the configured interval until ctx is
// cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Health watch stopped",
				slog.String("dependency", w.dep.Name()))
			return

		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *Watcher) check(ctx context.Context) {
	start := time.Now()
	healthy := w.probe(ctx)
	changed := w.dep.Observe(healthy, time.Since(start))

	if !changed {
		return
	}

	if healthy {
		w.logger.Info("Dependency is back up",
			slog.String("dependency", w.dep.Name()))
	} else {
		w.logger.Warn("Dependency is down",
			slog.String("dependency", w.dep.Name()))
	}

	if w.onChange != nil {
		w.onChange(w.dep.Name(), healthy)
	}
}
