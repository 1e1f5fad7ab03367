package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventPredictionRequested EventType = "prediction_requested"
	EventPredictionCompleted EventType = "prediction_completed"
	EventFallbackUsed        EventType = "fallback_used"
	EventHealthChanged       EventType = "health_changed"
)

type Event struct {
	Type       EventType
	Timestamp  time.Time
	Dependency string
	Reason     string
	Duration   time.Duration
	Healthy    bool
}

type Collector struct {
	events  chan Event
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		events:  make(chan Event, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

// Emit queues an event without ever blocking the caller. Events are
// dropped when the buffer is full.
func (c *Collector) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.events <- event:
	default:
		c.logger.Warn("Metrics buffer full, dropping event",
			slog.String("type", string(event.Type)))
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.events:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event Event) {
	switch event.Type {
	case EventPredictionRequested:
		c.metrics.IncrementRequests(event.Dependency)

	case EventPredictionCompleted:
		c.metrics.RecordSuccess(event.Dependency, event.Duration)

	case EventFallbackUsed:
		c.metrics.RecordFallback(event.Dependency, event.Reason, event.Duration)

	case EventHealthChanged:
		c.metrics.UpdateHealthStatus(event.Dependency, event.Healthy)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.events:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
