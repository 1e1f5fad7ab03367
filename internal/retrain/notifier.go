package retrain

import (
	"context"
	"log/slog"
)

// Publisher is the broker-facing side of the notifier. *Client implements
// it; tests substitute their own.
type Publisher interface {
	PublishTrigger(ctx context.Context, msg *TriggerMessage) error
}

// Notifier decides when a newly recorded correction should trigger
// retraining. Publishing is best-effort; broker failures are logged,
// never returned to the correction write path.
type Notifier struct {
	publisher Publisher
	every     int64
	logger    *slog.Logger
}

// NewNotifier creates a notifier that triggers every Nth correction.
// publisher may be nil when no broker is configured.
func NewNotifier(publisher Publisher, every int, logger *slog.Logger) *Notifier {
	if every <= 0 {
		every = 5
	}
	return &Notifier{
		publisher: publisher,
		every:     int64(every),
		logger:    logger,
	}
}

// CorrectionRecorded reports a new correction and the resulting total.
func (n *Notifier) CorrectionRecorded(ctx context.Context, total int64) {
	if total <= 0 || total%n.every != 0 {
		return
	}

	if n.publisher == nil {
		n.logger.Debug("retrain trigger skipped, no broker configured",
			"total_corrections", total)
		return
	}

	msg := NewTriggerMessage(total)
	if err := n.publisher.PublishTrigger(ctx, msg); err != nil {
		n.logger.Error("failed to publish retrain trigger",
			"error", err,
			"trigger_id", msg.TriggerID,
			"total_corrections", total)
	}
}
