package events

import (
	"context"
	"log/slog"
)

// LogPublisher writes events to the structured log. It is used when no broker
// is configured and as the fallback when the broker is down.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.InfoContext(ctx, "domain event",
		"event_type", string(event.Type),
		"aggregate_id", event.AggregateID,
		"occurred_at", event.OccurredAt,
		"request_id", event.RequestID,
		"data", event.Data,
	)
	return nil
}
