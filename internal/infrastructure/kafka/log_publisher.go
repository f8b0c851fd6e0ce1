package kafka

import (
	"context"
	"log/slog"

	pkgkafka "github.com/jecoplus/lending/pkg/kafka"
)

// LogPublisher stands in for the broker when Kafka is disabled, so the
// outbox still drains. Each message is logged at debug level.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error {
	for _, m := range messages {
		p.logger.DebugContext(ctx, "domain event",
			"topic", topic,
			"key", string(m.Key),
			"event_type", m.Headers["event_type"],
			"payload", string(m.Value),
		)
	}
	return nil
}
