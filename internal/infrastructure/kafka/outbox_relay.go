package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jecoplus/lending/pkg/events"
	pkgkafka "github.com/jecoplus/lending/pkg/kafka"
)

// MessagePublisher is the slice of pkg/kafka.Producer the relay uses.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error
}

// RelayConfig tunes the polling loop.
type RelayConfig struct {
	Topic     string
	BatchSize int
	Interval  time.Duration
}

// OutboxRelay moves committed outbox rows to Kafka. Delivery is
// at-least-once: rows are marked only after the broker acknowledged them.
type OutboxRelay struct {
	store    events.OutboxStore
	producer MessagePublisher
	cfg      RelayConfig
	logger   *slog.Logger
}

// NewOutboxRelay creates a relay publishing to cfg.Topic.
func NewOutboxRelay(store events.OutboxStore, producer MessagePublisher, cfg RelayConfig, logger *slog.Logger) *OutboxRelay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	return &OutboxRelay{store: store, producer: producer, cfg: cfg, logger: logger}
}

// Run polls until ctx is cancelled. Failed rounds are logged and retried on
// the next tick.
func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.WarnContext(ctx, "outbox relay failed", "error", err)
			}
		}
	}
}

// RelayOnce drains the outbox batch by batch and returns how many entries
// were published.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	total := 0
	for {
		entries, err := r.store.FetchUnpublished(ctx, r.cfg.BatchSize)
		if err != nil {
			return total, fmt.Errorf("fetch outbox: %w", err)
		}
		if len(entries) == 0 {
			return total, nil
		}

		messages := make([]pkgkafka.Message, 0, len(entries))
		ids := make([]string, 0, len(entries))
		for _, e := range entries {
			messages = append(messages, toMessage(e))
			ids = append(ids, e.ID)
		}

		if err := r.producer.Publish(ctx, r.cfg.Topic, messages...); err != nil {
			return total, fmt.Errorf("failed to publish events to topic %s: %w", r.cfg.Topic, err)
		}
		if err := r.store.MarkPublished(ctx, ids); err != nil {
			return total, fmt.Errorf("mark outbox published: %w", err)
		}

		total += len(entries)
		r.logger.DebugContext(ctx, "relayed outbox batch", "topic", r.cfg.Topic, "count", len(entries))

		if len(entries) < r.cfg.BatchSize {
			return total, nil
		}
	}
}

// toMessage keys by aggregate so one loan's events stay ordered on a partition.
func toMessage(e events.OutboxEntry) pkgkafka.Message {
	return pkgkafka.Message{
		Key:   []byte(e.AggregateID),
		Value: e.Payload,
		Headers: map[string]string{
			"event_type":     e.EventType,
			"event_id":       e.ID,
			"aggregate_type": e.AggregateType,
		},
	}
}
