package memory

import (
	"context"
	"time"

	"github.com/jecoplus/lending/internal/domain/event"
	"github.com/jecoplus/lending/pkg/events"
)

// Outbox implements both port.EventPublisher (write side) and
// events.OutboxStore (relay side) over a Store.
type Outbox struct {
	store *Store
	now   func() time.Time
}

func NewOutbox(store *Store) *Outbox {
	return &Outbox{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Publish appends the events to the outbox.
func (o *Outbox) Publish(_ context.Context, evts ...event.DomainEvent) error {
	entries, err := events.NewOutboxEntries(evts)
	if err != nil {
		return err
	}

	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	for _, e := range entries {
		if _, dup := o.store.outbox[e.ID]; dup {
			continue
		}
		o.store.outbox[e.ID] = e
		o.store.outboxOrder = append(o.store.outboxOrder, e.ID)
	}
	return nil
}

// FetchUnpublished returns pending entries in insertion order.
func (o *Outbox) FetchUnpublished(_ context.Context, batchSize int) ([]events.OutboxEntry, error) {
	o.store.mu.RLock()
	defer o.store.mu.RUnlock()

	var out []events.OutboxEntry
	for _, id := range o.store.outboxOrder {
		e := o.store.outbox[id]
		if e.PublishedAt != nil {
			continue
		}
		out = append(out, e)
		if batchSize > 0 && len(out) == batchSize {
			break
		}
	}
	return out, nil
}

func (o *Outbox) MarkPublished(_ context.Context, ids []string) error {
	at := o.now()

	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	for _, id := range ids {
		e, ok := o.store.outbox[id]
		if !ok {
			continue
		}
		e.PublishedAt = &at
		o.store.outbox[id] = e
	}
	return nil
}

// Pending counts entries not yet relayed.
func (o *Outbox) Pending() int {
	o.store.mu.RLock()
	defer o.store.mu.RUnlock()

	n := 0
	for _, e := range o.store.outbox {
		if e.PublishedAt == nil {
			n++
		}
	}
	return n
}
