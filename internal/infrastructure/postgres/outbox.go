package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jecoplus/lending/internal/domain/event"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/pkg/events"
)

// Outbox implements port.EventPublisher by inserting into the outbox table
// inside the caller's transaction, and events.OutboxStore for the relay.
type Outbox struct {
	pool *pgxpool.Pool
}

func NewOutbox(pool *pgxpool.Pool) *Outbox {
	return &Outbox{pool: pool}
}

func (o *Outbox) Publish(ctx context.Context, evts ...event.DomainEvent) error {
	entries, err := events.NewOutboxEntries(evts)
	if err != nil {
		return err
	}
	q := querier(ctx, o.pool)
	for _, e := range entries {
		if _, err := q.Exec(ctx, `
			INSERT INTO outbox (id, aggregate_id, aggregate_type, event_type, payload, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (id) DO NOTHING`,
			e.ID, e.AggregateID, e.AggregateType, e.EventType, e.Payload, e.CreatedAt,
		); err != nil {
			return wrap("write outbox", err)
		}
	}
	return nil
}

// FetchUnpublished returns the oldest pending entries.
func (o *Outbox) FetchUnpublished(ctx context.Context, batchSize int) ([]events.OutboxEntry, error) {
	rows, err := querier(ctx, o.pool).Query(ctx, `
		SELECT id, aggregate_id, aggregate_type, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1`, batchSize)
	if err != nil {
		return nil, wrap("query outbox", err)
	}
	defer rows.Close()

	var out []events.OutboxEntry
	for rows.Next() {
		var e events.OutboxEntry
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, wrap("scan outbox", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (o *Outbox) MarkPublished(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := querier(ctx, o.pool).Exec(ctx,
		`UPDATE outbox SET published_at = $2 WHERE id = ANY($1)`, ids, time.Now().UTC(),
	); err != nil {
		return wrap("mark outbox published", err)
	}
	return nil
}

// ContractNumbers implements port.ContractNumberGenerator on a database
// sequence, so numbers stay unique across replicas.
type ContractNumbers struct {
	pool *pgxpool.Pool
}

func NewContractNumbers(pool *pgxpool.Pool) *ContractNumbers {
	return &ContractNumbers{pool: pool}
}

func (g *ContractNumbers) Next(ctx context.Context) (string, error) {
	var seq int64
	if err := querier(ctx, g.pool).QueryRow(ctx, `SELECT nextval('contract_no_seq')`).Scan(&seq); err != nil {
		return "", wrap("next contract number", err)
	}
	return model.FormatContractNo(time.Now().UTC(), seq), nil
}
