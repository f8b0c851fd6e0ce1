// Package postgres implements the repository ports on PostgreSQL via pgx.
// Every repository joins the transaction opened by Transactor when it is
// handed the ctx passed to the transaction body.
package postgres

import (
	"context"
	"embed"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jecoplus/lending/internal/domain/apperr"
	pgpkg "github.com/jecoplus/lending/pkg/postgres"
)

// Migrations holds the schema, applied with pkg/postgres.RunMigrations.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

type txKey struct{}

// Transactor implements port.Transactor.
type Transactor struct {
	pool *pgxpool.Pool
}

func NewTransactor(pool *pgxpool.Pool) *Transactor {
	return &Transactor{pool: pool}
}

// WithinTransaction runs fn in a transaction bound to ctx. A nested call
// joins the outer transaction.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	return pgpkg.WithTransaction(ctx, t.pool, func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// querier returns the transaction bound to ctx, or the pool.
func querier(ctx context.Context, pool *pgxpool.Pool) pgpkg.Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

type scannable interface {
	Scan(dest ...any) error
}

// notFound turns pgx.ErrNoRows into apperr.NotFound and leaves other errors
// wrapped with step.
func notFound(err error, step string, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(format, args...)
	}
	return wrap(step, err)
}

// wrap marks storage failures as retryable.
func wrap(step string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Unavailable(err, "%s", step)
}
