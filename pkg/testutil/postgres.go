// Package testutil starts throwaway infrastructure for integration tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	pgpkg "github.com/jecoplus/lending/pkg/postgres"
)

// Migrator applies the schema to a fresh database.
type Migrator func(dsn string) error

// Postgres is a running PostgreSQL container with a migrated schema.
type Postgres struct {
	DSN  string
	Pool *pgxpool.Pool
}

// StartPostgres runs postgres:16-alpine, applies migrate and opens a pool.
// Everything is torn down by t.Cleanup.
func StartPostgres(t *testing.T, migrate Migrator) *Postgres {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("lending"),
		tcpostgres.WithUsername("jeco"),
		tcpostgres.WithPassword("jeco"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { terminate(t, container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}
	if migrate != nil {
		if err := migrate(dsn); err != nil {
			t.Fatalf("migrate test database: %v", err)
		}
	}

	pool, err := pgpkg.NewPoolFromDSN(ctx, dsn, 4, 1)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return &Postgres{DSN: dsn, Pool: pool}
}

func terminate(t *testing.T, c testcontainers.Container) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Terminate(ctx); err != nil {
		t.Logf("terminate container: %v", err)
	}
}
