// Package datasource selects, once at start-up, where the service keeps its
// state: PostgreSQL (optionally with Redis sessions) or an in-memory store
// seeded with demo borrowers.
package datasource

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jecoplus/lending/internal/application/scenario"
	"github.com/jecoplus/lending/internal/application/usecase"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/port"
	"github.com/jecoplus/lending/internal/domain/service"
	"github.com/jecoplus/lending/internal/infrastructure/memory"
	"github.com/jecoplus/lending/internal/infrastructure/postgres"
	"github.com/jecoplus/lending/internal/infrastructure/redis"
	"github.com/jecoplus/lending/pkg/events"
	pgpkg "github.com/jecoplus/lending/pkg/postgres"
)

const (
	NamePostgres = "postgres"
	NameMock     = "mock"
)

// DataSource bundles every persistence port the use cases need.
type DataSource struct {
	Name            string
	CreditScores    port.CreditScoreRepository
	Identities      port.IdentityRepository
	Applications    port.LoanApplicationRepository
	Loans           port.LoanRepository
	CollectionCases port.CollectionCaseRepository
	Transactor      port.Transactor
	Publisher       port.EventPublisher
	Outbox          events.OutboxStore
	Sessions        port.SessionStore
	ContractNumbers port.ContractNumberGenerator

	ping func(ctx context.Context) error
}

// Ping reports whether the backing stores are reachable.
func (d *DataSource) Ping(ctx context.Context) error {
	if d.ping == nil {
		return nil
	}
	return d.ping(ctx)
}

// NewPostgres wires the PostgreSQL repositories. Sessions go to Redis when a
// client is given and to process memory otherwise.
func NewPostgres(pool *pgxpool.Pool, redisClient goredis.UniversalClient) *DataSource {
	outbox := postgres.NewOutbox(pool)
	ds := &DataSource{
		Name:            NamePostgres,
		CreditScores:    postgres.NewCreditScoreRepo(pool),
		Identities:      postgres.NewIdentityRepo(pool),
		Applications:    postgres.NewLoanApplicationRepo(pool),
		Loans:           postgres.NewLoanRepo(pool),
		CollectionCases: postgres.NewCollectionCaseRepo(pool),
		Transactor:      postgres.NewTransactor(pool),
		Publisher:       outbox,
		Outbox:          outbox,
		ContractNumbers: postgres.NewContractNumbers(pool),
	}

	if redisClient == nil {
		ds.Sessions = memory.NewSessionStore()
		ds.ping = func(ctx context.Context) error { return pgpkg.HealthCheck(ctx, pool) }
		return ds
	}

	sessions := redis.NewSessionStore(redisClient)
	ds.Sessions = sessions
	ds.ping = func(ctx context.Context) error {
		if err := pgpkg.HealthCheck(ctx, pool); err != nil {
			return err
		}
		if err := sessions.Ping(ctx); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		return nil
	}
	return ds
}

// MockOptions controls the in-memory data source.
type MockOptions struct {
	// SeedPersonas loads the demo borrowers from the scenario package.
	SeedPersonas bool
	// AsOf anchors the demo loan dates. Zero means now.
	AsOf time.Time
}

// NewMock builds the in-memory data source.
func NewMock(ctx context.Context, opts MockOptions, logger *slog.Logger) (*DataSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	store := memory.NewStore()
	outbox := memory.NewOutbox(store)
	ds := &DataSource{
		Name:            NameMock,
		CreditScores:    memory.NewCreditScoreRepo(store),
		Identities:      memory.NewIdentityRepo(store),
		Applications:    memory.NewLoanApplicationRepo(store),
		Loans:           memory.NewLoanRepo(store),
		CollectionCases: memory.NewCollectionCaseRepo(store),
		Transactor:      memory.NewTransactor(store),
		Publisher:       outbox,
		Outbox:          outbox,
		Sessions:        memory.NewSessionStore(),
		ContractNumbers: memory.NewContractNumbers(),
	}
	if !opts.SeedPersonas {
		return ds, nil
	}

	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	if err := ds.seed(ctx, scenario.Personas(asOf), asOf); err != nil {
		return nil, fmt.Errorf("seed mock data source: %w", err)
	}
	logger.InfoContext(ctx, "mock data source seeded", "as_of", asOf.Format(time.DateOnly))
	return ds, nil
}

func (d *DataSource) seed(ctx context.Context, personas []scenario.Persona, asOf time.Time) error {
	scoring := service.NewCreditScoring()
	for _, p := range personas {
		if err := d.Identities.Save(ctx, p.Identity); err != nil {
			return fmt.Errorf("save identity %s: %w", p.UserID, err)
		}

		breakdown, err := scoring.Calculate(p.Profile)
		if err != nil {
			return fmt.Errorf("score %s: %w", p.UserID, err)
		}
		result := model.NewCreditScoreResult(p.UserID, breakdown.Score, breakdown.Decision, p.Profile, breakdown.Factors, asOf)
		if err := d.CreditScores.Save(ctx, result); err != nil {
			return fmt.Errorf("save credit score %s: %w", p.UserID, err)
		}

		for i, b := range p.Loans {
			loan, err := b.ContractNo(fmt.Sprintf("DEMO-%s-%02d", p.UserID, i+1)).Build()
			if err != nil {
				return fmt.Errorf("build loan for %s: %w", p.UserID, err)
			}
			if err := d.Loans.Save(ctx, loan); err != nil {
				return fmt.Errorf("save loan for %s: %w", p.UserID, err)
			}
		}
	}
	return nil
}

// Dependencies exposes the bundle in the shape usecase.NewSet expects. The
// caller adds collaborators, policy and instruments.
func (d *DataSource) Dependencies() usecase.Dependencies {
	return usecase.Dependencies{
		CreditScores:    d.CreditScores,
		Identities:      d.Identities,
		Applications:    d.Applications,
		Loans:           d.Loans,
		CollectionCases: d.CollectionCases,
		Transactor:      d.Transactor,
		Publisher:       d.Publisher,
		Sessions:        d.Sessions,
		ContractNumbers: d.ContractNumbers,
	}
}
