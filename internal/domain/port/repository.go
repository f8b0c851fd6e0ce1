package port

import (
	"context"

	"github.com/jecoplus/lending/internal/domain/event"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// Repository ports (driven/secondary adapters)
// ---------------------------------------------------------------------------

// Lookups that find nothing return an apperr.NotFound error.

// CreditScoreRepository stores append-only credit score records.
type CreditScoreRepository interface {
	Save(ctx context.Context, result model.CreditScoreResult) error
	LatestByUserID(ctx context.Context, userID string) (model.CreditScoreResult, error)
}

// IdentityRepository stores the KYC snapshot of each user.
type IdentityRepository interface {
	Save(ctx context.Context, snapshot model.IdentitySnapshot) error
	FindByUserID(ctx context.Context, userID string) (model.IdentitySnapshot, error)
}

// LoanApplicationRepository persists and retrieves loan applications.
type LoanApplicationRepository interface {
	Save(ctx context.Context, app model.LoanApplication) error
	FindByID(ctx context.Context, id string) (model.LoanApplication, error)
	FindByUserID(ctx context.Context, userID string) ([]model.LoanApplication, error)
}

// LoanRepository persists loan accounts together with their ledger.
type LoanRepository interface {
	Save(ctx context.Context, loan model.LoanAccount) error
	FindByID(ctx context.Context, id string) (model.LoanAccount, error)
	FindByApplicationID(ctx context.Context, applicationID string) (model.LoanAccount, error)
	ListByStatus(ctx context.Context, status valueobject.LoanStatus) ([]model.LoanAccount, error)
}

// CollectionCaseRepository persists and retrieves collection cases.
type CollectionCaseRepository interface {
	Save(ctx context.Context, c model.CollectionCase) error
	FindByLoanID(ctx context.Context, loanID string) ([]model.CollectionCase, error)
}

// ---------------------------------------------------------------------------
// Transaction and event publisher ports
// ---------------------------------------------------------------------------

// Transactor runs fn in a single unit of work. Repositories and the event
// publisher called with the ctx passed to fn join that unit of work; if fn
// returns an error nothing it wrote is kept.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher records domain events for delivery. Implementations write to
// the outbox inside the caller's transaction; delivery to the broker happens
// asynchronously.
type EventPublisher interface {
	Publish(ctx context.Context, events ...event.DomainEvent) error
}
