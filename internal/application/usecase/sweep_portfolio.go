package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jecoplus/lending/internal/application/dto"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/port"
	"github.com/jecoplus/lending/internal/domain/service"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

// SweepPortfolioUseCase advances every serviced loan to a date: installments
// are ticked, late fees assessed, delinquency enforced and the ledger checked
// for inconsistencies.
type SweepPortfolioUseCase struct {
	loanRepo    port.LoanRepository
	caseRepo    port.CollectionCaseRepository
	publisher   port.EventPublisher
	tx          port.Transactor
	policy      service.LateFeePolicy
	checker     *service.ConsistencyChecker
	instruments *Instruments
	logger      *slog.Logger
}

// NewSweepPortfolioUseCase wires dependencies.
func NewSweepPortfolioUseCase(
	loanRepo port.LoanRepository,
	caseRepo port.CollectionCaseRepository,
	publisher port.EventPublisher,
	tx port.Transactor,
	policy service.LateFeePolicy,
	instruments *Instruments,
	logger *slog.Logger,
) *SweepPortfolioUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepPortfolioUseCase{
		loanRepo:    loanRepo,
		caseRepo:    caseRepo,
		publisher:   publisher,
		tx:          tx,
		policy:      policy,
		checker:     service.NewConsistencyChecker(policy),
		instruments: instruments,
		logger:      logger,
	}
}

type sweepOutcome struct {
	suspended       bool
	collected       bool
	inconsistencies []service.Inconsistency
}

// Execute sweeps each loan in its own transaction. A failing loan is logged
// and counted; it does not stop the sweep. Inconsistencies are reported,
// never returned as errors.
func (uc *SweepPortfolioUseCase) Execute(ctx context.Context, req dto.SweepPortfolioRequest) (dto.SweepPortfolioResponse, error) {
	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	var ids []string
	for _, status := range []valueobject.LoanStatus{valueobject.LoanStatusActive, valueobject.LoanStatusInCollection} {
		loans, err := uc.loanRepo.ListByStatus(ctx, status)
		if err != nil {
			return dto.SweepPortfolioResponse{}, fmt.Errorf("list %s loans: %w", status, err)
		}
		for _, l := range loans {
			ids = append(ids, l.ID())
		}
	}

	resp := dto.SweepPortfolioResponse{Inconsistencies: []dto.InconsistencyResponse{}}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return resp, err
		}

		var out sweepOutcome
		err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			var err error
			out, err = uc.sweepLoan(ctx, id, asOf)
			return err
		})
		if err != nil {
			resp.Failed++
			uc.logger.ErrorContext(ctx, "portfolio sweep failed for loan", "loan_id", id, "error", err)
			continue
		}

		resp.Processed++
		if out.suspended {
			resp.Suspended++
		}
		if out.collected {
			resp.SentToCollection++
		}
		for _, inc := range out.inconsistencies {
			uc.logger.WarnContext(ctx, "ledger inconsistency",
				"loan_id", inc.LoanID,
				"rule", inc.Rule,
				"expected", inc.Expected,
				"actual", inc.Actual,
			)
			uc.instruments.inconsistencyFound(ctx, inc.Rule)
			resp.Inconsistencies = append(resp.Inconsistencies, toInconsistencyResponse(inc))
		}
	}

	uc.logger.InfoContext(ctx, "portfolio sweep complete",
		"as_of", asOf.Format(time.DateOnly),
		"processed", resp.Processed,
		"failed", resp.Failed,
		"suspended", resp.Suspended,
		"sent_to_collection", resp.SentToCollection,
		"inconsistencies", len(resp.Inconsistencies),
	)
	return resp, nil
}

func (uc *SweepPortfolioUseCase) sweepLoan(ctx context.Context, id string, asOf time.Time) (sweepOutcome, error) {
	var out sweepOutcome

	// 1. Load.
	loan, err := uc.loanRepo.FindByID(ctx, id)
	if err != nil {
		return out, fmt.Errorf("find loan: %w", err)
	}

	// Stored drift must be caught before the tick recomputes the aggregates.
	drift := uc.checker.CheckAggregates(loan)

	// 2. Tick installments and fees to asOf.
	loan, err = loan.Reconcile(uc.policy.Tick(loan.ID(), loan.Ledger(), asOf), asOf)
	if err != nil {
		return out, fmt.Errorf("reconcile: %w", err)
	}

	// 3. Enforce delinquency.
	if loan.Aggregates().DaysOverdue >= model.SuspensionThresholdDays {
		if loan.AccountStatus().Equal(valueobject.AccountStatusActive) {
			if loan, err = loan.Suspend(asOf); err != nil {
				return out, fmt.Errorf("suspend account: %w", err)
			}
			out.suspended = true
		}
		if loan.Status().Equal(valueobject.LoanStatusActive) {
			if loan, err = loan.SendToCollection(asOf); err != nil {
				return out, fmt.Errorf("send to collection: %w", err)
			}
			cc, err := model.OpenCollectionCase(loan, asOf)
			if err != nil {
				return out, fmt.Errorf("open collection case: %w", err)
			}
			if err := uc.caseRepo.Save(ctx, cc); err != nil {
				return out, fmt.Errorf("save collection case: %w", err)
			}
			out.collected = true
		}
	}

	// 4. Persist and publish.
	if err := uc.loanRepo.Save(ctx, loan); err != nil {
		return out, fmt.Errorf("save loan: %w", err)
	}
	if err := uc.publisher.Publish(ctx, loan.DomainEvents()...); err != nil {
		return out, fmt.Errorf("publish events: %w", err)
	}

	// 5. Check the state that was just stored.
	out.inconsistencies = append(drift, uc.checker.Check(loan)...)
	return out, nil
}
