package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jecoplus/lending/internal/application/dto"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/port"
	"github.com/jecoplus/lending/internal/domain/service"
)

// SettleEarlyUseCase settles a loan in one lump sum before maturity.
type SettleEarlyUseCase struct {
	loanRepo   port.LoanRepository
	publisher  port.EventPublisher
	tx         port.Transactor
	reconciler *service.Reconciler
}

// NewSettleEarlyUseCase wires dependencies.
func NewSettleEarlyUseCase(
	loanRepo port.LoanRepository,
	publisher port.EventPublisher,
	tx port.Transactor,
	reconciler *service.Reconciler,
) *SettleEarlyUseCase {
	return &SettleEarlyUseCase{
		loanRepo:   loanRepo,
		publisher:  publisher,
		tx:         tx,
		reconciler: reconciler,
	}
}

// Execute ticks the ledger to the settlement date, so arrears carry their
// current fees, then settles at the first future installment.
func (uc *SettleEarlyUseCase) Execute(ctx context.Context, req dto.SettleEarlyRequest) (dto.SettleEarlyResponse, error) {
	now := time.Now().UTC()
	settledAt := req.SettledAt
	if settledAt.IsZero() {
		settledAt = now
	}

	var (
		loan       model.LoanAccount
		settlement service.EarlyRepayment
	)
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// 1. Load.
		var err error
		loan, err = uc.loanRepo.FindByID(ctx, req.LoanID)
		if err != nil {
			return fmt.Errorf("find loan: %w", err)
		}

		// 2. Bring arrears up to date and settle.
		ticked := uc.reconciler.Policy().Tick(loan.ID(), loan.Ledger(), settledAt)
		var ledger model.Ledger
		ledger, settlement, err = uc.reconciler.SettleEarly(loan.ID(), ticked, settledAt)
		if err != nil {
			return fmt.Errorf("settle early: %w", err)
		}
		loan, err = loan.SettleEarly(ledger, settlement.CutoverSequence, settlement.Transaction, settlement.Savings, now)
		if err != nil {
			return fmt.Errorf("close loan: %w", err)
		}

		// 3. Persist and publish.
		if err := uc.loanRepo.Save(ctx, loan); err != nil {
			return fmt.Errorf("save loan: %w", err)
		}
		if err := uc.publisher.Publish(ctx, loan.DomainEvents()...); err != nil {
			return fmt.Errorf("publish events: %w", err)
		}
		return nil
	})
	if err != nil {
		return dto.SettleEarlyResponse{}, err
	}

	return dto.SettleEarlyResponse{
		Loan:            toLoanResponse(loan),
		CutoverSequence: settlement.CutoverSequence,
		Amount:          settlement.Transaction.Amount,
		InterestCharged: settlement.InterestCharged,
		Savings:         settlement.Savings,
	}, nil
}
