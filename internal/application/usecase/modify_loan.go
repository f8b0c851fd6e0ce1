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

// ModifyLoanUseCase restructures a loan's remaining schedule.
type ModifyLoanUseCase struct {
	loanRepo   port.LoanRepository
	publisher  port.EventPublisher
	tx         port.Transactor
	reconciler *service.Reconciler
}

// NewModifyLoanUseCase wires dependencies.
func NewModifyLoanUseCase(
	loanRepo port.LoanRepository,
	publisher port.EventPublisher,
	tx port.Transactor,
	reconciler *service.Reconciler,
) *ModifyLoanUseCase {
	return &ModifyLoanUseCase{
		loanRepo:   loanRepo,
		publisher:  publisher,
		tx:         tx,
		reconciler: reconciler,
	}
}

// Execute replaces the unresolved tail of the schedule with one generated
// from the remaining principal under the new rate and term.
func (uc *ModifyLoanUseCase) Execute(ctx context.Context, req dto.ModifyLoanRequest) (dto.LoanResponse, error) {
	now := time.Now().UTC()
	effective := req.EffectiveDate
	if effective.IsZero() {
		effective = now
	}

	var loan model.LoanAccount
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		loan, err = uc.loanRepo.FindByID(ctx, req.LoanID)
		if err != nil {
			return fmt.Errorf("find loan: %w", err)
		}

		ledger, restructuring, err := uc.reconciler.Modify(loan.ID(), loan.Ledger(), service.ModificationTerms{
			NewAnnualRatePercent: req.NewAnnualRatePercent,
			NewTermMonths:        req.NewTermMonths,
			EffectiveDate:        effective,
			PaymentDay:           loan.PaymentDay(),
		})
		if err != nil {
			return fmt.Errorf("modify schedule: %w", err)
		}
		loan, err = loan.Restructure(ledger, req.NewAnnualRatePercent, restructuring.MonthlyPayment, now)
		if err != nil {
			return fmt.Errorf("restructure loan: %w", err)
		}

		if err := uc.loanRepo.Save(ctx, loan); err != nil {
			return fmt.Errorf("save loan: %w", err)
		}
		if err := uc.publisher.Publish(ctx, loan.DomainEvents()...); err != nil {
			return fmt.Errorf("publish events: %w", err)
		}
		return nil
	})
	if err != nil {
		return dto.LoanResponse{}, err
	}

	return toLoanResponse(loan), nil
}
