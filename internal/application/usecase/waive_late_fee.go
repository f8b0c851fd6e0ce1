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

// WaiveLateFeeUseCase overrides the late fee of one installment with an
// attributed waiver.
type WaiveLateFeeUseCase struct {
	loanRepo   port.LoanRepository
	publisher  port.EventPublisher
	tx         port.Transactor
	reconciler *service.Reconciler
}

// NewWaiveLateFeeUseCase wires dependencies.
func NewWaiveLateFeeUseCase(
	loanRepo port.LoanRepository,
	publisher port.EventPublisher,
	tx port.Transactor,
	reconciler *service.Reconciler,
) *WaiveLateFeeUseCase {
	return &WaiveLateFeeUseCase{
		loanRepo:   loanRepo,
		publisher:  publisher,
		tx:         tx,
		reconciler: reconciler,
	}
}

// Execute records the waiver.
func (uc *WaiveLateFeeUseCase) Execute(ctx context.Context, req dto.WaiveLateFeeRequest) (dto.LoanResponse, error) {
	now := time.Now().UTC()

	var loan model.LoanAccount
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		loan, err = uc.loanRepo.FindByID(ctx, req.LoanID)
		if err != nil {
			return fmt.Errorf("find loan: %w", err)
		}

		ledger, record, err := uc.reconciler.WaiveLateFee(
			loan.Ledger(), req.InstallmentSequence, req.AppliedFee, req.Actor, req.Reason, now,
		)
		if err != nil {
			return fmt.Errorf("waive late fee: %w", err)
		}
		loan, err = loan.RecordWaiver(ledger, req.InstallmentSequence, record, now)
		if err != nil {
			return fmt.Errorf("record waiver: %w", err)
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
