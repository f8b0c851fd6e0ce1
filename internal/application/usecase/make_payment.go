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

// MakePaymentUseCase posts a borrower payment against a loan's oldest
// unresolved installments.
type MakePaymentUseCase struct {
	loanRepo    port.LoanRepository
	publisher   port.EventPublisher
	tx          port.Transactor
	reconciler  *service.Reconciler
	instruments *Instruments
}

// NewMakePaymentUseCase wires dependencies.
func NewMakePaymentUseCase(
	loanRepo port.LoanRepository,
	publisher port.EventPublisher,
	tx port.Transactor,
	reconciler *service.Reconciler,
	instruments *Instruments,
) *MakePaymentUseCase {
	return &MakePaymentUseCase{
		loanRepo:    loanRepo,
		publisher:   publisher,
		tx:          tx,
		reconciler:  reconciler,
		instruments: instruments,
	}
}

// Execute allocates the payment and persists the updated loan.
func (uc *MakePaymentUseCase) Execute(ctx context.Context, req dto.MakePaymentRequest) (dto.PaymentResponse, error) {
	now := time.Now().UTC()
	paidAt := req.PaidAt
	if paidAt.IsZero() {
		paidAt = now
	}

	var (
		loan   model.LoanAccount
		posted []model.Transaction
	)
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// 1. Load inside the transaction so concurrent payments serialise.
		var err error
		loan, err = uc.loanRepo.FindByID(ctx, req.LoanID)
		if err != nil {
			return fmt.Errorf("find loan: %w", err)
		}

		// 2. Allocate.
		var ledger model.Ledger
		ledger, posted, err = uc.reconciler.ApplyPayment(loan.ID(), loan.Ledger(), req.Amount, paidAt)
		if err != nil {
			return fmt.Errorf("apply payment: %w", err)
		}
		loan, err = loan.PostPayments(ledger, posted, now)
		if err != nil {
			return fmt.Errorf("post payments: %w", err)
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
		return dto.PaymentResponse{}, err
	}

	uc.instruments.paymentsApplied(ctx, len(posted))
	return dto.PaymentResponse{
		Loan:         toLoanResponse(loan),
		Transactions: toTransactionResponses(posted),
	}, nil
}
