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

// ReversePaymentUseCase cancels a completed payment transaction.
type ReversePaymentUseCase struct {
	loanRepo   port.LoanRepository
	publisher  port.EventPublisher
	tx         port.Transactor
	reconciler *service.Reconciler
}

// NewReversePaymentUseCase wires dependencies.
func NewReversePaymentUseCase(
	loanRepo port.LoanRepository,
	publisher port.EventPublisher,
	tx port.Transactor,
	reconciler *service.Reconciler,
) *ReversePaymentUseCase {
	return &ReversePaymentUseCase{
		loanRepo:   loanRepo,
		publisher:  publisher,
		tx:         tx,
		reconciler: reconciler,
	}
}

// Execute appends the REVERSAL and restores the installment.
func (uc *ReversePaymentUseCase) Execute(ctx context.Context, req dto.ReversePaymentRequest) (dto.PaymentResponse, error) {
	now := time.Now().UTC()

	var (
		loan     model.LoanAccount
		reversal model.Transaction
	)
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// 1. Load.
		var err error
		loan, err = uc.loanRepo.FindByID(ctx, req.LoanID)
		if err != nil {
			return fmt.Errorf("find loan: %w", err)
		}

		// 2. Reverse.
		ledger, original, rev, err := uc.reconciler.ReversePayment(loan.ID(), loan.Ledger(), req.TransactionID, now)
		if err != nil {
			return fmt.Errorf("reverse payment: %w", err)
		}
		reversal = rev
		loan, err = loan.PostReversal(ledger, original, reversal, now)
		if err != nil {
			return fmt.Errorf("post reversal: %w", err)
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

	return dto.PaymentResponse{
		Loan:         toLoanResponse(loan),
		Transactions: toTransactionResponses([]model.Transaction{reversal}),
	}, nil
}
