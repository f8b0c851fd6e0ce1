package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jecoplus/lending/internal/application/dto"
	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/event"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/port"
	"github.com/jecoplus/lending/internal/domain/service"
)

// DisburseLoanUseCase turns an APPROVED application into an ACTIVE loan
// account with a generated schedule.
type DisburseLoanUseCase struct {
	appRepo   port.LoanApplicationRepository
	loanRepo  port.LoanRepository
	publisher port.EventPublisher
	tx        port.Transactor
	engine    *service.UnderwritingEngine
}

// NewDisburseLoanUseCase wires dependencies.
func NewDisburseLoanUseCase(
	appRepo port.LoanApplicationRepository,
	loanRepo port.LoanRepository,
	publisher port.EventPublisher,
	tx port.Transactor,
	engine *service.UnderwritingEngine,
) *DisburseLoanUseCase {
	return &DisburseLoanUseCase{
		appRepo:   appRepo,
		loanRepo:  loanRepo,
		publisher: publisher,
		tx:        tx,
		engine:    engine,
	}
}

// Execute prices, opens and persists the loan together with the application's
// transition to ACTIVE.
func (uc *DisburseLoanUseCase) Execute(
	ctx context.Context,
	req dto.DisburseLoanRequest,
) (dto.LoanResponse, error) {
	now := time.Now().UTC()

	// 1. Load the application.
	app, err := uc.appRepo.FindByID(ctx, req.ApplicationID)
	if err != nil {
		return dto.LoanResponse{}, fmt.Errorf("find application: %w", err)
	}

	// 2. Refuse a second disbursement.
	if _, err := uc.loanRepo.FindByApplicationID(ctx, app.ID()); err == nil {
		return dto.LoanResponse{}, apperr.Conflict("application %s is already disbursed", app.ID())
	} else if !apperr.IsNotFound(err) {
		return dto.LoanResponse{}, fmt.Errorf("check existing loan: %w", err)
	}

	// 3. The score's tier caps the amount and prices the loan unless a rate
	// is given.
	result := uc.engine.Evaluate(app.CreditScore(), app.Amount(), app.TermMonths())
	if !result.Approved {
		return dto.LoanResponse{}, apperr.InvalidState("application %s cannot be disbursed: %s", app.ID(), result.Reason)
	}
	rate := result.Tier.AnnualRatePercent
	if req.AnnualRatePercent != nil {
		rate = *req.AnnualRatePercent
	}

	start := req.StartDate
	if start.IsZero() {
		start = now
	}

	// 4. Open the account and advance the application.
	loan, err := model.NewLoanAccount(model.NewLoanAccountParams{
		UserID:            app.UserID(),
		ApplicationID:     app.ID(),
		ContractNo:        app.ContractNo(),
		Principal:         app.Amount(),
		AnnualRatePercent: rate,
		TermMonths:        app.TermMonths(),
		PaymentDay:        req.PaymentDay,
		StartDate:         start,
	}, now)
	if err != nil {
		return dto.LoanResponse{}, fmt.Errorf("open loan account: %w", err)
	}
	app, err = app.MarkDisbursed(now)
	if err != nil {
		return dto.LoanResponse{}, fmt.Errorf("mark disbursed: %w", err)
	}

	// 5. Persist both aggregates in one transaction.
	err = uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := uc.appRepo.Save(ctx, app); err != nil {
			return fmt.Errorf("save application: %w", err)
		}
		if err := uc.loanRepo.Save(ctx, loan); err != nil {
			return fmt.Errorf("save loan: %w", err)
		}
		events := make([]event.DomainEvent, 0, len(app.DomainEvents())+len(loan.DomainEvents()))
		events = append(events, app.DomainEvents()...)
		events = append(events, loan.DomainEvents()...)
		if err := uc.publisher.Publish(ctx, events...); err != nil {
			return fmt.Errorf("publish events: %w", err)
		}
		return nil
	})
	if err != nil {
		return dto.LoanResponse{}, err
	}

	return toLoanResponse(loan), nil
}
