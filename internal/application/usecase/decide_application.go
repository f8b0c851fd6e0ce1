package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jecoplus/lending/internal/application/dto"
	"github.com/jecoplus/lending/internal/domain/port"
)

// DecideApplicationUseCase records the lending partner's decision on an
// application awaiting review.
type DecideApplicationUseCase struct {
	appRepo   port.LoanApplicationRepository
	contracts port.ContractNumberGenerator
	publisher port.EventPublisher
	tx        port.Transactor
}

// NewDecideApplicationUseCase wires dependencies.
func NewDecideApplicationUseCase(
	appRepo port.LoanApplicationRepository,
	contracts port.ContractNumberGenerator,
	publisher port.EventPublisher,
	tx port.Transactor,
) *DecideApplicationUseCase {
	return &DecideApplicationUseCase{
		appRepo:   appRepo,
		contracts: contracts,
		publisher: publisher,
		tx:        tx,
	}
}

// Execute approves or rejects a PENDING_PARTNER application.
func (uc *DecideApplicationUseCase) Execute(
	ctx context.Context,
	req dto.DecideApplicationRequest,
) (dto.LoanApplicationResponse, error) {
	now := time.Now().UTC()

	// 1. Load.
	app, err := uc.appRepo.FindByID(ctx, req.ApplicationID)
	if err != nil {
		return dto.LoanApplicationResponse{}, fmt.Errorf("find application: %w", err)
	}

	// 2. Apply the decision. Approval assigns the contract number.
	if req.Approve {
		contractNo, err := uc.contracts.Next(ctx)
		if err != nil {
			return dto.LoanApplicationResponse{}, fmt.Errorf("allocate contract number: %w", err)
		}
		app, err = app.Approve(contractNo, now)
		if err != nil {
			return dto.LoanApplicationResponse{}, fmt.Errorf("approve application: %w", err)
		}
	} else {
		app, err = app.Reject(req.Reason, now)
		if err != nil {
			return dto.LoanApplicationResponse{}, fmt.Errorf("reject application: %w", err)
		}
	}

	// 3. Persist and publish.
	err = uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := uc.appRepo.Save(ctx, app); err != nil {
			return fmt.Errorf("save application: %w", err)
		}
		if err := uc.publisher.Publish(ctx, app.DomainEvents()...); err != nil {
			return fmt.Errorf("publish events: %w", err)
		}
		return nil
	})
	if err != nil {
		return dto.LoanApplicationResponse{}, err
	}

	return toApplicationResponse(app), nil
}
