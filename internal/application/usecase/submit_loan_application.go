package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jecoplus/lending/internal/application/dto"
	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/port"
)

// noCreditScore is returned when a user applies before being scored.
const noCreditScore = "No credit score found"

// SubmitLoanApplicationUseCase orchestrates application submission against
// the user's latest credit score and KYC snapshot.
type SubmitLoanApplicationUseCase struct {
	appRepo      port.LoanApplicationRepository
	scoreRepo    port.CreditScoreRepository
	identityRepo port.IdentityRepository
	publisher    port.EventPublisher
	tx           port.Transactor
}

// NewSubmitLoanApplicationUseCase wires dependencies.
func NewSubmitLoanApplicationUseCase(
	appRepo port.LoanApplicationRepository,
	scoreRepo port.CreditScoreRepository,
	identityRepo port.IdentityRepository,
	publisher port.EventPublisher,
	tx port.Transactor,
) *SubmitLoanApplicationUseCase {
	return &SubmitLoanApplicationUseCase{
		appRepo:      appRepo,
		scoreRepo:    scoreRepo,
		identityRepo: identityRepo,
		publisher:    publisher,
		tx:           tx,
	}
}

// Execute creates and underwrites an application. Every lookup happens before
// the single write, so a failure leaves nothing behind.
func (uc *SubmitLoanApplicationUseCase) Execute(
	ctx context.Context,
	req dto.SubmitApplicationRequest,
) (dto.LoanApplicationResponse, error) {
	now := time.Now().UTC()

	// 1. Validate the request by building the aggregate.
	app, err := model.NewLoanApplication(req.UserID, req.Amount, req.TermMonths, req.Purpose, now)
	if err != nil {
		return dto.LoanApplicationResponse{}, fmt.Errorf("create application: %w", err)
	}

	// 2. Latest credit score.
	score, err := uc.scoreRepo.LatestByUserID(ctx, req.UserID)
	if apperr.IsNotFound(err) {
		return dto.LoanApplicationResponse{}, apperr.NotFound(noCreditScore)
	}
	if err != nil {
		return dto.LoanApplicationResponse{}, fmt.Errorf("fetch credit score: %w", err)
	}

	// 3. KYC snapshot. Missing identity is a data-integrity failure.
	identity, err := uc.identityRepo.FindByUserID(ctx, req.UserID)
	if apperr.IsNotFound(err) {
		return dto.LoanApplicationResponse{}, apperr.NotFound("no identity record for user %s", req.UserID)
	}
	if err != nil {
		return dto.LoanApplicationResponse{}, fmt.Errorf("fetch identity: %w", err)
	}
	if identity.IsFallback {
		return dto.LoanApplicationResponse{}, apperr.InvalidState(
			"identity of user %s comes from an OCR fallback and must be rescanned", req.UserID)
	}

	// 4. Underwrite: APPROVED scores go to the partner, REJECTED ones stop here.
	app, err = app.Underwrite(score, identity, now)
	if err != nil {
		return dto.LoanApplicationResponse{}, fmt.Errorf("underwrite: %w", err)
	}

	// 5. Persist and publish atomically.
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
