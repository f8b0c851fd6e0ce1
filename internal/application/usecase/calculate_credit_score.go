package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jecoplus/lending/internal/application/dto"
	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/port"
	"github.com/jecoplus/lending/internal/domain/service"
)

// CalculateCreditScoreUseCase scores a financial profile and stores the
// result as a new, immutable record.
type CalculateCreditScoreUseCase struct {
	scoreRepo   port.CreditScoreRepository
	publisher   port.EventPublisher
	tx          port.Transactor
	scoring     *service.CreditScoring
	instruments *Instruments
}

// NewCalculateCreditScoreUseCase wires dependencies.
func NewCalculateCreditScoreUseCase(
	scoreRepo port.CreditScoreRepository,
	publisher port.EventPublisher,
	tx port.Transactor,
	scoring *service.CreditScoring,
	instruments *Instruments,
) *CalculateCreditScoreUseCase {
	return &CalculateCreditScoreUseCase{
		scoreRepo:   scoreRepo,
		publisher:   publisher,
		tx:          tx,
		scoring:     scoring,
		instruments: instruments,
	}
}

// Execute parses, scores and persists the profile.
func (uc *CalculateCreditScoreUseCase) Execute(
	ctx context.Context,
	req dto.CalculateCreditScoreRequest,
) (dto.CreditScoreResponse, error) {
	now := time.Now().UTC()

	if strings.TrimSpace(req.UserID) == "" {
		return dto.CreditScoreResponse{}, apperr.Validation("user ID is required")
	}

	// 1. Parse the profile. Non-numeric figures are rejected, never coerced.
	profile, err := service.ParseCreditProfile(req.MonthlyIncome, req.MonthlyExpenses, req.AvgBalance)
	if err != nil {
		return dto.CreditScoreResponse{}, fmt.Errorf("parse profile: %w", err)
	}

	// 2. Score.
	breakdown, err := uc.scoring.Calculate(profile)
	if err != nil {
		return dto.CreditScoreResponse{}, fmt.Errorf("calculate score: %w", err)
	}
	result := model.NewCreditScoreResult(req.UserID, breakdown.Score, breakdown.Decision, profile, breakdown.Factors, now)

	// 3. Persist with its event.
	err = uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := uc.scoreRepo.Save(ctx, result); err != nil {
			return fmt.Errorf("save credit score: %w", err)
		}
		if err := uc.publisher.Publish(ctx, result.DomainEvents()...); err != nil {
			return fmt.Errorf("publish events: %w", err)
		}
		return nil
	})
	if err != nil {
		return dto.CreditScoreResponse{}, err
	}

	uc.instruments.creditScoreCalculated(ctx, result.Decision().String())
	return toCreditScoreResponse(result), nil
}
