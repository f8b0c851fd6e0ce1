package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/jecoplus/lending/internal/application/dto"
	"github.com/jecoplus/lending/internal/application/usecase"
)

// runSweeper runs the portfolio sweep once at start and then every interval
// until ctx is cancelled. A non-positive interval disables the loop.
func runSweeper(ctx context.Context, sweep *usecase.SweepPortfolioUseCase, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		logger.Info("portfolio sweep disabled")
		return
	}

	sweepOnce(ctx, sweep, logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepOnce(ctx, sweep, logger)
		}
	}
}

func sweepOnce(ctx context.Context, sweep *usecase.SweepPortfolioUseCase, logger *slog.Logger) {
	if _, err := sweep.Execute(ctx, dto.SweepPortfolioRequest{}); err != nil && ctx.Err() == nil {
		logger.ErrorContext(ctx, "portfolio sweep failed", "error", err)
	}
}
