package usecase

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments are the counters recorded by the use cases. A nil *Instruments
// records nothing, which keeps tests free of metric wiring.
type Instruments struct {
	creditScores    metric.Int64Counter
	statementRows   metric.Int64Counter
	inconsistencies metric.Int64Counter
	payments        metric.Int64Counter
}

// NewInstruments registers the counters on meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	creditScores, err := meter.Int64Counter("credit_scores_calculated_total",
		metric.WithDescription("Credit scores calculated, by decision."))
	if err != nil {
		return nil, fmt.Errorf("register credit score counter: %w", err)
	}
	statementRows, err := meter.Int64Counter("statement_rows_extracted_total",
		metric.WithDescription("Transactions extracted from bank statements."))
	if err != nil {
		return nil, fmt.Errorf("register statement row counter: %w", err)
	}
	inconsistencies, err := meter.Int64Counter("reconciliation_inconsistencies_total",
		metric.WithDescription("Consistency warnings raised by the portfolio sweep, by rule."))
	if err != nil {
		return nil, fmt.Errorf("register inconsistency counter: %w", err)
	}
	payments, err := meter.Int64Counter("payments_applied_total",
		metric.WithDescription("Payment transactions posted to loan ledgers."))
	if err != nil {
		return nil, fmt.Errorf("register payment counter: %w", err)
	}
	return &Instruments{
		creditScores:    creditScores,
		statementRows:   statementRows,
		inconsistencies: inconsistencies,
		payments:        payments,
	}, nil
}

func (i *Instruments) creditScoreCalculated(ctx context.Context, decision string) {
	if i == nil {
		return
	}
	i.creditScores.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", decision)))
}

func (i *Instruments) statementRowsExtracted(ctx context.Context, n int) {
	if i == nil {
		return
	}
	i.statementRows.Add(ctx, int64(n))
}

func (i *Instruments) inconsistencyFound(ctx context.Context, rule string) {
	if i == nil {
		return
	}
	i.inconsistencies.Add(ctx, 1, metric.WithAttributes(attribute.String("rule", rule)))
}

func (i *Instruments) paymentsApplied(ctx context.Context, n int) {
	if i == nil {
		return
	}
	i.payments.Add(ctx, int64(n))
}
