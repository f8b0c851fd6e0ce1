package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/internal/domain/valueobject"
)

// Aggregates are the loan-level figures derived from the installment array.
type Aggregates struct {
	RemainingPrincipal decimal.Decimal
	RemainingInterest  decimal.Decimal
	TotalRemaining     decimal.Decimal
	TotalPaid          decimal.Decimal
	TotalLateFees      decimal.Decimal
	PaidInstallments   int
	OnTimeInstallments int
	OverdueCount       int
	// DaysOverdue is the age of the oldest unresolved OVERDUE installment.
	DaysOverdue        int
	PaymentSuccessRate decimal.Decimal
	NextDueDate        *time.Time
}

// ComputeAggregates folds the installments in one pass. It depends on nothing
// but its input, so it is idempotent.
func ComputeAggregates(installments []Installment) Aggregates {
	agg := Aggregates{
		RemainingPrincipal: decimal.Zero,
		RemainingInterest:  decimal.Zero,
		TotalPaid:          decimal.Zero,
		TotalLateFees:      decimal.Zero,
		PaymentSuccessRate: decimal.Zero,
	}

	for _, inst := range installments {
		switch {
		case inst.Status.Equal(valueobject.InstallmentWaived):
			continue
		case inst.Status.Equal(valueobject.InstallmentPaid):
			agg.PaidInstallments++
			agg.TotalPaid = agg.TotalPaid.Add(inst.PaidAmount)
			if inst.IsPaidOnTime {
				agg.OnTimeInstallments++
			}
		default:
			alloc := inst.AllocationOf(inst.PaidAmount)
			agg.RemainingPrincipal = agg.RemainingPrincipal.Add(inst.Principal.Sub(alloc.Principal))
			agg.RemainingInterest = agg.RemainingInterest.Add(inst.Interest.Sub(alloc.Interest))
			if inst.Status.Equal(valueobject.InstallmentOverdue) {
				agg.OverdueCount++
				agg.DaysOverdue = max(agg.DaysOverdue, inst.DaysLate)
			}
			if agg.NextDueDate == nil {
				d := inst.DueDate
				agg.NextDueDate = &d
			}
		}
		agg.TotalLateFees = agg.TotalLateFees.Add(inst.LateFee)
	}

	agg.TotalRemaining = agg.RemainingPrincipal.Add(agg.RemainingInterest)
	if agg.PaidInstallments > 0 {
		agg.PaymentSuccessRate = decimal.NewFromInt(int64(agg.OnTimeInstallments)).
			Mul(hundred).
			Div(decimal.NewFromInt(int64(agg.PaidInstallments))).
			Round(2)
	}
	return agg
}

// Equal compares two aggregate sets field by field.
func (a Aggregates) Equal(b Aggregates) bool {
	sameDate := (a.NextDueDate == nil) == (b.NextDueDate == nil) &&
		(a.NextDueDate == nil || a.NextDueDate.Equal(*b.NextDueDate))
	return sameDate &&
		a.RemainingPrincipal.Equal(b.RemainingPrincipal) &&
		a.RemainingInterest.Equal(b.RemainingInterest) &&
		a.TotalRemaining.Equal(b.TotalRemaining) &&
		a.TotalPaid.Equal(b.TotalPaid) &&
		a.TotalLateFees.Equal(b.TotalLateFees) &&
		a.PaidInstallments == b.PaidInstallments &&
		a.OnTimeInstallments == b.OnTimeInstallments &&
		a.OverdueCount == b.OverdueCount &&
		a.DaysOverdue == b.DaysOverdue &&
		a.PaymentSuccessRate.Equal(b.PaymentSuccessRate)
}
