package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// LateFeePolicy – grace period, penalty and installment status transitions
// ---------------------------------------------------------------------------

// LateFeePolicy prices lateness and advances installment statuses as time
// passes. The zero value is not usable; start from DefaultLateFeePolicy.
type LateFeePolicy struct {
	// GraceDays is the number of days after the due date without penalty.
	GraceDays int
	// BaseFee is charged per day past the grace period.
	BaseFee decimal.Decimal
	// Cap bounds the fee of a single installment.
	Cap decimal.Decimal
	// PendingWindowDays is how close a due date must be for an UPCOMING
	// installment to become PENDING.
	PendingWindowDays int
}

// DefaultLateFeePolicy is 5 grace days, 200 per day, capped at 5 x 200.
func DefaultLateFeePolicy() LateFeePolicy {
	base := decimal.NewFromInt(200)
	return LateFeePolicy{
		GraceDays:         5,
		BaseFee:           base,
		Cap:               base.Mul(decimal.NewFromInt(5)),
		PendingWindowDays: 30,
	}
}

// DaysBetween counts calendar days from from to to. It is negative when to is
// earlier.
func DaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

// DaysPastGrace is daysLate minus the grace period, floored at zero.
func (p LateFeePolicy) DaysPastGrace(daysLate int) int {
	return max(daysLate-p.GraceDays, 0)
}

// FeeForDaysLate is min(BaseFee x days past grace, Cap).
func (p LateFeePolicy) FeeForDaysLate(daysLate int) decimal.Decimal {
	past := p.DaysPastGrace(daysLate)
	if past == 0 {
		return decimal.Zero
	}
	return decimal.Min(p.BaseFee.Mul(decimal.NewFromInt(int64(past))), p.Cap)
}

// IsOnTime reports whether a payment daysLate after the due date still
// counts as on time.
func (p LateFeePolicy) IsOnTime(daysLate int) bool {
	return daysLate <= p.GraceDays
}

// CalculateLateFee prices inst as of asOf. Paid installments are priced at
// their payment date; waived ones carry no fee.
func (p LateFeePolicy) CalculateLateFee(inst model.Installment, asOf time.Time) decimal.Decimal {
	switch {
	case inst.Status.Equal(valueobject.InstallmentWaived):
		return decimal.Zero
	case inst.Status.Equal(valueobject.InstallmentPaid) && inst.PaymentDate != nil:
		return p.FeeForDaysLate(DaysBetween(inst.DueDate, *inst.PaymentDate))
	default:
		return p.FeeForDaysLate(DaysBetween(inst.DueDate, asOf))
	}
}

// Tick advances every unresolved installment to asOf: past-due installments
// become OVERDUE with their fee recomputed, upcoming ones inside the pending
// window become PENDING. A LateFeeRecord is opened the first time an
// installment leaves grace and reassessed on later ticks. The input ledger
// is not modified.
func (p LateFeePolicy) Tick(loanID string, ledger model.Ledger, asOf time.Time) model.Ledger {
	next := ledger.Clone()
	for k := range next.Installments {
		inst := &next.Installments[k]
		if inst.IsResolved() {
			continue
		}

		days := DaysBetween(inst.DueDate, asOf)
		if days <= 0 {
			if inst.Status.Equal(valueobject.InstallmentUpcoming) && -days <= p.PendingWindowDays {
				inst.Status = valueobject.InstallmentPending
			}
			continue
		}

		inst.Status = valueobject.InstallmentOverdue
		inst.DaysLate = days
		inst.IsPaidOnTime = false
		p.assess(loanID, &next, k, days, asOf)
	}
	return next
}

// assess opens or reassesses the fee record of installment k and mirrors the
// applied fee onto the installment.
func (p LateFeePolicy) assess(loanID string, ledger *model.Ledger, k, daysLate int, now time.Time) {
	inst := &ledger.Installments[k]
	past := p.DaysPastGrace(daysLate)
	if past == 0 {
		return
	}
	fee := p.FeeForDaysLate(daysLate)

	if r, ok := ledger.IndexOfLateFee(inst.ID); ok {
		ledger.LateFees[r] = ledger.LateFees[r].Reassess(past, fee, now)
		inst.LateFee = ledger.LateFees[r].AppliedFee
		inst.LateFeeWaived = ledger.LateFees[r].IsWaived
		return
	}
	rec := model.NewLateFeeRecord(loanID, inst.ID, p.BaseFee, past, fee, now)
	ledger.LateFees = append(ledger.LateFees, rec)
	inst.LateFee = rec.AppliedFee
}
