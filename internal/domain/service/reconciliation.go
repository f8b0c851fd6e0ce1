package service

import (
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// Reconciler – applies payment events to an installment ledger
// ---------------------------------------------------------------------------

var defaultPartialFraction = decimal.RequireFromString("0.5")

// PaymentBehavior describes how a borrower paid the installments that are due
// so far. Indices are zero-based positions in the schedule.
type PaymentBehavior struct {
	// OnTimeRate is the share of paid installments paid on their due date.
	OnTimeRate float64
	// LateDaysMin and LateDaysMax bound the lateness of late payments.
	LateDaysMin int
	LateDaysMax int
	// PartialPaymentRate is the share of paid installments only partly paid.
	PartialPaymentRate float64
	// PartialFraction of the installment total is paid on a partial payment.
	// Zero means one half.
	PartialFraction decimal.Decimal
	// MissedIndices are never paid and become OVERDUE as of AsOf.
	MissedIndices []int
	// OverdueDays pins installments to OVERDUE with an explicit age.
	OverdueDays map[int]int
	// CurrentInstallmentIndex is how many installments are due so far.
	// Installments at or after it stay UPCOMING.
	CurrentInstallmentIndex int
	// AsOf ages missed installments. Zero means one month after the last
	// due installment.
	AsOf time.Time
}

func (b PaymentBehavior) validate(n int) error {
	switch {
	case b.OnTimeRate < 0 || b.OnTimeRate > 1:
		return apperr.Validation("on-time rate must be in [0, 1], got %v", b.OnTimeRate)
	case b.PartialPaymentRate < 0 || b.PartialPaymentRate > 1:
		return apperr.Validation("partial payment rate must be in [0, 1], got %v", b.PartialPaymentRate)
	case b.LateDaysMin < 0 || b.LateDaysMax < 0:
		return apperr.Validation("late day range must not be negative")
	case b.CurrentInstallmentIndex < 0 || b.CurrentInstallmentIndex > n:
		return apperr.Validation("current installment index must be in [0, %d], got %d", n, b.CurrentInstallmentIndex)
	case b.PartialFraction.IsNegative() || b.PartialFraction.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return apperr.Validation("partial fraction must be in (0, 1), got %s", b.PartialFraction)
	}
	for _, k := range b.MissedIndices {
		if k < 0 || k >= n {
			return apperr.Validation("missed index %d is outside the schedule", k)
		}
	}
	for k, days := range b.OverdueDays {
		if k < 0 || k >= n {
			return apperr.Validation("overdue index %d is outside the schedule", k)
		}
		if days <= 0 {
			return apperr.Validation("overdue days for index %d must be positive, got %d", k, days)
		}
	}
	return nil
}

// picks spreads a rate evenly over a sequence: the k-th draw is selected when
// floor((k+1)p) > floor(kp). The result is deterministic.
func picks(k int, rate float64) bool {
	return math.Floor(float64(k+1)*rate) > math.Floor(float64(k)*rate)
}

// Reconciler owns the ledger mutations. It is stateless apart from its
// policy and safe for concurrent use.
type Reconciler struct {
	policy LateFeePolicy
}

// NewReconciler creates a reconciler bound to a late-fee policy.
func NewReconciler(policy LateFeePolicy) *Reconciler {
	return &Reconciler{policy: policy}
}

// Policy returns the late-fee policy in force.
func (r *Reconciler) Policy() LateFeePolicy { return r.policy }

// ApplyBehavior replays b over a freshly generated schedule. Each due
// installment becomes PAID, PARTIALLY_PAID or OVERDUE, and one PAYMENT
// transaction is emitted per paid or partly paid installment.
func (r *Reconciler) ApplyBehavior(loanID string, schedule []model.Installment, b PaymentBehavior) (model.Ledger, error) {
	n := len(schedule)
	if err := b.validate(n); err != nil {
		return model.Ledger{}, err
	}
	fraction := b.PartialFraction
	if fraction.IsZero() {
		fraction = defaultPartialFraction
	}
	lateMin, lateMax := b.LateDaysMin, max(b.LateDaysMax, b.LateDaysMin)
	asOf := b.AsOf
	if asOf.IsZero() && b.CurrentInstallmentIndex > 0 {
		asOf = schedule[b.CurrentInstallmentIndex-1].DueDate.AddDate(0, 1, 0)
	}

	ledger := model.Ledger{Installments: schedule}.Clone()
	payer, lateCount := 0, 0

	for k := 0; k < b.CurrentInstallmentIndex; k++ {
		inst := &ledger.Installments[k]

		if days, pinned := b.OverdueDays[k]; pinned {
			r.markOverdue(loanID, &ledger, k, days, asOf)
			continue
		}
		if slices.Contains(b.MissedIndices, k) {
			r.markOverdue(loanID, &ledger, k, max(DaysBetween(inst.DueDate, asOf), 1), asOf)
			continue
		}

		daysLate := 0
		if picks(payer, 1-b.OnTimeRate) {
			daysLate = lateMin + lateCount%(lateMax-lateMin+1)
			lateCount++
		}
		partial := picks(payer, b.PartialPaymentRate)
		payer++

		paidAt := inst.DueDate.AddDate(0, 0, daysLate)
		inst.PaymentDate = &paidAt
		inst.DaysLate = daysLate
		inst.IsPaidOnTime = r.policy.IsOnTime(daysLate)
		if fee := r.policy.FeeForDaysLate(daysLate); fee.IsPositive() {
			rec := model.NewLateFeeRecord(loanID, inst.ID, r.policy.BaseFee, r.policy.DaysPastGrace(daysLate), fee, paidAt)
			ledger.LateFees = append(ledger.LateFees, rec)
			inst.LateFee = fee
		}

		if partial {
			inst.Status = valueobject.InstallmentPartiallyPaid
			inst.PaidAmount = inst.Total.Mul(fraction).Round(2)
			inst.IsPaidOnTime = false
		} else {
			inst.Status = valueobject.InstallmentPaid
			inst.PaidAmount = inst.Total.Add(inst.LateFee)
		}
		ledger.Transactions = append(ledger.Transactions, model.NewCompletedTransaction(
			loanID, inst.ID, valueobject.TransactionPayment, inst.AllocationOf(inst.PaidAmount), paidAt,
		))
	}
	return ledger, nil
}

func (r *Reconciler) markOverdue(loanID string, ledger *model.Ledger, k, days int, asOf time.Time) {
	inst := &ledger.Installments[k]
	inst.Status = valueobject.InstallmentOverdue
	inst.DaysLate = days
	inst.IsPaidOnTime = false
	r.policy.assess(loanID, ledger, k, days, asOf)
}

// ApplyPayment allocates amount to the oldest unresolved installments. The
// ledger is first ticked to paidAt so fees reflect the payment date. One
// PAYMENT transaction is emitted per installment touched.
func (r *Reconciler) ApplyPayment(loanID string, ledger model.Ledger, amount decimal.Decimal, paidAt time.Time) (model.Ledger, []model.Transaction, error) {
	if !amount.IsPositive() {
		return model.Ledger{}, nil, apperr.Validation("payment amount must be positive, got %s", amount)
	}

	next := r.policy.Tick(loanID, ledger, paidAt)
	outstanding := decimal.Zero
	for _, inst := range next.Installments {
		if !inst.IsResolved() {
			outstanding = outstanding.Add(inst.AmountDue())
		}
	}
	if amount.GreaterThan(outstanding) {
		return model.Ledger{}, nil, apperr.Validation("payment %s exceeds the outstanding balance %s", amount, outstanding)
	}

	rest := amount
	var posted []model.Transaction
	for k := range next.Installments {
		if rest.IsZero() {
			break
		}
		inst := &next.Installments[k]
		if inst.IsResolved() {
			continue
		}

		take := decimal.Min(rest, inst.AmountDue())
		if take.IsZero() {
			continue
		}
		rest = rest.Sub(take)

		before := inst.AllocationOf(inst.PaidAmount)
		inst.PaidAmount = inst.PaidAmount.Add(take)
		alloc := inst.AllocationOf(inst.PaidAmount).Sub(before)

		if inst.AmountDue().IsZero() {
			daysLate := max(DaysBetween(inst.DueDate, paidAt), 0)
			inst.Status = valueobject.InstallmentPaid
			inst.DaysLate = daysLate
			inst.IsPaidOnTime = r.policy.IsOnTime(daysLate)
			at := paidAt
			inst.PaymentDate = &at
		} else if !inst.Status.Equal(valueobject.InstallmentOverdue) {
			inst.Status = valueobject.InstallmentPartiallyPaid
		}

		tx := model.NewCompletedTransaction(loanID, inst.ID, valueobject.TransactionPayment, alloc, paidAt)
		next.Transactions = append(next.Transactions, tx)
		posted = append(posted, tx)
	}
	return next, posted, nil
}

// ReversePayment cancels a completed PAYMENT. The original is marked REVERSED,
// a REVERSAL transaction for the same amount and installment is appended and
// the installment's paid amount and status are restored as of at.
func (r *Reconciler) ReversePayment(loanID string, ledger model.Ledger, transactionID string, at time.Time) (model.Ledger, model.Transaction, model.Transaction, error) {
	var none model.Transaction

	t, ok := ledger.IndexOfTransaction(transactionID)
	if !ok {
		return model.Ledger{}, none, none, apperr.NotFound("transaction %s not found on loan %s", transactionID, loanID)
	}
	original := ledger.Transactions[t]
	if original.Type != valueobject.TransactionPayment {
		return model.Ledger{}, none, none, apperr.InvalidState("only PAYMENT transactions can be reversed, %s is %s", original.ID, original.Type)
	}
	if original.Status != valueobject.TransactionCompleted {
		return model.Ledger{}, none, none, apperr.InvalidState("transaction %s is %s", original.ID, original.Status)
	}

	next := ledger.Clone()
	k, ok := indexOfInstallment(next, original.InstallmentID)
	if !ok {
		return model.Ledger{}, none, none, apperr.NotFound("installment %s not found on loan %s", original.InstallmentID, loanID)
	}
	inst := &next.Installments[k]
	if inst.Status.Equal(valueobject.InstallmentWaived) {
		return model.Ledger{}, none, none, apperr.InvalidState("installment %d was settled early and is frozen", inst.Sequence)
	}

	inst.PaidAmount = decimal.Max(inst.PaidAmount.Sub(original.Amount), decimal.Zero)
	inst.IsPaidOnTime = false
	days := DaysBetween(inst.DueDate, at)
	switch {
	case days > 0:
		inst.Status = valueobject.InstallmentOverdue
		inst.DaysLate = days
	case inst.PaidAmount.IsPositive():
		inst.Status = valueobject.InstallmentPartiallyPaid
		inst.DaysLate = 0
	case -days <= r.policy.PendingWindowDays:
		inst.Status = valueobject.InstallmentPending
		inst.DaysLate = 0
	default:
		inst.Status = valueobject.InstallmentUpcoming
		inst.DaysLate = 0
	}
	if inst.PaidAmount.IsZero() {
		inst.PaymentDate = nil
	}

	next.Transactions[t].Status = valueobject.TransactionReversed
	reversal := model.NewCompletedTransaction(loanID, original.InstallmentID, valueobject.TransactionReversal, original.Allocation, at)
	reversal.ReversalOf = original.ID
	next.Transactions = append(next.Transactions, reversal)

	return next, next.Transactions[t], reversal, nil
}

// WaiveLateFee overrides the applied fee of installment sequence.
func (r *Reconciler) WaiveLateFee(ledger model.Ledger, sequence int, applied decimal.Decimal, actor, reason string, at time.Time) (model.Ledger, model.LateFeeRecord, error) {
	k, ok := ledger.IndexOfSequence(sequence)
	if !ok {
		return model.Ledger{}, model.LateFeeRecord{}, apperr.NotFound("installment %d not found", sequence)
	}
	if ledger.Installments[k].IsResolved() {
		return model.Ledger{}, model.LateFeeRecord{}, apperr.InvalidState("installment %d is already settled", sequence)
	}
	f, ok := ledger.IndexOfLateFee(ledger.Installments[k].ID)
	if !ok {
		return model.Ledger{}, model.LateFeeRecord{}, apperr.NotFound("no late fee assessed on installment %d", sequence)
	}

	rec, err := ledger.LateFees[f].Waive(applied, actor, reason, at)
	if err != nil {
		return model.Ledger{}, model.LateFeeRecord{}, err
	}

	next := ledger.Clone()
	next.LateFees[f] = rec
	next.Installments[k].LateFee = rec.AppliedFee
	next.Installments[k].LateFeeWaived = true
	if next.Installments[k].AmountDue().IsZero() && next.Installments[k].PaidAmount.IsPositive() {
		paidAt := at
		next.Installments[k].Status = valueobject.InstallmentPaid
		next.Installments[k].PaymentDate = &paidAt
	}
	return next, rec, nil
}

func indexOfInstallment(l model.Ledger, id string) (int, bool) {
	for k, inst := range l.Installments {
		if inst.ID == id {
			return k, true
		}
	}
	return -1, false
}
