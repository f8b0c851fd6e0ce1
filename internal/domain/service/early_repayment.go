package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

// EarlyRepayment describes a lump-sum settlement.
type EarlyRepayment struct {
	// CutoverSequence is the first installment waived by the settlement.
	CutoverSequence int
	// Transaction is the single EARLY_REPAYMENT entry covering the lump sum.
	Transaction model.Transaction
	// InterestCharged is the interest of the cutover installment, the only
	// future interest the borrower pays.
	InterestCharged decimal.Decimal
	// WaivedInterest is the unpaid interest of every waived installment.
	WaivedInterest decimal.Decimal
	// Savings is WaivedInterest minus InterestCharged.
	Savings decimal.Decimal
}

// SettleEarly settles the loan at settledAt. The cutover is the first
// unresolved installment due after settledAt.
func (r *Reconciler) SettleEarly(loanID string, ledger model.Ledger, settledAt time.Time) (model.Ledger, EarlyRepayment, error) {
	for k, inst := range ledger.Installments {
		if !inst.IsResolved() && DaysBetween(settledAt, inst.DueDate) > 0 {
			return r.SettleEarlyAt(loanID, ledger, k, settledAt)
		}
	}
	return model.Ledger{}, EarlyRepayment{}, apperr.InvalidState("loan %s has no future installment to settle early", loanID)
}

// SettleEarlyAt settles the loan with installment index cut as cutover.
// Installments from the cutover onward become WAIVED after their remaining
// principal is collected; unresolved installments before it are paid in
// full, fees included. Exactly one EARLY_REPAYMENT transaction is appended.
func (r *Reconciler) SettleEarlyAt(loanID string, ledger model.Ledger, cut int, settledAt time.Time) (model.Ledger, EarlyRepayment, error) {
	n := len(ledger.Installments)
	if cut < 0 || cut >= n {
		return model.Ledger{}, EarlyRepayment{}, apperr.Validation("cutover index must be in [0, %d), got %d", n, cut)
	}
	for _, inst := range ledger.Installments[cut:] {
		if inst.IsResolved() {
			return model.Ledger{}, EarlyRepayment{}, apperr.InvalidState(
				"installment %d after the cutover is already %s", inst.Sequence, inst.Status)
		}
	}

	next := ledger.Clone()
	var alloc model.Allocation

	for k := 0; k < cut; k++ {
		inst := &next.Installments[k]
		if inst.IsResolved() {
			continue
		}
		before := inst.AllocationOf(inst.PaidAmount)
		inst.PaidAmount = inst.Total.Add(inst.LateFee)
		owed := inst.AllocationOf(inst.PaidAmount).Sub(before)
		alloc = addAllocation(alloc, owed)

		daysLate := max(DaysBetween(inst.DueDate, settledAt), 0)
		at := settledAt
		inst.Status = valueobject.InstallmentPaid
		inst.PaymentDate = &at
		inst.DaysLate = daysLate
		inst.IsPaidOnTime = r.policy.IsOnTime(daysLate)
	}

	cutover := next.Installments[cut]
	charged := cutover.Interest.Sub(cutover.InterestPaid())
	waived := decimal.Zero
	for k := cut; k < n; k++ {
		inst := &next.Installments[k]
		alloc.Principal = alloc.Principal.Add(inst.Principal.Sub(inst.PrincipalPaid()))
		waived = waived.Add(inst.Interest.Sub(inst.InterestPaid()))
		inst.Status = valueobject.InstallmentWaived
	}
	alloc.Interest = alloc.Interest.Add(charged)

	tx := model.NewCompletedTransaction(loanID, "", valueobject.TransactionEarlyRepayment, alloc, settledAt)
	next.Transactions = append(next.Transactions, tx)

	return next, EarlyRepayment{
		CutoverSequence: cutover.Sequence,
		Transaction:     tx,
		InterestCharged: charged,
		WaivedInterest:  waived,
		Savings:         waived.Sub(charged),
	}, nil
}

func addAllocation(a, b model.Allocation) model.Allocation {
	return model.Allocation{
		Principal: a.Principal.Add(b.Principal),
		Interest:  a.Interest.Add(b.Interest),
		LateFee:   a.LateFee.Add(b.LateFee),
		OtherFees: a.OtherFees.Add(b.OtherFees),
	}
}
