package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

// Late fees on replaced installments are waived under this actor.
const (
	modificationActor  = "system:modification"
	modificationReason = "forgiven by loan modification"
)

// ModificationTerms are the restructured terms of a loan.
type ModificationTerms struct {
	NewAnnualRatePercent decimal.Decimal
	NewTermMonths        int
	EffectiveDate        time.Time
	PaymentDay           int
}

// Restructuring is the outcome of a modification.
type Restructuring struct {
	// CutIndex is the first installment of the post-modification segment.
	CutIndex int
	// RemainingPrincipal is the principal carried into the new segment,
	// including capitalised past-due interest.
	RemainingPrincipal decimal.Decimal
	MonthlyPayment     decimal.Decimal
}

// Modify splits the schedule at the first unresolved installment. The
// resolved prefix is kept as-is; everything after it is replaced by a fresh
// schedule over the remaining principal at the new rate and term. Unpaid
// interest of installments already due is capitalised, their late fees are
// forgiven. PAYMENT transactions against replaced installments are marked
// SUPERSEDED: their money is already netted into the carried principal, so
// they can no longer be reversed.
func (r *Reconciler) Modify(loanID string, ledger model.Ledger, terms ModificationTerms) (model.Ledger, Restructuring, error) {
	if terms.NewTermMonths <= 0 {
		return model.Ledger{}, Restructuring{}, apperr.Validation("new term must be positive, got %d", terms.NewTermMonths)
	}
	cut := ledger.FirstUnresolved()
	if cut == len(ledger.Installments) {
		return model.Ledger{}, Restructuring{}, apperr.InvalidState("loan %s has nothing left to restructure", loanID)
	}

	remaining := decimal.Zero
	for _, inst := range ledger.Installments[cut:] {
		remaining = remaining.Add(inst.Principal.Sub(inst.PrincipalPaid()))
		if DaysBetween(inst.DueDate, terms.EffectiveDate) >= 0 {
			remaining = remaining.Add(inst.Interest.Sub(inst.InterestPaid()))
		}
	}

	payment, err := model.ComputeMonthlyPayment(remaining, terms.NewAnnualRatePercent, terms.NewTermMonths)
	if err != nil {
		return model.Ledger{}, Restructuring{}, err
	}

	firstSeq := 1
	if cut > 0 {
		firstSeq = ledger.Installments[cut-1].Sequence + 1
	}
	post, err := model.GenerateSchedule(
		model.LoanTerms{LoanID: loanID, Principal: remaining, AnnualRatePercent: terms.NewAnnualRatePercent},
		model.ScheduleOptions{
			StartDate:     terms.EffectiveDate,
			TermMonths:    terms.NewTermMonths,
			PaymentDay:    terms.PaymentDay,
			FirstSequence: firstSeq,
		},
	)
	if err != nil {
		return model.Ledger{}, Restructuring{}, err
	}

	replaced := make(map[string]bool, len(ledger.Installments)-cut)
	for _, inst := range ledger.Installments[cut:] {
		replaced[inst.ID] = true
	}

	next := ledger.Clone()
	next.Installments = append(next.Installments[:cut], post...)
	for k, tx := range next.Transactions {
		if replaced[tx.InstallmentID] && tx.Type == valueobject.TransactionPayment && tx.Status == valueobject.TransactionCompleted {
			next.Transactions[k].Status = valueobject.TransactionSuperseded
		}
	}
	for k, rec := range next.LateFees {
		if !replaced[rec.InstallmentID] || (rec.IsWaived && rec.AppliedFee.IsZero()) {
			continue
		}
		forgiven, err := rec.Waive(decimal.Zero, modificationActor, modificationReason, terms.EffectiveDate)
		if err != nil {
			return model.Ledger{}, Restructuring{}, err
		}
		next.LateFees[k] = forgiven
	}
	return next, Restructuring{CutIndex: cut, RemainingPrincipal: remaining, MonthlyPayment: payment}, nil
}
